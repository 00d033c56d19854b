package platform

import (
	"github.com/aretw0/sprintboard/pkg/adapters/markdown"
	"github.com/aretw0/sprintboard/pkg/core"
)

// New composes a sync service over the given vault.
//
//	svc, err := sprintboard.New("./vault", sprintboard.WithLogger(logger))
//
// The vault is a directory path or an "s3://bucket/prefix" URI.
func New(vault string, opts ...Option) (*core.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	store, err := openStore(vault, o)
	if err != nil {
		return nil, err
	}

	registry := o.registry
	if registry == nil {
		registry = DefaultRegistry(o.httpClient, o.logger)
	}

	var svcOpts []core.ServiceOption
	if o.logger != nil {
		svcOpts = append(svcOpts, core.WithServiceLogger(o.logger))
	}
	return core.NewService(registry, store, markdown.NewCodec(), svcOpts...), nil
}
