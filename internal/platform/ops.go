package platform

import (
	"context"

	"github.com/aretw0/sprintboard/pkg/adapters/fs"
	"github.com/aretw0/sprintboard/pkg/adapters/s3store"
	"github.com/aretw0/sprintboard/pkg/core"
)

// Open returns the document store behind a vault without building a service.
// The vault is a directory path or an "s3://bucket/prefix" URI.
func Open(vault string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return openStore(vault, o)
}

func openStore(vault string, o *options) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	if s3store.IsURI(vault) {
		return openS3(vault, o)
	}
	return openFS(vault, o)
}

func openFS(path string, o *options) (core.Store, error) {
	bypassSafety := o.readOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypassSafety)
	resolved := ResolveVaultPath(path, useTemp)

	if o.logger != nil && resolved != path && useTemp {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolved)
	}

	store := fs.NewStore(fs.Config{
		Root:        resolved,
		ReadOnly:    o.readOnly,
		MustExist:   o.mustExist,
		LockTimeout: o.lockTimeout,
		Logger:      o.logger,
	})
	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func openS3(uri string, o *options) (core.Store, error) {
	bucket, prefix, err := s3store.ParseURI(uri)
	if err != nil {
		return nil, core.NewError(core.KindIO, "open vault", err)
	}
	store, err := s3store.New(context.Background(), s3store.Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Endpoint:     o.s3.endpoint,
		Region:       o.s3.region,
		AccessKey:    o.s3.accessKey,
		SecretKey:    o.s3.secretKey,
		UsePathStyle: o.s3.pathStyle,
		Logger:       o.logger,
	})
	if err != nil {
		return nil, core.NewError(core.KindIO, "open vault", err)
	}
	return store, nil
}
