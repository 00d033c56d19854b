package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Backends  []string    `json:"backends"`
	StoreType string      `json:"store_type"`
	InFlight  int         `json:"in_flight"`
	Runs      int         `json:"runs"`
	LastRun   *RunSummary `json:"last_run,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storeType := "unknown"
	if s.store != nil {
		storeType = "store"
		if comp, ok := s.store.(introspection.Component); ok {
			storeType = comp.ComponentType()
		}
	}

	var last *RunSummary
	if s.last != nil {
		cp := *s.last
		last = &cp
	}

	var backends []string
	if s.registry != nil {
		backends = s.registry.Names()
	}

	return ServiceState{
		Backends:  backends,
		StoreType: storeType,
		InFlight:  s.inFlight,
		Runs:      s.runs,
		LastRun:   last,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "sync-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
