package s3store

import "github.com/aretw0/introspection"

// StoreState exposes internal state for observability.
type StoreState struct {
	Location string `json:"location"`
	Endpoint string `json:"endpoint,omitempty"`
	Reads    int    `json:"reads"`
	Writes   int    `json:"writes"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreState{
		Location: s.Location(),
		Endpoint: s.config.Endpoint,
		Reads:    s.reads,
		Writes:   s.writes,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "s3-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
