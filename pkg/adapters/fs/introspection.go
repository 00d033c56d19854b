package fs

import (
	"sort"
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Root      string     `json:"root"`
	ReadOnly  bool       `json:"read_only"`
	Reads     int        `json:"reads"`
	Writes    int        `json:"writes"`
	Commits   int        `json:"commits"`
	Locked    []string   `json:"locked,omitempty"`
	LastWrite *time.Time `json:"last_write,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locked := make([]string, 0, len(s.heldLocks))
	for name := range s.heldLocks {
		locked = append(locked, name)
	}
	sort.Strings(locked)

	return StoreState{
		Root:      s.root,
		ReadOnly:  s.config.ReadOnly,
		Reads:     s.reads,
		Writes:    s.writes,
		Commits:   s.commits,
		Locked:    locked,
		LastWrite: s.lastWrite,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "fs-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
