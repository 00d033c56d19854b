package core

import (
	"fmt"
	"time"
)

// Trigger asks for a sync. Watchers and schedulers emit them; the host runs
// one sync per trigger it receives.
type Trigger struct {
	Reason string
	Path   string
	At     time.Time
}

func (t Trigger) String() string {
	if t.Path == "" {
		return fmt.Sprintf("sync trigger: %s", t.Reason)
	}
	return fmt.Sprintf("sync trigger: %s (%s)", t.Reason, t.Path)
}
