// Package lifecycle bridges sync triggers to the lifecycle event model, so a
// long-running host can consume file watchers and schedules uniformly.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/sprintboard/pkg/core"
)

type triggerSource struct {
	interval time.Duration
	inputs   []<-chan core.Trigger
	out      chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that merges the trigger channels and,
// when interval is positive, adds a "scheduled" trigger on every tick.
// The event channel closes once ctx is done or every input is closed and no
// schedule is configured.
func NewSource(interval time.Duration, inputs ...<-chan core.Trigger) lifecycle.Source {
	return &triggerSource{
		interval: interval,
		inputs:   inputs,
		out:      make(chan lifecycle.Event),
	}
}

func (s *triggerSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *triggerSource) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	forward := func(t core.Trigger) bool {
		select {
		case s.out <- t:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, in := range s.inputs {
		wg.Add(1)
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return nil
				case t, ok := <-in:
					if !ok || !forward(t) {
						return nil
					}
				}
			}
		})
	}

	if s.interval > 0 {
		wg.Add(1)
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer wg.Done()
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case now := <-ticker.C:
					if !forward(core.Trigger{Reason: "scheduled", At: now}) {
						return nil
					}
				}
			}
		})
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		wg.Wait()
		close(s.out)
		return nil
	})
	return nil
}
