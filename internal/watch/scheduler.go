// Package watch repeats discovery rounds on a fixed interval until
// cancelled.
//
// The scheduler is a small state machine (Idle -> Running -> Stopped).
// Each loop iteration runs one full round, publishes the result,
// persists it, and then sleeps. The sleep is cancellable, so a stop
// signal issued mid-sleep is honored immediately; a stop signal issued
// mid-round lets the round complete, publish, and persist first. A
// partial round is never published or persisted.
package watch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kasaops/kasascan/internal/device"
)

// State is the lifecycle state of a Scheduler.
type State int32

const (
	Idle State = iota
	Running
	Stopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DefaultInterval is the pause between rounds when none is configured.
const DefaultInterval = 5 * time.Second

// Round performs one complete discovery round and returns the records
// it produced, already deterministically ordered.
type Round func(ctx context.Context) ([]device.Record, error)

// Scheduler drives {discover -> render -> persist} on a fixed interval.
// Configure the fields before calling Run; they must not be changed
// afterwards.
type Scheduler struct {
	// Interval is the pause between the end of one round and the start
	// of the next.
	Interval time.Duration

	// Round runs one discovery round. Required.
	Round Round

	// Publish renders a completed round. Optional.
	Publish func(records []device.Record, at time.Time)

	// Persist stores a completed round. Optional. A persist failure is
	// fatal and stops the scheduler.
	Persist func(records []device.Record, at time.Time) error

	state atomic.Int32
}

// State returns the scheduler's lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run executes rounds until ctx is cancelled or a fatal error occurs.
// Cancellation is a clean stop and returns nil; round and persist
// failures return the error.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Round == nil {
		return fmt.Errorf("scheduler has no round function")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return fmt.Errorf("scheduler is %s, not idle", s.State())
	}
	defer s.state.Store(int32(Stopped))

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		// A stop that arrived during the previous sleep is honored
		// before starting another round.
		if ctx.Err() != nil {
			return nil
		}

		records, err := s.Round(ctx)
		if err != nil {
			return fmt.Errorf("discovery round failed: %w", err)
		}

		// The completed round is always published and persisted, even
		// if cancellation arrived while it was running.
		now := time.Now()
		if s.Publish != nil {
			s.Publish(records, now)
		}
		if s.Persist != nil {
			if err := s.Persist(records, now); err != nil {
				return fmt.Errorf("failed to persist round: %w", err)
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(interval)

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}
