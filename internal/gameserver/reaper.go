package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/game/session"
	"github.com/cory-johannsen/quizwar/internal/observability"
)

// Reaper periodically removes games that have been idle too long.
//
// Invariant: at most one sweep runs per interval.
type Reaper struct {
	sessions *session.Manager
	interval time.Duration
	idle     time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewReaper returns a Reaper that sweeps sessions every interval and removes
// games untouched for longer than idle.
//
// Precondition: sessions and logger must be non-nil; interval and idle must be > 0.
// now may be nil, selecting time.Now.
func NewReaper(sessions *session.Manager, interval, idle time.Duration, now func() time.Time, logger *zap.Logger) *Reaper {
	if sessions == nil {
		panic("gameserver.NewReaper: sessions must not be nil")
	}
	if logger == nil {
		panic("gameserver.NewReaper: logger must not be nil")
	}
	if interval <= 0 || idle <= 0 {
		panic("gameserver.NewReaper: interval and idle must be > 0")
	}
	if now == nil {
		now = time.Now
	}
	return &Reaper{
		sessions: sessions,
		interval: interval,
		idle:     idle,
		now:      now,
		logger:   logger,
	}
}

// Sweep removes every idle game once and returns their IDs.
func (r *Reaper) Sweep() []string {
	reaped := r.sessions.ReapIdle(r.now(), r.idle)
	for _, id := range reaped {
		r.logger.Info("reaped idle game", observability.GameID(id), zap.Duration("idle", r.idle))
	}
	return reaped
}

// Start begins the sweep loop. Runs until ctx is cancelled.
//
// Postcondition: Sweep is invoked once per interval.
func (r *Reaper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}
