package ayushya

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often the sweeper prunes expired records.
const DefaultSweepInterval = 15 * time.Minute

// Sweeper periodically removes expired challenges and sessions so the
// tables only hold live state plus a short tail.
type Sweeper struct {
	auth     *Auther
	interval time.Duration
	logger   Logger
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithSweeperLogger(logger Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSweeper(auth *Auther, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		auth:     auth,
		interval: DefaultSweepInterval,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run blocks, sweeping every interval until ctx is cancelled. Sweep
// failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single pruning pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	challenges, err := s.auth.CleanupExpiredChallenges(ctx)
	if err != nil {
		s.logger.Error("challenge sweep error", "error", err)
	}

	sessions, err := s.auth.CleanupExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("session sweep error", "error", err)
	}

	if challenges > 0 || sessions > 0 {
		s.logger.Info("sweep complete", "challenges", challenges, "sessions", sessions)
	}
}
