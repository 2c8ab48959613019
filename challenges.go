package ayushya

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultChallengeWindow is how long a one-time-code stays verifiable.
	DefaultChallengeWindow = 10 * time.Minute
	// DefaultMaxAttempts bounds mismatched guesses per challenge.
	DefaultMaxAttempts = 5
)

// ChallengeService drives the one-time-code state machine: issue, supersede,
// verify, expire. It owns no transport concerns, delivery belongs to Notifier.
type ChallengeService struct {
	repo        Challenges
	window      time.Duration
	maxAttempts int
	codeLength  int
	now         func() time.Time
	logger      Logger
}

// ChallengeOption customizes a ChallengeService.
type ChallengeOption func(*ChallengeService)

// WithChallengeWindow overrides the verification window.
func WithChallengeWindow(window time.Duration) ChallengeOption {
	return func(s *ChallengeService) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithChallengeMaxAttempts overrides the attempt budget.
func WithChallengeMaxAttempts(max int) ChallengeOption {
	return func(s *ChallengeService) {
		if max > 0 {
			s.maxAttempts = max
		}
	}
}

// WithChallengeCodeLength overrides how many digits a code carries.
func WithChallengeCodeLength(length int) ChallengeOption {
	return func(s *ChallengeService) {
		if length > 0 {
			s.codeLength = length
		}
	}
}

// WithChallengeClock injects a custom clock (useful for tests).
func WithChallengeClock(clock func() time.Time) ChallengeOption {
	return func(s *ChallengeService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithChallengeLogger overrides the logger.
func WithChallengeLogger(logger Logger) ChallengeOption {
	return func(s *ChallengeService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewChallengeService returns a service backed by the given repository.
func NewChallengeService(repo Challenges, opts ...ChallengeOption) *ChallengeService {
	s := &ChallengeService{
		repo:        repo,
		window:      DefaultChallengeWindow,
		maxAttempts: DefaultMaxAttempts,
		codeLength:  DefaultCodeLength,
		now:         time.Now,
		logger:      defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// MaxAttempts exposes the configured attempt budget.
func (s *ChallengeService) MaxAttempts() int {
	return s.maxAttempts
}

// Window exposes the configured verification window.
func (s *ChallengeService) Window() time.Duration {
	return s.window
}

// Issue creates a fresh challenge for the contact point, displacing any
// previous one. Requesting again always supersedes, never extends.
func (s *ChallengeService) Issue(ctx context.Context, email string) (*Challenge, error) {
	email = NormalizeEmail(email)

	code, err := GenerateCode(s.codeLength)
	if err != nil {
		return nil, err
	}

	superseded, err := s.repo.Supersede(ctx, email)
	if err != nil {
		return nil, err
	}

	if superseded > 0 {
		s.logger.Debug("challenge superseded", "email", email, "count", superseded)
	}

	now := s.now()
	record := &Challenge{
		ID:        uuid.New(),
		Email:     email,
		Code:      code,
		Attempts:  0,
		CreatedAt: &now,
		ExpiresAt: now.Add(s.window),
	}

	return s.repo.Create(ctx, record)
}

// Verify checks a presented code against the pending challenge for the
// contact point. Terminal outcomes (expiry, exhaustion) remove the record so
// nothing dangles. The successful record is claimed but not yet consumed,
// callers delete it inside the same transaction that provisions the session.
func (s *ChallengeService) Verify(ctx context.Context, email, code string) (*Challenge, error) {
	email = NormalizeEmail(email)

	challenge, err := s.repo.GetPending(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if challenge.ExpiredAt(now) {
		if err := s.repo.Consume(ctx, challenge.ID); err != nil {
			s.logger.Warn("failed to remove expired challenge", "id", challenge.ID, "error", err)
		}
		return nil, ErrChallengeExpired.WithMetadata(map[string]any{
			"email":      email,
			"expired_at": challenge.ExpiresAt,
		})
	}

	if challenge.Attempts >= s.maxAttempts {
		if err := s.repo.Consume(ctx, challenge.ID); err != nil {
			s.logger.Warn("failed to remove exhausted challenge", "id", challenge.ID, "error", err)
		}
		return nil, ErrAttemptsExhausted.WithMetadata(map[string]any{
			"email":    email,
			"attempts": challenge.Attempts,
		})
	}

	if !CodeEqual(code, challenge.Code) {
		attempts, _, err := s.repo.IncrementAttempts(ctx, challenge.ID, s.maxAttempts)
		if err != nil {
			return nil, err
		}
		return nil, ErrCodeMismatch.WithMetadata(map[string]any{
			"email":    email,
			"attempts": attempts,
		})
	}

	claimed, err := s.repo.ClaimVerified(ctx, challenge.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Another verification claimed this challenge first.
		return nil, ErrChallengeNotFound.WithMetadata(map[string]any{
			"email": email,
		})
	}

	challenge.Verified = true
	return challenge, nil
}

// CleanupExpired removes every challenge past its window. Safe to run
// repeatedly, a second sweep finds nothing.
func (s *ChallengeService) CleanupExpired(ctx context.Context) (int, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
