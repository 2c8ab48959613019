package ayushya

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Auther orchestrates the passwordless login flow: challenge issuance,
// verification, token minting, and session lifecycle.
type Auther struct {
	repo            RepositoryManager
	challenges      *ChallengeService
	tokenService    TokenService
	notifier        Notifier
	activitySink    ActivitySink
	logger          Logger
	sessionDuration time.Duration
	notifyTimeout   time.Duration
	now             func() time.Time
}

var (
	_ Authenticator  = (*Auther)(nil)
	_ SessionManager = (*Auther)(nil)
)

// NewAuthenticator returns a new Auther wired from configuration.
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	challengeOpts := []ChallengeOption{}
	if cfg.GetChallengeWindow() > 0 {
		challengeOpts = append(challengeOpts, WithChallengeWindow(cfg.GetChallengeWindow()))
	}
	if cfg.GetChallengeMaxAttempts() > 0 {
		challengeOpts = append(challengeOpts, WithChallengeMaxAttempts(cfg.GetChallengeMaxAttempts()))
	}
	if cfg.GetChallengeCodeLength() > 0 {
		challengeOpts = append(challengeOpts, WithChallengeCodeLength(cfg.GetChallengeCodeLength()))
	}

	sessionDuration := cfg.GetSessionDuration()
	if sessionDuration <= 0 {
		sessionDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	return &Auther{
		repo:            repo,
		challenges:      NewChallengeService(repo.Challenges(), challengeOpts...),
		tokenService:    tokenService,
		activitySink:    noopActivitySink{},
		logger:          defLogger{},
		sessionDuration: sessionDuration,
		notifyTimeout:   10 * time.Second,
		now:             time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNotifier sets the code delivery channel.
func (s *Auther) WithNotifier(notifier Notifier) *Auther {
	s.notifier = notifier
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService sets a custom token service.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithClock injects a custom time source, propagated to the challenge machine.
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.now = clock
		WithChallengeClock(clock)(s.challenges)
	}
	return s
}

// WithNotifyTimeout bounds how long code delivery may take before we give up.
func (s *Auther) WithNotifyTimeout(d time.Duration) *Auther {
	if d > 0 {
		s.notifyTimeout = d
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// ChallengeService returns the challenge state machine used by this Authenticator
func (s *Auther) ChallengeService() *ChallengeService {
	return s.challenges
}

// RequestChallenge issues a one-time-code for the contact point and hands it
// to the notifier. Delivery failure never fails the request, the code stays
// verifiable and the failure lands in logs.
func (s *Auther) RequestChallenge(ctx context.Context, email string, origin Origin) error {
	email = NormalizeEmail(email)

	if !IsEmail(email) {
		return ErrInvalidEmail.WithMetadata(map[string]any{
			"email": email,
		})
	}

	challenge, err := s.challenges.Issue(ctx, email)
	if err != nil {
		s.logger.Error("RequestChallenge issue error", "email", email, "error", err)
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventChallengeRequested, ActorRef{Type: "anonymous"}, "", origin, map[string]any{
		"email": email,
	})

	if s.notifier == nil {
		s.logger.Warn("RequestChallenge has no notifier configured", "email", email)
		return nil
	}

	// Delivery is fire-and-forget with its own deadline. The request context
	// ends when the HTTP response goes out, so we detach from it.
	go func(code string) {
		nctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.SendCode(nctx, email, code); err != nil {
			s.logger.Error("RequestChallenge notify error", "email", email, "error", err)
		}
	}(challenge.Code)

	return nil
}

// CompleteVerification validates a presented code, provisions the account on
// first login, and opens a session. The challenge is consumed in the same
// transaction that creates the session, a crash leaves either both or neither.
func (s *Auther) CompleteVerification(ctx context.Context, email, code string, origin Origin) (*AuthResult, error) {
	email = NormalizeEmail(email)

	challenge, err := s.challenges.Verify(ctx, email, code)
	if err != nil {
		s.recordVerificationFailure(ctx, email, origin, err)
		return nil, collapseAuthError(err)
	}

	var result *AuthResult

	err = s.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		user, isNew, err := s.repo.Users().GetOrProvisionTx(ctx, tx, email)
		if err != nil {
			return err
		}

		if err := statusAuthError(user.Status); err != nil {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), origin, map[string]any{
				"email":  email,
				"status": string(user.Status),
			})
			return err
		}

		now := s.now()
		if err := s.repo.Users().TrackLoginTx(ctx, tx, user.ID, now); err != nil {
			return err
		}
		user.LastLoginAt = &now
		user.Status = UserStatusActive

		token, expiresAt, err := s.tokenService.Mint(identityFromUser(user))
		if err != nil {
			return err
		}

		session := &Session{
			UserID:    user.ID,
			Token:     token,
			Active:    true,
			IPAddress: origin.IP,
			UserAgent: origin.UserAgent,
			CreatedAt: &now,
			ExpiresAt: now.Add(s.sessionDuration),
		}

		session, err = s.repo.Sessions().CreateTx(ctx, tx, session)
		if err != nil {
			return err
		}

		if err := s.repo.Challenges().ConsumeTx(ctx, tx, challenge.ID); err != nil {
			return err
		}

		actor := s.actorFromUser(user)

		if isNew {
			s.appendActivityTx(ctx, tx, ActivityEventUserCreated, actor, user.ID, origin, map[string]any{
				"email": email,
			})
		}

		s.appendActivityTx(ctx, tx, ActivityEventLoginSuccess, actor, user.ID, origin, map[string]any{
			"email": email,
		})
		s.appendActivityTx(ctx, tx, ActivityEventSessionCreated, actor, user.ID, origin, map[string]any{
			"session_id": session.ID.String(),
		})

		result = &AuthResult{
			User:      user,
			Token:     token,
			ExpiresAt: expiresAt,
			Session:   session,
			IsNewUser: isNew,
		}

		return nil
	})

	if err != nil {
		if IsUnauthorizedError(err) {
			return nil, collapseAuthError(err)
		}
		s.logger.Error("CompleteVerification transaction error", "email", email, "error", err)
		return nil, err
	}

	return result, nil
}

// VerifyToken checks a token's signature and expiry without consulting the
// session store. Stateless by design, use AuthorizeSession when revocation
// matters.
func (s *Auther) VerifyToken(token string) (AuthClaims, error) {
	return s.tokenService.Validate(token)
}

// SessionFromToken builds the claims-derived session view from a raw token.
func (s *Auther) SessionFromToken(raw string) (*SessionObject, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

// Authorize resolves a token to its account and rejects callers whose
// account is no longer active.
func (s *Auther) Authorize(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, collapseAuthError(err)
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	if err := statusAuthError(user.Status); err != nil {
		return nil, collapseAuthError(err)
	}

	return user, nil
}

// AuthorizeSession is the stricter sibling of Authorize: the backing session
// record must still be alive. An invalidated session fails here even though
// the token itself still verifies.
func (s *Auther) AuthorizeSession(ctx context.Context, token string) (*User, *Session, error) {
	user, err := s.Authorize(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.repo.Sessions().ActiveByToken(ctx, token, s.now())
	if err != nil {
		if goerrors.IsNotFound(err) || IsUnauthorizedError(err) {
			return nil, nil, collapseAuthError(ErrSessionNotFound)
		}
		return nil, nil, err
	}

	// Stamp last activity; the fixed expiry is never extended.
	now := s.now()
	if err := s.repo.Sessions().Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("session touch error", "session_id", session.ID, "error", err)
	} else {
		session.LastActivityAt = &now
	}

	return user, session, nil
}

// Logout invalidates the session behind a token and records the event. An
// invalid or unknown token is acknowledged quietly, logout is idempotent.
func (s *Auther) Logout(ctx context.Context, token string, origin Origin) error {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		s.logger.Debug("Logout with invalid token", "error", err)
		return nil
	}

	session, err := s.repo.Sessions().InvalidateByToken(ctx, token)
	if err != nil && !goerrors.IsNotFound(err) {
		return err
	}

	metadata := map[string]any{}
	if session != nil {
		metadata["session_id"] = session.ID.String()
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: claims.UserID(), Type: "user"}, claims.UserID(), origin, metadata)

	return nil
}

// ListSessions returns the live sessions for an account, newest first.
func (s *Auther) ListSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	return s.repo.Sessions().ListActive(ctx, userID, s.now())
}

// InvalidateSession revokes a single session. Revoking one that is already
// inactive succeeds quietly, an unknown id errors.
func (s *Auther) InvalidateSession(ctx context.Context, actor ActorRef, sessionID uuid.UUID) error {
	session, err := s.repo.Sessions().Invalidate(ctx, sessionID)
	if err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventSessionInvalidated, actor, session.UserID.String(), Origin{}, map[string]any{
		"session_id": sessionID.String(),
	})

	return nil
}

// InvalidateAllSessions revokes every live session for an account, returning
// how many were touched.
func (s *Auther) InvalidateAllSessions(ctx context.Context, actor ActorRef, userID uuid.UUID) (int, error) {
	count, err := s.repo.Sessions().InvalidateAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.emitAuthEvent(ctx, ActivityEventSessionInvalidated, actor, userID.String(), Origin{}, map[string]any{
			"count": count,
		})
	}

	return count, nil
}

// TouchSession stamps last activity on a live session.
func (s *Auther) TouchSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.repo.Sessions().Touch(ctx, sessionID, s.now())
}

// Deactivate disables an account and revokes its sessions in one move.
func (s *Auther) Deactivate(ctx context.Context, actor ActorRef, userID uuid.UUID, opts ...TransitionOption) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound.WithMetadata(map[string]any{"id": userID.String()})
		}
		return nil, err
	}

	opts = append(opts, WithAfterTransitionHook(func(ctx context.Context, tc TransitionContext) error {
		count, err := s.repo.Sessions().InvalidateAllForUser(ctx, tc.User.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			s.emitAuthEvent(ctx, ActivityEventSessionInvalidated, tc.Actor, tc.User.ID.String(), Origin{}, map[string]any{
				"count":  count,
				"reason": "user deactivated",
			})
		}
		return nil
	}))

	return s.repo.Users().Deactivate(ctx, actor, user, opts...)
}

// Reactivate re-enables a deactivated account. Old sessions stay revoked,
// the user logs in again from scratch.
func (s *Auther) Reactivate(ctx context.Context, actor ActorRef, userID uuid.UUID, opts ...TransitionOption) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound.WithMetadata(map[string]any{"id": userID.String()})
		}
		return nil, err
	}

	return s.repo.Users().Reactivate(ctx, actor, user, opts...)
}

// CleanupExpiredChallenges removes challenges past their window.
func (s *Auther) CleanupExpiredChallenges(ctx context.Context) (int, error) {
	return s.challenges.CleanupExpired(ctx)
}

// CleanupExpiredSessions removes sessions past their fixed expiry.
func (s *Auther) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return s.repo.Sessions().DeleteExpired(ctx, s.now())
}

func (s *Auther) userFromClaims(ctx context.Context, claims AuthClaims) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, collapseAuthError(ErrUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *Auther) recordVerificationFailure(ctx context.Context, email string, origin Origin, err error) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return
	}

	// Only guess-related failures are audit-worthy. A missing or expired
	// challenge says nothing about the caller.
	switch richErr.TextCode {
	case ErrCodeMismatch.TextCode, ErrAttemptsExhausted.TextCode:
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "anonymous"}, "", origin, map[string]any{
			"email":  email,
			"reason": richErr.TextCode,
		})
	}
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, origin Origin, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	if actor == (ActorRef{}) {
		actor = ActorFromContext(ctx)
	}
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Origin:    origin,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) appendActivityTx(ctx context.Context, tx bun.IDB, eventType ActivityEventType, actor ActorRef, userID uuid.UUID, origin Origin, metadata map[string]any) {
	record := recordFromEvent(ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID.String(),
		Origin:     origin,
		Metadata:   metadata,
		OccurredAt: s.now(),
	})

	if err := s.repo.Activity().AppendTx(ctx, tx, record); err != nil {
		s.logger.Warn("activity append error", "kind", eventType, "error", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}
