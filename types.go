package ayushya

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator holds methods to drive the passwordless login flow
type Authenticator interface {
	RequestChallenge(ctx context.Context, email string, origin Origin) error
	CompleteVerification(ctx context.Context, email, code string, origin Origin) (*AuthResult, error)
	VerifyToken(token string) (AuthClaims, error)
	Authorize(ctx context.Context, token string) (*User, error)
	Logout(ctx context.Context, token string, origin Origin) error
	SessionFromToken(token string) (*SessionObject, error)
}

// SessionManager exposes session lifecycle operations
type SessionManager interface {
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error)
	InvalidateSession(ctx context.Context, actor ActorRef, sessionID uuid.UUID) error
	InvalidateAllSessions(ctx context.Context, actor ActorRef, userID uuid.UUID) (int, error)
	TouchSession(ctx context.Context, sessionID uuid.UUID) error
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetChallengeWindow() time.Duration
	GetChallengeMaxAttempts() int
	GetChallengeCodeLength() int
	GetSessionDuration() time.Duration
}

// Notifier delivers one-time codes to a contact point.
type Notifier interface {
	SendCode(ctx context.Context, email, code string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, email, code string) error

func (f NotifierFunc) SendCode(ctx context.Context, email, code string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, code)
}

// TokenService mints and validates the JWTs backing sessions
type TokenService interface {
	Mint(identity Identity) (string, time.Time, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(token string) (AuthClaims, error)
}

// Origin captures where a request came from, for session and audit records.
type Origin struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

func (o Origin) IsZero() bool {
	return o.IP == "" && o.UserAgent == ""
}

// AuthResult is what a completed verification hands back to the transport layer.
type AuthResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
	Session   *Session  `json:"session"`
	IsNewUser bool      `json:"is_new_user"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
