// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// App holds every runtime setting for the service. It satisfies the auth
// package's Config interface through the getter methods below.
type App struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:ayushya.db?cache=shared&_pragma=foreign_keys(1)"`

	SigningKey      string        `env:"AUTH_SIGNING_KEY"`
	SigningMethod   string        `env:"AUTH_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey      string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration int           `env:"AUTH_TOKEN_EXPIRATION_HOURS" envDefault:"168"`
	TokenLookup     string        `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme      string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	Issuer          string        `env:"AUTH_ISSUER" envDefault:"ayushya"`
	Audience        []string      `env:"AUTH_AUDIENCE" envSeparator:"," envDefault:"ayushya"`
	ChallengeWindow time.Duration `env:"AUTH_CHALLENGE_WINDOW" envDefault:"10m"`
	ChallengeMaxAttempts int      `env:"AUTH_CHALLENGE_MAX_ATTEMPTS" envDefault:"5"`
	ChallengeCodeLength  int      `env:"AUTH_CHALLENGE_CODE_LENGTH" envDefault:"6"`
	SessionDuration time.Duration `env:"AUTH_SESSION_DURATION" envDefault:"168h"`

	SweepInterval time.Duration `env:"AUTH_SWEEP_INTERVAL" envDefault:"15m"`

	DBDebug       bool          `env:"DB_DEBUG" envDefault:"false"`
	DBPingTimeout time.Duration `env:"DB_PING_TIMEOUT" envDefault:"5s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// New loads the configuration from environment variables.
func New() (*App, error) {
	cfg, err := env.ParseAs[App]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that have no safe default.
func (c *App) Validate() error {
	if strings.TrimSpace(c.SigningKey) == "" {
		return fmt.Errorf("missing AUTH_SIGNING_KEY environment variable")
	}

	return nil
}

func (c *App) GetSigningKey() string          { return c.SigningKey }
func (c *App) GetSigningMethod() string       { return c.SigningMethod }
func (c *App) GetContextKey() string          { return c.ContextKey }
func (c *App) GetTokenExpiration() int        { return c.TokenExpiration }
func (c *App) GetTokenLookup() string         { return c.TokenLookup }
func (c *App) GetAuthScheme() string          { return c.AuthScheme }
func (c *App) GetIssuer() string              { return c.Issuer }
func (c *App) GetAudience() []string          { return c.Audience }
func (c *App) GetChallengeWindow() time.Duration { return c.ChallengeWindow }
func (c *App) GetChallengeMaxAttempts() int   { return c.ChallengeMaxAttempts }
func (c *App) GetChallengeCodeLength() int    { return c.ChallengeCodeLength }
func (c *App) GetSessionDuration() time.Duration { return c.SessionDuration }
