package ayushya_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goayu/ayushya"
)

var testDBCounter atomic.Int64

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)

	// cache=shared needs a pinned connection to keep the memory DB alive
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{
		(*ayushya.User)(nil),
		(*ayushya.Challenge)(nil),
		(*ayushya.Session)(nil),
		(*ayushya.ActivityRecord)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	return db
}

func newTestRepo(t *testing.T) ayushya.RepositoryManager {
	t.Helper()
	return ayushya.NewRepositoryManager(newTestDB(t))
}

// testConfig satisfies ayushya.Config with deterministic values.
type testConfig struct {
	signingKey      string
	tokenExpiration int
	window          time.Duration
	maxAttempts     int
	codeLength      int
	sessionDuration time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		tokenExpiration: 1,
		window:          10 * time.Minute,
		maxAttempts:     5,
		codeLength:      6,
		sessionDuration: time.Hour,
	}
}

func (c *testConfig) GetSigningKey() string               { return c.signingKey }
func (c *testConfig) GetSigningMethod() string            { return "HS256" }
func (c *testConfig) GetContextKey() string               { return "user" }
func (c *testConfig) GetTokenExpiration() int             { return c.tokenExpiration }
func (c *testConfig) GetTokenLookup() string              { return "header:Authorization" }
func (c *testConfig) GetAuthScheme() string               { return "Bearer" }
func (c *testConfig) GetIssuer() string                   { return "ayushya-test" }
func (c *testConfig) GetAudience() []string               { return []string{"ayushya-test"} }
func (c *testConfig) GetChallengeWindow() time.Duration   { return c.window }
func (c *testConfig) GetChallengeMaxAttempts() int        { return c.maxAttempts }
func (c *testConfig) GetChallengeCodeLength() int         { return c.codeLength }
func (c *testConfig) GetSessionDuration() time.Duration   { return c.sessionDuration }

// capturingSink records activity events for assertions.
type capturingSink struct {
	events []ayushya.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt ayushya.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) kinds() []ayushya.ActivityEventType {
	out := make([]ayushya.ActivityEventType, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType)
	}
	return out
}

// codeCapture is a Notifier that remembers the last delivered code.
type codeCapture struct {
	email string
	code  string
	sent  int
}

func (c *codeCapture) SendCode(ctx context.Context, email, code string) error {
	c.email = email
	c.code = code
	c.sent++
	return nil
}
