package ayushya_test

import (
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goayu/ayushya"
)

type testIdentity struct {
	id    string
	email string
	role  string
}

func (i testIdentity) ID() string    { return i.id }
func (i testIdentity) Email() string { return i.email }
func (i testIdentity) Role() string  { return i.role }

func newTokenService() *ayushya.TokenServiceImpl {
	return ayushya.NewTokenService(
		[]byte("test-signing-key"),
		1,
		"ayushya-test",
		[]string{"ayushya-test"},
		nil,
	)
}

func TestTokenServiceMintAndValidateRoundTrip(t *testing.T) {
	ts := newTokenService()

	identity := testIdentity{
		id:    "550e8400-e29b-41d4-a716-446655440000",
		email: "asha@example.com",
		role:  "member",
	}

	token, expiresAt, err := ts.Mint(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, identity.id, claims.UserID())
	assert.Equal(t, identity.id, claims.Subject())
	assert.Equal(t, identity.email, claims.Email())
	assert.Equal(t, identity.role, claims.Role())
	assert.True(t, claims.HasRole("member"))
	assert.False(t, claims.IsAtLeast("admin"))
}

func TestTokenServiceAssignsTokenID(t *testing.T) {
	ts := newTokenService()

	token, _, err := ts.Mint(testIdentity{id: "user-1", email: "a@example.com", role: "member"})
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	jwtClaims, ok := claims.(*ayushya.JWTClaims)
	require.True(t, ok)
	assert.NotEmpty(t, jwtClaims.RegisteredClaims.ID)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	ts := newTokenService().WithClock(func() time.Time { return past })

	token, _, err := ts.Mint(testIdentity{id: "user-1", email: "a@example.com", role: "member"})
	require.NoError(t, err)

	_, err = newTokenService().Validate(token)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "TOKEN_EXPIRED", richErr.TextCode)
}

func TestTokenServiceRejectsWrongKey(t *testing.T) {
	ts := newTokenService()
	other := ayushya.NewTokenService([]byte("different-key"), 1, "ayushya-test", []string{"ayushya-test"}, nil)

	token, _, err := ts.Mint(testIdentity{id: "user-1", email: "a@example.com", role: "member"})
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "TOKEN_MALFORMED", richErr.TextCode)
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	ts := newTokenService()

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := ts.Validate(token)
		require.Error(t, err, "token %q should not validate", token)
	}
}

func TestTokenServiceRejectsWrongIssuer(t *testing.T) {
	minter := ayushya.NewTokenService([]byte("test-signing-key"), 1, "someone-else", []string{"ayushya-test"}, nil)

	token, _, err := minter.Mint(testIdentity{id: "user-1", email: "a@example.com", role: "member"})
	require.NoError(t, err)

	_, err = newTokenService().Validate(token)
	require.Error(t, err)
}
