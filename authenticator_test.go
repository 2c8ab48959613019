package ayushya_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goayu/ayushya"
)

func newTestAuther(t *testing.T) (*ayushya.Auther, ayushya.RepositoryManager, *codeCapture, *capturingSink) {
	t.Helper()

	repo := newTestRepo(t)
	notifier := &codeCapture{}
	sink := &capturingSink{}

	auther := ayushya.NewAuthenticator(repo, newTestConfig()).
		WithNotifier(notifier).
		WithActivitySink(sink).
		WithNotifyTimeout(time.Second)

	return auther, repo, notifier, sink
}

// login walks the full passwordless flow and returns the result.
func login(t *testing.T, auther *ayushya.Auther, repo ayushya.RepositoryManager, email string) *ayushya.AuthResult {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, auther.RequestChallenge(ctx, email, ayushya.Origin{IP: "10.0.0.1", UserAgent: "test"}))

	challenge, err := repo.Challenges().GetPending(ctx, ayushya.NormalizeEmail(email))
	require.NoError(t, err)

	result, err := auther.CompleteVerification(ctx, email, challenge.Code, ayushya.Origin{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.NotNil(t, result)

	return result
}

func TestCompleteVerificationProvisionsNewAccount(t *testing.T) {
	auther, repo, notifier, sink := newTestAuther(t)

	result := login(t, auther, repo, "Asha@Example.com")

	assert.True(t, result.IsNewUser)
	require.NotNil(t, result.User)
	assert.Equal(t, "asha@example.com", result.User.Email)
	assert.Equal(t, ayushya.UserStatusActive, result.User.Status)
	assert.Equal(t, ayushya.RoleMember, result.User.Role)
	require.NotNil(t, result.User.LastLoginAt)
	require.NotNil(t, result.Session)
	assert.True(t, result.Session.Active)
	assert.Equal(t, "10.0.0.1", result.Session.IPAddress)
	assert.NotEmpty(t, result.Token)

	// Delivery happened asynchronously, wait for it briefly.
	require.Eventually(t, func() bool { return notifier.sent > 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "asha@example.com", notifier.email)

	assert.Contains(t, sink.kinds(), ayushya.ActivityEventChallengeRequested)
}

func TestCompleteVerificationSecondLoginIsNotNew(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)

	first := login(t, auther, repo, "asha@example.com")
	second := login(t, auther, repo, "asha@example.com")

	assert.True(t, first.IsNewUser)
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
}

func TestCompleteVerificationRejectsWrongCode(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)
	ctx := context.Background()

	require.NoError(t, auther.RequestChallenge(ctx, "asha@example.com", ayushya.Origin{}))

	challenge, err := repo.Challenges().GetPending(ctx, "asha@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == challenge.Code {
		wrong = "000001"
	}

	_, err = auther.CompleteVerification(ctx, "asha@example.com", wrong, ayushya.Origin{})
	require.Error(t, err)
	assert.True(t, ayushya.IsUnauthorizedError(err))
	// The caller sees a generic refusal, not which check failed.
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestCompleteVerificationConsumesChallenge(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)
	ctx := context.Background()

	result := login(t, auther, repo, "asha@example.com")
	require.NotNil(t, result)

	// Consumed with session creation, nothing pending remains.
	_, err := repo.Challenges().GetPending(ctx, "asha@example.com")
	require.Error(t, err)
}

func TestTokenAuthoritySplit(t *testing.T) {
	auther2, repo2, _, _ := newTestAuther(t)

	result := login(t, auther2, repo2, "asha@example.com")
	ctx := context.Background()

	// Both checks pass while the session lives.
	_, err := auther2.VerifyToken(result.Token)
	require.NoError(t, err)
	_, _, err = auther2.AuthorizeSession(ctx, result.Token)
	require.NoError(t, err)

	_, err = auther2.InvalidateAllSessions(ctx, ayushya.ActorRef{Type: "system"}, result.User.ID)
	require.NoError(t, err)

	// Stateless verification still passes, the token itself is intact.
	_, err = auther2.VerifyToken(result.Token)
	require.NoError(t, err)

	// The store-consulting check now refuses.
	_, _, err = auther2.AuthorizeSession(ctx, result.Token)
	require.Error(t, err)
	assert.True(t, ayushya.IsUnauthorizedError(err))
}

func TestLogoutIsIdempotent(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)
	ctx := context.Background()

	result := login(t, auther, repo, "asha@example.com")

	require.NoError(t, auther.Logout(ctx, result.Token, ayushya.Origin{}))
	require.NoError(t, auther.Logout(ctx, result.Token, ayushya.Origin{}))
	require.NoError(t, auther.Logout(ctx, "garbage-token", ayushya.Origin{}))

	_, _, err := auther.AuthorizeSession(ctx, result.Token)
	require.Error(t, err)
}

func TestListAndInvalidateSessions(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)
	ctx := context.Background()

	first := login(t, auther, repo, "asha@example.com")
	second := login(t, auther, repo, "asha@example.com")

	sessions, err := auther.ListSessions(ctx, first.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.NoError(t, auther.InvalidateSession(ctx, ayushya.ActorRef{Type: "system"}, first.Session.ID))

	sessions, err = auther.ListSessions(ctx, first.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second.Session.ID, sessions[0].ID)

	// Revoking again succeeds quietly.
	require.NoError(t, auther.InvalidateSession(ctx, ayushya.ActorRef{Type: "system"}, first.Session.ID))

	// Unknown ids error.
	err = auther.InvalidateSession(ctx, ayushya.ActorRef{Type: "system"}, second.User.ID)
	require.Error(t, err)
}

func TestDeactivateRevokesSessionsAndBlocksLogin(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)
	ctx := context.Background()

	result := login(t, auther, repo, "asha@example.com")

	user, err := auther.Deactivate(ctx, ayushya.ActorRef{ID: "ops", Type: "admin"}, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, ayushya.UserStatusDeactivated, user.Status)
	require.NotNil(t, user.DeactivatedAt)

	// Sessions were revoked by the transition hook.
	sessions, err := auther.ListSessions(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, _, err = auther.AuthorizeSession(ctx, result.Token)
	require.Error(t, err)

	// Even a fresh, correct code is refused while deactivated.
	require.NoError(t, auther.RequestChallenge(ctx, "asha@example.com", ayushya.Origin{}))
	challenge, err := repo.Challenges().GetPending(ctx, "asha@example.com")
	require.NoError(t, err)

	_, err = auther.CompleteVerification(ctx, "asha@example.com", challenge.Code, ayushya.Origin{})
	require.Error(t, err)
	assert.True(t, ayushya.IsUnauthorizedError(err))
}

func TestReactivateRestoresLogin(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)
	ctx := context.Background()

	result := login(t, auther, repo, "asha@example.com")

	_, err := auther.Deactivate(ctx, ayushya.ActorRef{ID: "ops", Type: "admin"}, result.User.ID)
	require.NoError(t, err)

	user, err := auther.Reactivate(ctx, ayushya.ActorRef{ID: "ops", Type: "admin"}, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, ayushya.UserStatusActive, user.Status)
	assert.Nil(t, user.DeactivatedAt)

	again := login(t, auther, repo, "asha@example.com")
	assert.False(t, again.IsNewUser)
}

func TestSessionFromTokenViews(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)

	result := login(t, auther, repo, "asha@example.com")

	session, err := auther.SessionFromToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), session.GetUserID())
	assert.Equal(t, "asha@example.com", session.GetEmail())
	assert.Equal(t, ayushya.RoleMember, session.GetRole())

	_, err = auther.SessionFromToken("garbage")
	require.Error(t, err)
}

func TestCleanupExpiredSessions(t *testing.T) {
	auther, repo, _, _ := newTestAuther(t)
	ctx := context.Background()

	result := login(t, auther, repo, "asha@example.com")
	_ = result

	removed, err := auther.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	// Push the clock past the session's fixed expiry.
	future := time.Now().Add(48 * time.Hour)
	auther.WithClock(func() time.Time { return future })

	removed, err = auther.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
