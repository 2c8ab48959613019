package ayushya_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goayu/ayushya"
)

func newChallengeService(t *testing.T, opts ...ayushya.ChallengeOption) (*ayushya.ChallengeService, ayushya.RepositoryManager) {
	t.Helper()
	repo := newTestRepo(t)
	svc := ayushya.NewChallengeService(repo.Challenges(), opts...)
	return svc, repo
}

func TestChallengeIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChallengeService(t)

	challenge, err := svc.Issue(ctx, "Asha@Example.com")
	require.NoError(t, err)
	require.Len(t, challenge.Code, 6)
	assert.Equal(t, "asha@example.com", challenge.Email)

	verified, err := svc.Verify(ctx, "asha@example.com", challenge.Code)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Equal(t, challenge.ID, verified.ID)
}

func TestChallengeReissueSupersedes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChallengeService(t)

	first, err := svc.Issue(ctx, "asha@example.com")
	require.NoError(t, err)

	second, err := svc.Issue(ctx, "asha@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	// The displaced code is dead even when it would otherwise match.
	_, err = svc.Verify(ctx, "asha@example.com", first.Code)
	require.Error(t, err)

	if first.Code == second.Code {
		t.Skip("codes collided, supersession not distinguishable this run")
	}

	verified, err := svc.Verify(ctx, "asha@example.com", second.Code)
	require.NoError(t, err)
	assert.Equal(t, second.ID, verified.ID)
}

func TestChallengeVerifyUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChallengeService(t)

	_, err := svc.Verify(ctx, "nobody@example.com", "123456")
	require.Error(t, err)
}

func TestChallengeWrongCodeCountsAttempts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChallengeService(t)

	challenge, err := svc.Issue(ctx, "asha@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == challenge.Code {
		wrong = "000001"
	}

	for i := 1; i < svc.MaxAttempts(); i++ {
		_, err := svc.Verify(ctx, "asha@example.com", wrong)
		require.Error(t, err)
	}

	// Attempt budget spent, even the correct code is refused now.
	_, err = svc.Verify(ctx, "asha@example.com", wrong)
	require.Error(t, err)

	_, err = svc.Verify(ctx, "asha@example.com", challenge.Code)
	require.Error(t, err)
}

func TestChallengeConcurrentWrongGuessesNeverOvercount(t *testing.T) {
	ctx := context.Background()
	svc, repo := newChallengeService(t)

	challenge, err := svc.Issue(ctx, "asha@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == challenge.Code {
		wrong = "000001"
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Verify(ctx, "asha@example.com", wrong)
		}()
	}
	wg.Wait()

	record, err := repo.Challenges().GetPending(ctx, "asha@example.com")
	if err != nil {
		// Exhaustion deletes the record, which is also a valid outcome.
		return
	}
	assert.LessOrEqual(t, record.Attempts, svc.MaxAttempts())
}

func TestChallengeExpiryIsTerminal(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &now
	svc, _ := newChallengeService(t, ayushya.WithChallengeClock(func() time.Time { return *clock }))

	challenge, err := svc.Issue(ctx, "asha@example.com")
	require.NoError(t, err)

	later := now.Add(11 * time.Minute)
	clock = &later

	_, err = svc.Verify(ctx, "asha@example.com", challenge.Code)
	require.Error(t, err)

	// Record was removed, a retry now reports not-found rather than expired.
	_, err = svc.Verify(ctx, "asha@example.com", challenge.Code)
	require.Error(t, err)
}

func TestChallengeVerifiedCodeDoesNotReplay(t *testing.T) {
	ctx := context.Background()
	svc, _ := newChallengeService(t)

	challenge, err := svc.Issue(ctx, "asha@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "asha@example.com", challenge.Code)
	require.NoError(t, err)

	// A claimed challenge no longer counts as pending.
	_, err = svc.Verify(ctx, "asha@example.com", challenge.Code)
	require.Error(t, err)
}

func TestChallengeCleanupExpiredIsIdempotent(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &now
	svc, _ := newChallengeService(t, ayushya.WithChallengeClock(func() time.Time { return *clock }))

	_, err := svc.Issue(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = svc.Issue(ctx, "b@example.com")
	require.NoError(t, err)

	later := now.Add(time.Hour)
	clock = &later

	removed, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
