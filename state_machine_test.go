package ayushya_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goayu/ayushya"
)

func seedUser(t *testing.T, repo ayushya.RepositoryManager, status ayushya.UserStatus) *ayushya.User {
	t.Helper()

	user, err := repo.Users().Create(context.Background(), &ayushya.User{
		Email:  "lifecycle@example.com",
		Status: status,
	})
	require.NoError(t, err)
	return user
}

func TestStateMachineDeactivateSetsTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusActive)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	sm := ayushya.NewUserStateMachine(repo.Users(), ayushya.WithStateMachineClock(func() time.Time { return now }))

	result, err := sm.Transition(context.Background(), ayushya.ActorRef{ID: "admin"}, user, ayushya.UserStatusDeactivated)
	require.NoError(t, err)
	assert.Equal(t, ayushya.UserStatusDeactivated, result.Status)
	require.NotNil(t, result.DeactivatedAt)
	assert.Equal(t, now, result.DeactivatedAt.UTC())
}

func TestStateMachineReactivateClearsTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusActive)
	sm := ayushya.NewUserStateMachine(repo.Users())
	ctx := context.Background()

	user, err := sm.Transition(ctx, ayushya.ActorRef{ID: "admin"}, user, ayushya.UserStatusDeactivated)
	require.NoError(t, err)

	user, err = sm.Transition(ctx, ayushya.ActorRef{ID: "admin"}, user, ayushya.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, ayushya.UserStatusActive, user.Status)
	assert.Nil(t, user.DeactivatedAt)
}

func TestStateMachineRejectsInvalidTransition(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusPending)
	sm := ayushya.NewUserStateMachine(repo.Users())

	_, err := sm.Transition(context.Background(), ayushya.ActorRef{}, user, ayushya.UserStatusArchived)
	require.Error(t, err)
}

func TestStateMachineArchivedIsTerminal(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusActive)
	sm := ayushya.NewUserStateMachine(repo.Users())
	ctx := context.Background()

	user, err := sm.Transition(ctx, ayushya.ActorRef{}, user, ayushya.UserStatusArchived)
	require.NoError(t, err)

	_, err = sm.Transition(ctx, ayushya.ActorRef{}, user, ayushya.UserStatusActive)
	require.Error(t, err)
}

func TestStateMachineForceBypassesValidation(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusPending)
	sm := ayushya.NewUserStateMachine(repo.Users())

	result, err := sm.Transition(
		context.Background(),
		ayushya.ActorRef{},
		user,
		ayushya.UserStatusArchived,
		ayushya.WithForceTransition(),
	)
	require.NoError(t, err)
	assert.Equal(t, ayushya.UserStatusArchived, result.Status)
}

func TestStateMachineSameStatusIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusActive)
	sm := ayushya.NewUserStateMachine(repo.Users())

	result, err := sm.Transition(context.Background(), ayushya.ActorRef{}, user, ayushya.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, ayushya.UserStatusActive, result.Status)
}

func TestStateMachineEmitsStatusChangedEvent(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusActive)
	sink := &capturingSink{}
	sm := ayushya.NewUserStateMachine(repo.Users(),
		ayushya.WithStateMachineActivitySink(sink),
	)

	_, err := sm.Transition(
		context.Background(),
		ayushya.ActorRef{ID: "ops", Type: "admin"},
		user,
		ayushya.UserStatusDeactivated,
		ayushya.WithTransitionReason("policy violation"),
	)
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	evt := sink.events[0]
	assert.Equal(t, ayushya.ActivityEventUserStatusChanged, evt.EventType)
	assert.Equal(t, ayushya.UserStatusActive, evt.FromStatus)
	assert.Equal(t, ayushya.UserStatusDeactivated, evt.ToStatus)
	assert.Equal(t, "policy violation", evt.Metadata["reason"])
	assert.Equal(t, "ops", evt.Actor.ID)
}

func TestStateMachineBeforeHookBlocksTransition(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusActive)
	sm := ayushya.NewUserStateMachine(repo.Users(),
		ayushya.WithStateMachineHookErrorHandler(func(ctx context.Context, phase ayushya.TransitionHookPhase, err error, tc ayushya.TransitionContext) error {
			return err
		}),
	)

	_, err := sm.Transition(
		context.Background(),
		ayushya.ActorRef{},
		user,
		ayushya.UserStatusDeactivated,
		ayushya.WithBeforeTransitionHook(func(ctx context.Context, tc ayushya.TransitionContext) error {
			return context.Canceled
		}),
	)
	require.Error(t, err)

	// The persisted status is untouched.
	fresh, err := repo.Users().GetByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ayushya.UserStatusActive, fresh.Status)
}

func TestRepositoryDeactivateEmitsEvent(t *testing.T) {
	sink := &capturingSink{}
	repo := ayushya.NewRepositoryManager(newTestDB(t),
		ayushya.WithUsersStateMachineOptions(ayushya.WithStateMachineActivitySink(sink)),
	)
	user := seedUser(t, repo, ayushya.UserStatusActive)

	updated, err := repo.Users().Deactivate(
		context.Background(),
		ayushya.ActorRef{ID: "ops", Type: "admin"},
		user,
		ayushya.WithTransitionReason("account closure"),
	)
	require.NoError(t, err)
	require.NotNil(t, updated.DeactivatedAt)
	assert.Equal(t, ayushya.UserStatusDeactivated, updated.Status)

	require.Len(t, sink.events, 1)
	evt := sink.events[0]
	assert.Equal(t, ayushya.ActivityEventUserStatusChanged, evt.EventType)
	assert.Equal(t, ayushya.UserStatusActive, evt.FromStatus)
	assert.Equal(t, ayushya.UserStatusDeactivated, evt.ToStatus)
	assert.Equal(t, "account closure", evt.Metadata["reason"])

	reactivated, err := repo.Users().Reactivate(
		context.Background(),
		ayushya.ActorRef{ID: "ops", Type: "admin"},
		updated,
	)
	require.NoError(t, err)
	assert.Nil(t, reactivated.DeactivatedAt)
	require.Len(t, sink.events, 2)
	assert.Equal(t, ayushya.UserStatusActive, sink.events[1].ToStatus)
}

func TestRepositoryUsesInjectedStateMachine(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, ayushya.UserStatusActive)

	frozen := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	custom := ayushya.NewUserStateMachine(repo.Users(),
		ayushya.WithStateMachineClock(func() time.Time { return frozen }),
	)
	wired := ayushya.NewRepositoryManager(newTestDB(t),
		ayushya.WithUsersStateMachine(custom),
	)

	updated, err := wired.Users().Deactivate(context.Background(), ayushya.ActorRef{}, user)
	require.NoError(t, err)
	require.NotNil(t, updated.DeactivatedAt)
	assert.Equal(t, frozen, updated.DeactivatedAt.UTC())
}
