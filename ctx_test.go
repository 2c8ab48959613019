package ayushya_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goayu/ayushya"
)

func TestUserContextRoundTrip(t *testing.T) {
	u := &ayushya.User{Email: "asha@example.com"}

	ctx := ayushya.WithContext(context.Background(), u)
	got, ok := ayushya.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, u, got)

	_, ok = ayushya.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := &ayushya.JWTClaims{UID: "u-1", UserEmail: "asha@example.com"}

	ctx := ayushya.WithClaimsContext(context.Background(), claims)
	got, ok := ayushya.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-1", got.UserID())

	_, ok = ayushya.GetClaims(context.Background())
	assert.False(t, ok)
}

func TestActorFromContextDefaultsToSystem(t *testing.T) {
	actor := ayushya.ActorFromContext(context.Background())
	assert.Equal(t, "system", actor.Type)
	assert.Empty(t, actor.ID)

	ctx := ayushya.WithActorContext(context.Background(), &ayushya.ActorRef{ID: "u-1", Type: "user"})
	actor = ayushya.ActorFromContext(ctx)
	assert.Equal(t, "u-1", actor.ID)
	assert.Equal(t, "user", actor.Type)
}

func TestActorContextFromClaims(t *testing.T) {
	assert.Nil(t, ayushya.ActorContextFromClaims(nil))
	assert.Nil(t, ayushya.ActorContextFromClaims(&ayushya.JWTClaims{}))

	actor := ayushya.ActorContextFromClaims(&ayushya.JWTClaims{UID: "u-1"})
	require.NotNil(t, actor)
	assert.Equal(t, "u-1", actor.ID)
	assert.Equal(t, "user", actor.Type)
}
