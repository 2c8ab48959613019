package ayushya

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}
var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// WithActorContext stores the acting principal for audit purposes
func WithActorContext(r context.Context, actor *ActorRef) context.Context {
	return context.WithValue(r, actorCtxKey, actor)
}

// ActorFromContext retrieves the acting principal, defaulting to system
func ActorFromContext(ctx context.Context) ActorRef {
	if actor, ok := ctx.Value(actorCtxKey).(*ActorRef); ok && actor != nil {
		return *actor
	}
	return ActorRef{Type: "system"}
}

// ActorContextFromClaims builds an ActorRef from verified claims
func ActorContextFromClaims(claims AuthClaims) *ActorRef {
	if claims == nil {
		return nil
	}
	id := claims.UserID()
	if id == "" {
		return nil
	}
	return &ActorRef{
		ID:   id,
		Type: "user",
	}
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}
