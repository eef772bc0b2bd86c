package types

import "context"

// ActorType identifies the kind of authenticated entity making a request.
type ActorType string

const ActorTypeUser ActorType = "user"

// Actor represents the authenticated identity performing an operation.
// Its absence from a context is the "unauthenticated" state.
type Actor struct {
	ID        string
	Type      ActorType
	SessionID string
}

type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "request_id"
)

// WithActor stores the Actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the Actor from the context.
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// UserIDFromContext returns the authenticated user's ID, or false when the
// context carries no identity.
func UserIDFromContext(ctx context.Context) (string, bool) {
	actor, ok := GetActor(ctx)
	if !ok || actor.ID == "" {
		return "", false
	}
	return actor.ID, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
