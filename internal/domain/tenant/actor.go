package tenant

import "context"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleDriver Role = "driver"
)

// Actor - участник, от имени которого выполняется вызов.
type Actor struct {
	MemberID string
	Role     Role
}

func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

type contextKey string

const actorKey contextKey = "actor"

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
