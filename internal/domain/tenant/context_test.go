package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Set(t *testing.T) {
	tc := New("")

	_, err := tc.Require()
	assert.ErrorIs(t, err, ErrTenantNotSet)
	assert.False(t, tc.IsSet())

	tc.Set("tenant-a")

	id, err := tc.Require()
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", id)
	assert.True(t, tc.IsCurrent("tenant-a"))
	assert.False(t, tc.IsCurrent("tenant-b"))
	assert.False(t, tc.IsCurrent(""))
}

func TestContext_SetCancelsPreviousScope(t *testing.T) {
	tc := New("tenant-a")
	idA, ctxA := tc.Scope()
	require.Equal(t, "tenant-a", idA)
	require.NoError(t, ctxA.Err())

	tc.Set("tenant-b")

	assert.ErrorIs(t, ctxA.Err(), context.Canceled)
	idB, ctxB := tc.Scope()
	assert.Equal(t, "tenant-b", idB)
	assert.NoError(t, ctxB.Err())
}

func TestContext_SetSameTenantKeepsScope(t *testing.T) {
	tc := New("tenant-a")
	_, ctxA := tc.Scope()

	calls := 0
	tc.Subscribe(func(_, _ string) { calls++ })
	tc.Set("tenant-a")

	assert.NoError(t, ctxA.Err())
	assert.Equal(t, 0, calls)
}

func TestContext_Subscribe(t *testing.T) {
	tc := New("tenant-a")

	var seen [][2]string
	cancel := tc.Subscribe(func(old, current string) {
		seen = append(seen, [2]string{old, current})
	})

	tc.Set("tenant-b")
	cancel()
	cancel() // повторная отписка ничего не ломает
	tc.Set("tenant-c")

	assert.Equal(t, [][2]string{{"tenant-a", "tenant-b"}}, seen)
}

func TestActor(t *testing.T) {
	ctx := context.Background()

	_, ok := ActorFrom(ctx)
	assert.False(t, ok)

	ctx = WithActor(ctx, Actor{MemberID: "owner-1", Role: RoleOwner})
	actor, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.True(t, actor.IsOwner())
	assert.False(t, Actor{Role: RoleDriver}.IsOwner())
}
