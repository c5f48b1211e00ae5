package hooks

import (
	"context"
	"testing"

	"github.com/Jyouping/brooklin/types"
	"github.com/stretchr/testify/require"
)

func TestNewNop(t *testing.T) {
	hooks := NewNop()

	require.NotNil(t, hooks.OnAssignmentChanged)
	require.NotNil(t, hooks.OnError)
}

func TestNopHooks_OnAssignmentChanged(t *testing.T) {
	hooks := NewNop()
	ctx := context.Background()

	added := []types.Task{
		{Name: "orders-0", Group: types.DatastreamGroup{Name: "orders"}, Partitions: []string{"p1"}},
		{Name: "orders-1", Group: types.DatastreamGroup{Name: "orders"}, Partitions: []string{"p2"}},
	}
	removed := []types.Task{
		{Name: "orders-2", Group: types.DatastreamGroup{Name: "orders"}, Partitions: []string{"p3"}},
	}

	err := hooks.OnAssignmentChanged(ctx, added, removed)
	require.NoError(t, err)
}

func TestNopHooks_OnError(t *testing.T) {
	hooks := NewNop()
	ctx := context.Background()

	testErr := context.Canceled
	err := hooks.OnError(ctx, testErr)
	require.NoError(t, err)
}
