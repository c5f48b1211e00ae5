package source

import (
	"context"
	"testing"

	"github.com/Jyouping/brooklin/types"
	"github.com/stretchr/testify/require"
)

func TestStatic_ListPartitions(t *testing.T) {
	t.Run("returns all groups", func(t *testing.T) {
		groups := []types.PartitionsMetadata{
			{Group: types.DatastreamGroup{Name: "orders"}, Partitions: []string{"p0", "p1"}},
			{Group: types.DatastreamGroup{Name: "shipments"}, Partitions: []string{"p0", "p1", "p2"}},
		}
		src := NewStatic(groups...)

		result, err := src.ListPartitions(context.Background())

		require.NoError(t, err)
		require.Len(t, result, 2)
		require.Equal(t, groups, result)
	})

	t.Run("returns empty list when no groups", func(t *testing.T) {
		src := NewStatic()

		result, err := src.ListPartitions(context.Background())

		require.NoError(t, err)
		require.Empty(t, result)
	})

	t.Run("does not expose internal slice for mutation", func(t *testing.T) {
		src := NewStatic(types.PartitionsMetadata{
			Group:      types.DatastreamGroup{Name: "orders"},
			Partitions: []string{"p0"},
		})

		result, err := src.ListPartitions(context.Background())
		require.NoError(t, err)

		result[0].Partitions[0] = "mutated"

		result2, _ := src.ListPartitions(context.Background())
		require.Equal(t, "p0", result2[0].Partitions[0])
	})
}

func TestStatic_Update(t *testing.T) {
	t.Run("replaces an existing group", func(t *testing.T) {
		src := NewStatic(types.PartitionsMetadata{
			Group:      types.DatastreamGroup{Name: "orders"},
			Partitions: []string{"p0"},
		})

		src.Update(types.PartitionsMetadata{
			Group:      types.DatastreamGroup{Name: "orders"},
			Partitions: []string{"p0", "p1", "p2"},
		})

		result, err := src.ListPartitions(context.Background())
		require.NoError(t, err)
		require.Len(t, result, 1)
		require.Equal(t, []string{"p0", "p1", "p2"}, result[0].Partitions)
	})

	t.Run("adds a new group that did not exist before", func(t *testing.T) {
		src := NewStatic()

		src.Update(types.PartitionsMetadata{
			Group:      types.DatastreamGroup{Name: "orders"},
			Partitions: []string{"p0"},
		})

		result, err := src.ListPartitions(context.Background())
		require.NoError(t, err)
		require.Len(t, result, 1)
		require.Equal(t, "orders", result[0].Group.Name)
	})

	t.Run("leaves other groups untouched", func(t *testing.T) {
		src := NewStatic(
			types.PartitionsMetadata{Group: types.DatastreamGroup{Name: "orders"}, Partitions: []string{"p0"}},
			types.PartitionsMetadata{Group: types.DatastreamGroup{Name: "shipments"}, Partitions: []string{"p0"}},
		)

		src.Update(types.PartitionsMetadata{
			Group:      types.DatastreamGroup{Name: "orders"},
			Partitions: []string{"p0", "p1"},
		})

		result, err := src.ListPartitions(context.Background())
		require.NoError(t, err)
		require.Len(t, result, 2)
	})
}
