package strategy

import (
	"testing"

	"github.com/Jyouping/brooklin/types"
	"github.com/stretchr/testify/require"
)

func TestRoundRobin_Assign(t *testing.T) {
	t.Run("distributes partitions evenly across instances", func(t *testing.T) {
		strategy := NewRoundRobin()
		instances := []string{"instance-0", "instance-1", "instance-2"}
		partitions := make([]types.Partition, 9)
		for i := range partitions {
			partitions[i] = types.Partition{Keys: []string{string(rune('a' + i))}, Weight: 100}
		}

		assignments, err := strategy.Assign(instances, partitions)

		require.NoError(t, err)
		require.Len(t, assignments, 3)
		require.Len(t, assignments["instance-0"], 3)
		require.Len(t, assignments["instance-1"], 3)
		require.Len(t, assignments["instance-2"], 3)
	})

	t.Run("handles uneven distribution", func(t *testing.T) {
		strategy := NewRoundRobin()
		instances := []string{"instance-0", "instance-1"}
		partitions := make([]types.Partition, 5)
		for i := range partitions {
			partitions[i] = types.Partition{Keys: []string{string(rune('a' + i))}, Weight: 100}
		}

		assignments, err := strategy.Assign(instances, partitions)

		require.NoError(t, err)
		require.Len(t, assignments, 2)
		require.Len(t, assignments["instance-0"], 3)
		require.Len(t, assignments["instance-1"], 2)
	})

	t.Run("returns error when no instances available", func(t *testing.T) {
		strategy := NewRoundRobin()
		instances := []string{}
		partitions := []types.Partition{{Keys: []string{"p0"}, Weight: 100}}

		_, err := strategy.Assign(instances, partitions)

		require.Error(t, err)
		require.Contains(t, err.Error(), "no instances")
	})
}
