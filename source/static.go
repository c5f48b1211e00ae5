package source

import (
	"context"
	"sync"

	"github.com/Jyouping/brooklin/types"
)

// Static implements a PartitionSource with a fixed set of groups and their
// partitions. Useful for testing and for connectors whose partition set is
// known upfront rather than discovered.
type Static struct {
	mu     sync.RWMutex
	groups []types.PartitionsMetadata
}

var _ types.PartitionSource = (*Static)(nil)

// NewStatic creates a static partition source seeded with the given groups.
//
// Example:
//
//	src := source.NewStatic(types.PartitionsMetadata{
//	    Group:      types.DatastreamGroup{Name: "orders"},
//	    Partitions: []string{"p0", "p1", "p2"},
//	})
func NewStatic(groups ...types.PartitionsMetadata) *Static {
	return &Static{
		groups: append([]types.PartitionsMetadata(nil), groups...),
	}
}

// ListPartitions returns the static group/partition set.
//
// Returns:
//   - []types.PartitionsMetadata: The fixed groups and their partitions
//   - error: Always nil (never fails)
func (s *Static) ListPartitions(_ context.Context) ([]types.PartitionsMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]types.PartitionsMetadata, len(s.groups))
	for i, g := range s.groups {
		result[i] = types.PartitionsMetadata{
			Group:      g.Group,
			Partitions: append([]string(nil), g.Partitions...),
		}
	}

	return result, nil
}

// Update replaces a single group's partition list, leaving other groups
// untouched. This lets a static source simulate partition changes during
// tests.
//
// Example:
//
//	src := source.NewStatic(initial)
//	src.Update(types.PartitionsMetadata{
//	    Group:      types.DatastreamGroup{Name: "orders"},
//	    Partitions: expandedPartitions,
//	})
func (s *Static) Update(group types.PartitionsMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, g := range s.groups {
		if g.Group.Name == group.Group.Name {
			s.groups[i] = types.PartitionsMetadata{
				Group:      group.Group,
				Partitions: append([]string(nil), group.Partitions...),
			}
			return
		}
	}

	s.groups = append(s.groups, types.PartitionsMetadata{
		Group:      group.Group,
		Partitions: append([]string(nil), group.Partitions...),
	})
}
