package strategy

import (
	"errors"
	"slices"

	"github.com/Jyouping/brooklin/types"
)

// RoundRobin implements simple round-robin partition assignment.
type RoundRobin struct{}

var _ types.AssignmentStrategy = (*RoundRobin)(nil)

// NewRoundRobin creates a new round-robin strategy.
//
// The strategy distributes partitions evenly across instances in a simple
// round-robin fashion. This provides predictable assignment but does not
// preserve cache affinity during scaling.
//
// Returns:
//   - *RoundRobin: Initialized round-robin strategy
//
// Example:
//
//	strategy := strategy.NewRoundRobin()
//	mgr, err := brooklin.NewManager(&cfg, conn, src, strategy)
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Assign calculates partition assignments using round-robin distribution.
//
// The algorithm:
//  1. Sort instances so the slot mapping doesn't depend on caller order
//  2. Walk partitions in the order given, distributing them round-robin
//     across the sorted instance slots
//
// Parameters:
//   - instances: List of instance IDs (e.g., ["instance-0", "instance-1"])
//   - partitions: List of partitions to assign
//
// Returns:
//   - map[string][]types.Partition: Map from instanceID to assigned partitions
//   - error: Assignment error (e.g., no instances available)
//
// Example:
//
//	assignments, err := strategy.Assign(
//	    []string{"instance-0", "instance-1"},
//	    partitions,
//	)
func (rr *RoundRobin) Assign(instances []string, partitions []types.Partition) (map[string][]types.Partition, error) {
	if len(instances) == 0 {
		return nil, errors.New("no instances available for assignment")
	}

	// Sort a copy so the instance-to-slot mapping doesn't depend on the
	// caller's iteration order over its member set.
	sorted := slices.Clone(instances)
	slices.Sort(sorted)

	// Initialize assignments map
	assignments := make(map[string][]types.Partition)
	for _, id := range sorted {
		assignments[id] = []types.Partition{}
	}

	// Distribute partitions round-robin across instances
	for i, p := range partitions {
		instanceIdx := i % len(sorted)
		instance := sorted[instanceIdx]
		assignments[instance] = append(assignments[instance], p)
	}

	return assignments, nil
}
