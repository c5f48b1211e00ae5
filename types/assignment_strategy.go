package types

// AssignmentStrategy calculates partition assignments for a set of instances.
//
// Strategies implement different assignment algorithms:
//   - ConsistentHash: Consistent hashing with virtual nodes (adding one instance to N moves roughly 1/(N+1) of partitions)
//   - RoundRobin: Simple round-robin distribution (no cache affinity)
//   - Custom: User-defined algorithms
//
// The Coordinator calls Assign only from Bootstrap, to place a group's
// initial tasks on instances; later rebalances and moves go through the
// sticky partition strategy instead.
//
// Strategy implementations should:
//   - Be deterministic (same input → same output)
//   - Handle edge cases (no instances, no partitions, weights)
//   - Run quickly (called on hot path)
//   - Be stateless (no side effects)
type AssignmentStrategy interface {
	// Assign calculates partition assignments for the given instances.
	//
	// The strategy should distribute partitions across instances considering:
	//   - Partition weights (if supported)
	//   - Load balancing (even distribution)
	//   - Cache affinity (minimize reassignment)
	//
	// Parameters:
	//   - instances: List of instance IDs to assign partitions to
	//   - partitions: List of partitions to assign
	//
	// Returns:
	//   - map[string][]Partition: Map from instanceID to assigned partitions
	//   - error: Assignment error (e.g., ErrNoInstancesAvailable)
	Assign(instances []string, partitions []Partition) (map[string][]Partition, error)
}
