package strategy

import (
	"errors"

	"github.com/Jyouping/brooklin/internal/hash"
	"github.com/Jyouping/brooklin/types"
)

// ConsistentHash implements consistent hashing with virtual nodes.
type ConsistentHash struct {
	virtualNodes int
	hashSeed     uint64
}

var _ types.AssignmentStrategy = (*ConsistentHash)(nil)

// ConsistentHashOption configures a ConsistentHash strategy.
type ConsistentHashOption func(*ConsistentHash)

// NewConsistentHash creates a new consistent hash strategy.
//
// The strategy uses a hash ring with virtual nodes to distribute partitions
// evenly across instances while minimizing partition movement during scaling.
// Adding one instance to N moves roughly 1/(N+1) of the partitions; the rest
// keep their instance.
//
// Parameters:
//   - opts: Optional configuration (WithVirtualNodes, WithHashSeed)
//
// Returns:
//   - *ConsistentHash: Initialized consistent hash strategy
//
// Example:
//
//	strategy := strategy.NewConsistentHash(
//	    strategy.WithVirtualNodes(300),
//	)
//	mgr, err := brooklin.NewManager(&cfg, conn, src, strategy)
func NewConsistentHash(opts ...ConsistentHashOption) *ConsistentHash {
	ch := &ConsistentHash{
		virtualNodes: 150, // default
		hashSeed:     0,
	}

	for _, opt := range opts {
		opt(ch)
	}

	return ch
}

// WithVirtualNodes sets the number of virtual nodes per instance.
//
// Higher values provide better distribution but increase memory usage.
// Recommended range: 100-300 (default: 150).
//
// Parameters:
//   - nodes: Number of virtual nodes per instance
//
// Returns:
//   - ConsistentHashOption: Configuration option
func WithVirtualNodes(nodes int) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.virtualNodes = nodes
	}
}

// WithHashSeed sets a custom hash seed for consistent hashing.
//
// Parameters:
//   - seed: Hash seed value
//
// Returns:
//   - ConsistentHashOption: Configuration option
func WithHashSeed(seed uint64) ConsistentHashOption {
	return func(ch *ConsistentHash) {
		ch.hashSeed = seed
	}
}

// Assign calculates partition assignments using consistent hashing.
//
// The algorithm:
//  1. Build hash ring with virtual nodes for each instance
//  2. Place each partition on ring based on hash of partition keys
//  3. Assign partition to nearest clockwise virtual node
//
// This strategy ignores partition.Weight; use WeightedConsistentHash when
// partitions carry significantly different load.
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
func (ch *ConsistentHash) Assign(instances []string, partitions []types.Partition) (map[string][]types.Partition, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	// Create hash ring with all instances
	ring := hash.NewRing(instances, ch.virtualNodes, ch.hashSeed)

	// Initialize assignments map
	assignments := make(map[string][]types.Partition)
	for _, instance := range instances {
		assignments[instance] = []types.Partition{}
	}

	// Assign each partition to a instance using consistent hashing
	for _, partition := range partitions {
		instance := ring.GetNodeForPartition(partition)
		if instance == "" {
			// This shouldn't happen if instances were added successfully
			return nil, errors.New("consistent hash returned empty instance")
		}
		assignments[instance] = append(assignments[instance], partition)
	}

	return assignments, nil
}
