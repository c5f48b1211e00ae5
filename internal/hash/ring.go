package hash

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"

	"github.com/Jyouping/brooklin/types"
)

// Ring implements a consistent hash ring with virtual nodes.
//
// The ring maps partition keys to instances using consistent hashing, which
// provides stable assignments with minimal changes during scaling events.
// It backs the initial (non-sticky) placement strategies that seed a
// group's assignment before StickyPartitionStrategy takes over rebalancing.
type Ring struct {
	// nodes contains all virtual nodes on the ring, sorted by hash
	nodes []virtualNode

	// instances holds the unique list of instances present on the ring
	instances []string

	// seed for hash function (0 means no seed)
	seed uint64
}

// virtualNode represents a virtual node on the hash ring.
type virtualNode struct {
	hash        uint64 // Position on the ring
	instanceID  string // Instance owning this virtual node
	instanceIdx int    // Index of the instance in the instances slice
}

// NewRing creates a new consistent hash ring.
//
// Parameters:
//   - instances: List of instance IDs to place on the ring
//   - virtualNodesPerInstance: Number of virtual nodes per instance (higher = better distribution)
//   - seed: Seed for hash function (0 hashes unseeded; placement is deterministic either way)
//
// Returns:
//   - *Ring: Initialized hash ring
//
// Example:
//
//	ring := hash.NewRing([]string{"instance-0", "instance-1"}, 150, 0)
//	instanceID := ring.GetNode(partitionKey)
func NewRing(instances []string, virtualNodesPerInstance int, seed uint64) *Ring {
	ring := &Ring{
		nodes:     make([]virtualNode, 0, len(instances)*virtualNodesPerInstance),
		instances: nil,
		seed:      seed,
	}

	// Deduplicate instances while preserving order
	if len(instances) > 0 {
		seen := make(map[string]struct{}, len(instances))
		uniq := make([]string, 0, len(instances))
		for _, id := range instances {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
		ring.instances = uniq
	} else {
		ring.instances = []string{}
	}

	// Add virtual nodes for each instance, tracking instance index inline
	for i, instanceID := range ring.instances {
		ring.addInstance(instanceID, i, virtualNodesPerInstance)
	}

	// Sort nodes by hash for binary search
	slices.SortFunc(ring.nodes, func(a, b virtualNode) int {
		if a.hash < b.hash {
			return -1
		}
		if a.hash > b.hash {
			return 1
		}

		return 0
	})

	return ring
}

// GetNode finds the instance responsible for a partition key.
//
// Uses binary search to find the first virtual node whose hash is >= partition hash.
// If no such node exists (partition hash > all nodes), wraps around to first node.
//
// Parameters:
//   - key: Partition key (typically concatenated partition.Keys)
//
// Returns:
//   - string: Instance ID responsible for this key
func (r *Ring) GetNode(key string) string {
	if len(r.nodes) == 0 {
		return ""
	}

	h := r.hash(key)

	return r.getNodeByHash(h)
}

// GetNodeForPartition finds the instance for a partition.
//
// Parameters:
//   - partition: Partition to assign
//
// Returns:
//   - string: Instance ID responsible for this partition
func (r *Ring) GetNodeForPartition(partition types.Partition) string {
	if len(partition.Keys) == 0 {
		return ""
	}

	// Hash partition keys using Partition.HashIDSeed which folds each key into
	// a single xxh3 64-bit hash without building an intermediate joined string.
	// This is zero-allocation and stable: earlier keys become the seed for later ones.
	h := partition.HashIDSeed(r.seed)

	return r.getNodeByHash(h)
}

// Instances returns the list of unique instances on the ring.
func (r *Ring) Instances() []string {
	// Return a copy to avoid external mutation
	return append([]string(nil), r.instances...)
}

// GetNodeIndexForPartition returns the instance index responsible for the given partition, or -1 if none.
// This avoids an extra map lookup in hot assignment paths by skipping the instanceID indirection.
func (r *Ring) GetNodeIndexForPartition(partition types.Partition) int {
	if len(partition.Keys) == 0 || len(r.nodes) == 0 {
		return -1
	}

	h := partition.HashIDSeed(r.seed)
	idx, found := slices.BinarySearchFunc(r.nodes, h, func(node virtualNode, t uint64) int {
		if node.hash < t {
			return -1
		}
		if node.hash > t {
			return 1
		}

		return 0
	})

	if !found && idx >= len(r.nodes) {
		idx = 0
	}

	return r.nodes[idx].instanceIdx
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

// addInstance adds virtual nodes for an instance to the ring.
func (r *Ring) addInstance(instanceID string, instanceIdx int, virtualNodes int) {
	for i := range virtualNodes {
		// Compute hash for (instanceID, i) without building a concatenated string.
		// Fold instanceID, then vnode index using previous hash as seed for stable distribution.
		var h uint64
		if r.seed != 0 {
			h = xxh3.HashStringSeed(instanceID, r.seed)
		} else {
			h = xxh3.HashString(instanceID)
		}

		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		h = xxh3.HashSeed(ib[:], h)

		r.nodes = append(r.nodes, virtualNode{
			hash:        h,
			instanceID:  instanceID,
			instanceIdx: instanceIdx,
		})
	}
}

// hash computes a 64-bit hash of the key using XXH3.
//
// Uses XXH3 for both seeded and unseeded hashing for consistent performance.
func (r *Ring) hash(key string) uint64 {
	if r.seed != 0 {
		return xxh3.HashStringSeed(key, r.seed)
	}

	return xxh3.HashString(key)
}

// getNodeByHash returns the instance for a given hash value using binary search over the ring.
func (r *Ring) getNodeByHash(target uint64) string {
	// Binary search for first node >= target
	idx, found := slices.BinarySearchFunc(r.nodes, target, func(node virtualNode, t uint64) int {
		if node.hash < t {
			return -1
		}
		if node.hash > t {
			return 1
		}

		return 0
	})

	// If exact match found or idx points to valid position, use it
	// If idx >= len(nodes), wrap around to first node
	if !found && idx >= len(r.nodes) {
		idx = 0
	}

	return r.nodes[idx].instanceID
}

// WeightedRing extends Ring with partition weight awareness.
//
// Assigns partitions considering both consistent hashing and partition weights
// to achieve better load balancing when partition costs vary significantly
// (e.g. a binlog partition carrying a high-traffic schema versus one that is
// mostly idle).
type WeightedRing struct {
	*Ring

	// instanceWeights tracks the actual weight assigned to each instance so far
	instanceWeights map[string]int64
}

// NewWeighted creates a weighted consistent hash ring.
//
// Parameters:
//   - instances: List of instance IDs
//   - virtualNodesPerInstance: Virtual nodes per instance
//   - seed: Hash seed
//
// Returns:
//   - *WeightedRing: Initialized weighted ring
func NewWeighted(instances []string, virtualNodesPerInstance int, seed uint64) *WeightedRing {
	return &WeightedRing{
		Ring:            NewRing(instances, virtualNodesPerInstance, seed),
		instanceWeights: make(map[string]int64),
	}
}

// AssignPartitions assigns partitions to instances using weighted consistent hashing.
//
// Algorithm:
//  1. Use consistent hash ring to get initial candidate instance for each partition
//  2. Track cumulative weight assigned to each instance
//  3. If an instance becomes overloaded (weight > avgWeight * 1.15), spill the
//     partition onto the least-loaded instance instead, breaking ties by
//     instance ID so repeated runs over the same input are reproducible
//  4. This balances load while maintaining high cache affinity
//
// Partitions are processed in descending weight order so that the heaviest
// partitions get first claim on their preferred instance; this keeps the
// most expensive binlog ranges from being the ones displaced by the overload
// check, which would otherwise tend to bounce them between instances.
//
// Parameters:
//   - partitions: Partitions to assign
//
// Returns:
//   - map[string][]types.Partition: Instance ID to assigned partitions
func (wr *WeightedRing) AssignPartitions(partitions []types.Partition) map[string][]types.Partition {
	assignments := make(map[string][]types.Partition)
	wr.instanceWeights = make(map[string]int64)

	if len(partitions) == 0 {
		return assignments
	}

	// Calculate total weight and average per instance
	totalWeight := int64(0)
	weightOf := make([]int64, len(partitions))
	for i, p := range partitions {
		weight := p.Weight
		if weight == 0 {
			weight = 100 // default
		}
		weightOf[i] = weight
		totalWeight += weight
	}

	instances := wr.Instances()
	if len(instances) == 0 {
		return assignments
	}

	avgWeight := totalWeight / int64(len(instances))
	maxWeight := avgWeight * 115 / 100 // Allow 15% over average

	order := make([]int, len(partitions))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if weightOf[a] != weightOf[b] {
			return int(weightOf[b] - weightOf[a]) // heaviest first
		}

		return 0
	})

	// Assign each partition, heaviest first
	for _, idx := range order {
		partition := partitions[idx]
		weight := weightOf[idx]

		// Get consistent hash candidate
		instanceID := wr.GetNodeForPartition(partition)

		// If adding this partition would overload the candidate, spill to the
		// least-loaded instance instead
		if wr.instanceWeights[instanceID]+weight > maxWeight {
			instanceID = wr.lightestInstance()
		}

		// Assign partition
		assignments[instanceID] = append(assignments[instanceID], partition)
		wr.instanceWeights[instanceID] += weight
	}

	return assignments
}

// InstanceWeight returns the total weight assigned to an instance.
func (wr *WeightedRing) InstanceWeight(instanceID string) int64 {
	return wr.instanceWeights[instanceID]
}

// lightestInstance returns the instance with the lowest current weight,
// breaking ties on the lexicographically smaller instance ID so that
// AssignPartitions produces the same result across repeated runs over
// the same input.
func (wr *WeightedRing) lightestInstance() string {
	instances := wr.Instances()
	if len(instances) == 0 {
		return ""
	}

	lightest := instances[0]
	lightestWeight := wr.instanceWeights[lightest]

	for _, instance := range instances[1:] {
		weight := wr.instanceWeights[instance]
		if weight < lightestWeight || (weight == lightestWeight && instance < lightest) {
			lightest = instance
			lightestWeight = weight
		}
	}

	return lightest
}
