package strategy

import (
	"slices"
	"sort"
	"strings"

	"github.com/Jyouping/brooklin/internal/hash"
	"github.com/Jyouping/brooklin/internal/logging"
	"github.com/Jyouping/brooklin/types"
)

const (
	defaultVirtualNodes      = 150
	defaultOverloadThreshold = 1.3
	defaultExtremeThreshold  = 2.0
	defaultWeight            = int64(1)

	minOverloadThreshold = 1.15
	minExtremeThreshold  = 1.5
)

// WeightedConsistentHash implements weighted consistent hashing with extreme partition handling.
type WeightedConsistentHash struct {
	virtualNodes      int
	hashSeed          uint64
	overloadThreshold float64
	extremeThreshold  float64
	defaultWeight     int64
	logger            types.Logger
}

var _ types.AssignmentStrategy = (*WeightedConsistentHash)(nil)

// WeightedConsistentHashOption configures a WeightedConsistentHash strategy.
type WeightedConsistentHashOption func(*WeightedConsistentHash)

type partitionEntry struct {
	partition types.Partition
	weight    int64
	index     int
}

type distributionThresholds struct {
	extremeCutoff     float64
	maxInstanceWeight float64
}

// NewWeightedConsistentHash creates a new weighted consistent hash strategy.
//
// Parameters:
//   - opts: Optional configuration (WithWeightedVirtualNodes, WithWeightedHashSeed, WithOverloadThreshold, WithExtremeThreshold, WithDefaultWeight, WithWeightedLogger)
//
// Returns:
//   - *WeightedConsistentHash: Initialized weighted consistent hash strategy ready for use.
func NewWeightedConsistentHash(opts ...WeightedConsistentHashOption) *WeightedConsistentHash {
	wch := &WeightedConsistentHash{
		virtualNodes:      defaultVirtualNodes,
		hashSeed:          0,
		overloadThreshold: defaultOverloadThreshold,
		extremeThreshold:  defaultExtremeThreshold,
		defaultWeight:     defaultWeight,
		logger:            logging.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(wch)
		}
	}

	wch.normalizeConfig()

	return wch
}

// WithWeightedVirtualNodes sets the number of virtual nodes per instance.
func WithWeightedVirtualNodes(nodes int) WeightedConsistentHashOption {
	return func(wch *WeightedConsistentHash) {
		wch.virtualNodes = nodes
	}
}

// WithWeightedHashSeed sets a custom hash seed for consistent hashing.
func WithWeightedHashSeed(seed uint64) WeightedConsistentHashOption {
	return func(wch *WeightedConsistentHash) {
		wch.hashSeed = seed
	}
}

// WithOverloadThreshold sets the maximum allowed load variance per instance.
func WithOverloadThreshold(threshold float64) WeightedConsistentHashOption {
	return func(wch *WeightedConsistentHash) {
		wch.overloadThreshold = threshold
	}
}

// WithExtremeThreshold sets the multiplier used to classify extreme partitions.
func WithExtremeThreshold(threshold float64) WeightedConsistentHashOption {
	return func(wch *WeightedConsistentHash) {
		wch.extremeThreshold = threshold
	}
}

// WithDefaultWeight sets the default weight applied when a partition reports zero weight.
func WithDefaultWeight(weight int64) WeightedConsistentHashOption {
	return func(wch *WeightedConsistentHash) {
		wch.defaultWeight = weight
	}
}

// WithWeightedLogger sets the logger used for configuration warnings and debug diagnostics.
func WithWeightedLogger(logger types.Logger) WeightedConsistentHashOption {
	return func(wch *WeightedConsistentHash) {
		wch.logger = logger
	}
}

// Assign calculates partition assignments using weighted consistent hashing with extreme partition handling.
//
// The algorithm balances two competing goals:
//  1. Cache affinity - Keep partitions on the same instances across rebalancing (via consistent hashing)
//  2. Load balance - Prevent instances from being overloaded by heavy partitions
//
// Algorithm Overview:
//
//  1. Validation - Check for instances and normalize partition weights
//  2. Equal-weight fast path - When all partitions have the same weight, use pure consistent hashing
//  3. Two-phase weighted assignment:
//     a. Extreme partitions - Distribute heavy partitions (weight > avgWeight * extremeThreshold) round-robin
//     b. Normal partitions - Assign remaining partitions using consistent hashing with soft load cap
//
// The soft load cap (avgWeight * overloadThreshold) allows some imbalance to preserve cache affinity,
// but reassigns partitions to the lightest instance when the cap is exceeded.
//
// Parameters:
//   - instances: List of instance IDs to assign partitions to
//   - partitions: List of partitions to distribute across instances
//
// Returns:
//   - map[string][]types.Partition: Instance ID → assigned partitions
//   - error: ErrNoInstances if instances list is empty, nil otherwise
//
// Example:
//
//	strategy := NewWeightedConsistentHash(
//	    WithOverloadThreshold(1.3),     // Allow 30% overload
//	    WithExtremeThreshold(2.0),      // Partitions 2x average are "extreme"
//	)
//	assignments, err := strategy.Assign(instances, partitions)
//	if err != nil {
//	    log.Fatal(err)
//	}
func (wch *WeightedConsistentHash) Assign(instances []string, partitions []types.Partition) (map[string][]types.Partition, error) {
	// Step 1: Validate that we have instances to assign to
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	// Step 2: Sort instances for deterministic assignment and initialize tracking structures
	sortedInstances, assignments, instanceLoad := wch.prepareInstances(instances)

	// Step 3: Handle empty partition list (all instances get empty assignments)
	if len(partitions) == 0 {
		return assignments, nil
	}

	// Step 4: Compute effective weights (applying defaults for zero-weight partitions)
	// and detect if all weights are equal
	effectiveWeights, totalWeight, allEqual := wch.computeEffectiveWeights(partitions)

	// Step 5: Build consistent hash ring for partition-to-instance mapping
	ring := hash.NewRing(sortedInstances, wch.virtualNodes, wch.hashSeed)

	// Step 6: Fast path for equal weights - use pure consistent hashing
	// This maximizes cache affinity when load balancing isn't needed
	if allEqual {
		if err := wch.assignEqualWeightPartitions(ring, assignments, partitions); err != nil {
			return nil, err
		}

		return assignments, nil
	}

	// Step 7: Compute distribution thresholds for weighted assignment
	// - extremeCutoff: Partitions heavier than this get round-robin treatment
	// - maxInstanceWeight: Soft cap on instance load (can be exceeded if unavoidable)
	thresholds := wch.computeThresholds(totalWeight, len(partitions), len(sortedInstances), wch.extremeThreshold, wch.overloadThreshold)
	extremes, normals := splitPartitions(partitions, effectiveWeights, thresholds.extremeCutoff)

	// Step 8: Phase 1 - Assign extreme partitions round-robin across instances
	// This ensures heavy partitions are spread evenly before applying consistent hashing
	wch.assignExtremePartitions(extremes, sortedInstances, assignments, instanceLoad, len(partitions), thresholds.extremeCutoff)

	// Step 9: Phase 2 - Assign normal partitions using consistent hashing with load cap
	// Preserves cache affinity while preventing individual instances from becoming overloaded
	overflowCount, err := wch.assignNormalPartitions(normals, ring, sortedInstances, assignments, instanceLoad, thresholds.maxInstanceWeight)
	if err != nil {
		return nil, err
	}

	// Step 10: Log diagnostic info if soft cap was exceeded
	// This helps operators tune thresholds for their workload
	if overflowCount > 0 {
		wch.logger.Debug(
			"weighted consistent hash exceeded soft cap",
			"overflow_count", overflowCount,
			"max_instance_weight", thresholds.maxInstanceWeight,
			"total_weight", totalWeight,
		)
	}

	return assignments, nil
}

func (wch *WeightedConsistentHash) prepareInstances(instances []string) ([]string, map[string][]types.Partition, map[string]int64) {
	sortedInstances := append([]string(nil), instances...)
	sort.Strings(sortedInstances)

	assignments := make(map[string][]types.Partition, len(sortedInstances))
	instanceLoad := make(map[string]int64, len(sortedInstances))
	for _, instance := range sortedInstances {
		assignments[instance] = []types.Partition{}
		instanceLoad[instance] = 0
	}

	return sortedInstances, assignments, instanceLoad
}

func (wch *WeightedConsistentHash) computeEffectiveWeights(partitions []types.Partition) ([]int64, int64, bool) {
	effectiveWeights := make([]int64, len(partitions))
	totalWeight := int64(0)
	allEqual := true
	var firstWeight int64

	for i, partition := range partitions {
		weight := wch.effectiveWeight(partition.Weight)
		effectiveWeights[i] = weight
		totalWeight += weight

		if i == 0 {
			firstWeight = weight

			continue
		}

		if weight != firstWeight {
			allEqual = false
		}
	}

	return effectiveWeights, totalWeight, allEqual
}

func (wch *WeightedConsistentHash) assignEqualWeightPartitions(
	ring *hash.Ring,
	assignments map[string][]types.Partition,
	partitions []types.Partition,
) error {
	for _, partition := range partitions {
		instance := ring.GetNodeForPartition(partition)
		if instance == "" {
			return ErrNoInstances
		}
		assignments[instance] = append(assignments[instance], partition)
	}

	return nil
}

func (wch *WeightedConsistentHash) computeThresholds(
	totalWeight int64,
	partitionCount, instanceCount int,
	extremeMultiplier, overloadMultiplier float64,
) distributionThresholds {
	avgPartitionWeight := float64(0)
	if partitionCount > 0 {
		avgPartitionWeight = float64(totalWeight) / float64(partitionCount)
	}

	avgInstanceWeight := float64(0)
	if instanceCount > 0 {
		avgInstanceWeight = float64(totalWeight) / float64(instanceCount)
	}

	return distributionThresholds{
		extremeCutoff:     avgPartitionWeight * extremeMultiplier,
		maxInstanceWeight: avgInstanceWeight * overloadMultiplier,
	}
}

func splitPartitions(
	partitions []types.Partition,
	effectiveWeights []int64,
	extremeCutoff float64,
) (extremes []partitionEntry, normals []partitionEntry) {
	extremes = make([]partitionEntry, 0)
	normals = make([]partitionEntry, 0, len(partitions))

	for idx, partition := range partitions {
		entry := partitionEntry{partition: partition, weight: effectiveWeights[idx], index: idx}
		if extremeCutoff > 0 && float64(entry.weight) > extremeCutoff {
			extremes = append(extremes, entry)

			continue
		}

		normals = append(normals, entry)
	}

	return extremes, normals
}

func (wch *WeightedConsistentHash) assignExtremePartitions(
	extremes []partitionEntry,
	instances []string,
	assignments map[string][]types.Partition,
	instanceLoad map[string]int64,
	totalPartitions int,
	extremeCutoff float64,
) {
	if len(extremes) == 0 {
		return
	}

	slices.SortFunc(extremes, func(a, b partitionEntry) int {
		if a.weight == b.weight {
			return strings.Compare(joinKeys(a.partition), joinKeys(b.partition))
		}

		if a.weight > b.weight {
			return -1
		}

		return 1
	})

	for idx, entry := range extremes {
		instance := instances[idx%len(instances)]
		assignments[instance] = append(assignments[instance], entry.partition)
		instanceLoad[instance] += entry.weight
	}

	wch.logger.Debug(
		"weighted consistent hash detected extreme partitions",
		"extreme_partitions", len(extremes),
		"total_partitions", totalPartitions,
		"extreme_threshold", extremeCutoff,
	)
}

func (wch *WeightedConsistentHash) assignNormalPartitions(
	normals []partitionEntry,
	ring *hash.Ring,
	instances []string,
	assignments map[string][]types.Partition,
	instanceLoad map[string]int64,
	maxInstanceWeight float64,
) (int, error) {
	overflowCount := 0

	// Iterate in original discovery order so consistent-hash affinity remains predictable.
	for _, entry := range normals {
		instance := ring.GetNodeForPartition(entry.partition)
		if instance == "" {
			return 0, ErrNoInstances
		}

		if maxInstanceWeight > 0 && float64(instanceLoad[instance]+entry.weight) > maxInstanceWeight {
			// The hash candidate is full; probe every instance under the cap
			// rather than settling for the single globally-lightest one, so a
			// partition that would also overflow the lightest instance still
			// has a chance to land somewhere that fits.
			instance = wch.spillToFittingInstance(instances, instanceLoad, entry.weight, maxInstanceWeight)
			if float64(instanceLoad[instance]+entry.weight) > maxInstanceWeight {
				overflowCount++
			}
		}

		assignments[instance] = append(assignments[instance], entry.partition)
		instanceLoad[instance] += entry.weight
	}

	return overflowCount, nil
}

func (wch *WeightedConsistentHash) normalizeConfig() {
	if wch.logger == nil {
		wch.logger = logging.NewNop()
	}

	if wch.virtualNodes < 1 {
		wch.logger.Warn("virtual nodes must be positive; clamping to 1", "provided", wch.virtualNodes, "using", 1)
		wch.virtualNodes = 1
	}

	if wch.overloadThreshold < minOverloadThreshold {
		wch.logger.Warn("overload threshold too low; clamping to minimum", "provided", wch.overloadThreshold, "using", minOverloadThreshold)
		wch.overloadThreshold = minOverloadThreshold
	}

	if wch.extremeThreshold < minExtremeThreshold {
		wch.logger.Warn("extreme threshold too low; clamping to minimum", "provided", wch.extremeThreshold, "using", minExtremeThreshold)
		wch.extremeThreshold = minExtremeThreshold
	}

	if wch.defaultWeight < 1 {
		wch.logger.Warn("default weight must be positive; clamping to 1", "provided", wch.defaultWeight, "using", 1)
		wch.defaultWeight = 1
	}
}

func (wch *WeightedConsistentHash) effectiveWeight(weight int64) int64 {
	if weight > 0 {
		return weight
	}

	return wch.defaultWeight
}

// spillToFittingInstance returns the least-loaded instance (lowest ID on a
// tie) whose load would stay within maxInstanceWeight after adding weight,
// falling back to the overall lightest instance if every one of them would
// overflow.
func (wch *WeightedConsistentHash) spillToFittingInstance(
	instances []string,
	instanceLoad map[string]int64,
	weight int64,
	maxInstanceWeight float64,
) string {
	best := ""
	bestLoad := int64(0)

	for _, instance := range instances {
		load := instanceLoad[instance]
		if maxInstanceWeight > 0 && float64(load+weight) > maxInstanceWeight {
			continue
		}

		if best == "" || load < bestLoad || (load == bestLoad && instance < best) {
			best = instance
			bestLoad = load
		}
	}

	if best != "" {
		return best
	}

	return wch.lightestInstance(instances, instanceLoad)
}

func (wch *WeightedConsistentHash) lightestInstance(instances []string, instanceLoad map[string]int64) string {
	lightest := instances[0]
	minLoad := instanceLoad[lightest]

	for _, instance := range instances[1:] {
		load := instanceLoad[instance]
		if load < minLoad || (load == minLoad && instance < lightest) {
			lightest = instance
			minLoad = load
		}
	}

	return lightest
}

func joinKeys(partition types.Partition) string {
	if len(partition.Keys) == 0 {
		return ""
	}

	return strings.Join(partition.Keys, "\x00")
}
