package strategy

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/Jyouping/brooklin/types"
)

// RandSource supplies entropy for the unassigned-partition shuffle in
// AssignPartitions. *math/rand/v2.Rand satisfies this interface, so
// production callers can pass rand.New(rand.NewPCG(a, b)) while tests inject
// a seeded or deterministic source for reproducible assertions.
type RandSource interface {
	Shuffle(n int, swap func(i, j int))
}

// InvariantViolationError reports a failed post-assignment sanity check. It
// is fatal: callers must abort the rebalance rather than use the result.
type InvariantViolationError struct {
	Group  string
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation for group %q: %s", e.Group, e.Reason)
}

// NoTargetTaskError reports a move whose target instance has no task
// belonging to the group being moved.
type NoTargetTaskError struct {
	Instance string
	Group    string
}

func (e *NoTargetTaskError) Error() string {
	return fmt.Sprintf("no target task for group %q on instance %q", e.Group, e.Instance)
}

// StickyPartitionStrategy layers partition-assignment capability on top of a
// base, task-count-stabilizing AssignmentStrategy.
//
// Composition, not inheritance: the base strategy decides how many tasks a
// group gets and how those tasks are initially spread across instances;
// StickyPartitionStrategy decides, given a fixed task count, how a group's
// partitions are distributed across those tasks while minimizing churn
// across rebalances.
type StickyPartitionStrategy struct {
	types.AssignmentStrategy

	rand RandSource
}

// NewStickyPartitionStrategy creates a sticky partition strategy layered on
// top of the given base strategy.
//
// Parameters:
//   - base: task-count-stabilizing strategy used for initial task placement
//     (e.g. strategy.NewConsistentHash())
//   - opts: functional options (currently: WithRandSource)
//
// Returns:
//   - *StickyPartitionStrategy: ready to use
func NewStickyPartitionStrategy(base types.AssignmentStrategy, opts ...StickyOption) *StickyPartitionStrategy {
	s := &StickyPartitionStrategy{
		AssignmentStrategy: base,
		rand:               globalRandSource{},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StickyOption configures a StickyPartitionStrategy.
type StickyOption func(*StickyPartitionStrategy)

// WithRandSource injects a RandSource for the unassigned-partition shuffle,
// letting tests produce a reproducible AssignPartitions output.
func WithRandSource(r RandSource) StickyOption {
	return func(s *StickyPartitionStrategy) {
		s.rand = r
	}
}

// AssignPartitions rebalances a group's partitions across its existing
// tasks, mutating as few tasks as possible.
//
// Walking the group's tasks in sorted instance order, each task drops the
// partitions no longer in metadata and then takes shuffled unassigned
// partitions until it holds floor(P/T) of them, or floor(P/T)+1 for the
// first P mod T tasks. A task already holding more than that keeps all of
// its partitions; none are moved off it. AssignPartitions never changes the
// number of tasks belonging to metadata.Group; that is the base strategy's
// concern.
func (s *StickyPartitionStrategy) AssignPartitions(current types.FleetAssignment, metadata types.PartitionsMetadata) (types.FleetAssignment, error) {
	return AssignPartitions(current, metadata, s.rand)
}

// MovePartitions relocates a designated subset of a group's partitions to
// chosen destination instances in a single mutation step per affected task,
// recording lineage on each receiving task.
func (s *StickyPartitionStrategy) MovePartitions(current types.FleetAssignment, target types.TargetAssignment, metadata types.PartitionsMetadata) (types.FleetAssignment, error) {
	return MovePartitions(current, target, metadata)
}

// AssignPartitions is the package-level sticky rebalancer (see
// StickyPartitionStrategy.AssignPartitions). It is exposed standalone so
// callers that don't need the base strategy layer can use it directly.
func AssignPartitions(current types.FleetAssignment, metadata types.PartitionsMetadata, rnd RandSource) (types.FleetAssignment, error) {
	groupName := metadata.Group.Name

	type taskRef struct {
		instance string
		index    int
	}

	var refs []taskRef
	assigned := make(map[string]struct{})

	for _, inst := range sortedKeys(current) {
		for idx, t := range current[inst] {
			if t.Group.Name != groupName {
				continue
			}
			refs = append(refs, taskRef{instance: inst, index: idx})
			for _, p := range t.Partitions {
				assigned[p] = struct{}{}
			}
		}
	}

	taskCount := len(refs)
	if taskCount == 0 {
		return nil, &InvariantViolationError{Group: groupName, Reason: "group has no tasks to rebalance"}
	}

	metaSet := make(map[string]struct{}, len(metadata.Partitions))
	for _, p := range metadata.Partitions {
		metaSet[p] = struct{}{}
	}

	unassigned := make([]string, 0, len(metadata.Partitions))
	for _, p := range metadata.Partitions {
		if _, ok := assigned[p]; !ok {
			unassigned = append(unassigned, p)
		}
	}
	if rnd != nil {
		rnd.Shuffle(len(unassigned), func(i, j int) {
			unassigned[i], unassigned[j] = unassigned[j], unassigned[i]
		})
	}

	total := len(metadata.Partitions)
	base := total / taskCount
	remainder := total % taskCount

	out := cloneAssignment(current)

	for _, ref := range refs {
		task := out[ref.instance][ref.index]

		kept := make([]string, 0, len(task.Partitions))
		changed := false
		for _, p := range task.Partitions {
			if _, ok := metaSet[p]; ok {
				kept = append(kept, p)
			} else {
				changed = true
			}
		}

		allowance := base
		grantsExtra := remainder > 0
		if grantsExtra {
			allowance = base + 1
		}

		for len(kept) < allowance && len(unassigned) > 0 {
			p := unassigned[len(unassigned)-1]
			unassigned = unassigned[:len(unassigned)-1]
			kept = append(kept, p)
			changed = true
		}

		if grantsExtra {
			remainder--
		}

		if changed {
			out[ref.instance][ref.index] = task.WithPartitions(kept)
		}
	}

	if err := ValidateAssignment(out, metadata); err != nil {
		return nil, err
	}

	return out, nil
}

// MovePartitions is the package-level move planner (see
// StickyPartitionStrategy.MovePartitions).
func MovePartitions(current types.FleetAssignment, target types.TargetAssignment, metadata types.PartitionsMetadata) (types.FleetAssignment, error) {
	groupName := metadata.Group.Name

	metaSet := make(map[string]struct{}, len(metadata.Partitions))
	for _, p := range metadata.Partitions {
		metaSet[p] = struct{}{}
	}

	allToReassign := make(map[string]struct{})
	for _, parts := range target {
		for _, p := range parts {
			if _, ok := metaSet[p]; ok {
				allToReassign[p] = struct{}{}
			}
		}
	}

	sourceTaskOf := make(map[string]string)
	toReleaseByTask := make(map[string]map[string]struct{})
	toReleaseUnion := make(map[string]struct{})

	for _, inst := range sortedKeys(current) {
		for _, t := range current[inst] {
			if t.Group.Name != groupName {
				continue
			}

			var release map[string]struct{}
			for _, p := range t.Partitions {
				if _, ok := allToReassign[p]; !ok {
					continue
				}
				if release == nil {
					release = make(map[string]struct{})
				}
				release[p] = struct{}{}
				sourceTaskOf[p] = t.Name
				toReleaseUnion[p] = struct{}{}
			}
			if len(release) > 0 {
				toReleaseByTask[t.Name] = release
			}
		}
	}

	out := cloneAssignment(current)

	for _, inst := range sortedUnionKeys(current, target) {
		var toMoveIn []string
		for _, p := range target[inst] {
			if _, ok := toReleaseUnion[p]; ok {
				toMoveIn = append(toMoveIn, p)
			}
		}

		targetIdx := -1
		if len(toMoveIn) > 0 {
			minCount := -1
			for i, t := range out[inst] {
				if t.Group.Name != groupName {
					continue
				}
				if minCount == -1 || len(t.Partitions) < minCount {
					minCount = len(t.Partitions)
					targetIdx = i
				}
			}
			if targetIdx == -1 {
				return nil, &NoTargetTaskError{Instance: inst, Group: groupName}
			}
		}

		tasks := out[inst]
		for i, t := range tasks {
			if t.Group.Name != groupName {
				continue
			}

			release, mustRelease := toReleaseByTask[t.Name]
			newPartitions := t.Partitions
			changed := false

			if mustRelease {
				kept := make([]string, 0, len(t.Partitions))
				for _, p := range t.Partitions {
					if _, drop := release[p]; drop {
						changed = true
						continue
					}
					kept = append(kept, p)
				}
				newPartitions = kept
			}

			var deps []string
			if i == targetIdx && len(toMoveIn) > 0 {
				newPartitions = append(append([]string(nil), newPartitions...), toMoveIn...)
				changed = true

				depSet := make(map[string]struct{})
				for _, d := range t.DependencyOf {
					depSet[d] = struct{}{}
				}
				for _, p := range toMoveIn {
					if src, ok := sourceTaskOf[p]; ok {
						depSet[src] = struct{}{}
					}
				}
				for d := range depSet {
					deps = append(deps, d)
				}
				sort.Strings(deps)
			} else {
				deps = t.DependencyOf
			}

			if changed {
				newTask := t.WithPartitions(newPartitions)
				newTask.DependencyOf = deps
				tasks[i] = newTask
			}
		}
		out[inst] = tasks
	}

	if err := ValidateAssignment(out, metadata); err != nil {
		return nil, err
	}

	return out, nil
}

// ValidateAssignment is the sanity validator run after either
// AssignPartitions or MovePartitions: it verifies that the group's
// partitions appear in exactly one task each, with nothing missing or
// duplicated.
func ValidateAssignment(assignment types.FleetAssignment, metadata types.PartitionsMetadata) error {
	groupName := metadata.Group.Name

	seen := make(map[string]int)
	for _, tasks := range assignment {
		for _, t := range tasks {
			if t.Group.Name != groupName {
				continue
			}
			for _, p := range t.Partitions {
				seen[p]++
			}
		}
	}

	metaSet := make(map[string]struct{}, len(metadata.Partitions))
	for _, p := range metadata.Partitions {
		metaSet[p] = struct{}{}
	}

	for p, count := range seen {
		if _, ok := metaSet[p]; !ok {
			return &InvariantViolationError{Group: groupName, Reason: fmt.Sprintf("partition %q is not part of the group's partition set", p)}
		}
		if count > 1 {
			return &InvariantViolationError{Group: groupName, Reason: fmt.Sprintf("partition %q assigned to %d tasks", p, count)}
		}
	}

	for _, p := range metadata.Partitions {
		if seen[p] == 0 {
			return &InvariantViolationError{Group: groupName, Reason: fmt.Sprintf("partition %q missing from assignment", p)}
		}
	}

	return nil
}

// cloneAssignment returns a deep-enough copy of a FleetAssignment: the
// outer map and each instance's task slice are copied so callers can mutate
// the result without aliasing the input. Task values themselves are
// replaced wholesale (never mutated) by WithPartitions, so a shallow copy
// of each slice element is sufficient.
func cloneAssignment(in types.FleetAssignment) types.FleetAssignment {
	out := make(types.FleetAssignment, len(in))
	for inst, tasks := range in {
		out[inst] = append([]types.Task(nil), tasks...)
	}

	return out
}

// sortedKeys returns the instance names of a FleetAssignment in a
// deterministic order, standing in for the stable iteration order a
// LinkedHashMap would give the original implementation.
func sortedKeys(m types.FleetAssignment) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// sortedUnionKeys returns the deterministically ordered union of a
// FleetAssignment's and a TargetAssignment's instance names.
func sortedUnionKeys(a types.FleetAssignment, b types.TargetAssignment) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}
	for k := range b {
		set[k] = struct{}{}
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// globalRandSource is the default RandSource for production use: it shuffles
// using math/rand/v2's global source. Tests should inject a seeded
// rand.New(rand.NewPCG(a, b)) via WithRandSource for reproducible output.
type globalRandSource struct{}

func (globalRandSource) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}
