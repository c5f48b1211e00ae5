package types

// DatastreamGroup identifies the unit of work that owns a set of partitions.
//
// All tasks belonging to the same group share the group's partitions; the
// sticky engine never moves a partition from a task in one group to a task
// in another.
type DatastreamGroup struct {
	// Name uniquely identifies the group (e.g. a connector/datastream name).
	// It also serves as the task name prefix for this group.
	Name string `json:"name"`
}

// Task is a single unit of assignment: an instance-owned container for zero
// or more partitions belonging to one DatastreamGroup.
//
// Tasks are value objects: any change to Partitions produces a new Task
// value (see WithPartitions) rather than mutating the receiver in place.
type Task struct {
	// Name uniquely identifies the task within its group and is stable
	// across rebalances for as long as the task exists.
	Name string `json:"name"`

	// Group is the DatastreamGroup this task belongs to.
	Group DatastreamGroup `json:"group"`

	// Partitions currently assigned to this task.
	Partitions []string `json:"partitions"`

	// DependencyOf lists task names from which this task has absorbed
	// partitions via a move, used by downstream consumers to defer
	// startup until predecessor tasks have flushed.
	DependencyOf []string `json:"dependencyOf,omitempty"`
}

// WithPartitions returns a copy of the task with its partitions replaced.
//
// The returned task keeps the receiver's Name and Group; DependencyOf is
// reset, since a plain partition-set change carries no new lineage of its
// own (callers that need to record lineage, e.g. move_partitions, set
// DependencyOf on the returned value explicitly).
func (t Task) WithPartitions(partitions []string) Task {
	clone := t
	clone.Partitions = append([]string(nil), partitions...)
	clone.DependencyOf = nil

	return clone
}

// PartitionsMetadata is the discovered state of a DatastreamGroup's
// partitions at a point in time, the input to the sticky rebalancer.
type PartitionsMetadata struct {
	// Group is the DatastreamGroup these partitions belong to.
	Group DatastreamGroup `json:"group"`

	// Partitions lists every partition currently known to exist for Group.
	Partitions []string `json:"partitions"`
}

// FleetAssignment maps an instance name to the list of tasks currently
// assigned to it, i.e. the whole-fleet assignment snapshot the coordinator
// owns.
type FleetAssignment map[string][]Task

// TargetAssignment maps an instance name to the partition identifiers an
// operator wants moved onto that instance. How an operator arrives at a
// TargetAssignment is outside this package's concern; move_partitions only
// consumes it.
type TargetAssignment map[string][]string

// TaskAssignment is the versioned, per-instance view of a FleetAssignment
// published for an instance to consume, mirroring the base layer's
// Assignment but carrying Tasks instead of Partitions.
type TaskAssignment struct {
	// Version is a monotonically increasing assignment version.
	Version int64 `json:"version"`

	// Lifecycle indicates the assignment phase (e.g. "stable", "rebalancing").
	Lifecycle string `json:"lifecycle"`

	// Tasks is the list of tasks assigned to this instance.
	Tasks []Task `json:"tasks"`
}
