package brooklin

import "github.com/Jyouping/brooklin/types"

// Re-export types from the internal types package.
//
// This file provides a stable, backward-compatible public API for the library's
// core types and interfaces. It uses type aliases to re-export definitions
// from the `types` subpackage, which contains the actual implementations.
//
// This pattern solves the "import cycle" problem by allowing internal packages
// to depend on `types` without depending on the root `brooklin` package, while
// still providing a convenient `brooklin.Task`, `brooklin.Logger`, etc. for users.
type (
	Partition  = types.Partition
	Assignment = types.Assignment

	DatastreamGroup    = types.DatastreamGroup
	Task               = types.Task
	PartitionsMetadata = types.PartitionsMetadata
	FleetAssignment    = types.FleetAssignment
	TargetAssignment   = types.TargetAssignment
	TaskAssignment     = types.TaskAssignment
)

// Re-export interfaces from the internal types package for convenience.
type (
	AssignmentStrategy = types.AssignmentStrategy
	PartitionSource    = types.PartitionSource
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
)
