// Package types provides core type definitions and interfaces for the brooklin library.
//
// This package contains shared types that are used across multiple packages in the
// brooklin library. By keeping these types in a separate package, we avoid import cycles
// between the main brooklin package and its internal implementations.
//
// Key types:
//   - Task, DatastreamGroup, PartitionsMetadata, FleetAssignment: the sticky
//     partition assignment engine's data model
//   - Partition, Assignment: the base task-count-stabilizing strategy layer
//   - Logger: structured logging interface
//   - MetricsCollector: metrics recording interface
package types
