// Package source provides built-in partition source implementations.package source

// Partition sources discover available partitions for assignment.
// The package includes:
//
//   - Static: Fixed list of partitions
//
// Custom sources can be implemented by satisfying the types.PartitionSource interface.
package source
