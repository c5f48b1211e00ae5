// Package assignment provides the sticky partition assignment coordinator.
//
// The Coordinator owns the whole-fleet assignment snapshot for one
// datastream group and keeps it synchronized with two independent inputs:
//
//   - The group's partition set, discovered by polling a PartitionSource.
//     Every poll tick outside the cooldown runs Rebalance, which calls
//     strategy.AssignPartitions.
//   - An operator-supplied target assignment, read from a NATS KV key.
//     Changes trigger Move, which calls strategy.MovePartitions.
//
// Either path publishes the resulting FleetAssignment through an
// AssignmentPublisher, one NATS KV key per instance, keyed
// "{prefix}.{instanceID}".
//
// # Design Overview
//
//  1. Bootstrap places the group's initial tasks across a fixed set of
//     instances using a base AssignmentStrategy, then runs the sticky
//     engine once to fill them with the group's current partitions.
//  2. Start polls the PartitionSource on an interval and watches the
//     target-assignment key, rebalancing or moving as needed.
//  3. Each successful rebalance or move hands its FleetAssignment to the
//     publisher, which writes it and advances the published version only
//     when the fleet differs from the last one it wrote.
//
// # Leadership and Cluster Membership
//
// The Coordinator has no opinion on which process runs it or how many
// instances exist. Leader election and membership tracking are explicitly
// out of scope; callers that need a single active Coordinator across a
// fleet must arrange that externally before calling Start.
//
// Example:
//
//	coord, err := assignment.NewCoordinator(&assignment.Config{
//	    AssignmentKV:     assignmentKV,
//	    TargetKV:         targetKV,
//	    Source:           partitionSource,
//	    Group:            types.DatastreamGroup{Name: "orders"},
//	    BaseStrategy:     strategy.NewConsistentHash(),
//	    AssignmentPrefix: "assignment",
//	    TargetPrefix:     "target",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := coord.Bootstrap(ctx, instances, taskCount); err != nil {
//	    log.Fatal(err)
//	}
//
//	go coord.Start(ctx, instances)
//	defer coord.Stop()
package assignment
