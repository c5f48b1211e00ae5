// Package brooklin provides a Go library for sticky partition assignment and
// MySQL binlog transaction assembly, the two building blocks of a streaming
// change-data-capture pipeline.
//
// The sticky partition assignment engine (the strategy package) distributes
// a DatastreamGroup's partitions across a fleet of instance-owned tasks while
// minimizing reassignment churn. The MySQL binlog transaction assembler (the
// binlog package) turns a raw replication event stream into whole,
// atomically-emitted transactions.
//
// # Quick Start
//
// Basic usage with default settings:
//
//	import (
//	    "github.com/Jyouping/brooklin"
//	    "github.com/Jyouping/brooklin/source"
//	    "github.com/Jyouping/brooklin/strategy"
//	    "github.com/Jyouping/brooklin/types"
//	)
//
//	cfg := brooklin.DefaultConfig()
//	cfg.Groups = []types.DatastreamGroup{{Name: "orders"}}
//
//	src := source.NewStatic(types.PartitionsMetadata{
//	    Group:      types.DatastreamGroup{Name: "orders"},
//	    Partitions: []string{"p0", "p1", "p2"},
//	})
//	mgr, err := brooklin.NewManager(&cfg, natsConn, src, strategy.NewConsistentHash())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := mgr.Start(ctx, "instance-0", []string{"instance-0"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop(context.Background())
//
// # Key Features
//
//   - Sticky Rebalancing: Preserves existing task->partition ownership across rebalances
//   - Lineage Preservation: New tasks inherit dependency-of chains from the tasks that spawned them
//   - Atomic Transaction Emission: Row-mutation events are buffered until COMMIT/XID and emitted as one unit
//   - Weighted Assignment: Supports consistent-hash and round-robin base strategies for initial placement
//
// # Architecture
//
// The internal/assignment.Coordinator watches a PartitionSource for
// PartitionsMetadata changes and an operator-supplied TargetAssignment,
// invokes the sticky engine's pure functions, and publishes the resulting
// FleetAssignment to a NATS KV bucket. Instances watch their own slice of
// that bucket and trigger Hooks when their tasks change.
//
// # Advanced Usage
//
// Custom strategy with options:
//
//	import (
//	    "github.com/Jyouping/brooklin"
//	    "github.com/Jyouping/brooklin/strategy"
//	)
//
//	base := strategy.NewConsistentHash(
//	    strategy.WithVirtualNodes(300),
//	)
//
//	hooks := &types.Hooks{
//	    OnAssignmentChanged: func(ctx context.Context, added, removed []types.Task) error {
//	        // Handle task changes
//	        return nil
//	    },
//	}
//
//	mgr, err := brooklin.NewManager(&cfg, natsConn, src, base,
//	    brooklin.WithHooks(hooks),
//	)
//
// See manager_test.go and test/integration for end-to-end usage against an
// embedded NATS server.
package brooklin
