package assignment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Jyouping/brooklin/internal/logging"
	"github.com/Jyouping/brooklin/internal/metrics"
	partitest "github.com/Jyouping/brooklin/testing"
	"github.com/Jyouping/brooklin/types"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T, bucketName string) *AssignmentPublisher {
	_, nc := partitest.StartEmbeddedNATS(t)
	kv := partitest.CreateJetStreamKV(t, nc, bucketName)

	return NewAssignmentPublisher(kv, "assignment", logging.NewNop(), metrics.NewNop())
}

func sampleFleet() types.FleetAssignment {
	return types.FleetAssignment{
		"instance-1": {{Name: "orders-0", Partitions: []string{"p1", "p2"}}},
		"instance-2": {{Name: "orders-1", Partitions: []string{"p3", "p4"}}},
	}
}

func TestAssignmentPublisher_DiscoverHighestVersion(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "discover_bucket")

	require.NoError(t, p.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", sampleFleet(), "stable"))
	require.Equal(t, int64(1), p.CurrentVersion())

	fresh := NewAssignmentPublisher(p.assignmentKV, "assignment", logging.NewNop(), metrics.NewNop())
	require.NoError(t, fresh.DiscoverHighestVersion(ctx))
	require.Equal(t, int64(1), fresh.CurrentVersion())
}

func TestAssignmentPublisher_DiscoverHighestVersion_IgnoresNonAssignmentKeys(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "ignore_bucket")

	_, err := p.assignmentKV.Put(ctx, "other.key", []byte(`{"version": 99}`))
	require.NoError(t, err)

	require.NoError(t, p.DiscoverHighestVersion(ctx))
	require.Equal(t, int64(0), p.CurrentVersion())
}

func TestAssignmentPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "publish_bucket")

	fleet := sampleFleet()
	err := p.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", fleet, "stable")
	require.NoError(t, err)

	entry, err := p.assignmentKV.Get(ctx, "assignment.instance-1")
	require.NoError(t, err)

	var got types.TaskAssignment
	require.NoError(t, json.Unmarshal(entry.Value(), &got))
	require.Equal(t, int64(1), got.Version)
	require.Equal(t, "stable", got.Lifecycle)
	require.Equal(t, fleet["instance-1"], got.Tasks)
}

func TestAssignmentPublisher_Publish_IncrementsVersion(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "increment_bucket")

	require.NoError(t, p.Publish(ctx, []string{"instance-1"}, "orders", sampleFleet(), "stable"))
	require.Equal(t, int64(1), p.CurrentVersion())

	changed := types.FleetAssignment{
		"instance-1": {{Name: "orders-0", Partitions: []string{"p1", "p2", "p5"}}},
		"instance-2": {{Name: "orders-1", Partitions: []string{"p3", "p4"}}},
	}
	require.NoError(t, p.Publish(ctx, []string{"instance-1"}, "orders", changed, "stable"))
	require.Equal(t, int64(2), p.CurrentVersion())
}

func TestAssignmentPublisher_Publish_SkipsUnchangedFleet(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "unchanged_bucket")

	fleet := sampleFleet()
	require.NoError(t, p.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", fleet, "stable"))
	require.Equal(t, int64(1), p.CurrentVersion())

	// Same fleet published again (e.g. a rebalance poll that found nothing to
	// change) should not bump the version or rewrite KV entries.
	require.NoError(t, p.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", sampleFleet(), "stable"))
	require.Equal(t, int64(1), p.CurrentVersion())

	entry, err := p.assignmentKV.Get(ctx, "assignment.instance-1")
	require.NoError(t, err)

	var got types.TaskAssignment
	require.NoError(t, json.Unmarshal(entry.Value(), &got))
	require.Equal(t, int64(1), got.Version)
}

func TestAssignmentPublisher_Publish_RemovesOldWorkers(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "remove_bucket")

	require.NoError(t, p.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", sampleFleet(), "stable"))

	shrunk := types.FleetAssignment{
		"instance-1": {{Name: "orders-0", Partitions: []string{"p1", "p2", "p3", "p4"}}},
	}
	require.NoError(t, p.Publish(ctx, []string{"instance-1"}, "orders", shrunk, "stable"))

	_, err := p.assignmentKV.Get(ctx, "assignment.instance-2")
	require.Error(t, err)
}

func TestAssignmentPublisher_Publish_EmptyInstances(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "empty_bucket")

	err := p.Publish(ctx, nil, "orders", sampleFleet(), "stable")
	require.NoError(t, err)
	require.Equal(t, int64(0), p.CurrentVersion())
}

func TestAssignmentPublisher_CurrentVersion(t *testing.T) {
	p := newTestPublisher(t, "version_bucket")
	require.Equal(t, int64(0), p.CurrentVersion())
}

func TestAssignmentPublisher_LastRebalanceTime(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "rebalance_time_bucket")

	require.True(t, p.LastRebalanceTime().IsZero())

	require.NoError(t, p.Publish(ctx, []string{"instance-1"}, "orders", sampleFleet(), "stable"))
	require.False(t, p.LastRebalanceTime().IsZero())
}

func TestAssignmentPublisher_CleanupAllAssignments(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "cleanup_all_bucket")

	require.NoError(t, p.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", sampleFleet(), "stable"))

	require.NoError(t, p.CleanupAllAssignments(ctx))

	_, err := p.assignmentKV.Get(ctx, "assignment.instance-1")
	require.Error(t, err)
	_, err = p.assignmentKV.Get(ctx, "assignment.instance-2")
	require.Error(t, err)
}

func TestAssignmentPublisher_CleanupStaleAssignments_Selective(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, "cleanup_selective_bucket")

	require.NoError(t, p.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", sampleFleet(), "stable"))

	require.NoError(t, p.cleanupStaleAssignments(ctx, map[string]bool{"instance-1": true}))

	_, err := p.assignmentKV.Get(ctx, "assignment.instance-1")
	require.NoError(t, err)
	_, err = p.assignmentKV.Get(ctx, "assignment.instance-2")
	require.Error(t, err)
}
