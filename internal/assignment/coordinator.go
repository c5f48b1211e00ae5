package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Jyouping/brooklin/strategy"
	"github.com/Jyouping/brooklin/types"
	"github.com/nats-io/nats.go/jetstream"
)

// Coordinator owns the whole-fleet assignment snapshot for one datastream
// group and keeps it in sync with the group's partition set and any
// operator-directed moves.
//
// It polls Source for the group's current PartitionsMetadata and, on
// every poll tick outside the cooldown, calls the sticky strategy's
// AssignPartitions; the publisher skips the write when the resulting
// fleet is unchanged. It separately
// watches a target-assignment key for operator-requested moves and calls
// MovePartitions when one arrives. Either path publishes the resulting
// FleetAssignment via an AssignmentPublisher.
//
// A Coordinator has no opinion on which process runs it: leader election
// and cluster membership are an external collaborator's concern.
type Coordinator struct {
	source       types.PartitionSource
	group        types.DatastreamGroup
	baseStrategy types.AssignmentStrategy
	sticky       *strategy.StickyPartitionStrategy
	publisher    *AssignmentPublisher

	targetKV     jetstream.KeyValue
	targetPrefix string

	pollInterval time.Duration
	cooldown     time.Duration

	logger  types.Logger
	metrics types.MetricsCollector

	mu           sync.Mutex
	fleet        types.FleetAssignment
	lastRebalance time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// Bootstrap creates the group's initial taskCount tasks, places them
// across instances with the base strategy, and assigns the group's current
// partitions across them. Call once, before Start, when no prior assignment exists.
func (c *Coordinator) Bootstrap(ctx context.Context, instances []string, taskCount int) error {
	if c.baseStrategy == nil {
		return errors.New("bootstrap requires a base AssignmentStrategy")
	}
	if taskCount <= 0 {
		return fmt.Errorf("task count must be positive, got %d", taskCount)
	}

	placeholders := make([]types.Partition, taskCount)
	for i := range placeholders {
		placeholders[i] = types.Partition{Keys: []string{fmt.Sprintf("%s-task-%d", c.group.Name, i)}, Weight: 1}
	}

	placement, err := c.baseStrategy.Assign(instances, placeholders)
	if err != nil {
		return fmt.Errorf("initial task placement failed: %w", err)
	}

	fleet := make(types.FleetAssignment, len(placement))
	for instance, parts := range placement {
		tasks := make([]types.Task, len(parts))
		for i, p := range parts {
			tasks[i] = types.Task{
				Name:  fmt.Sprintf("%s-%s", c.group.Name, p.Keys[0]),
				Group: c.group,
			}
		}
		fleet[instance] = tasks
	}

	metadata, err := c.groupMetadata(ctx)
	if err != nil {
		return err
	}

	assigned, err := c.sticky.AssignPartitions(fleet, metadata)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.fleet = assigned
	c.mu.Unlock()

	return c.publish(ctx, instances, "cold_start")
}

// Rebalance recomputes the group's partition assignment against its
// current PartitionsMetadata and publishes the result if it changed.
func (c *Coordinator) Rebalance(ctx context.Context, instances []string) error {
	c.mu.Lock()
	fleet := c.fleet
	c.mu.Unlock()

	if fleet == nil {
		return errors.New("coordinator has no fleet assignment; call Bootstrap first")
	}

	metadata, err := c.groupMetadata(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	newFleet, err := c.sticky.AssignPartitions(fleet, metadata)
	c.metrics.RecordRebalanceAttempt("partition_change", err == nil)
	if err != nil {
		return fmt.Errorf("rebalance failed: %w", err)
	}
	c.metrics.RecordRebalanceDuration(time.Since(start).Seconds(), "partition_change")
	c.metrics.RecordPartitionCount(c.group.Name, len(metadata.Partitions))

	c.mu.Lock()
	c.fleet = newFleet
	c.mu.Unlock()

	return c.publish(ctx, instances, "partition_change")
}

// Move applies an operator-supplied target assignment for the group and
// publishes the result.
func (c *Coordinator) Move(ctx context.Context, instances []string, target types.TargetAssignment) error {
	c.mu.Lock()
	fleet := c.fleet
	c.mu.Unlock()

	if fleet == nil {
		return errors.New("coordinator has no fleet assignment; call Bootstrap first")
	}

	metadata, err := c.groupMetadata(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	newFleet, err := c.sticky.MovePartitions(fleet, target, metadata)
	c.metrics.RecordRebalanceAttempt("target_change", err == nil)
	if err != nil {
		return fmt.Errorf("move failed: %w", err)
	}
	c.metrics.RecordRebalanceDuration(time.Since(start).Seconds(), "target_change")

	c.mu.Lock()
	c.fleet = newFleet
	c.mu.Unlock()

	return c.publish(ctx, instances, "target_change")
}

// Start runs the poll loop that watches Source for partition-set changes
// and the target-assignment key for operator-directed moves, rebalancing
// or moving as needed. It blocks until ctx is done or Stop is called.
func (c *Coordinator) Start(ctx context.Context, instances []string) {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	targetKey := c.targetPrefix + "." + c.group.Name
	watcher, err := c.targetKV.Watch(ctx, targetKey)
	if err != nil {
		c.logger.Error("failed to watch target assignment key", "key", targetKey, "error", err)
	}
	var updates <-chan jetstream.KeyValueEntry
	if watcher != nil {
		defer func() {
			if err := watcher.Stop(); err != nil {
				c.logger.Warn("failed to stop target watcher", "error", err)
			}
		}()
		updates = watcher.Updates()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if !c.withinCooldown() {
				if err := c.Rebalance(ctx, instances); err != nil {
					c.logger.Error("rebalance failed", "group", c.group.Name, "error", err)
				}
			}
		case entry := <-updates:
			if entry == nil {
				continue
			}
			var target types.TargetAssignment
			if err := json.Unmarshal(entry.Value(), &target); err != nil {
				c.logger.Error("failed to unmarshal target assignment", "error", err)
				continue
			}
			if err := c.Move(ctx, instances, target); err != nil {
				c.logger.Error("move failed", "group", c.group.Name, "error", err)
			}
		}
	}
}

// Stop signals the poll loop to exit and waits for it to finish.
func (c *Coordinator) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// CurrentFleet returns a snapshot of the current whole-fleet assignment.
func (c *Coordinator) CurrentFleet() types.FleetAssignment {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(types.FleetAssignment, len(c.fleet))
	for k, v := range c.fleet {
		out[k] = append([]types.Task(nil), v...)
	}

	return out
}

func (c *Coordinator) withinCooldown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastRebalance.IsZero() {
		return false
	}

	return time.Since(c.lastRebalance) < c.cooldown
}

func (c *Coordinator) groupMetadata(ctx context.Context) (types.PartitionsMetadata, error) {
	all, err := c.source.ListPartitions(ctx)
	if err != nil {
		return types.PartitionsMetadata{}, fmt.Errorf("failed to list partitions: %w", err)
	}

	for _, m := range all {
		if m.Group.Name == c.group.Name {
			sorted := append([]string(nil), m.Partitions...)
			sort.Strings(sorted)
			return types.PartitionsMetadata{Group: m.Group, Partitions: sorted}, nil
		}
	}

	return types.PartitionsMetadata{Group: c.group}, nil
}

func (c *Coordinator) publish(ctx context.Context, instances []string, lifecycle string) error {
	c.mu.Lock()
	fleet := c.fleet
	c.lastRebalance = time.Now()
	c.mu.Unlock()

	return c.publisher.Publish(ctx, instances, c.group.Name, fleet, lifecycle)
}
