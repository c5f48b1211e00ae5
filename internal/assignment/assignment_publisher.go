package assignment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Jyouping/brooklin/types"
	"github.com/nats-io/nats.go/jetstream"
)

// AssignmentPublisher handles publishing task assignments to NATS KV.
//
// Manages version monotonicity across coordinator restarts by discovering
// the highest existing version on startup.
type AssignmentPublisher struct {
	assignmentKV jetstream.KeyValue
	prefix       string
	keyPrefix    string // cached "prefix."

	mu             sync.Mutex
	currentVersion int64
	lastRebalance  time.Time
	lastFleetHash  string // digest of the last fleet actually written, to skip redundant KV writes

	logger  types.Logger
	metrics types.AssignmentMetrics
}

// NewAssignmentPublisher creates a new assignment publisher.
//
// Parameters:
//   - assignmentKV: NATS KV bucket for assignments
//   - prefix: Prefix for assignment keys (e.g., "assignment")
//   - logger: Logger for publishing events
//   - metrics: Metrics collector for assignment operations
//
// Returns:
//   - *AssignmentPublisher: A new publisher instance
func NewAssignmentPublisher(
	assignmentKV jetstream.KeyValue,
	prefix string,
	logger types.Logger,
	metrics types.AssignmentMetrics,
) *AssignmentPublisher {
	return &AssignmentPublisher{
		assignmentKV: assignmentKV,
		prefix:       prefix,
		keyPrefix:    fmt.Sprintf("%s.", prefix),
		logger:       logger,
		metrics:      metrics,
	}
}

// DiscoverHighestVersion scans KV for the highest existing assignment version.
//
// This ensures version monotonicity across leader changes by finding the
// maximum version number from existing assignments.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: Nil on success, error on KV access failure
func (p *AssignmentPublisher) DiscoverHighestVersion(ctx context.Context) error {
	keys, err := p.assignmentKV.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list KV keys: %w", err)
	}

	p.logger.Debug("discovering highest version", "total_keys", len(keys), "prefix", p.prefix)

	highestVersion := int64(0)
	checkedCount := 0
	for _, key := range keys {
		// Skip non-assignment keys (heartbeats, etc.)
		if !strings.HasPrefix(key, p.keyPrefix) {
			p.logger.Debug("skipping non-assignment key", "key", key, "prefix", p.prefix)
			continue
		}

		checkedCount++
		entry, err := p.assignmentKV.Get(ctx, key)
		if err != nil {
			p.logger.Debug("failed to read assignment key", "key", key, "error", err)
			continue // Skip entries we can't read
		}

		var asgn types.TaskAssignment
		if err := json.Unmarshal(entry.Value(), &asgn); err != nil {
			p.logger.Debug("failed to unmarshal assignment", "key", key, "error", err)
			continue // Skip malformed entries
		}

		p.logger.Debug("found assignment", "key", key, "version", asgn.Version)
		if asgn.Version > highestVersion {
			highestVersion = asgn.Version
		}
	}

	p.mu.Lock()
	p.currentVersion = highestVersion
	p.mu.Unlock()

	if highestVersion > 0 {
		p.logger.Info("discovered existing assignments", "highest_version", highestVersion, "checked_keys", checkedCount)
	} else {
		p.logger.Debug("no existing assignments found", "checked_keys", checkedCount)
	}

	return nil
}

// cleanupStaleAssignments removes assignment keys for instances not in the active set.
//
// This is a reusable cleanup method that can be called during:
//   - Normal publishing (to remove assignments for departed instances)
//   - Coordinator shutdown (to clean slate for the next run)
//
// Parameters:
//   - ctx: Context for cancellation
//   - activeInstances: Map of instance IDs that should retain assignments (nil = delete all)
//
// Returns:
//   - error: Nil on success, error on KV operation failure (non-fatal, logs warnings)
func (p *AssignmentPublisher) cleanupStaleAssignments(ctx context.Context, activeInstances map[string]bool) error {
	existingKeys, err := p.assignmentKV.Keys(ctx)
	if err != nil {
		p.logger.Warn("failed to list keys for cleanup", "error", err)
		return fmt.Errorf("failed to list keys: %w", err)
	}

	deletedCount := 0
	for _, key := range existingKeys {
		if !strings.HasPrefix(key, p.keyPrefix) {
			continue
		}

		// Extract instance ID from key (format: "prefix.instanceID")
		instanceID := strings.TrimPrefix(key, p.keyPrefix)

		// Check if this instance should retain assignment
		shouldDelete := activeInstances == nil || !activeInstances[instanceID]

		if shouldDelete {
			p.logger.Debug("deleting stale assignment", "key", key, "instance_id", instanceID)
			if err := p.assignmentKV.Delete(ctx, key); err != nil {
				p.logger.Warn("failed to delete stale assignment", "key", key, "error", err)
				// Continue with other deletions even if one fails
			} else {
				deletedCount++
			}
		}
	}

	if deletedCount > 0 {
		p.logger.Info("cleaned up stale assignments", "deleted_count", deletedCount)
	}

	return nil
}

// CleanupAllAssignments removes all assignment keys from KV.
//
// This should be called when the Coordinator stops to provide a clean slate
// for the next run. It's safe to call even if cleanup fails - the next
// coordinator will discover existing versions and maintain monotonicity.
//
// Parameters:
//   - ctx: Context for cancellation (recommend 5s timeout)
//
// Returns:
//   - error: Nil on success, error on KV operation failure (non-fatal)
func (p *AssignmentPublisher) CleanupAllAssignments(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Info("cleaning up all assignments from KV")

	return p.cleanupStaleAssignments(ctx, nil) // nil = delete all
}

// Publish publishes a whole-fleet task assignment to NATS KV, one key per
// instance.
//
// Coordinator polls on a fixed interval and calls Publish every tick
// whether or not the fleet actually changed, so this method first compares
// fleet against the digest of what it last wrote. An identical fleet is a
// no-op: no version bump, no KV writes, no metrics. This keeps a quiet
// datastream group from generating a new assignment version (and a wave of
// task-consumer reconciliations) on every poll.
//
// Parameters:
//   - ctx: Context for cancellation
//   - instances: List of active instance IDs
//   - group: Datastream group these tasks belong to, for metrics labeling
//   - fleet: Whole-fleet assignment (instance -> tasks) to publish
//   - lifecycle: Lifecycle phase (e.g. "stable", "rebalancing")
//
// Returns:
//   - error: Nil on success, error on marshaling or KV operation failure
//
// Example:
//
//	fleet := types.FleetAssignment{
//	    "instance-1": {{Name: "orders-0", Partitions: []string{"p1", "p2"}}},
//	    "instance-2": {{Name: "orders-1", Partitions: []string{"p3", "p4"}}},
//	}
//	err := publisher.Publish(ctx, []string{"instance-1", "instance-2"}, "orders", fleet, "stable")
func (p *AssignmentPublisher) Publish(
	ctx context.Context,
	instances []string,
	group string,
	fleet types.FleetAssignment,
	lifecycle string,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("publishing assignments", "lifecycle", lifecycle, "instance_count", len(instances))

	if len(instances) == 0 {
		p.logger.Info("no active instances for assignment")
		return nil
	}

	fleetHash := hashFleet(fleet)
	if fleetHash == p.lastFleetHash {
		p.logger.Debug("fleet unchanged since last publish, skipping KV write",
			"version", p.currentVersion, "lifecycle", lifecycle)
		return nil
	}

	// Increment version
	p.currentVersion++

	p.logger.Debug("publishing assignments to KV", "version", p.currentVersion, "instance_count", len(fleet))

	// Delete assignments for instances that are no longer active.
	// This is critical to prevent instances from processing stale assignments.
	activeInstances := make(map[string]bool, len(fleet))
	for instanceID := range fleet {
		activeInstances[instanceID] = true
	}

	if err := p.cleanupStaleAssignments(ctx, activeInstances); err != nil {
		// Log warning but continue with publishing - cleanup is best-effort
		p.logger.Warn("stale assignment cleanup failed, continuing with publish", "error", err)
	}

	// Publish assignments to KV
	for instanceID, tasks := range fleet {
		assignment := types.TaskAssignment{
			Version:   p.currentVersion,
			Lifecycle: lifecycle,
			Tasks:     tasks,
		}

		data, err := json.Marshal(assignment)
		if err != nil {
			return fmt.Errorf("failed to marshal assignment: %w", err)
		}

		key := p.keyPrefix + instanceID
		p.logger.Debug("publishing assignment", "key", key, "instance_id", instanceID, "tasks", len(tasks), "version", p.currentVersion)
		if _, err := p.assignmentKV.Put(ctx, key, data); err != nil {
			return fmt.Errorf("failed to publish assignment: %w", err)
		}
	}

	p.logger.Debug("all assignments published successfully", "version", p.currentVersion, "instances", len(fleet))

	// Update last rebalance time and remember what we just wrote
	p.lastRebalance = time.Now()
	p.lastFleetHash = fleetHash

	// Record metrics
	for _, tasks := range fleet {
		partitionCount := 0
		for _, t := range tasks {
			partitionCount += len(t.Partitions)
		}
		p.metrics.RecordAssignmentChange(group, partitionCount, 0, p.currentVersion)
	}

	p.logger.Info("assignments published",
		"version", p.currentVersion,
		"instances", len(instances),
		"lifecycle", lifecycle)

	return nil
}

// hashFleet computes a deterministic digest of a fleet assignment, ignoring
// instance iteration order, for detecting whether Publish would be a no-op.
func hashFleet(fleet types.FleetAssignment) string {
	instanceIDs := make([]string, 0, len(fleet))
	for instanceID := range fleet {
		instanceIDs = append(instanceIDs, instanceID)
	}
	sort.Strings(instanceIDs)

	h := sha256.New()
	for _, instanceID := range instanceIDs {
		h.Write([]byte(instanceID))
		h.Write([]byte{0})
		data, _ := json.Marshal(fleet[instanceID])
		h.Write(data)
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// CurrentVersion returns the current assignment version.
//
// This method is thread-safe and can be called concurrently.
//
// Returns:
//   - int64: Current version number (0 if no assignments published yet)
func (p *AssignmentPublisher) CurrentVersion() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentVersion
}

// LastRebalanceTime returns the time of the last successful rebalance.
//
// This is used by the calculator to enforce rebalance cooldown periods.
//
// Returns:
//   - time.Time: Time of last rebalance (zero time if never rebalanced)
func (p *AssignmentPublisher) LastRebalanceTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastRebalance
}
