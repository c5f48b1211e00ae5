package brooklin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Jyouping/brooklin/internal/assignment"
	"github.com/Jyouping/brooklin/internal/hooks"
	"github.com/Jyouping/brooklin/internal/kvutil"
	"github.com/Jyouping/brooklin/internal/logging"
	"github.com/Jyouping/brooklin/internal/metrics"
	"github.com/Jyouping/brooklin/types"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Manager runs one internal/assignment.Coordinator per configured
// DatastreamGroup, watches this instance's own slice of the published
// assignments, and surfaces task changes to Hooks and an optional
// TaskConsumerUpdater.
//
// A Manager has no opinion on which process owns which group: every
// Manager in the fleet runs every group's Coordinator, and NATS KV's
// last-write-wins semantics mean the effect is the same whether one
// process or all of them drive a given group's rebalance loop, since
// AssignPartitions and MovePartitions are pure functions of current
// state. Callers that want a single writer per group should gate Start
// behind their own leader election.
type Manager struct {
	cfg        Config
	instanceID string
	conn       *nats.Conn
	source     types.PartitionSource
	strategy   types.AssignmentStrategy

	hooks           types.Hooks
	metrics         types.MetricsCollector
	logger          types.Logger
	consumerUpdater TaskConsumerUpdater

	js           jetstream.JetStream
	assignmentKV jetstream.KeyValue
	targetKV     jetstream.KeyValue

	coordinators []*assignment.Coordinator

	watchCancel context.CancelFunc
	wg          sync.WaitGroup

	mu               sync.RWMutex
	started          bool
	current          types.TaskAssignment
	groupAssignments map[string]types.TaskAssignment
}

// NewManager creates a Manager for the given configuration, NATS
// connection, partition source and base assignment strategy.
//
// Parameters:
//   - cfg: Manager configuration; must name at least one Group
//   - conn: Established NATS connection used to open a JetStream context
//   - src: Partition source consulted by every group's Coordinator
//   - strat: Base assignment strategy used by the Bootstrap that Start runs for every group
//   - opts: Optional hooks, metrics, logger, and TaskConsumerUpdater
//
// Returns:
//   - *Manager: Manager ready to Start
//   - error: Validation error if cfg, conn, src, or strat is missing/invalid
func NewManager(cfg *Config, conn *nats.Conn, src types.PartitionSource, strat types.AssignmentStrategy, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if conn == nil {
		return nil, ErrNATSConnectionRequired
	}
	if src == nil {
		return nil, ErrPartitionSourceRequired
	}
	if strat == nil {
		return nil, ErrAssignmentStrategyRequired
	}

	resolved := *cfg
	ApplyDefaults(&resolved)
	if err := resolved.Validate(); err != nil {
		return nil, err
	}

	o := &managerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		cfg:      resolved,
		conn:     conn,
		source:   src,
		strategy: strat,
		logger:   o.logger,
		metrics:  o.metrics,
	}

	if o.hooks != nil {
		m.hooks = *o.hooks
	} else {
		m.hooks = hooks.NewNop()
	}
	if m.metrics == nil {
		m.metrics = metrics.NewNop()
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	m.consumerUpdater = o.consumerUpdater

	return m, nil
}

// InstanceID returns the instance identifier this Manager was started
// with.
func (m *Manager) InstanceID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.instanceID
}

// CurrentAssignment returns the most recently observed task assignment for
// this instance.
func (m *Manager) CurrentAssignment() types.TaskAssignment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// Start opens JetStream KV buckets, bootstraps every configured group
// against the given fleet, and begins each group's Coordinator loop plus a
// watch on this instance's own assignment key.
//
// Parameters:
//   - ctx: Context bounding bucket setup and the initial bootstrap; the
//     running coordinator loops outlive ctx and are stopped by Stop
//   - instanceID: Stable identifier this process is known by in instances
//   - instances: Full fleet instance-ID list, used for the initial Bootstrap
func (m *Manager) Start(ctx context.Context, instanceID string, instances []string) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if instanceID == "" {
		m.mu.Unlock()
		return ErrInvalidInstanceID
	}
	if len(instances) == 0 {
		m.mu.Unlock()
		return ErrNoInstancesAvailable
	}
	m.instanceID = instanceID
	m.mu.Unlock()

	startCtx, cancel := context.WithTimeout(ctx, m.cfg.StartupTimeout)
	defer cancel()

	js, err := jetstream.New(m.conn)
	if err != nil {
		return fmt.Errorf("failed to init JetStream: %w", err)
	}
	m.js = js

	assignmentKV, err := kvutil.EnsureKVBucketWithRetry(startCtx, js, jetstream.KeyValueConfig{
		Bucket: m.cfg.AssignmentBucket,
	}, 3)
	if err != nil {
		return fmt.Errorf("failed to open assignment bucket: %w", err)
	}
	m.assignmentKV = assignmentKV

	targetKV, err := kvutil.EnsureKVBucketWithRetry(startCtx, js, jetstream.KeyValueConfig{
		Bucket: m.cfg.TargetBucket,
	}, 3)
	if err != nil {
		return fmt.Errorf("failed to open target bucket: %w", err)
	}
	m.targetKV = targetKV

	coordinators := make([]*assignment.Coordinator, 0, len(m.cfg.Groups))
	for _, group := range m.cfg.Groups {
		coord, err := assignment.NewCoordinator(&assignment.Config{
			AssignmentKV:     assignmentKV,
			TargetKV:         targetKV,
			Source:           m.source,
			Group:            group,
			BaseStrategy:     m.strategy,
			AssignmentPrefix: groupAssignmentPrefix(m.cfg.AssignmentPrefix, group.Name),
			TargetPrefix:     m.cfg.TargetPrefix,
			PollInterval:     m.cfg.PollInterval,
			Cooldown:         m.cfg.Cooldown,
			Metrics:          m.metrics,
			Logger:           m.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create coordinator for group %q: %w", group.Name, err)
		}

		taskCount := len(instances)
		if err := coord.Bootstrap(startCtx, instances, taskCount); err != nil {
			return fmt.Errorf("bootstrap failed for group %q: %w", group.Name, err)
		}

		coordinators = append(coordinators, coord)
	}

	m.mu.Lock()
	m.coordinators = coordinators
	m.started = true
	m.mu.Unlock()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	m.watchCancel = watchCancel

	for _, coord := range coordinators {
		m.wg.Add(1)
		go func(c *assignment.Coordinator) {
			defer m.wg.Done()
			c.Start(watchCtx, instances)
		}(coord)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.watchOwnAssignment(watchCtx)
	}()

	return nil
}

// Stop halts every group's Coordinator loop and the instance-assignment
// watch, waiting up to cfg.ShutdownTimeout for them to exit.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	coordinators := m.coordinators
	cancel := m.watchCancel
	m.started = false
	m.mu.Unlock()

	for _, coord := range coordinators {
		coord.Stop()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timeout, timeoutCancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer timeoutCancel()

	select {
	case <-done:
		return nil
	case <-timeout.Done():
		return fmt.Errorf("shutdown did not complete within %s: %w", m.cfg.ShutdownTimeout, timeout.Err())
	}
}

// groupAssignmentPrefix namespaces an assignment-key prefix by group, so
// that N groups' coordinators sharing one KV bucket never overwrite each
// other's per-instance key.
func groupAssignmentPrefix(prefix, group string) string {
	return prefix + "." + group
}

// watchOwnAssignment watches this instance's per-group assignment keys and
// invokes Hooks/TaskConsumerUpdater when the instance's merged task set
// changes.
//
// Each group's Coordinator publishes to its own namespaced key
// ("<AssignmentPrefix>.<group>.<instanceID>"); this instance's overall
// task set is the union of every group's latest published tasks for it.
func (m *Manager) watchOwnAssignment(ctx context.Context) {
	type groupWatch struct {
		group   string
		watcher jetstream.KeyWatcher
	}

	watches := make([]groupWatch, 0, len(m.cfg.Groups))
	for _, group := range m.cfg.Groups {
		key := groupAssignmentPrefix(m.cfg.AssignmentPrefix, group.Name) + "." + m.instanceID
		w, err := m.assignmentKV.Watch(ctx, key)
		if err != nil {
			m.logger.Error("failed to watch own assignment key", "key", key, "error", err)
			continue
		}
		watches = append(watches, groupWatch{group: group.Name, watcher: w})
	}
	defer func() {
		for _, gw := range watches {
			if err := gw.watcher.Stop(); err != nil {
				m.logger.Warn("failed to stop assignment watcher", "group", gw.group, "error", err)
			}
		}
	}()

	type update struct {
		group string
		entry jetstream.KeyValueEntry
	}
	merged := make(chan update)

	for _, gw := range watches {
		m.wg.Add(1)
		go func(gw groupWatch) {
			defer m.wg.Done()
			for entry := range gw.watcher.Updates() {
				if entry == nil {
					continue
				}
				select {
				case merged <- update{group: gw.group, entry: entry}:
				case <-ctx.Done():
					return
				}
			}
		}(gw)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-merged:
			m.handleAssignmentEntry(ctx, u.group, u.entry)
		}
	}
}

func (m *Manager) handleAssignmentEntry(ctx context.Context, group string, entry jetstream.KeyValueEntry) {
	var groupAssignment types.TaskAssignment
	if err := json.Unmarshal(entry.Value(), &groupAssignment); err != nil {
		m.logger.Error("failed to unmarshal own assignment", "group", group, "error", err)
		m.runOnError(ctx, fmt.Errorf("unmarshal assignment for group %q: %w", group, err))
		return
	}

	m.mu.Lock()
	if m.groupAssignments == nil {
		m.groupAssignments = make(map[string]types.TaskAssignment)
	}
	prev := m.current
	m.groupAssignments[group] = groupAssignment
	next := mergeGroupAssignments(m.groupAssignments)
	m.current = next
	m.mu.Unlock()

	added, removed := diffTasks(prev.Tasks, next.Tasks)
	if len(added) == 0 && len(removed) == 0 {
		return
	}

	if m.hooks.OnAssignmentChanged != nil {
		go func() {
			if err := m.hooks.OnAssignmentChanged(ctx, added, removed); err != nil {
				m.logger.Warn("OnAssignmentChanged hook returned error", "error", err)
			}
		}()
	}

	if m.consumerUpdater != nil {
		partitions := taskPartitions(next.Tasks)
		go func() {
			if err := m.consumerUpdater.UpdateTaskConsumer(ctx, m.instanceID, partitions); err != nil {
				m.logger.Warn("task consumer update failed", "error", err)
				m.runOnError(ctx, fmt.Errorf("update task consumer: %w", err))
			}
		}()
	}
}

// mergeGroupAssignments combines the latest per-group TaskAssignment
// snapshots into one view: the union of every group's tasks, the highest
// version observed, and the lifecycle of whichever group's snapshot
// carries that highest version.
func mergeGroupAssignments(byGroup map[string]types.TaskAssignment) types.TaskAssignment {
	var merged types.TaskAssignment
	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, g := range groups {
		ga := byGroup[g]
		merged.Tasks = append(merged.Tasks, ga.Tasks...)
		if ga.Version > merged.Version {
			merged.Version = ga.Version
			merged.Lifecycle = ga.Lifecycle
		}
	}

	return merged
}

func (m *Manager) runOnError(ctx context.Context, err error) {
	if m.hooks.OnError == nil {
		return
	}
	if herr := m.hooks.OnError(ctx, err); herr != nil {
		m.logger.Warn("OnError hook returned error", "error", herr)
	}
}

// diffTasks returns the tasks present in next but not prev (added) and the
// tasks present in prev but not next (removed), compared by task name.
func diffTasks(prev, next []types.Task) (added, removed []types.Task) {
	prevByName := make(map[string]types.Task, len(prev))
	for _, t := range prev {
		prevByName[t.Name] = t
	}
	nextByName := make(map[string]types.Task, len(next))
	for _, t := range next {
		nextByName[t.Name] = t
	}

	for name, t := range nextByName {
		if _, ok := prevByName[name]; !ok {
			added = append(added, t)
		}
	}
	for name, t := range prevByName {
		if _, ok := nextByName[name]; !ok {
			removed = append(removed, t)
		}
	}

	sort.Slice(added, func(i, j int) bool { return added[i].Name < added[j].Name })
	sort.Slice(removed, func(i, j int) bool { return removed[i].Name < removed[j].Name })

	return added, removed
}

// taskPartitions flattens a task list's partitions into the legacy
// []types.Partition shape consumed by TaskConsumerUpdater.
func taskPartitions(tasks []types.Task) []types.Partition {
	var out []types.Partition
	for _, t := range tasks {
		for _, p := range t.Partitions {
			out = append(out, types.Partition{Keys: []string{p}, Weight: 1})
		}
	}

	return out
}
