package brooklin

import (
	"context"

	"github.com/Jyouping/brooklin/types"
)

// Option configures a Manager with optional dependencies.
type Option func(*managerOptions)

// managerOptions holds optional Manager configuration.
type managerOptions struct {
	hooks           *types.Hooks
	metrics         types.MetricsCollector
	logger          types.Logger
	consumerUpdater TaskConsumerUpdater
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	hooks := &types.Hooks{
//	    OnAssignmentChanged: func(ctx context.Context, added, removed []types.Task) error {
//	        return handleChanges(added, removed)
//	    },
//	}
//	mgr, err := brooklin.NewManager(&cfg, conn, src, strat, brooklin.WithHooks(hooks))
func WithHooks(hooks *types.Hooks) Option {
	return func(o *managerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewManager
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *managerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Any types.Logger implementation
//
// Returns:
//   - Option: Functional option for NewManager
func WithLogger(logger types.Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// TaskConsumerUpdater applies a task assignment to a instance-level durable
// JetStream consumer.
//
// Semantics:
//   - Single durable consumer per instance (named <ConsumerPrefix>-<instanceID>)
//   - Complete partition set provided each call (NOT a delta)
//   - Must be idempotent: identical subject set re-applied => no change
//   - SHOULD implement internal retries/backoff for transient JetStream errors
//   - MUST return error only for unrecoverable misconfiguration (e.g., invalid stream)
//
// Concurrency: Implementations SHOULD be safe for concurrent calls.
type TaskConsumerUpdater interface {
	// UpdateTaskConsumer applies the given partition assignment to the
	// instance's durable consumer.
	//
	// Parameters:
	//   - ctx: Context for cancellation and deadline
	//   - instanceID: Stable instance ID this Manager was constructed with
	//   - partitions: Complete assignment slice (may be empty for zero subjects)
	//
	// Returns:
	//   - error: Non-nil only on unrecoverable configuration or API failure after retries
	UpdateTaskConsumer(ctx context.Context, instanceID string, partitions []types.Partition) error
}

// WithTaskConsumerUpdater injects a TaskConsumerUpdater used by Manager to
// apply the instance's current task assignment to a single durable
// JetStream consumer.
//
// Invocation Points:
//   - Immediately after the initial assignment arrives for this instance (async, best-effort)
//   - After each subsequent assignment change for this instance
//
// This option enables fully manager-driven consumer reconciliation;
// hooks.OnAssignmentChanged can then be reserved for metrics or side
// effects instead of subscription wiring.
//
// Parameters:
//   - updater: Implementation that maps task assignments to consumer FilterSubjects
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	consumer, _ := subscription.NewTaskConsumer(nc, subscription.TaskConsumerConfig{
//	    StreamName:      "cdc-events",
//	    ConsumerPrefix:  "ingest",
//	    SubjectTemplate: "cdc.{{.PartitionID}}.events",
//	}, handler)
//	mgr, _ := brooklin.NewManager(cfg, conn, src, strat, brooklin.WithTaskConsumerUpdater(consumer))
func WithTaskConsumerUpdater(updater TaskConsumerUpdater) Option {
	return func(o *managerOptions) {
		o.consumerUpdater = updater
	}
}
