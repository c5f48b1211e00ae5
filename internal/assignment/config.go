package assignment

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jyouping/brooklin/internal/logging"
	"github.com/Jyouping/brooklin/internal/metrics"
	"github.com/Jyouping/brooklin/strategy"
	"github.com/Jyouping/brooklin/types"
	"github.com/nats-io/nats.go/jetstream"
)

// Config holds Coordinator configuration.
//
// Use NewCoordinator(cfg) to create a coordinator with validated
// configuration and sensible defaults for optional fields.
type Config struct {
	// Required dependencies
	AssignmentKV jetstream.KeyValue // NATS KV bucket the coordinator publishes assignments to
	TargetKV     jetstream.KeyValue // NATS KV bucket an operator writes target assignments to
	Source       types.PartitionSource
	Group        types.DatastreamGroup

	// BaseStrategy places the group's initial tasks across instances before
	// the sticky engine ever runs. Required only for Bootstrap.
	BaseStrategy types.AssignmentStrategy

	// Required configuration
	AssignmentPrefix string // Key prefix for published assignments (e.g. "assignment")
	TargetPrefix     string // Key prefix for target assignments (e.g. "target")

	// Optional configuration (with defaults)
	PollInterval time.Duration // How often Source is polled for partition changes (default: 10s)
	Cooldown     time.Duration // Minimum time between rebalances (default: 5s)

	// Optional dependencies
	Metrics types.MetricsCollector
	Logger  types.Logger
	Rand    strategy.RandSource // entropy source for the unassigned-partition shuffle
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.AssignmentKV == nil {
		return errors.New("the AssignmentKV is required")
	}
	if c.TargetKV == nil {
		return errors.New("the TargetKV is required")
	}
	if c.Source == nil {
		return errors.New("the Source is required")
	}
	if c.Group.Name == "" {
		return errors.New("the Group name is required")
	}
	if c.AssignmentPrefix == "" {
		return errors.New("the AssignmentPrefix is required")
	}
	if c.TargetPrefix == "" {
		return errors.New("the TargetPrefix is required")
	}

	return nil
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.Cooldown == 0 {
		c.Cooldown = 5 * time.Second
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewNop()
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
}

// NewCoordinator creates a Coordinator with validated configuration.
//
// Parameters:
//   - cfg: Coordinator configuration (required fields must be set)
//
// Returns:
//   - *Coordinator: New coordinator instance ready to Start
//   - error: Validation error if required fields are missing
//
// Example:
//
//	coord, err := assignment.NewCoordinator(&assignment.Config{
//	    AssignmentKV:     assignmentKV,
//	    TargetKV:         targetKV,
//	    Source:           source,
//	    Group:            types.DatastreamGroup{Name: "orders"},
//	    AssignmentPrefix: "assignment",
//	    TargetPrefix:     "target",
//	})
func NewCoordinator(cfg *Config) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.SetDefaults()

	publisher := NewAssignmentPublisher(cfg.AssignmentKV, cfg.AssignmentPrefix, cfg.Logger, cfg.Metrics)

	return &Coordinator{
		source:       cfg.Source,
		group:        cfg.Group,
		baseStrategy: cfg.BaseStrategy,
		sticky:       strategy.NewStickyPartitionStrategy(cfg.BaseStrategy, strickyOpts(cfg.Rand)...),
		publisher:    publisher,
		targetKV:     cfg.TargetKV,
		targetPrefix: cfg.TargetPrefix,
		pollInterval: cfg.PollInterval,
		cooldown:     cfg.Cooldown,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

func strickyOpts(rnd strategy.RandSource) []strategy.StickyOption {
	if rnd == nil {
		return nil
	}

	return []strategy.StickyOption{strategy.WithRandSource(rnd)}
}
