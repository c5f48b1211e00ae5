package brooklin

import (
	"time"

	"github.com/Jyouping/brooklin/types"
)

// Config configures a Manager.
//
// A Manager owns one internal/assignment.Coordinator per Group, all backed
// by the same pair of NATS KV buckets. Groups are rebalanced independently:
// a partition-set change in one group never triggers a rebalance in
// another.
type Config struct {
	// Groups lists the datastream groups this Manager coordinates. At
	// least one is required.
	Groups []types.DatastreamGroup

	// AssignmentBucket is the JetStream KV bucket the Manager publishes
	// fleet assignments to and watches for its own instance's tasks.
	AssignmentBucket string `yaml:"assignmentBucket"`

	// TargetBucket is the JetStream KV bucket an operator writes
	// TargetAssignment values to for move_partitions requests.
	TargetBucket string `yaml:"targetBucket"`

	// AssignmentPrefix prefixes assignment keys within AssignmentBucket;
	// the Manager adds a group segment, so "assignment" produces keys like
	// "assignment.orders.instance-0".
	AssignmentPrefix string `yaml:"assignmentPrefix"`

	// TargetPrefix prefixes target-assignment keys within TargetBucket,
	// one key per group, e.g. "target.orders".
	TargetPrefix string `yaml:"targetPrefix"`

	// PollInterval controls how often each group's Coordinator re-polls
	// its PartitionSource for partition-set changes.
	PollInterval time.Duration `yaml:"pollInterval"`

	// Cooldown is the minimum time a Coordinator waits between rebalances
	// triggered by partition-set changes.
	Cooldown time.Duration `yaml:"cooldown"`

	// StartupTimeout bounds how long Start waits for KV bucket setup and
	// the initial bootstrap of each group.
	StartupTimeout time.Duration `yaml:"startupTimeout"`

	// ShutdownTimeout bounds how long Stop waits for coordinator loops to
	// exit cleanly.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns a Config with sensible defaults for every field
// except Groups, which has no sensible default and must be set by the
// caller.
func DefaultConfig() Config {
	return Config{
		AssignmentBucket: "brooklin-assignments",
		TargetBucket:     "brooklin-targets",
		AssignmentPrefix: "assignment",
		TargetPrefix:     "target",
		PollInterval:     10 * time.Second,
		Cooldown:         5 * time.Second,
		StartupTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// ApplyDefaults fills zero-valued optional fields of cfg with the values
// from DefaultConfig, leaving any field the caller already set untouched.
func ApplyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.AssignmentBucket == "" {
		cfg.AssignmentBucket = defaults.AssignmentBucket
	}
	if cfg.TargetBucket == "" {
		cfg.TargetBucket = defaults.TargetBucket
	}
	if cfg.AssignmentPrefix == "" {
		cfg.AssignmentPrefix = defaults.AssignmentPrefix
	}
	if cfg.TargetPrefix == "" {
		cfg.TargetPrefix = defaults.TargetPrefix
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaults.StartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

// Validate checks configuration validity, independent of any defaults that
// ApplyDefaults would fill in.
func (cfg *Config) Validate() error {
	if len(cfg.Groups) == 0 {
		return ErrNoGroupsConfigured
	}

	seen := make(map[string]struct{}, len(cfg.Groups))
	for _, g := range cfg.Groups {
		if g.Name == "" {
			return ErrInvalidConfig
		}
		if _, dup := seen[g.Name]; dup {
			return ErrInvalidConfig
		}
		seen[g.Name] = struct{}{}
	}

	return nil
}

// TestConfig returns a configuration optimized for fast test execution: a
// single "test" group, short poll interval and cooldown, and short
// timeouts so tests fail fast instead of hanging.
//
// Use DefaultConfig() for production deployments.
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.Groups = []types.DatastreamGroup{{Name: "test"}}
	cfg.PollInterval = 50 * time.Millisecond
	cfg.Cooldown = 10 * time.Millisecond
	cfg.StartupTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 2 * time.Second

	return cfg
}
