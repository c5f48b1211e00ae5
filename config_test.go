package brooklin

import (
	"testing"
	"time"

	"github.com/Jyouping/brooklin/types"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, "brooklin-assignments", cfg.AssignmentBucket)
	require.Equal(t, "brooklin-targets", cfg.TargetBucket)
	require.Equal(t, "assignment", cfg.AssignmentPrefix)
	require.Equal(t, "target", cfg.TargetPrefix)
	require.Equal(t, 10*time.Second, cfg.PollInterval)
	require.Equal(t, 5*time.Second, cfg.Cooldown)
	require.Equal(t, 30*time.Second, cfg.StartupTimeout)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestApplyDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		ApplyDefaults(&cfg)

		require.Equal(t, "brooklin-assignments", cfg.AssignmentBucket)
		require.Equal(t, "assignment", cfg.AssignmentPrefix)
		require.Equal(t, 10*time.Second, cfg.PollInterval)
		require.Equal(t, 5*time.Second, cfg.Cooldown)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{
			Groups:           []types.DatastreamGroup{{Name: "orders"}},
			AssignmentBucket: "custom-assignments",
			TargetBucket:     "custom-targets",
			AssignmentPrefix: "custom-assign",
			TargetPrefix:     "custom-target",
			PollInterval:     20 * time.Second,
			Cooldown:         15 * time.Second,
			StartupTimeout:   60 * time.Second,
			ShutdownTimeout:  20 * time.Second,
		}
		ApplyDefaults(&cfg)

		require.Equal(t, []types.DatastreamGroup{{Name: "orders"}}, cfg.Groups)
		require.Equal(t, "custom-assignments", cfg.AssignmentBucket)
		require.Equal(t, "custom-targets", cfg.TargetBucket)
		require.Equal(t, "custom-assign", cfg.AssignmentPrefix)
		require.Equal(t, "custom-target", cfg.TargetPrefix)
		require.Equal(t, 20*time.Second, cfg.PollInterval)
		require.Equal(t, 15*time.Second, cfg.Cooldown)
		require.Equal(t, 60*time.Second, cfg.StartupTimeout)
		require.Equal(t, 20*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("applies partial defaults", func(t *testing.T) {
		cfg := Config{
			AssignmentPrefix: "myassign",
			Cooldown:         1 * time.Second,
		}
		ApplyDefaults(&cfg)

		require.Equal(t, "myassign", cfg.AssignmentPrefix)
		require.Equal(t, 1*time.Second, cfg.Cooldown)
		require.Equal(t, "brooklin-assignments", cfg.AssignmentBucket)
		require.Equal(t, 10*time.Second, cfg.PollInterval)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("rejects no groups", func(t *testing.T) {
		cfg := Config{}
		require.ErrorIs(t, cfg.Validate(), ErrNoGroupsConfigured)
	})

	t.Run("rejects unnamed group", func(t *testing.T) {
		cfg := Config{Groups: []types.DatastreamGroup{{}}}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects duplicate group names", func(t *testing.T) {
		cfg := Config{Groups: []types.DatastreamGroup{{Name: "orders"}, {Name: "orders"}}}
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("accepts distinct named groups", func(t *testing.T) {
		cfg := Config{Groups: []types.DatastreamGroup{{Name: "orders"}, {Name: "payments"}}}
		require.NoError(t, cfg.Validate())
	})
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	require.Equal(t, []types.DatastreamGroup{{Name: "test"}}, cfg.Groups)
	require.NoError(t, cfg.Validate())
	require.Less(t, cfg.PollInterval, 1*time.Second)
	require.Less(t, cfg.Cooldown, 1*time.Second)
}
