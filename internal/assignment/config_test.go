package assignment

import (
	"testing"
	"time"

	"github.com/Jyouping/brooklin/internal/logging"
	"github.com/Jyouping/brooklin/internal/metrics"
	"github.com/Jyouping/brooklin/source"
	"github.com/Jyouping/brooklin/strategy"
	"github.com/Jyouping/brooklin/types"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// mockKV is a minimal mock for testing
type mockKV struct {
	jetstream.KeyValue
}

func validConfig() *Config {
	return &Config{
		AssignmentKV:     &mockKV{},
		TargetKV:         &mockKV{},
		Source:           source.NewStatic(),
		Group:            types.DatastreamGroup{Name: "orders"},
		BaseStrategy:     strategy.NewRoundRobin(),
		AssignmentPrefix: "assignment",
		TargetPrefix:     "target",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{name: "valid configuration", mutate: func(c *Config) {}, wantErr: false},
		{
			name:      "missing AssignmentKV",
			mutate:    func(c *Config) { c.AssignmentKV = nil },
			wantErr:   true,
			errString: "AssignmentKV is required",
		},
		{
			name:      "missing TargetKV",
			mutate:    func(c *Config) { c.TargetKV = nil },
			wantErr:   true,
			errString: "TargetKV is required",
		},
		{
			name:      "missing Source",
			mutate:    func(c *Config) { c.Source = nil },
			wantErr:   true,
			errString: "Source is required",
		},
		{
			name:      "missing Group name",
			mutate:    func(c *Config) { c.Group = types.DatastreamGroup{} },
			wantErr:   true,
			errString: "Group name is required",
		},
		{
			name:      "missing AssignmentPrefix",
			mutate:    func(c *Config) { c.AssignmentPrefix = "" },
			wantErr:   true,
			errString: "AssignmentPrefix is required",
		},
		{
			name:      "missing TargetPrefix",
			mutate:    func(c *Config) { c.TargetPrefix = "" },
			wantErr:   true,
			errString: "TargetPrefix is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := validConfig()

	cfg.SetDefaults()

	require.Equal(t, 10*time.Second, cfg.PollInterval)
	require.Equal(t, 5*time.Second, cfg.Cooldown)
	require.NotNil(t, cfg.Metrics)
	require.NotNil(t, cfg.Logger)
}

func TestConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	customLogger := logging.NewNop()
	customMetrics := metrics.NewNop()

	cfg := validConfig()
	cfg.PollInterval = 30 * time.Second
	cfg.Cooldown = 15 * time.Second
	cfg.Logger = customLogger
	cfg.Metrics = customMetrics

	cfg.SetDefaults()

	require.Equal(t, 30*time.Second, cfg.PollInterval)
	require.Equal(t, 15*time.Second, cfg.Cooldown)
	require.Equal(t, customLogger, cfg.Logger)
	require.Equal(t, customMetrics, cfg.Metrics)
}

func TestNewCoordinator(t *testing.T) {
	cfg := validConfig()

	coord, err := NewCoordinator(cfg)
	require.NoError(t, err)
	require.NotNil(t, coord)
	require.Equal(t, cfg.Group, coord.group)
	require.Equal(t, 10*time.Second, coord.pollInterval)
	require.Equal(t, 5*time.Second, coord.cooldown)
}

func TestNewCoordinator_ValidationError(t *testing.T) {
	cfg := &Config{
		AssignmentPrefix: "assignment",
		TargetPrefix:     "target",
	}

	coord, err := NewCoordinator(cfg)
	require.Error(t, err)
	require.Nil(t, coord)
	require.Contains(t, err.Error(), "invalid config")
}
