package brooklin

import (
	"context"
	"testing"
	"time"

	partitest "github.com/Jyouping/brooklin/testing"
	"github.com/Jyouping/brooklin/source"
	"github.com/Jyouping/brooklin/strategy"
	"github.com/Jyouping/brooklin/types"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RequiredParameters(t *testing.T) {
	cfg := TestConfig()
	_, nc := partitest.StartEmbeddedNATS(t)
	src := source.NewStatic()
	strat := strategy.NewRoundRobin()

	t.Run("nil config", func(t *testing.T) {
		mgr, err := NewManager(nil, nc, src, strat)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.Nil(t, mgr)
	})

	t.Run("nil connection", func(t *testing.T) {
		mgr, err := NewManager(&cfg, nil, src, strat)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrNATSConnectionRequired)
		require.Nil(t, mgr)
	})

	t.Run("nil source", func(t *testing.T) {
		mgr, err := NewManager(&cfg, nc, nil, strat)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrPartitionSourceRequired)
		require.Nil(t, mgr)
	})

	t.Run("nil strategy", func(t *testing.T) {
		mgr, err := NewManager(&cfg, nc, src, nil)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrAssignmentStrategyRequired)
		require.Nil(t, mgr)
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		bad := Config{}
		mgr, err := NewManager(&bad, nc, src, strat)
		require.ErrorIs(t, err, ErrNoGroupsConfigured)
		require.Nil(t, mgr)
	})
}

func TestNewManager_DefaultsAppliedForOptionalDependencies(t *testing.T) {
	cfg := TestConfig()
	_, nc := partitest.StartEmbeddedNATS(t)
	src := source.NewStatic()
	strat := strategy.NewRoundRobin()

	mgr, err := NewManager(&cfg, nc, src, strat)
	require.NoError(t, err)
	require.NotNil(t, mgr)
	require.NotNil(t, mgr.hooks.OnAssignmentChanged)
	require.NotNil(t, mgr.hooks.OnError)
	require.NotNil(t, mgr.metrics)
	require.NotNil(t, mgr.logger)
	require.Nil(t, mgr.consumerUpdater)
}

func TestManager_StartBootstrapsAndPublishesOwnAssignment(t *testing.T) {
	_, nc := partitest.StartEmbeddedNATS(t)

	cfg := TestConfig()
	cfg.Groups = []types.DatastreamGroup{{Name: "orders"}}

	src := source.NewStatic(types.PartitionsMetadata{
		Group:      types.DatastreamGroup{Name: "orders"},
		Partitions: []string{"p0", "p1", "p2", "p3"},
	})
	strat := strategy.NewRoundRobin()

	seen := make(chan []types.Task, 8)
	hooks := &types.Hooks{
		OnAssignmentChanged: func(_ context.Context, added, _ []types.Task) error {
			seen <- added
			return nil
		},
	}

	mgr, err := NewManager(&cfg, nc, src, strat, WithHooks(hooks))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	instances := []string{"instance-0", "instance-1"}
	require.NoError(t, mgr.Start(ctx, "instance-0", instances))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		require.NoError(t, mgr.Stop(stopCtx))
	}()

	select {
	case added := <-seen:
		require.NotEmpty(t, added)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for initial assignment")
	}

	current := mgr.CurrentAssignment()
	require.NotEmpty(t, current.Tasks)
	require.Equal(t, "instance-0", mgr.InstanceID())
}

func TestManager_Start_RejectsEmptyInstanceID(t *testing.T) {
	_, nc := partitest.StartEmbeddedNATS(t)
	cfg := TestConfig()
	src := source.NewStatic()
	strat := strategy.NewRoundRobin()

	mgr, err := NewManager(&cfg, nc, src, strat)
	require.NoError(t, err)

	err = mgr.Start(context.Background(), "", []string{"instance-0"})
	require.ErrorIs(t, err, ErrInvalidInstanceID)
}

func TestManager_Start_RejectsNoInstances(t *testing.T) {
	_, nc := partitest.StartEmbeddedNATS(t)
	cfg := TestConfig()
	src := source.NewStatic()
	strat := strategy.NewRoundRobin()

	mgr, err := NewManager(&cfg, nc, src, strat)
	require.NoError(t, err)

	err = mgr.Start(context.Background(), "instance-0", nil)
	require.ErrorIs(t, err, ErrNoInstancesAvailable)
}

func TestManager_Start_RejectsDoubleStart(t *testing.T) {
	_, nc := partitest.StartEmbeddedNATS(t)
	cfg := TestConfig()
	src := source.NewStatic(types.PartitionsMetadata{
		Group:      types.DatastreamGroup{Name: "test"},
		Partitions: []string{"p0"},
	})
	strat := strategy.NewRoundRobin()

	mgr, err := NewManager(&cfg, nc, src, strat)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, mgr.Start(ctx, "instance-0", []string{"instance-0"}))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = mgr.Stop(stopCtx)
	}()

	err = mgr.Start(ctx, "instance-0", []string{"instance-0"})
	require.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestManager_Stop_RejectsWhenNotStarted(t *testing.T) {
	_, nc := partitest.StartEmbeddedNATS(t)
	cfg := TestConfig()
	src := source.NewStatic()
	strat := strategy.NewRoundRobin()

	mgr, err := NewManager(&cfg, nc, src, strat)
	require.NoError(t, err)

	err = mgr.Stop(context.Background())
	require.ErrorIs(t, err, ErrNotStarted)
}

type fakeConsumerUpdater struct {
	calls chan []types.Partition
}

func (f *fakeConsumerUpdater) UpdateTaskConsumer(_ context.Context, _ string, partitions []types.Partition) error {
	f.calls <- partitions
	return nil
}

func TestManager_Start_InvokesTaskConsumerUpdater(t *testing.T) {
	_, nc := partitest.StartEmbeddedNATS(t)

	cfg := TestConfig()
	cfg.Groups = []types.DatastreamGroup{{Name: "orders"}}

	src := source.NewStatic(types.PartitionsMetadata{
		Group:      types.DatastreamGroup{Name: "orders"},
		Partitions: []string{"p0", "p1"},
	})
	strat := strategy.NewRoundRobin()
	updater := &fakeConsumerUpdater{calls: make(chan []types.Partition, 8)}

	mgr, err := NewManager(&cfg, nc, src, strat, WithTaskConsumerUpdater(updater))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, mgr.Start(ctx, "instance-0", []string{"instance-0"}))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = mgr.Stop(stopCtx)
	}()

	select {
	case partitions := <-updater.calls:
		require.NotEmpty(t, partitions)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for consumer update")
	}
}
