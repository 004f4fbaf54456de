package engine

import (
	"testing"

	"github.com/elevatorsim/dispatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() domain.SimConfig {
	cfg := domain.NewDefaultSimConfig("testing")
	cfg.NumElevators = 2
	cfg.MinFloor = domain.NewFloor(1)
	cfg.MaxFloor = domain.NewFloor(10)
	cfg.LobbyFloor = domain.NewFloor(1)
	return cfg
}

func TestNew_BuildsConfiguredFleet(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)
	snap := e.Snapshot()
	assert.Len(t, snap.Cars, 2)
	assert.False(t, snap.Running)
}

func TestStartStop_Idempotent(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	assert.True(t, e.Running())

	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
	assert.False(t, e.Running())
}

func TestAddManualRequest_ExternalGoesToPending(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = e.AddManualRequest(1, 8, "")
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Len(t, snap.Pending, 1)
}

func TestAddManualRequest_RejectsSameFloor(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = e.AddManualRequest(3, 3, "")
	require.Error(t, err)
}

func TestAddManualRequest_InternalRequiresKnownElevator(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = e.AddManualRequest(1, 5, "does-not-exist")
	require.Error(t, err)
}

func TestTick_AssignsPendingRequestToACar(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = e.AddManualRequest(1, 8, "")
	require.NoError(t, err)

	e.Tick(200)

	snap := e.Snapshot()
	assigned := false
	for _, c := range snap.Cars {
		if len(c.Route) > 0 {
			assigned = true
		}
	}
	assert.True(t, assigned)
}

func TestTick_RequestEventuallyServed(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = e.AddManualRequest(1, 2, "")
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		e.Tick(200)
	}

	m := e.MetricsSnapshot()
	assert.GreaterOrEqual(t, m.ServedCount, 1)
}

func TestReconfigure_RejectedWhileRunning(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	defer e.Stop()

	err = e.Reconfigure(testConfig())
	require.Error(t, err)
}

func TestSpawnScenario_RejectsOversizedCount(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = e.SpawnScenario("morningRush", 10_000)
	require.Error(t, err)
}

func TestSubscribe_ReceivesSnapshotAfterTick(t *testing.T) {
	e, err := New(testConfig(), 1)
	require.NoError(t, err)

	ch, unsub := e.Subscribe(4)
	defer unsub()

	e.Tick(200)

	select {
	case snap := <-ch:
		assert.Equal(t, int64(200), snap.SimTimeMs)
	default:
		t.Fatal("expected a snapshot to be broadcast after Tick")
	}
}
