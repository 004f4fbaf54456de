package scheduler

import (
	"testing"

	"github.com/elevatorsim/dispatch/internal/domain"
	"github.com/elevatorsim/dispatch/internal/elevator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWeights() Weights {
	cfg := domain.NewDefaultSimConfig("development")
	return FromConfig(cfg)
}

func newCar(t *testing.T, id string, floor int) *elevator.Elevator {
	t.Helper()
	e, err := elevator.New(id, id, domain.NewFloor(1), domain.NewFloor(12), 6)
	require.NoError(t, err)
	e.CurrentFloor = domain.NewFloor(floor)
	return e
}

func TestAssign_PicksSameFloorCarOverFarCar(t *testing.T) {
	near := newCar(t, "near", 5)
	far := newCar(t, "far", 1)
	req := &domain.Request{ID: "r1", FromFloor: domain.NewFloor(5), ToFloor: domain.NewFloor(9), Direction: domain.DirectionUp}

	assigned := map[string]string{}
	Assign(0, []*elevator.Elevator{far, near}, []*domain.Request{req}, nil, testWeights(), func(rid, eid string) {
		assigned[rid] = eid
	})

	assert.Equal(t, "near", assigned["r1"])
	assert.Equal(t, []int{5, 9}, near.Route)
}

func TestAssign_SkipsFullElevators(t *testing.T) {
	full := newCar(t, "full", 5)
	full.Onboard = []string{"a", "b", "c", "d", "e", "f"}
	other := newCar(t, "other", 3)
	req := &domain.Request{ID: "r1", FromFloor: domain.NewFloor(5), ToFloor: domain.NewFloor(9), Direction: domain.DirectionUp}

	assigned := map[string]string{}
	Assign(0, []*elevator.Elevator{full, other}, []*domain.Request{req}, nil, testWeights(), func(rid, eid string) {
		assigned[rid] = eid
	})

	assert.Equal(t, "other", assigned["r1"])
}

func TestAssign_SkipsElevatorAtProjectedCapacityFromUnboardedAssignments(t *testing.T) {
	// car has only 1 onboard but 5 requests already assigned-not-picked-up:
	// projected load (1+5=6) already saturates its capacity of 6, so a fresh
	// request must go to the otherwise-worse-scored car instead (spec.md
	// §4.4 step 3's already-assigned-but-not-picked-up term).
	committed := newCar(t, "committed", 5)
	committed.Onboard = []string{"a"}
	other := newCar(t, "other", 1)
	req := &domain.Request{ID: "r1", FromFloor: domain.NewFloor(5), ToFloor: domain.NewFloor(9), Direction: domain.DirectionUp}

	assigned := map[string]string{}
	assignedUnboarded := map[string]int{"committed": 5}
	Assign(0, []*elevator.Elevator{committed, other}, []*domain.Request{req}, assignedUnboarded, testWeights(), func(rid, eid string) {
		assigned[rid] = eid
	})

	assert.Equal(t, "other", assigned["r1"])
}

func TestAssign_IntraTripBatchingAssignsOnPathRequestToBusyCar(t *testing.T) {
	// mirrors spec.md §4.4's worked example: car at floor 3 moving up with
	// route [8]; a pickup at 5 lies strictly between 3 and 8.
	car := newCar(t, "car", 3)
	car.Direction = domain.DirectionUp
	car.Route = []int{8}
	req := &domain.Request{ID: "r1", FromFloor: domain.NewFloor(5), ToFloor: domain.NewFloor(6), Direction: domain.DirectionUp}

	assigned := map[string]string{}
	Assign(0, []*elevator.Elevator{car}, []*domain.Request{req}, nil, testWeights(), func(rid, eid string) {
		assigned[rid] = eid
	})

	assert.Equal(t, "car", assigned["r1"])
	assert.Equal(t, []int{8, 5}, car.Route)
}

func TestAssign_IntraTripBatchingSkipsRequestOffPath(t *testing.T) {
	car := newCar(t, "car", 5)
	car.Direction = domain.DirectionUp
	car.Route = []int{8}
	// pickup is behind the car's current floor, not between it and route max
	req := &domain.Request{ID: "r1", FromFloor: domain.NewFloor(2), ToFloor: domain.NewFloor(3), Direction: domain.DirectionUp}

	assigned := map[string]string{}
	Assign(0, []*elevator.Elevator{car}, []*domain.Request{req}, nil, testWeights(), func(rid, eid string) {
		assigned[rid] = eid
	})

	assert.Empty(t, assigned)
}

func TestRefreshPriorities_EscalatesAfterThreshold(t *testing.T) {
	w := testWeights()
	r := &domain.Request{ID: "r1", CreatedAt: 0, FromFloor: domain.NewFloor(2), BasePriority: 1}

	refreshPriorities(w.EscalationMs, []*domain.Request{r}, w)

	assert.True(t, r.Escalated)
	assert.Equal(t, r.BasePriority+float64(w.EscalationMs)*0.001+w.EscalationBoost, r.Priority)
}

func TestAssign_EscalatedRequestWinsOverHigherRawScore(t *testing.T) {
	car := newCar(t, "only", 1)
	stale := &domain.Request{ID: "stale", FromFloor: domain.NewFloor(10), ToFloor: domain.NewFloor(1), Direction: domain.DirectionDown, CreatedAt: 0}
	fresh := &domain.Request{ID: "fresh", FromFloor: domain.NewFloor(1), ToFloor: domain.NewFloor(2), Direction: domain.DirectionUp, CreatedAt: 0}

	w := testWeights()
	now := w.EscalationMs + 1
	fresh.CreatedAt = now // fresh has not waited, so only stale escalates

	assigned := []string{}
	Assign(now, []*elevator.Elevator{car}, []*domain.Request{stale, fresh}, nil, w, func(rid, eid string) {
		assigned = append(assigned, rid)
	})

	require.NotEmpty(t, assigned)
	assert.Equal(t, "stale", assigned[0])
}

func TestEstimateETA_ZeroAtCurrentFloor(t *testing.T) {
	car := newCar(t, "c", 5)
	w := testWeights()
	assert.Equal(t, int64(0), estimateETA(car, 5, w))
}
