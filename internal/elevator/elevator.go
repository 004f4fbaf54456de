// Package elevator implements a single car's motion/door state machine
// (spec.md §4.2). Grounded on the teacher's elevator.go, whose SCAN/LOOK
// scenario logic and door-timing idiom this keeps, generalized from a
// goroutine-driven, real-time Run() loop into a single Step call invoked
// once per tick by the engine's tick driver — the whole point of the
// "single logical thread of progression" design (spec.md §5) is that an
// elevator has no goroutine of its own any more.
package elevator

import (
	"log/slog"

	"github.com/elevatorsim/dispatch/internal/domain"
)

// Elevator is one car in the building.
type Elevator struct {
	*State
	logger *slog.Logger
}

// New constructs an elevator, validating the same invariants the teacher's
// constructor did (non-empty name, distinct floor bounds).
func New(id, name string, minFloor, maxFloor domain.Floor, capacity int) (*Elevator, error) {
	if name == "" {
		return nil, domain.ErrElevatorNameEmpty
	}
	if minFloor == maxFloor {
		return nil, domain.ErrElevatorFloorsSame
	}
	if capacity <= 0 {
		return nil, domain.NewValidationError("capacity must be positive", nil).WithContext("capacity", capacity)
	}

	return &Elevator{
		State:  NewState(id, name, minFloor, maxFloor, capacity),
		logger: slog.Default().With(slog.String("component", "elevator"), slog.String("elevator_id", id)),
	}, nil
}

// ArrivalSweeper is the subset of the request book an elevator needs during
// Step to pick up and drop off passengers. Kept as an interface so elevator
// tests can fake it without importing the requests package.
type ArrivalSweeper interface {
	PickupAt(elevatorID string, floor int, freeSlots int, now int64) []string
	DropoffAt(onboard []string, floor int, now int64) []string
}

// Step advances the car by simDt sim-ms. It implements, in order, the rules
// of spec.md §4.2: door dwell, door close, idle transition, arrival sweep,
// and accumulator-based travel. now is the sim-ms clock reading after this
// tick's advance.
func (e *Elevator) Step(simDt int64, now int64, sweeper ArrivalSweeper, timePerFloorMs, doorDwellMs int64) {
	if e.DoorOpen {
		e.stepDoorDwell(simDt, sweeper, doorDwellMs)
		return
	}

	if len(e.Route) == 0 {
		e.Direction = domain.DirectionIdle
		return
	}

	target := e.Route[0]
	if target == e.CurrentFloor.Value() {
		e.arrive(now, sweeper, doorDwellMs)
		return
	}

	e.stepTravel(simDt, target, timePerFloorMs)
}

// stepDoorDwell counts down an open door; when the dwell elapses the door
// closes and the car picks its next direction from the remaining route.
func (e *Elevator) stepDoorDwell(simDt int64, sweeper ArrivalSweeper, doorDwellMs int64) {
	e.DoorTimerMs -= simDt
	if len(e.Onboard) > 0 {
		e.UtilTimeMs += simDt
	}
	if e.DoorTimerMs > 0 {
		return
	}

	e.DoorOpen = false
	e.DoorTimerMs = 0

	if len(e.Route) == 0 {
		e.Direction = domain.DirectionIdle
		return
	}
	e.Direction = e.directionToward(e.Route[0])
}

// arrive handles reaching the head of the route: stop, sweep pickups and
// dropoffs at this floor, open the door, and pop the route head.
func (e *Elevator) arrive(now int64, sweeper ArrivalSweeper, doorDwellMs int64) {
	floor := e.CurrentFloor.Value()

	freeSlots := e.Capacity - len(e.Onboard)
	picked := sweeper.PickupAt(e.ID, floor, freeSlots, now)
	e.Onboard = append(e.Onboard, picked...)

	dropped := sweeper.DropoffAt(e.Onboard, floor, now)
	if len(dropped) > 0 {
		e.Onboard = removeAll(e.Onboard, dropped)
	}

	e.Route = e.Route[1:]
	e.DoorOpen = true
	e.DoorTimerMs = doorDwellMs
	e.Direction = domain.DirectionIdle

	e.logger.Debug("car arrived", slog.Int("floor", floor), slog.Int("picked_up", len(picked)), slog.Int("dropped_off", len(dropped)))
}

// stepTravel advances the sub-floor movement accumulator and moves the car
// by whole floors once enough sim time has accumulated, per spec.md §4.2:
// floorsToMove = floor(accumulator / timePerFloor).
func (e *Elevator) stepTravel(simDt int64, target int, timePerFloorMs int64) {
	e.Direction = e.directionToward(target)
	if len(e.Onboard) > 0 {
		e.UtilTimeMs += simDt
	}
	e.MoveAccumMs += simDt

	if timePerFloorMs <= 0 {
		return
	}
	floorsToMove := e.MoveAccumMs / timePerFloorMs
	if floorsToMove <= 0 {
		return
	}
	e.MoveAccumMs -= floorsToMove * timePerFloorMs

	cur := e.CurrentFloor.Value()
	step := 1
	if e.Direction == domain.DirectionDown {
		step = -1
	}
	remaining := int(floorsToMove)
	for remaining > 0 && cur != target {
		cur += step
		remaining--
	}
	e.CurrentFloor = domain.NewFloor(cur)
	if cur == target {
		e.MoveAccumMs = 0
	}
}

func (e *Elevator) directionToward(target int) domain.Direction {
	cur := e.CurrentFloor.Value()
	switch {
	case target > cur:
		return domain.DirectionUp
	case target < cur:
		return domain.DirectionDown
	default:
		return domain.DirectionIdle
	}
}

func removeAll(onboard []string, remove []string) []string {
	removeSet := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		removeSet[id] = struct{}{}
	}
	out := onboard[:0:0]
	for _, id := range onboard {
		if _, gone := removeSet[id]; !gone {
			out = append(out, id)
		}
	}
	return out
}

// Status returns the elevator's current simple status view.
func (e *Elevator) Status() domain.ElevatorStatus {
	return e.Snapshot()
}
