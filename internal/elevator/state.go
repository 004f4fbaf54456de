package elevator

import "github.com/elevatorsim/dispatch/internal/domain"

// State is an elevator's mutable simulation state. Unlike the teacher's
// State, this carries no mutex: spec.md §5 mandates a single logical thread
// of progression — every write (the tick driver's, and the internal-request
// command's, which boards a passenger and appends a stop) happens under the
// engine's single mutex, and snapshots are defensively copied — so the
// per-field RWMutex the teacher needed for its goroutine-per-elevator model
// is dead weight here.
type State struct {
	ID       string
	Name     string
	MinFloor domain.Floor
	MaxFloor domain.Floor
	Capacity int

	CurrentFloor domain.Floor
	Direction    domain.Direction

	DoorOpen     bool
	DoorTimerMs  int64 // ms remaining until the door closes
	MoveAccumMs  int64 // sub-floor travel progress, spec.md §4.2

	// Route is the ordered sequence of floors still to be visited, with
	// first-occurrence-preserving dedup (spec.md §9) — a stop already
	// queued is never re-queued, so a second hall call for a floor already
	// on the route doesn't reorder or duplicate it.
	Route []int

	// Onboard holds the IDs of requests currently riding in the car.
	Onboard []string

	// UtilTimeMs accumulates sim-ms spent carrying at least one passenger
	// (spec.md §3/§4.6 step 4), for the scheduler's fairness term and the
	// metrics aggregator's utilization stat. An empty car traveling to a
	// pickup or sitting door-open with nobody aboard does not count.
	UtilTimeMs int64
}

// NewState creates a fresh, idle elevator state parked at minFloor.
func NewState(id, name string, minFloor, maxFloor domain.Floor, capacity int) *State {
	return &State{
		ID:           id,
		Name:         name,
		MinFloor:     minFloor,
		MaxFloor:     maxFloor,
		Capacity:     capacity,
		CurrentFloor: minFloor,
		Direction:    domain.DirectionIdle,
	}
}

// IsIdle reports whether the car has nothing queued and its door is shut.
func (s *State) IsIdle() bool {
	return len(s.Route) == 0 && !s.DoorOpen
}

// IsFull reports whether the car has no remaining capacity.
func (s *State) IsFull() bool {
	return len(s.Onboard) >= s.Capacity
}

// HasStopAt reports whether floor is already queued on the route.
func (s *State) HasStopAt(floor int) bool {
	for _, f := range s.Route {
		if f == floor {
			return true
		}
	}
	return false
}

// AppendStop adds floor to the end of the route, preserving first occurrence
// (spec.md §9): a floor already queued is left at its existing position.
func (s *State) AppendStop(floor int) {
	if s.HasStopAt(floor) {
		return
	}
	s.Route = append(s.Route, floor)
}

// Snapshot returns an immutable, defensively-copied status for command
// handlers and the push channel (spec.md §9 "snapshot defensive copy").
func (s *State) Snapshot() domain.ElevatorStatus {
	status := domain.NewElevatorStatus(s.Name, s.CurrentFloor, s.Direction, len(s.Route)+len(s.Onboard), s.MinFloor, s.MaxFloor)
	return status
}
