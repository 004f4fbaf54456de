// Package requests implements the request book (spec.md §4.3): the pending
// set of trips waiting for pickup or dropoff, plus an append-only served
// archive used by the metrics aggregator's sliding window.
//
// Grounded on the teacher's directions.Manager (internal/directions), which
// tracked pickup->destination floors in a map for O(1) membership checks;
// here the map holds full Request records since each trip now has its own
// identity, timestamps and priority rather than being collapsed into a
// floor set.
package requests

import (
	"sort"

	"github.com/elevatorsim/dispatch/internal/constants"
	"github.com/elevatorsim/dispatch/internal/domain"
	"github.com/google/uuid"
)

// Book holds every request the engine currently knows about.
type Book struct {
	pending map[string]*domain.Request
	served  []*domain.Request
}

// New creates an empty request book.
func New() *Book {
	return &Book{pending: make(map[string]*domain.Request)}
}

// Submit creates and stores a new pending request. now is the sim-ms
// creation timestamp.
func (b *Book) Submit(reqType domain.RequestType, from, to domain.Floor, dir domain.Direction, now int64) *domain.Request {
	r := &domain.Request{
		ID:           uuid.NewString(),
		Type:         reqType,
		FromFloor:    from,
		ToFloor:      to,
		Direction:    dir,
		CreatedAt:    now,
		BasePriority: constants.DefaultBasePriority,
	}
	b.pending[r.ID] = r
	return r
}

// SubmitInternal creates a request for a passenger already riding inside
// elevatorID (a car-panel button press). Per spec.md §9's resolved open
// question, its pickup timestamp is set at creation — it is never touched
// by the pickup sweep, only the dropoff sweep once the car reaches
// toFloor — since the passenger has, by definition, already boarded.
func (b *Book) SubmitInternal(elevatorID string, toFloor domain.Floor, now int64) *domain.Request {
	r := &domain.Request{
		ID:           uuid.NewString(),
		Type:         domain.RequestInternal,
		FromFloor:    toFloor, // origin is not meaningful for an internal request
		ToFloor:      toFloor,
		Direction:    domain.DirectionIdle,
		CreatedAt:    now,
		AssignedTo:   elevatorID,
		AssignedAt:   now,
		PickupAt:     now,
		BasePriority: constants.DefaultBasePriority,
	}
	b.pending[r.ID] = r
	return r
}

// Get returns the request with the given ID, from either the pending set or
// the served archive.
func (b *Book) Get(id string) (*domain.Request, bool) {
	if r, ok := b.pending[id]; ok {
		return r, true
	}
	for _, r := range b.served {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// Pending returns every request still awaiting dropoff. The slice is a
// fresh copy of pointers — safe to sort/iterate without affecting the book.
func (b *Book) Pending() []*domain.Request {
	out := make([]*domain.Request, 0, len(b.pending))
	for _, r := range b.pending {
		out = append(out, r)
	}
	return out
}

// Unassigned returns pending requests that have not yet been claimed by a
// car — the scheduler's working set every tick.
func (b *Book) Unassigned() []*domain.Request {
	out := make([]*domain.Request, 0)
	for _, r := range b.pending {
		if !r.IsAssigned() {
			out = append(out, r)
		}
	}
	return out
}

// AssignedUnboardedCounts returns, per elevator ID, the number of pending
// requests already assigned to it but not yet picked up — the "already
// assigned but not picked up" term of the scheduler's projected-load check
// (spec.md §4.4 step 3).
func (b *Book) AssignedUnboardedCounts() map[string]int {
	out := make(map[string]int)
	for _, r := range b.pending {
		if r.AssignedTo == "" || r.IsPickedUp() {
			continue
		}
		out[r.AssignedTo]++
	}
	return out
}

// AssignedTo returns the pending requests currently claimed by elevatorID.
func (b *Book) AssignedTo(elevatorID string) []*domain.Request {
	out := make([]*domain.Request, 0)
	for _, r := range b.pending {
		if r.AssignedTo == elevatorID {
			out = append(out, r)
		}
	}
	return out
}

// Assign marks a pending request as claimed by an elevator.
func (b *Book) Assign(id, elevatorID string, now int64) {
	if r, ok := b.pending[id]; ok {
		r.AssignedTo = elevatorID
		r.AssignedAt = now
	}
}

// Unassign releases a request back to the unassigned pool (spec.md §4.3's
// "re-eligible for reassignment" edge case — e.g. the car serving it is
// removed mid-trip before pickup).
func (b *Book) Unassign(id string) {
	if r, ok := b.pending[id]; ok {
		r.AssignedTo = ""
		r.AssignedAt = 0
	}
}

// MarkPickedUp records the pickup timestamp for a request.
func (b *Book) MarkPickedUp(id string, now int64) {
	if r, ok := b.pending[id]; ok {
		r.PickupAt = now
	}
}

// MarkDroppedOff moves a request from pending into the served archive.
func (b *Book) MarkDroppedOff(id string, now int64) {
	r, ok := b.pending[id]
	if !ok {
		return
	}
	r.DropoffAt = now
	delete(b.pending, id)
	b.served = append(b.served, r)
}

// PickupAt implements elevator.ArrivalSweeper (spec.md §4.3's pickup sweep):
// every pending request assigned to elevatorID whose origin is floor and
// which hasn't boarded yet is a candidate. Candidates board in creation
// order up to freeSlots; a request that can't fit because the car is full
// at arrival has its assignment cleared instead, re-entering the unassigned
// pool for the scheduler to pick up on a later car. Their IDs are returned
// for the car to add to its onboard list.
func (b *Book) PickupAt(elevatorID string, floor int, freeSlots int, now int64) []string {
	var candidates []*domain.Request
	for _, r := range b.pending {
		if r.AssignedTo != elevatorID || r.IsPickedUp() {
			continue
		}
		if r.FromFloor.Value() != floor {
			continue
		}
		candidates = append(candidates, r)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].CreatedAt < candidates[j].CreatedAt })

	var picked []string
	for _, r := range candidates {
		if freeSlots <= 0 {
			r.AssignedTo = ""
			r.AssignedAt = 0
			continue
		}
		r.PickupAt = now
		picked = append(picked, r.ID)
		freeSlots--
	}
	return picked
}

// DropoffAt implements elevator.ArrivalSweeper: every onboard request whose
// destination is floor is moved to the served archive; their IDs are
// returned for the car to remove from its onboard list.
func (b *Book) DropoffAt(onboard []string, floor int, now int64) []string {
	var dropped []string
	for _, id := range onboard {
		r, ok := b.pending[id]
		if !ok || r.ToFloor.Value() != floor {
			continue
		}
		dropped = append(dropped, id)
	}
	for _, id := range dropped {
		b.MarkDroppedOff(id, now)
	}
	return dropped
}

// Reset clears the book back to empty, for the engine's reset command.
func (b *Book) Reset() {
	b.pending = make(map[string]*domain.Request)
	b.served = nil
}

// Served returns the append-only archive of completed trips, oldest first.
func (b *Book) Served() []*domain.Request {
	return b.served
}

// PendingCount returns the number of requests awaiting dropoff.
func (b *Book) PendingCount() int {
	return len(b.pending)
}

// MaxPendingWait returns the longest wait (sim-ms) among requests not yet
// picked up, as of now. Returns 0 if nothing is waiting.
func (b *Book) MaxPendingWait(now int64) int64 {
	var max int64
	for _, r := range b.pending {
		if r.IsPickedUp() {
			continue
		}
		if w := r.WaitTime(now); w > max {
			max = w
		}
	}
	return max
}
