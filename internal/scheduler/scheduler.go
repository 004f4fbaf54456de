// Package scheduler implements the hybrid greedy multi-criteria dispatch
// algorithm (spec.md §4.4-§4.5): every tick, score every (idle elevator,
// unassigned request) pair and greedily assign in priority order, then batch
// on-path unassigned requests onto busy elevators without scoring.
//
// Grounded on the teacher's internal/manager.chooseElevator, which already
// partitions idle from busy elevators before picking a winner; generalized
// here from "assign this one request to the single best elevator at
// submission time" into "score the idle set against the whole pending set,
// then batch the busy set onto its own route, once per tick" — and enriched
// with the projected-load/momentum guard from other_examples'
// destination-dispatch Controller.assignCar (gate assignment on remaining
// capacity, skip a car already committed away from the request's
// direction).
package scheduler

import (
	"sort"

	"github.com/elevatorsim/dispatch/internal/domain"
	"github.com/elevatorsim/dispatch/internal/elevator"
)

// Weights bundles the tunable scoring constants of spec.md §4.5.
type Weights struct {
	SameFloorBoost   float64
	NearbyBoost      float64
	DirectionBoost   float64
	ETAWeight        float64
	TargetPenalty    float64
	OccupancyNearPen float64
	OccupancyFullPen float64
	FairnessWeight   float64
	EscalationMs     int64
	EscalationBoost  float64
	RushStartMinute  int64
	RushEndMinute    int64
	RushMultiplier   float64
	LobbyFloor       int
	TimePerFloorMs   int64
	DoorDwellMs      int64
}

// FromConfig builds Weights from a domain.SimConfig.
func FromConfig(cfg domain.SimConfig) Weights {
	return Weights{
		SameFloorBoost:   cfg.SameFloorBoost,
		NearbyBoost:      cfg.NearbyBoost,
		DirectionBoost:   cfg.DirectionBoost,
		ETAWeight:        cfg.ETAWeight,
		TargetPenalty:    cfg.TargetPenalty,
		OccupancyNearPen: cfg.OccupancyNearPen,
		OccupancyFullPen: cfg.OccupancyFullPen,
		FairnessWeight:   cfg.FairnessWeight,
		EscalationMs:     cfg.EscalationMs,
		EscalationBoost:  cfg.EscalationBoost,
		RushStartMinute:  cfg.MorningRushStartMs,
		RushEndMinute:    cfg.MorningRushEndMs,
		RushMultiplier:   cfg.MorningRushMult,
		LobbyFloor:       cfg.LobbyFloor.Value(),
		TimePerFloorMs:   cfg.TimePerFloorMs,
		DoorDwellMs:      cfg.DoorDwellMs,
	}
}

// candidate is one (request, elevator) scoring.
type candidate struct {
	request   *domain.Request
	elevator  *elevator.Elevator
	score     float64
	etaMs     int64
	escalated bool
}

// Assign runs one scheduling pass (spec.md §4.4): refreshes priorities on
// the unassigned requests it is given (requests already assigned to a car,
// internal ones included, keep the priority they last had), partitions the fleet into idle and busy sets, runs
// a global scored assignment over the idle set, then an on-path intra-trip
// batching pass over the busy set. assignedUnboarded is the elevator-ID ->
// count of requests already assigned to that car but not yet picked up
// (requests.Book.AssignedUnboardedCounts) — the other half of each car's
// projected load alongside its current passengerCount. Assignment mutates
// both the winning request (via book.Assign) and the winning elevator's
// route.
func Assign(now int64, cars []*elevator.Elevator, unassigned []*domain.Request, assignedUnboarded map[string]int, w Weights, assign func(requestID, elevatorID string)) {
	refreshPriorities(now, unassigned, w)

	if len(unassigned) == 0 || len(cars) == 0 {
		return
	}

	var idle, busy []*elevator.Elevator
	for _, c := range cars {
		if c.IsIdle() {
			idle = append(idle, c)
		} else {
			busy = append(busy, c)
		}
	}

	// projectedLoad starts at each car's current passengerCount plus its
	// already-assigned-but-not-picked-up requests, and accumulates every
	// assignment made during this pass (spec.md §4.4 step 3).
	projectedLoad := make(map[string]int, len(cars))
	for _, c := range cars {
		projectedLoad[c.ID] = len(c.Onboard) + assignedUnboarded[c.ID]
	}

	takenRequest := make(map[string]bool, len(unassigned))

	assignIdleSet(idle, unassigned, projectedLoad, takenRequest, w, assign)
	assignIntraTripBatch(busy, unassigned, projectedLoad, takenRequest, assign)
}

// assignIdleSet implements spec.md §4.4 step 3: score every (idle elevator,
// unassigned request) pair, sort by (escalated, score desc, eta asc,
// fairness asc), then greedily commit assignments gated on projected load
// staying strictly below capacity.
func assignIdleSet(idle []*elevator.Elevator, unassigned []*domain.Request, projectedLoad map[string]int, takenRequest map[string]bool, w Weights, assign func(requestID, elevatorID string)) {
	if len(idle) == 0 {
		return
	}

	candidates := make([]candidate, 0, len(unassigned)*len(idle))
	for _, r := range unassigned {
		for _, c := range idle {
			eta := estimateETA(c, r.FromFloor.Value(), w)
			candidates = append(candidates, candidate{
				request:   r,
				elevator:  c,
				score:     score(c, r, eta, w),
				etaMs:     eta,
				escalated: r.Escalated,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.escalated != b.escalated {
			return a.escalated // escalated first
		}
		if a.score != b.score {
			return a.score > b.score // higher score first
		}
		if a.etaMs != b.etaMs {
			return a.etaMs < b.etaMs // sooner ETA first
		}
		if a.elevator.UtilTimeMs != b.elevator.UtilTimeMs {
			return a.elevator.UtilTimeMs < b.elevator.UtilTimeMs // less-used car first (fairness)
		}
		return a.elevator.ID < b.elevator.ID // then elevator ID ascending
	})

	for _, cand := range candidates {
		if takenRequest[cand.request.ID] {
			continue
		}
		if projectedLoad[cand.elevator.ID] >= cand.elevator.Capacity {
			continue
		}
		takenRequest[cand.request.ID] = true
		projectedLoad[cand.elevator.ID]++

		cand.elevator.AppendStop(cand.request.FromFloor.Value())
		cand.elevator.AppendStop(cand.request.ToFloor.Value())
		assign(cand.request.ID, cand.elevator.ID)
	}
}

// assignIntraTripBatch implements spec.md §4.4 step 4: a busy car picks up
// any still-unassigned request whose pickup floor lies strictly between its
// current floor and the extremity of its committed route in its direction
// of travel, without rescoring — the car is already heading that way.
func assignIntraTripBatch(busy []*elevator.Elevator, unassigned []*domain.Request, projectedLoad map[string]int, takenRequest map[string]bool, assign func(requestID, elevatorID string)) {
	for _, c := range busy {
		for _, r := range unassigned {
			if takenRequest[r.ID] {
				continue
			}
			if projectedLoad[c.ID] >= c.Capacity {
				continue
			}
			pickup := r.FromFloor.Value()
			if !onPath(c, pickup) {
				continue
			}

			takenRequest[r.ID] = true
			projectedLoad[c.ID]++
			c.AppendStop(pickup)
			assign(r.ID, c.ID)
		}
	}
}

// onPath reports whether pickup lies strictly between c's current floor and
// the extremity of its committed route in its direction of travel (spec.md
// §4.4 step 4).
func onPath(c *elevator.Elevator, pickup int) bool {
	if len(c.Route) == 0 {
		return false
	}
	cur := c.CurrentFloor.Value()
	switch c.Direction {
	case domain.DirectionUp:
		return pickup > cur && pickup < maxOf(c.Route)
	case domain.DirectionDown:
		return pickup < cur && pickup > minOf(c.Route)
	default:
		return false
	}
}

func maxOf(floors []int) int {
	m := floors[0]
	for _, f := range floors[1:] {
		if f > m {
			m = f
		}
	}
	return m
}

func minOf(floors []int) int {
	m := floors[0]
	for _, f := range floors[1:] {
		if f < m {
			m = f
		}
	}
	return m
}

// refreshPriorities recomputes Priority/Escalated for every request in the
// slice it is given (Assign passes the unassigned ones), per spec.md §4.4: wait-time escalation after EscalationMs, and a morning
// rush multiplier for lobby-origin requests within the rush window.
func refreshPriorities(now int64, pending []*domain.Request, w Weights) {
	for _, r := range pending {
		wait := r.WaitTime(now)
		priority := r.BasePriority + float64(wait)*0.001

		if isMorningRush(now, w) && r.FromFloor.Value() == w.LobbyFloor {
			priority *= w.RushMultiplier
		}

		escalated := wait >= w.EscalationMs
		if escalated {
			priority += w.EscalationBoost
		}

		r.Priority = priority
		r.Escalated = escalated
	}
}

// isMorningRush maps the sim clock onto a 24h wheel and checks the
// configured rush window (spec.md §4.4).
func isMorningRush(nowMs int64, w Weights) bool {
	const dayMs = 24 * 60 * 60 * 1000
	minuteOfDay := (nowMs % dayMs) / 60000
	return minuteOfDay >= w.RushStartMinute && minuteOfDay < w.RushEndMinute
}

// score computes the multi-criteria score of spec.md §4.5 for assigning
// request r to car c, given its ETA in sim-ms.
func score(c *elevator.Elevator, r *domain.Request, etaMs int64, w Weights) float64 {
	s := 0.0

	if c.CurrentFloor.Value() == r.FromFloor.Value() {
		s += w.SameFloorBoost
	} else if abs(c.CurrentFloor.Value()-r.FromFloor.Value()) <= 2 {
		s += w.NearbyBoost
	}

	if directionMatches(c, r) {
		s += w.DirectionBoost
	}

	s += w.ETAWeight * float64(etaMs)

	if len(c.Route) > 0 {
		s += w.TargetPenalty * float64(len(c.Route))
	}

	free := c.Capacity - len(c.Onboard)
	switch {
	case free <= 0:
		s += w.OccupancyFullPen
	case free <= 1:
		s += w.OccupancyNearPen
	}

	s += w.FairnessWeight * float64(c.UtilTimeMs)
	s += r.Priority

	return s
}

func directionMatches(c *elevator.Elevator, r *domain.Request) bool {
	if c.IsIdle() {
		return true
	}
	carDir := c.Direction
	if carDir == domain.DirectionIdle {
		return true
	}
	return carDir == r.Direction
}

// estimateETA walks the car's committed route plus the candidate pickup
// floor, accounting for travel time and a door dwell at each intermediate
// stop, per spec.md §4.5's ETA estimator.
func estimateETA(c *elevator.Elevator, pickupFloor int, w Weights) int64 {
	cur := c.CurrentFloor.Value()
	var eta int64

	route := append(append([]int{}, c.Route...), pickupFloor)
	seen := false
	for _, stop := range route {
		eta += int64(abs(stop-cur)) * w.TimePerFloorMs
		cur = stop
		if stop == pickupFloor {
			seen = true
			break
		}
		eta += w.DoorDwellMs
	}
	if !seen {
		eta += int64(abs(pickupFloor-cur)) * w.TimePerFloorMs
	}
	return eta
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
