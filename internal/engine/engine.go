// Package engine implements the tick driver, command surface, and engine
// handle of spec.md §4.6, §5, §6 — the redesigned replacement for the
// teacher's internal/manager.Manager. A single *Engine value is owned by
// cmd/server/main.go and passed around explicitly (spec.md §9 "engine
// handle, not singleton"); nothing in this package reaches for a
// package-level global.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/elevatorsim/dispatch/internal/clock"
	"github.com/elevatorsim/dispatch/internal/constants"
	"github.com/elevatorsim/dispatch/internal/domain"
	"github.com/elevatorsim/dispatch/internal/elevator"
	"github.com/elevatorsim/dispatch/internal/requests"
	"github.com/elevatorsim/dispatch/internal/scheduler"
	"github.com/elevatorsim/dispatch/internal/spawner"
	"github.com/elevatorsim/dispatch/internal/stats"
	"github.com/elevatorsim/dispatch/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// tickTracer emits one span per tick ("engine.tick"), the ambient tracing
// SPEC_FULL.md calls for. It wraps the global otel API with no configured
// exporter, so in the absence of a registered SDK provider this is a no-op;
// wiring a real backend is a deployment concern, not an engine one.
var tickTracer = otel.Tracer("github.com/elevatorsim/dispatch/internal/engine")

// Engine owns the whole simulation: the virtual clock, the fleet, the
// request book, the scheduler weights, the stats aggregator, the spawner,
// and the tick driver goroutine. Commands are serialized against ticks by a
// single mutex (spec.md §5), mirroring the teacher's Manager, whose methods
// all acquire one lock before touching shared state.
type Engine struct {
	mu sync.Mutex

	cfg     domain.SimConfig
	clock   *clock.Clock
	cars    []*elevator.Elevator
	book    *requests.Book
	stats   *stats.Aggregator
	spawner *spawner.Spawner
	breaker *CircuitBreaker

	running    bool
	cancelTick context.CancelFunc
	wg         sync.WaitGroup

	lastServedIdx int
	subs          map[chan domain.EngineSnapshot]struct{}

	logger *slog.Logger
}

// New constructs a stopped engine from the given configuration and seed.
func New(cfg domain.SimConfig, seed int64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		clock:   clock.New(),
		book:    requests.New(),
		stats:   stats.New(cfg.TickRateMs * 300), // 300 ticks' worth of ms: 60s at the 200ms tick rate, 5min at 1000ms
		spawner: spawner.New(seed, cfg),
		breaker: NewCircuitBreaker(5, 10*time.Second, 3),
		subs:    make(map[chan domain.EngineSnapshot]struct{}),
		logger:  slog.Default().With(slog.String("component", constants.ComponentEngine)),
	}
	e.buildFleet()
	return e, nil
}

func (e *Engine) buildFleet() {
	e.cars = make([]*elevator.Elevator, 0, e.cfg.NumElevators)
	for i := 0; i < e.cfg.NumElevators; i++ {
		id := uuid.NewString()
		name := elevatorName(i)
		car, err := elevator.New(id, name, e.cfg.MinFloor, e.cfg.MaxFloor, e.cfg.Capacity)
		if err != nil {
			// Construction only fails on the invariants Validate already
			// checked (name non-empty, distinct floors, positive
			// capacity) — unreachable once SimConfig.Validate passed.
			e.logger.Error("unexpected car construction failure", slog.Any("error", err))
			continue
		}
		car.CurrentFloor = e.cfg.LobbyFloor
		e.cars = append(e.cars, car)
	}
}

func elevatorName(i int) string {
	return fmt.Sprintf("%s-%d", constants.DefaultElevatorPrefix, i+1)
}

// Start begins the tick driver goroutine. Starting an already-running
// engine is a no-op (idempotence, spec.md §8 laws).
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelTick = cancel
	e.running = true

	e.wg.Add(1)
	go e.run(ctx)
	return nil
}

// Stop halts the tick driver. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancelTick
	e.running = false
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	return nil
}

// Reset stops the engine (if running) and rebuilds the fleet, clock, book,
// and stats from the current configuration.
func (e *Engine) Reset() error {
	if err := e.Stop(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.clock.Reset()
	e.book.Reset()
	e.stats = stats.New(e.cfg.TickRateMs * 300)
	e.lastServedIdx = 0
	e.buildFleet()
	return nil
}

// Running reports whether the tick driver is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetSpeed adjusts the clock's multiplier.
func (e *Engine) SetSpeed(speed float64) error {
	return e.clock.SetSpeed(speed)
}

// Reconfigure replaces the engine's configuration wholesale. Only permitted
// while stopped (spec.md §7 STATE error), since live reconfiguration would
// invalidate in-flight routes and assignments.
func (e *Engine) Reconfigure(cfg domain.SimConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return domain.ErrEngineRunning
	}

	e.cfg = cfg
	e.spawner = spawner.New(time.Now().UnixNano(), cfg)
	e.stats = stats.New(cfg.TickRateMs * 300)
	e.clock.Reset()
	e.book.Reset()
	e.lastServedIdx = 0
	e.buildFleet()
	return nil
}

// SetRequestFrequency changes the periodic spawner's rate (requests/min).
func (e *Engine) SetRequestFrequency(freqPerMinute int) error {
	if freqPerMinute <= 0 {
		return domain.NewValidationError("freqPerMinute must be positive", nil).WithContext("freqPerMinute", freqPerMinute)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spawner.SetFrequency(freqPerMinute)
	return nil
}

// AddManualRequest submits a request directly. If elevatorID is empty this
// is an external (hall call) request; otherwise it is an internal
// (car-panel) request for a passenger already inside that car.
func (e *Engine) AddManualRequest(fromFloor, toFloor int, elevatorID string) (*domain.Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	from := domain.NewFloor(fromFloor)
	to := domain.NewFloor(toFloor)
	if err := domain.ValidateFloorRange(from, to); err != nil {
		return nil, err
	}
	if !from.IsValid(e.cfg.MinFloor, e.cfg.MaxFloor) || !to.IsValid(e.cfg.MinFloor, e.cfg.MaxFloor) {
		return nil, domain.ErrFloorsOutOfRange
	}

	now := e.clock.Now()

	if elevatorID == "" {
		dir := domain.DirectionUp
		if to < from {
			dir = domain.DirectionDown
		}
		return e.book.Submit(domain.RequestExternal, from, to, dir, now), nil
	}

	car := e.findCar(elevatorID)
	if car == nil {
		return nil, domain.ErrNoElevatorFound
	}
	if car.IsFull() {
		return nil, domain.ErrElevatorFull
	}

	r := e.book.SubmitInternal(elevatorID, to, now)
	car.Onboard = append(car.Onboard, r.ID)
	car.AppendStop(toFloor)
	return r, nil
}

// SpawnScenario generates a named batch of requests (spec.md §4.7).
func (e *Engine) SpawnScenario(name string, count int) (int, error) {
	if count <= 0 {
		return 0, domain.NewValidationError("count must be positive", nil).WithContext("count", count)
	}
	if count > constants.MaxScenarioCount {
		return 0, domain.ErrScenarioTooLarge
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	trips, err := e.spawner.Generate(spawner.Scenario{Name: name, Count: count})
	if err != nil {
		return 0, err
	}

	now := e.clock.Now()
	for _, trip := range trips {
		from, to := domain.NewFloor(trip[0]), domain.NewFloor(trip[1])
		dir := domain.DirectionUp
		if to < from {
			dir = domain.DirectionDown
		}
		e.book.Submit(domain.RequestExternal, from, to, dir, now)
	}
	return len(trips), nil
}

func (e *Engine) findCar(id string) *elevator.Elevator {
	for _, c := range e.cars {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// run is the tick driver goroutine: a fixed real-time ticker calling Tick
// once per period, until ctx is cancelled by Stop.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	period := time.Duration(e.cfg.TickRateMs) * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			realDt := now.Sub(last)
			last = now
			e.Tick(realDt.Milliseconds())
		}
	}
}

// Tick runs exactly one simulation step (spec.md §4.6, §5): advance the
// clock, fire any due periodic spawns, step every elevator in id order,
// run the scheduler (guarded against panics/errors, spec.md §4.6
// TRANSIENT), update utilization stats, and broadcast a snapshot.
func (e *Engine) Tick(realDtMs int64) {
	_, span := tickTracer.Start(context.Background(), "engine.tick")
	tickStart := time.Now()
	defer func() {
		metrics.ObserveTickDuration(time.Since(tickStart).Seconds())
		span.End()
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	simDt := e.clock.Advance(realDtMs)
	now := e.clock.Now()

	for _, trip := range e.spawner.Tick(simDt, now) {
		from, to := domain.NewFloor(trip[0]), domain.NewFloor(trip[1])
		dir := domain.DirectionUp
		if to < from {
			dir = domain.DirectionDown
		}
		e.book.Submit(domain.RequestExternal, from, to, dir, now)
	}

	ordered := append([]*elevator.Elevator{}, e.cars...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, car := range ordered {
		car.Step(simDt, now, e.book, e.cfg.TimePerFloorMs, e.cfg.DoorDwellMs)
		// Keep every boarded passenger's destination on the route, so the
		// dropoff sweep reaches it even when the pickup was batched or
		// deduped onto a route that did not already include it.
		for _, id := range car.Onboard {
			if r, ok := e.book.Get(id); ok {
				car.AppendStop(r.ToFloor.Value())
			}
		}
	}

	e.runSchedulerGuarded(now)

	e.recordNewlyServed()
	e.sampleStats(now)

	e.broadcastLocked()
}

func (e *Engine) runSchedulerGuarded(now int64) {
	weights := scheduler.FromConfig(e.cfg)
	err := e.breaker.Execute(func() error {
		scheduler.Assign(now, e.cars, e.book.Unassigned(), e.book.AssignedUnboardedCounts(), weights, func(requestID, elevatorID string) {
			e.book.Assign(requestID, elevatorID, now)
		})
		return nil
	})
	if err != nil {
		// spec.md §4.6: scheduler/sampling failures are logged, never fatal.
		e.logger.Warn("scheduler pass skipped", slog.Any("error", err))
		metrics.IncSchedulerError()
	}
}

func (e *Engine) recordNewlyServed() {
	served := e.book.Served()
	for _, r := range served[e.lastServedIdx:] {
		e.stats.RecordServed(r)
		metrics.RecordRequestServed(float64(r.PickupAt-r.CreatedAt)/1000, float64(r.DropoffAt-r.PickupAt)/1000)
	}
	e.lastServedIdx = len(served)
}

func (e *Engine) sampleStats(now int64) {
	var totalUtil int64
	for _, c := range e.cars {
		totalUtil += c.UtilTimeMs
		if now > 0 {
			metrics.SetCarUtilization(c.Name, float64(c.UtilTimeMs)/float64(now))
		}
	}
	e.stats.Sample(now, totalUtil)
	metrics.SetPendingRequests(e.book.PendingCount())
}

// Snapshot returns a defensive copy of the full simulation state (spec.md
// §6, §9).
func (e *Engine) Snapshot() domain.EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() domain.EngineSnapshot {
	cars := make([]domain.CarSnapshot, 0, len(e.cars))
	for _, c := range e.cars {
		route := append([]int{}, c.Route...)
		cars = append(cars, domain.CarSnapshot{
			ID:           c.ID,
			Name:         c.Name,
			CurrentFloor: c.CurrentFloor.Value(),
			Direction:    c.Direction,
			DoorOpen:     c.DoorOpen,
			Route:        route,
			Onboard:      len(c.Onboard),
			Capacity:     c.Capacity,
			UtilTimeMs:   c.UtilTimeMs,
		})
	}

	pendingPtrs := e.book.Pending()
	pending := make([]domain.Request, 0, len(pendingPtrs))
	for _, r := range pendingPtrs {
		pending = append(pending, *r)
	}

	return domain.EngineSnapshot{
		SimTimeMs: e.clock.Now(),
		Running:   e.running,
		Speed:     e.clock.Speed(),
		Cars:      cars,
		Pending:   pending,
	}
}

// MetricsSnapshot returns the aggregated statistics view (spec.md §2.6).
func (e *Engine) MetricsSnapshot() domain.MetricsSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	return e.stats.Snapshot(now, e.book.PendingCount(), e.book.MaxPendingWait(now), len(e.cars))
}

// Subscribe registers a channel to receive a snapshot after every tick
// (spec.md §6 "push channel"). The returned unsubscribe func must be called
// when the subscriber disconnects.
func (e *Engine) Subscribe(buffer int) (<-chan domain.EngineSnapshot, func()) {
	ch := make(chan domain.EngineSnapshot, buffer)

	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	unsubscribe := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// broadcastLocked sends the current snapshot to every subscriber,
// non-blocking: a subscriber that isn't draining its channel is simply
// skipped this tick (spec.md §7 TRANSPORT errors are swallowed per
// subscriber, never affecting the tick loop or other subscribers).
func (e *Engine) broadcastLocked() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshotLocked()
	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
