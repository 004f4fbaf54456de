// Package spawner implements periodic and scenario-based request generation
// (spec.md §4.7): a periodic background generator plus named one-shot
// scenarios, both driven off the engine's single seeded PRNG (spec.md §9).
//
// Grounded on jwmdev-brt08/backend/sim's demand generator, which produces
// periodic batches of simulated riders from a rate and a time-of-day
// multiplier; generalized here from Poisson-distributed batch sizes into
// the spec's simpler "one request per interval, weighted by morning rush"
// model, keeping the same "single seeded source, multiplier by time window"
// shape.
package spawner

import (
	"math/rand"

	"github.com/elevatorsim/dispatch/internal/domain"
)

// Spawner generates requests against a building's floor range.
type Spawner struct {
	rng *rand.Rand

	freqPerMinute int
	intervalMs    int64
	accumMs       int64

	minFloor int
	maxFloor int
	lobby    int

	rushStartMinute int64
	rushEndMinute   int64
	rushMultiplier  float64
}

// New creates a spawner seeded by seed (spec.md §9 "single seedable RNG"),
// with a periodic frequency of 4 requests per minute until SetFrequency is
// called.
func New(seed int64, cfg domain.SimConfig) *Spawner {
	s := &Spawner{
		rng:             rand.New(rand.NewSource(seed)),
		minFloor:        cfg.MinFloor.Value(),
		maxFloor:        cfg.MaxFloor.Value(),
		lobby:           cfg.LobbyFloor.Value(),
		rushStartMinute: cfg.MorningRushStartMs,
		rushEndMinute:   cfg.MorningRushEndMs,
		rushMultiplier:  cfg.MorningRushMult,
	}
	s.SetFrequency(4)
	return s
}

// SetFrequency sets the periodic spawn rate in requests per minute,
// recomputing the spawn interval per spec.md §4.7:
// interval = max(200ms, floor(60000/freqPerMinute)).
func (s *Spawner) SetFrequency(freqPerMinute int) {
	if freqPerMinute <= 0 {
		freqPerMinute = 1
	}
	s.freqPerMinute = freqPerMinute
	interval := int64(60_000 / freqPerMinute)
	if interval < 200 {
		interval = 200
	}
	s.intervalMs = interval
}

// Tick advances the periodic spawner by simDt and returns the requests
// (from, to floor pairs) to submit this tick, if the accumulated time
// crossed the spawn interval. Usually 0 or 1 per tick; more if simDt is
// large relative to the interval (e.g. after a speed change).
func (s *Spawner) Tick(simDt int64, nowMs int64) [][2]int {
	s.accumMs += simDt
	var out [][2]int
	for s.accumMs >= s.intervalMs {
		s.accumMs -= s.intervalMs
		out = append(out, s.nextTrip(nowMs))
	}
	return out
}

// nextTrip picks a random from/to pair, biased toward lobby-originating
// upward trips during the configured morning rush window.
func (s *Spawner) nextTrip(nowMs int64) [2]int {
	const dayMs = 24 * 60 * 60 * 1000
	minuteOfDay := (nowMs % dayMs) / 60000

	if minuteOfDay >= s.rushStartMinute && minuteOfDay < s.rushEndMinute && s.rng.Float64() < 0.7 {
		to := s.randFloorExcept(s.lobby)
		return [2]int{s.lobby, to}
	}

	from := s.randFloor()
	to := s.randFloorExcept(from)
	return [2]int{from, to}
}

func (s *Spawner) randFloor() int {
	return s.minFloor + s.rng.Intn(s.maxFloor-s.minFloor+1)
}

func (s *Spawner) randFloorExcept(except int) int {
	if s.maxFloor == s.minFloor {
		return s.minFloor
	}
	for {
		f := s.randFloor()
		if f != except {
			return f
		}
	}
}

// Scenario describes a named batch-generation request (spec.md §4.7).
type Scenario struct {
	Name  string
	Count int
}

// Generate produces the from/to pairs for a named scenario. Count above
// the configured maximum is rejected by the caller before Generate runs
// (spec.md §7 INVALID_INPUT); Generate itself assumes a valid count.
func (s *Spawner) Generate(scenario Scenario) ([][2]int, error) {
	switch scenario.Name {
	case "morningRush":
		return s.generateRush(scenario.Count), nil
	case "randomBurst":
		return s.generateBurst(scenario.Count), nil
	default:
		return nil, domain.ErrUnknownScenario
	}
}

func (s *Spawner) generateRush(count int) [][2]int {
	out := make([][2]int, 0, count)
	for i := 0; i < count; i++ {
		to := s.randFloorExcept(s.lobby)
		out = append(out, [2]int{s.lobby, to})
	}
	return out
}

func (s *Spawner) generateBurst(count int) [][2]int {
	out := make([][2]int, 0, count)
	for i := 0; i < count; i++ {
		from := s.randFloor()
		to := s.randFloorExcept(from)
		out = append(out, [2]int{from, to})
	}
	return out
}
