// Package stats implements the simulation's metrics aggregator (spec.md
// §2.6, §4.6, §9): cumulative counters plus a pruned sliding window for
// recent-utilization and throughput figures.
//
// Grounded on jwmdev-brt08/backend/sim's cumulative-counter-plus-rolling-
// sample pattern (report.go tracks total served trips alongside a windowed
// rate); generalized here into a self-contained aggregator the engine's
// tick driver samples every tick, independent of that package's bus-report
// specifics.
package stats

import "github.com/elevatorsim/dispatch/internal/domain"

type sample struct {
	tsMs          int64
	totalUtilMs   int64
	servedCount   int
}

// Aggregator accumulates lifetime totals and a sliding window of samples
// used to compute recent (as opposed to all-time) utilization and
// throughput.
type Aggregator struct {
	windowMs int64

	samples []sample

	servedCount int
	totalWaitMs int64
	maxWaitMs   int64
	totalTravelMs int64
	maxTravelMs   int64
}

// New creates an aggregator with the given sliding window size in sim-ms.
func New(windowMs int64) *Aggregator {
	if windowMs <= 0 {
		windowMs = 60_000
	}
	return &Aggregator{windowMs: windowMs}
}

// RecordServed folds a just-completed trip into the cumulative totals.
func (a *Aggregator) RecordServed(r *domain.Request) {
	a.servedCount++
	wait := r.PickupAt - r.CreatedAt
	a.totalWaitMs += wait
	if wait > a.maxWaitMs {
		a.maxWaitMs = wait
	}
	travel := r.TravelTime()
	a.totalTravelMs += travel
	if travel > a.maxTravelMs {
		a.maxTravelMs = travel
	}
}

// Sample appends a sliding-window sample and prunes anything older than
// 2*windowMs (spec.md §9), which is twice the horizon recentUtil/
// throughputPerMin report over — wide enough that the oldest-in-window
// sample used for a rate calculation is never the very first sample kept.
func (a *Aggregator) Sample(nowMs int64, totalUtilMs int64) {
	a.samples = append(a.samples, sample{tsMs: nowMs, totalUtilMs: totalUtilMs, servedCount: a.servedCount})

	cutoff := nowMs - a.windowMs*2
	i := 0
	for i < len(a.samples) && a.samples[i].tsMs < cutoff {
		i++
	}
	a.samples = a.samples[i:]
}

// Snapshot computes the full metricsSnapshot() view (spec.md §6), guarding
// every divide-by-zero with a floor of 1 on the denominator (spec.md §9).
func (a *Aggregator) Snapshot(nowMs int64, pendingCount int, maxPendingWaitMs int64, numElevators int) domain.MetricsSnapshot {
	servedDenom := maxInt(a.servedCount, 1)

	snap := domain.MetricsSnapshot{
		SimTimeMs:        nowMs,
		ServedCount:      a.servedCount,
		AvgWaitMs:        float64(a.totalWaitMs) / float64(servedDenom),
		MaxWaitMs:        a.maxWaitMs,
		AvgTravelMs:      float64(a.totalTravelMs) / float64(servedDenom),
		MaxTravelMs:      a.maxTravelMs,
		PendingCount:     pendingCount,
		MaxPendingWaitMs: maxPendingWaitMs,
	}

	if len(a.samples) >= 2 {
		latest := a.samples[len(a.samples)-1]
		oldest := latest
		for _, s := range a.samples {
			if s.tsMs >= nowMs-a.windowMs {
				oldest = s // oldest sample inside [now-windowMs, now]
				break
			}
		}
		elapsed := latest.tsMs - oldest.tsMs
		if elapsed > 0 && numElevators > 0 {
			utilDelta := latest.totalUtilMs - oldest.totalUtilMs
			snap.RecentUtil = float64(utilDelta) / float64(elapsed*int64(numElevators))
		}
		servedDelta := latest.servedCount - oldest.servedCount
		elapsedMin := float64(maxInt64(elapsed, 1)) / 60000.0
		snap.ThroughputPerMin = float64(servedDelta) / maxFloat(elapsedMin, 1.0/60000.0)
	}

	if nowMs > 0 && numElevators > 0 && len(a.samples) > 0 {
		latest := a.samples[len(a.samples)-1]
		snap.Utilization = float64(latest.totalUtilMs) / float64(nowMs*int64(numElevators))
	}

	return snap
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
