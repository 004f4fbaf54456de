package stats

import (
	"testing"

	"github.com/elevatorsim/dispatch/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRecordServed_AccumulatesWaitAndTravel(t *testing.T) {
	a := New(60_000)
	r := &domain.Request{CreatedAt: 0, PickupAt: 100, DropoffAt: 500}
	a.RecordServed(r)

	snap := a.Snapshot(1000, 0, 0, 3)
	assert.Equal(t, 1, snap.ServedCount)
	assert.Equal(t, float64(100), snap.AvgWaitMs)
	assert.Equal(t, float64(400), snap.AvgTravelMs)
}

func TestSample_PrunesOlderThanTwiceWindow(t *testing.T) {
	a := New(1000)
	a.Sample(0, 0)
	a.Sample(1000, 500)
	a.Sample(5000, 2000) // older-than-2*window samples should be pruned

	assert.LessOrEqual(t, len(a.samples), 2)
}

func TestSnapshot_NoServedYetAvoidsDivideByZero(t *testing.T) {
	a := New(60_000)
	snap := a.Snapshot(0, 2, 0, 3)
	assert.Equal(t, 0.0, snap.AvgWaitMs)
	assert.Equal(t, 2, snap.PendingCount)
}

func TestSnapshot_ThroughputUsesOldestAndLatestSample(t *testing.T) {
	a := New(60_000)
	a.Sample(0, 0)
	for i := 0; i < 3; i++ {
		a.RecordServed(&domain.Request{CreatedAt: 0, PickupAt: 10, DropoffAt: 20})
	}
	a.Sample(60_000, 300)

	snap := a.Snapshot(60_000, 0, 0, 2)
	assert.Greater(t, snap.ThroughputPerMin, 0.0)
}
