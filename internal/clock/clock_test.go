package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvance_DefaultSpeed(t *testing.T) {
	c := New()
	got := c.Advance(250)
	assert.Equal(t, int64(250), got)
	assert.Equal(t, int64(250), c.Now())
}

func TestAdvance_ScalesBySpeed(t *testing.T) {
	c := New()
	require.NoError(t, c.SetSpeed(2.0))
	got := c.Advance(100)
	assert.Equal(t, int64(200), got)
}

func TestSetSpeed_RejectsNonPositive(t *testing.T) {
	c := New()
	require.Error(t, c.SetSpeed(0))
	require.Error(t, c.SetSpeed(-1))
	assert.Equal(t, 1.0, c.Speed())
}

func TestReset_ZeroesClockAndSpeed(t *testing.T) {
	c := New()
	require.NoError(t, c.SetSpeed(4.0))
	c.Advance(1000)
	c.Reset()
	assert.Equal(t, int64(0), c.Now())
	assert.Equal(t, 1.0, c.Speed())
}
