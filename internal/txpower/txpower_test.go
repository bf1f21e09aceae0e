package txpower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sprintradio/txsched/internal/radio"
)

func TestLevelForBins(t *testing.T) {
	th := DefaultThresholds()
	require.Equal(t, radio.PowerMin, th.LevelFor(-10))
	require.Equal(t, radio.PowerLow, th.LevelFor(-30))
	require.Equal(t, radio.PowerMedium, th.LevelFor(-50))
	require.Equal(t, radio.PowerHigh, th.LevelFor(-70))
}

func TestLevelForBoundaryIsInclusive(t *testing.T) {
	th := DefaultThresholds()
	require.Equal(t, radio.PowerMin, th.LevelFor(int8(DefaultRSSIExcellent)))
	require.Equal(t, radio.PowerLow, th.LevelFor(int8(DefaultRSSIGood)))
	require.Equal(t, radio.PowerMedium, th.LevelFor(int8(DefaultRSSIFair)))
}

func TestTickAppliesOnFirstSample(t *testing.T) {
	m := radio.NewMock(-10)
	c := New(m, DefaultThresholds(), nil)

	c.Tick(context.Background())
	require.Equal(t, []radio.Level{radio.PowerMin}, m.Power)
}

func TestTickSkipsWriteWhenLevelUnchanged(t *testing.T) {
	m := radio.NewMock(-10, -12, -15)
	c := New(m, DefaultThresholds(), nil)

	c.Tick(context.Background())
	c.Tick(context.Background())
	c.Tick(context.Background())
	require.Len(t, m.Power, 1, "level stayed in the same bin, should only write once")
}

func TestTickAppliesOnLevelChange(t *testing.T) {
	m := radio.NewMock(-10, -70)
	c := New(m, DefaultThresholds(), nil)

	c.Tick(context.Background())
	c.Tick(context.Background())
	require.Equal(t, []radio.Level{radio.PowerMin, radio.PowerHigh}, m.Power)
}

func TestTickSkipsSamplingWhenDisabled(t *testing.T) {
	m := radio.NewMock(-10)
	c := New(m, DefaultThresholds(), nil)
	require.True(t, c.Enabled())

	c.SetEnabled(false)
	c.Tick(context.Background())

	require.False(t, c.Enabled())
	require.Empty(t, m.Power)
	require.Zero(t, m.QueryRSSICount())
}
