package radio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockRecordsSentFrames(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.Send(context.Background(), []byte{1, 2, 3}))
	require.Equal(t, 1, m.FrameCount())
	require.Equal(t, []byte{1, 2, 3}, m.LastFrame())
}

func TestMockRSSISequenceRepeatsLastValue(t *testing.T) {
	m := NewMock(-40, -60, -80)
	ctx := context.Background()

	v1, err := m.QueryRSSI(ctx)
	require.NoError(t, err)
	require.EqualValues(t, -40, v1)

	v2, _ := m.QueryRSSI(ctx)
	require.EqualValues(t, -60, v2)

	v3, _ := m.QueryRSSI(ctx)
	require.EqualValues(t, -80, v3)

	v4, _ := m.QueryRSSI(ctx)
	require.EqualValues(t, -80, v4, "sequence exhausted, should repeat last value")
}

func TestMockSetPowerRecordsHistory(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.SetPower(context.Background(), PowerHigh))
	require.NoError(t, m.SetPower(context.Background(), PowerLow))
	require.Equal(t, []Level{PowerHigh, PowerLow}, m.Power)
}
