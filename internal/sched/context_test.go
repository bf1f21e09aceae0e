package sched

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sprintradio/txsched/internal/clock"
	"github.com/sprintradio/txsched/internal/queue"
	"github.com/sprintradio/txsched/internal/wireclass"
)

func newTestContext() *Context {
	return New(clock.NewMock(0), nil, DefaultClassConfigs(), DefaultRandomConfig(), 1000)
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	c := newTestContext()
	p := queue.Packet{ClassID: wireclass.ClassA, DataType: wireclass.DataTypeI32, DataCount: 1, Size: 4, DeadlineMs: 500, Payload: []byte{1, 2, 3, 4}}
	require.NoError(t, c.EnqueueBack(p))
	require.Equal(t, 1, c.QueueLen(wireclass.ClassA))

	got, err := c.DequeueFront(wireclass.ClassA)
	require.NoError(t, err)
	require.Equal(t, p.Payload, got.Payload)
	require.Equal(t, 0, c.QueueLen(wireclass.ClassA))
}

func TestCountersRoundTrip(t *testing.T) {
	c := newTestContext()
	c.IncProcessed()
	c.IncProcessed()
	c.IncTransmitted(3)
	c.IncDeadlineMiss()

	got := c.Counters()
	require.EqualValues(t, 2, got.Processed)
	require.EqualValues(t, 3, got.Transmitted)
	require.EqualValues(t, 1, got.DeadlineMisses)

	c.Reset()
	got = c.Counters()
	require.Zero(t, got.Processed)
	require.Zero(t, got.Transmitted)
	require.Zero(t, got.DeadlineMisses)
}

func TestSetClassConfigClamps(t *testing.T) {
	c := newTestContext()
	ok := c.SetClassConfig(wireclass.ClassA, ClassConfig{PeriodMs: 1, RelDeadlineMs: 999_999, CountTarget: 0})
	require.True(t, ok)
	got := c.ClassConfig(wireclass.ClassA)
	require.Equal(t, int64(MinPeriodMs), got.PeriodMs)
	require.Equal(t, int64(MaxPeriodMs), got.RelDeadlineMs)
	require.Equal(t, MinPacketCount, got.CountTarget)
}

func TestSetClassConfigRejectsRandomClass(t *testing.T) {
	c := newTestContext()
	require.False(t, c.SetClassConfig(wireclass.ClassRandom, ClassConfig{}))
}

func TestRandomConfigCoercesMaxInterval(t *testing.T) {
	c := newTestContext()
	c.SetRandomConfig(RandomConfig{MinIntervalMs: 2000, MaxIntervalMs: 1000})
	got := c.RandomConfig()
	require.EqualValues(t, 3000, got.MaxIntervalMs)
}

func TestThresholdClamp(t *testing.T) {
	c := newTestContext()
	c.SetThreshold(-5)
	require.EqualValues(t, MinThresholdMs, c.Threshold())
	c.SetThreshold(999_999)
	require.EqualValues(t, MaxThresholdMs, c.Threshold())
}
