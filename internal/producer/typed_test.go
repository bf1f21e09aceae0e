package producer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sprintradio/txsched/internal/clock"
	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/wireclass"
)

func newTestSchedContext() *sched.Context {
	return sched.New(clock.NewMock(0), nil, sched.DefaultClassConfigs(), sched.RandomConfig{}, 1000)
}

func TestTypedFiresOnFirstEligibleTick(t *testing.T) {
	ctx := newTestSchedContext()
	p := NewTyped(ctx)

	// A/B/C periods are 3000/5000/6000ms; none are eligible yet at t=0.
	p.Tick(0)
	require.Zero(t, ctx.QueueLen(wireclass.ClassA))
	require.Zero(t, ctx.QueueLen(wireclass.ClassB))
	require.Zero(t, ctx.QueueLen(wireclass.ClassC))

	p.Tick(3000)
	require.Equal(t, 1, ctx.QueueLen(wireclass.ClassA))
	require.Zero(t, ctx.QueueLen(wireclass.ClassB))
	require.Zero(t, ctx.QueueLen(wireclass.ClassC))
}

func TestTypedRespectsPeriod(t *testing.T) {
	ctx := newTestSchedContext()
	p := NewTyped(ctx)

	p.Tick(3000)
	p.Tick(4000) // A's period is 3000ms, should not re-fire yet
	require.Equal(t, 1, ctx.QueueLen(wireclass.ClassA))

	p.Tick(6000)
	require.Equal(t, 2, ctx.QueueLen(wireclass.ClassA))
}

func TestTypedSkipsDisabledClasses(t *testing.T) {
	ctx := sched.New(clock.NewMock(0), nil, [3]sched.ClassConfig{
		{PeriodMs: 0, CountTarget: 0},
		{PeriodMs: 0, CountTarget: 0},
		{PeriodMs: 0, CountTarget: 0},
	}, sched.RandomConfig{}, 1000)
	p := NewTyped(ctx)

	p.Tick(0)
	p.Tick(100_000)
	require.Zero(t, ctx.QueueLen(wireclass.ClassA))
}

func TestTypedPacketFieldsMatchConfig(t *testing.T) {
	ctx := newTestSchedContext()
	p := NewTyped(ctx)
	p.Tick(3000)

	got, err := ctx.PeekFront(wireclass.ClassA)
	require.NoError(t, err)
	require.Equal(t, wireclass.ClassA, got.ClassID)
	require.Equal(t, wireclass.DataTypeI32, got.DataType)
	require.Equal(t, 10, got.DataCount)
	require.Equal(t, 40, got.Size)
	require.EqualValues(t, 6000, got.DeadlineMs)
}
