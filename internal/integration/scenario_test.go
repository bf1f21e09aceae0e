// Package integration exercises the scheduler's producers, batcher, and
// TX-power controller wired together end to end against a mock clock
// and a mock radio, the same wiring cmd/scheduler uses in production.
package integration

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sprintradio/txsched/internal/batcher"
	"github.com/sprintradio/txsched/internal/clock"
	"github.com/sprintradio/txsched/internal/frame"
	"github.com/sprintradio/txsched/internal/producer"
	"github.com/sprintradio/txsched/internal/queue"
	"github.com/sprintradio/txsched/internal/radio"
	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/txpower"
	"github.com/sprintradio/txsched/internal/wireclass"
)

var (
	selfMAC = [6]byte{1, 1, 1, 1, 1, 1}
	peerMAC = [6]byte{2, 2, 2, 2, 2, 2}
	bssid   = [6]byte{3, 3, 3, 3, 3, 3}
)

// rig bundles the wiring a production scheduler process assembles, run
// by advancing the mock clock in fixed steps and calling each
// component's Tick directly rather than real-time tickers.
type rig struct {
	clk    *clock.Mock
	ctx    *sched.Context
	typed  *producer.Typed
	random *producer.Random
	batch  *batcher.Batcher
	m      *radio.Mock
}

func newRig(classes [3]sched.ClassConfig, rnd sched.RandomConfig, thresholdMs int64) *rig {
	clk := clock.NewMock(0)
	ctx := sched.New(clk, nil, classes, rnd, thresholdMs)
	m := radio.NewMock()
	return &rig{
		clk:    clk,
		ctx:    ctx,
		typed:  producer.NewTyped(ctx),
		random: producer.NewRandom(ctx, rand.New(rand.NewSource(1))),
		batch:  batcher.New(ctx, m, frame.DirUplink, selfMAC, peerMAC, bssid),
		m:      m,
	}
}

// advance steps the rig forward by totalMs in producer.TickInterval
// increments, running the typed producer, random producer, and batcher
// ticks at their real cadence (producer every 100ms, batcher every
// 50ms — two batcher ticks per producer tick).
func (r *rig) advance(totalMs int64) {
	const producerStep = int64(100)
	const batcherStep = int64(50)
	for elapsed := int64(0); elapsed < totalMs; elapsed += producerStep {
		r.clk.Advance(batcherStep)
		r.batch.Tick(context.Background(), r.clk.NowMs())
		r.clk.Advance(batcherStep)
		r.batch.Tick(context.Background(), r.clk.NowMs())
		r.typed.Tick(r.clk.NowMs())
		r.random.Tick(r.clk.NowMs())
	}
}

// Three periodic classes with well-separated periods: the batcher
// emits a class-A-only frame first (A's deadline is the first to enter
// the processing horizon, long before B or C have even produced their
// first sample), and once B starts producing, a later frame carries
// both A and B together.
func TestSmokeMultiClassBatching(t *testing.T) {
	classes := [3]sched.ClassConfig{
		{DataType: wireclass.DataTypeI32, PeriodMs: 1000, RelDeadlineMs: 1000, CountTarget: 10},
		{DataType: wireclass.DataTypeF32, PeriodMs: 5000, RelDeadlineMs: 5000, CountTarget: 8},
		{DataType: wireclass.DataTypeI16, PeriodMs: 8000, RelDeadlineMs: 8000, CountTarget: 6},
	}
	r := newRig(classes, sched.RandomConfig{}, 200)
	r.advance(9000)

	require.GreaterOrEqual(t, r.m.FrameCount(), 2)

	first, err := frame.Parse(r.m.Sent[0], frame.DirUplink, peerMAC)
	require.NoError(t, err)
	require.Equal(t, 10, first.Counts[wireclass.ClassA])
	require.Zero(t, first.Counts[wireclass.ClassB])
	require.Zero(t, first.Counts[wireclass.ClassC])

	var sawCombined bool
	for _, raw := range r.m.Sent {
		f, err := frame.Parse(raw, frame.DirUplink, peerMAC)
		require.NoError(t, err)
		if f.Counts[wireclass.ClassA] > 0 && f.Counts[wireclass.ClassB] > 0 {
			sawCombined = true
			break
		}
	}
	require.True(t, sawCombined, "expected a later frame carrying both class A and class B")
}

// A class-B item enqueued before any class-A item: the emitted frame
// still carries its runs in ascending ordinal order, so B lands in its
// own slot and the A run is empty.
func TestOrderingIndependentOfArrival(t *testing.T) {
	r := newRig(sched.DefaultClassConfigs(), sched.RandomConfig{}, 1000)

	require.NoError(t, r.ctx.EnqueueBack(queuePacket(wireclass.ClassB, wireclass.DataTypeF32, 4, 500)))
	r.clk.Advance(50)
	require.NoError(t, r.batch.Tick(context.Background(), r.clk.NowMs()))

	require.Equal(t, 1, r.m.FrameCount())
	got, err := frame.Parse(r.m.LastFrame(), frame.DirUplink, peerMAC)
	require.NoError(t, err)
	require.Zero(t, got.Counts[wireclass.ClassA])
	require.Equal(t, 4, got.Counts[wireclass.ClassB])
}

// A single class-A item with a 100ms relative deadline, enqueued at
// t=0, with no batcher tick before t=200: it must be counted as a
// deadline miss and never transmitted.
func TestDeadlineMissNeverTransmitted(t *testing.T) {
	r := newRig(sched.DefaultClassConfigs(), sched.RandomConfig{}, 1000)

	require.NoError(t, r.ctx.EnqueueBack(queuePacket(wireclass.ClassA, wireclass.DataTypeI32, 2, 100)))
	r.clk.Advance(200)
	require.NoError(t, r.batch.Tick(context.Background(), r.clk.NowMs()))

	require.Zero(t, r.m.FrameCount())
	require.EqualValues(t, 1, r.ctx.Counters().DeadlineMisses)
	require.Zero(t, r.ctx.QueueLen(wireclass.ClassA))
}

// The random producer's inter-arrival times are uniform in [min,max]
// outside a burst window and pinned to burstInterval inside one, with
// the window opening at burstPeriod and lasting sched.BurstWindowMs.
func TestRandomBurstHistogram(t *testing.T) {
	cfg := sched.RandomConfig{
		Enabled: true, MinIntervalMs: 500, MaxIntervalMs: 1500,
		BurstEnabled: true, BurstPeriodMs: 5000, BurstIntervalMs: 50,
		ElementCount: 4, DataType: wireclass.DataTypeI16,
	}
	ctx := sched.New(clock.NewMock(0), nil, sched.DefaultClassConfigs(), cfg, 1000)
	rnd := producer.NewRandom(ctx, rand.New(rand.NewSource(7)))

	var fireTimes []int64
	prevLen := 0
	for now := int64(0); now <= 15_000; now += 10 {
		rnd.Tick(now)
		if n := ctx.QueueLen(wireclass.ClassRandom); n > prevLen {
			fireTimes = append(fireTimes, now)
			prevLen = n
			ctx.DequeueFront(wireclass.ClassRandom)
			prevLen--
		}
	}

	var sawBurstInterval, sawNormalInterval bool
	for i := 1; i < len(fireTimes); i++ {
		delta := fireTimes[i] - fireTimes[i-1]
		if delta >= 40 && delta <= 60 {
			sawBurstInterval = true
		}
		if delta >= 450 && delta <= 1550 {
			sawNormalInterval = true
		}
	}
	require.True(t, sawNormalInterval, "expected some inter-arrivals in the normal [500,1500]ms band")
	require.True(t, sawBurstInterval, "expected some inter-arrivals pinned near the 50ms burst interval")
}

// A scripted RSSI sequence drives the TX-power controller through
// MIN->LOW->MEDIUM->HIGH->LOW, applying power only when the mapped bin
// changes.
func TestTXPowerTransitions(t *testing.T) {
	m := radio.NewMock(-10, -22, -40, -80, -22)
	ctrl := txpower.New(m, txpower.DefaultThresholds(), nil)

	for i := 0; i < 5; i++ {
		ctrl.Tick(context.Background())
	}

	require.Equal(t, []radio.Level{
		radio.PowerMin, radio.PowerLow, radio.PowerMedium, radio.PowerHigh, radio.PowerLow,
	}, m.Power)
}

func queuePacket(cl wireclass.Class, dt wireclass.DataType, count int, deadlineMs int64) queue.Packet {
	w := dt.Width()
	return queue.Packet{
		ClassID: cl, DataType: dt, DataCount: count, Size: count * w,
		DeadlineMs: deadlineMs, Payload: make([]byte, count*w),
	}
}
