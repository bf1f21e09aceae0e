// Package batcher implements the deadline-triggered batching scheduler:
// the core algorithm that decides when to assemble an on-air frame and
// which queued packets go into it. It is driven by a 50 ms ticker, but
// the actual trigger/pack/emit logic is exposed as a pure Tick method so
// tests can drive it deterministically.
package batcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sprintradio/txsched/internal/frame"
	"github.com/sprintradio/txsched/internal/metrics"
	"github.com/sprintradio/txsched/internal/queue"
	"github.com/sprintradio/txsched/internal/radio"
	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/wireclass"
)

// TickInterval is how often the batcher evaluates the trigger condition
// ("every 50 ms").
const TickInterval = 50 * time.Millisecond

// ReserveBytes is the minimum remaining frame capacity required to
// attempt packing another element; once remaining capacity drops below
// it, packing stops for the current frame regardless of which class's
// queue still holds packets.
const ReserveBytes = 100

// Batcher owns the pack/emit half of the scheduler: it reads from the
// shared Context's queues in ascending class order and hands assembled
// frames to a Radio.
type Batcher struct {
	ctx    *sched.Context
	radio  radio.Radio
	logger *zap.Logger

	direction        frame.Direction
	selfMAC, peerMAC [6]byte
	bssid            [6]byte
}

// New constructs a Batcher. direction/selfMAC/peerMAC/bssid describe
// this endpoint's role in the frames it builds (station->AP uplink or
// AP->station downlink).
func New(ctx *sched.Context, r radio.Radio, direction frame.Direction, selfMAC, peerMAC, bssid [6]byte) *Batcher {
	return &Batcher{
		ctx: ctx, radio: r, logger: ctx.Logger(),
		direction: direction, selfMAC: selfMAC, peerMAC: peerMAC, bssid: bssid,
	}
}

// shouldTrigger reports whether the earliest deadline among all
// non-empty class queues falls within the processing horizon
// (now + threshold).
func (b *Batcher) shouldTrigger(nowMs int64) bool {
	minDeadline, any := int64(0), false
	for c := 0; c < wireclass.NumClasses; c++ {
		p, err := b.ctx.PeekFront(wireclass.Class(c))
		if err != nil {
			continue
		}
		if !any || p.DeadlineMs < minDeadline {
			minDeadline = p.DeadlineMs
			any = true
		}
	}
	if !any {
		return false
	}
	return minDeadline <= nowMs+b.ctx.Threshold()
}

// pack drains queues in ascending class order into a single frame's
// worth of counts/types/payload, dropping any packet already past its
// deadline and stopping once remaining capacity falls under
// ReserveBytes. It returns ok=false if nothing was packed.
func (b *Batcher) pack(nowMs int64) (counts [wireclass.NumClasses]int, types [wireclass.NumClasses]wireclass.DataType, payload []byte, ok bool) {
	remaining := frame.MaxTXSize

classLoop:
	for c := 0; c < wireclass.NumClasses; c++ {
		cl := wireclass.Class(c)
		for {
			if remaining < ReserveBytes {
				break classLoop
			}
			p, err := b.ctx.PeekFront(cl)
			if err != nil {
				break // this class is empty, move to the next
			}
			if p.Size > remaining {
				break // doesn't fit; leave queued for a later frame
			}

			dequeued, err := b.ctx.DequeueFront(cl)
			if err != nil {
				break
			}
			if dequeued.DeadlineMs < nowMs {
				b.dropExpired(cl, dequeued)
				continue
			}
			counts[c] += dequeued.DataCount
			types[c] = dequeued.DataType
			payload = append(payload, dequeued.Payload...)
			remaining -= dequeued.Size
			ok = true
			b.ctx.IncProcessed()
			metrics.PacketsProcessed.Inc()
		}
	}
	for c := 0; c < wireclass.NumClasses; c++ {
		metrics.QueueDepth.WithLabelValues(wireclass.Class(c).String()).Set(float64(b.ctx.QueueLen(wireclass.Class(c))))
	}
	return counts, types, payload, ok
}

// dropExpired records a packet already removed from cl's queue as a
// deadline miss. The packet is examined individually: the batcher does
// not look ahead at subsequent heads in the same queue before deciding
// to drop this one.
func (b *Batcher) dropExpired(cl wireclass.Class, p queue.Packet) {
	b.ctx.IncProcessed()
	b.ctx.IncDeadlineMiss()
	metrics.PacketsProcessed.Inc()
	metrics.DeadlineMisses.Inc()
	b.logger.Warn("batcher: dropping packet past deadline",
		zap.String("class", cl.String()),
		zap.Int64("deadline_ms", p.DeadlineMs))
}

// Tick runs one full trigger/pack/emit cycle at time nowMs. The radio
// transmit happens after every Context lock has been released, so a
// slow or blocking Send never holds up producers enqueueing new
// packets.
func (b *Batcher) Tick(ctx context.Context, nowMs int64) error {
	if !b.shouldTrigger(nowMs) {
		return nil
	}

	counts, types, payload, ok := b.pack(nowMs)
	if !ok {
		return nil
	}

	raw, err := frame.Build(frame.BuildParams{
		Direction:   b.direction,
		Dest:        b.peerMAC,
		Src:         b.selfMAC,
		BSSID:       b.bssid,
		Counts:      counts,
		Types:       types,
		Payload:     payload,
		TimestampMs: nowMs,
	})
	if err != nil {
		b.logger.Error("batcher: failed to build frame", zap.Error(err))
		return err
	}

	if err := b.radio.Send(ctx, raw); err != nil {
		b.logger.Error("batcher: radio send failed", zap.Error(err))
		return err
	}

	var nonzero uint64
	for _, n := range counts {
		if n > 0 {
			nonzero++
		}
	}
	b.ctx.IncTransmitted(nonzero)
	metrics.PacketsTransmitted.Add(float64(nonzero))

	b.logger.Debug("batcher: frame transmitted",
		zap.Int("bytes", len(raw)), zap.Ints("counts", countsToInts(counts)))
	return nil
}

func countsToInts(c [wireclass.NumClasses]int) []int {
	out := make([]int, len(c))
	copy(out, c[:])
	return out
}

// Run drives Tick off a real-time ticker until ctx is canceled.
func (b *Batcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.Tick(ctx, b.ctx.Clock().NowMs()); err != nil {
				b.logger.Warn("batcher: tick error", zap.Error(err))
			}
		}
	}
}
