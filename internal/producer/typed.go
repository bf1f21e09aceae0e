// Package producer implements the two packet sources feeding the
// scheduler context: the periodic typed producer (classes A/B/C) and
// the aperiodic/burst random producer. Both are driven by a 100 ms
// real-time ticker in production but expose a pure Tick method so tests
// can drive them deterministically off a mock clock.
package producer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sprintradio/txsched/internal/queue"
	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/wireclass"
)

// TickInterval is how often the production loop samples the clock
// ("every 100 ms").
const TickInterval = 100 * time.Millisecond

// Typed drives classes A/B/C: every tick it checks each class's period
// against its last-fired timestamp and, once elapsed, synthesizes a
// fresh sample array and enqueues it.
type Typed struct {
	ctx       *sched.Context
	lastFired [3]int64
	logger    *zap.Logger
}

// NewTyped constructs a Typed producer bound to ctx. lastFired starts
// zeroed, matching scheduler init's "zero counters" rule: a
// class's first sample is produced once the clock first reaches its own
// period, not immediately at startup.
func NewTyped(ctx *sched.Context) *Typed {
	return &Typed{ctx: ctx, logger: ctx.Logger()}
}

// Tick runs one evaluation of all three periodic classes at time nowMs.
func (t *Typed) Tick(nowMs int64) {
	for i := 0; i < 3; i++ {
		cl := wireclass.Class(i)
		cfg := t.ctx.ClassConfig(cl)
		if cfg.PeriodMs <= 0 || cfg.CountTarget <= 0 {
			continue
		}
		if nowMs-t.lastFired[i] < cfg.PeriodMs {
			continue
		}
		t.lastFired[i] = nowMs

		p := queue.Packet{
			ClassID:    cl,
			DataType:   cfg.DataType,
			DataCount:  cfg.CountTarget,
			Size:       cfg.CountTarget * cfg.DataType.Width(),
			DeadlineMs: nowMs + cfg.RelDeadlineMs,
			Payload:    make([]byte, cfg.CountTarget*cfg.DataType.Width()),
		}
		if err := t.ctx.EnqueueBack(p); err != nil {
			t.logger.Warn("producer: periodic queue full, dropping sample",
				zap.String("class", cl.String()), zap.Error(err))
			continue
		}
		t.logger.Debug("producer: periodic sample enqueued",
			zap.String("class", cl.String()),
			zap.Int("count", cfg.CountTarget),
			zap.Int64("deadline_ms", p.DeadlineMs))
	}
}

// Run drives Tick off a real-time ticker until ctx is canceled, matching
// the ticker-plus-select-done shutdown shape.
func (t *Typed) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Tick(t.ctx.Clock().NowMs())
		}
	}
}
