package producer

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/sprintradio/txsched/internal/queue"
	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/wireclass"
)

// mode is the random producer's burst state machine.
type mode uint8

const (
	modeNormal mode = iota
	modeBurst
)

// Random drives the aperiodic/burst class, parameterized by RandomConfig.
// It is not safe for concurrent use; Run drives it from a single
// goroutine, matching Typed.
type Random struct {
	ctx    *sched.Context
	logger *zap.Logger
	rng    *rand.Rand

	state          mode
	lastTransition int64
	nextFire       int64
}

// NewRandom constructs a Random producer. rng may be nil, in which case
// a time-seeded source is used; tests should pass a fixed-seed
// rand.Rand for determinism.
func NewRandom(ctx *sched.Context, rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Random{ctx: ctx, logger: ctx.Logger(), rng: rng}
}

// Tick runs one evaluation of the random/burst producer at time nowMs.
func (r *Random) Tick(nowMs int64) {
	cfg := r.ctx.RandomConfig()
	if !cfg.Enabled {
		return
	}

	switch r.state {
	case modeNormal:
		if cfg.BurstEnabled && nowMs-r.lastTransition >= cfg.BurstPeriodMs {
			r.state = modeBurst
			r.lastTransition = nowMs
			r.logger.Debug("producer: entering burst mode", zap.Int64("now_ms", nowMs))
		}
	case modeBurst:
		if nowMs-r.lastTransition >= sched.BurstWindowMs {
			r.state = modeNormal
			r.lastTransition = nowMs
			r.logger.Debug("producer: leaving burst mode", zap.Int64("now_ms", nowMs))
		}
	}

	if nowMs < r.nextFire {
		return
	}

	p := queue.Packet{
		ClassID:    wireclass.ClassRandom,
		DataType:   cfg.DataType,
		DataCount:  cfg.ElementCount,
		Size:       cfg.ElementCount * cfg.DataType.Width(),
		DeadlineMs: nowMs + cfg.RelDeadlineMs,
		Payload:    make([]byte, cfg.ElementCount*cfg.DataType.Width()),
	}
	r.rng.Read(p.Payload)

	if err := r.ctx.EnqueueBack(p); err != nil {
		r.logger.Warn("producer: random queue full, dropping sample", zap.Error(err))
	} else {
		r.logger.Debug("producer: random sample enqueued",
			zap.String("mode", r.modeString()), zap.Int("count", cfg.ElementCount))
	}

	r.nextFire = nowMs + r.interval(cfg)
}

func (r *Random) interval(cfg sched.RandomConfig) int64 {
	if r.state == modeBurst {
		return cfg.BurstIntervalMs
	}
	lo, hi := cfg.MinIntervalMs, cfg.MaxIntervalMs
	if hi <= lo {
		return lo
	}
	return lo + r.rng.Int63n(hi-lo)
}

func (r *Random) modeString() string {
	if r.state == modeBurst {
		return "burst"
	}
	return "normal"
}

// Run drives Tick off a real-time ticker until ctx is canceled.
func (r *Random) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(r.ctx.Clock().NowMs())
		}
	}
}
