// Package sched owns the scheduler context: the process-wide, singleton
// collection of per-class queues, class configuration, and cumulative
// counters. It is constructed once at startup and torn down once at
// shutdown; queues and configuration are mutated only while holding a
// single mutex, one lock for all of them instead of a lock per field,
// while the cumulative counters are lock-free atomics.
package sched

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sprintradio/txsched/internal/clock"
	"github.com/sprintradio/txsched/internal/queue"
	"github.com/sprintradio/txsched/internal/wireclass"
)

// MaxTXSize is the largest frame payload the batcher will ever pack; it
// is numerically identical to MaxPacketSize but kept as a distinct name
// since frame size and packet size are independent invariants.
const MaxTXSize = 1400

// Counters holds the read-only cumulative counters exposed by the
// control surface.
type Counters struct {
	Processed      uint64
	Transmitted    uint64
	DeadlineMisses uint64
}

// Context is the scheduler's singleton state. All fields are guarded by
// mu except the atomic counters, which support lock-free reads from the
// control surface's /status handler.
type Context struct {
	mu     sync.Mutex
	queues [wireclass.NumClasses]*queue.Queue
	config [wireclass.NumClasses]ClassConfig // index wireclass.ClassRandom unused; random params live in random
	random RandomConfig

	thresholdMs int64

	processed      atomic.Uint64
	transmitted    atomic.Uint64
	deadlineMisses atomic.Uint64

	clock  clock.Clock
	logger *zap.Logger
}

// New constructs a scheduler context with the given periodic class
// configuration, random class configuration, and processing horizon.
// Queues start empty and counters start zeroed.
func New(clk clock.Clock, logger *zap.Logger, classes [3]ClassConfig, random RandomConfig, thresholdMs int64) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	random.Validate()
	c := &Context{
		clock:       clk,
		logger:      logger,
		random:      random,
		thresholdMs: ClampThreshold(thresholdMs),
	}
	for i := range c.queues {
		c.queues[i] = queue.New()
	}
	for i, cfg := range classes {
		c.config[i] = cfg
	}
	return c
}

// Clock returns the scheduler's time source.
func (c *Context) Clock() clock.Clock { return c.clock }

// Logger returns the scheduler's logger.
func (c *Context) Logger() *zap.Logger { return c.logger }

// ClassConfig returns a copy of class c's configuration. For
// wireclass.ClassRandom, only DataType and CountTarget are filled in,
// from the random class's element type and element count; period and
// deadline are governed by RandomConfig instead.
func (c *Context) ClassConfig(cl wireclass.Class) ClassConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl == wireclass.ClassRandom {
		return ClassConfig{DataType: c.random.DataType, CountTarget: c.random.ElementCount}
	}
	return c.config[cl]
}

// SetClassConfig updates class cl's period/deadline/count, clamping each
// into its valid range. Only periodic classes (A/B/C) are valid targets.
func (c *Context) SetClassConfig(cl wireclass.Class, cfg ClassConfig) bool {
	if cl == wireclass.ClassRandom || !cl.Valid() {
		return false
	}
	cfg.PeriodMs = ClampPeriod(cfg.PeriodMs)
	cfg.RelDeadlineMs = ClampPeriod(cfg.RelDeadlineMs)
	cfg.CountTarget = ClampCount(cfg.CountTarget)
	c.mu.Lock()
	c.config[cl] = cfg
	c.mu.Unlock()
	return true
}

// RandomConfig returns a copy of the aperiodic class's configuration.
func (c *Context) RandomConfig() RandomConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.random
}

// SetRandomConfig replaces the aperiodic class's configuration, applying
// the min/max interval coercion rule.
func (c *Context) SetRandomConfig(cfg RandomConfig) {
	cfg.Validate()
	c.mu.Lock()
	c.random = cfg
	c.mu.Unlock()
}

// Threshold returns the current processing horizon in milliseconds.
func (c *Context) Threshold() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thresholdMs
}

// SetThreshold updates the processing horizon, clamped to
// [MinThresholdMs, MaxThresholdMs].
func (c *Context) SetThreshold(ms int64) {
	c.mu.Lock()
	c.thresholdMs = ClampThreshold(ms)
	c.mu.Unlock()
}

// EnqueueBack enqueues p onto class p.ClassID's queue. Returns
// queue.ErrFull on overflow; callers (producers) log and drop —
// this method never blocks or grows the queue.
func (c *Context) EnqueueBack(p queue.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queues[p.ClassID].EnqueueBack(p)
}

// EnqueueFront re-enqueues p onto the head of its class's queue
// (put-back). The batcher does not call it: it checks fit with
// PeekFront before dequeuing.
func (c *Context) EnqueueFront(p queue.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queues[p.ClassID].EnqueueFront(p)
}

// PeekFront returns a copy of class cl's head packet without removing it.
func (c *Context) PeekFront(cl wireclass.Class) (queue.Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queues[cl].PeekFront()
}

// DequeueFront removes and returns class cl's head packet.
func (c *Context) DequeueFront(cl wireclass.Class) (queue.Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queues[cl].DequeueFront()
}

// QueueLen returns the current depth of class cl's queue.
func (c *Context) QueueLen(cl wireclass.Class) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queues[cl].Len()
}

// QueueLens returns a snapshot of every class's queue depth, in ordinal
// order, for the control surface's /status handler.
func (c *Context) QueueLens() [wireclass.NumClasses]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [wireclass.NumClasses]int
	for i, q := range c.queues {
		out[i] = q.Len()
	}
	return out
}

// IncProcessed increments the cumulative processed counter. Invariant:
// processed == packets packed into frames + deadline_misses. Transmitted
// counts class columns, not packets, so it is not part of that sum.
func (c *Context) IncProcessed() { c.processed.Add(1) }

// IncTransmitted increments the cumulative transmitted counter by n,
// where n is the number of non-zero class columns in an emitted frame —
// transmitted counts frame-columns, not source packets.
func (c *Context) IncTransmitted(n uint64) { c.transmitted.Add(n) }

// IncDeadlineMiss increments the cumulative deadline-miss counter.
func (c *Context) IncDeadlineMiss() { c.deadlineMisses.Add(1) }

// Counters returns a lock-free snapshot of the cumulative counters.
func (c *Context) Counters() Counters {
	return Counters{
		Processed:      c.processed.Load(),
		Transmitted:    c.transmitted.Load(),
		DeadlineMisses: c.deadlineMisses.Load(),
	}
}

// Reset zeros the cumulative counters (the "reset" control-surface
// command). Queues and configuration are left untouched.
func (c *Context) Reset() {
	c.processed.Store(0)
	c.transmitted.Store(0)
	c.deadlineMisses.Store(0)
}
