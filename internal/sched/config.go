package sched

import "github.com/sprintradio/txsched/internal/wireclass"

// Control-surface clamping ranges. Numeric out-of-range commands
// are coerced into range rather than rejected outright, except where a
// command explicitly documents rejection.
const (
	MinPeriodMs = 500
	MaxPeriodMs = 60_000

	MinThresholdMs = 0
	MaxThresholdMs = 5_000

	MinPacketCount = 1
	// MaxPacketCount is sized against the widest element (f64, 8 bytes)
	// so count*width never exceeds MaxPacketSize regardless of the
	// class's configured data type: 175*8 = 1400.
	MaxPacketCount = 175

	// BurstWindowMs is the fixed 5s burst window duration.
	BurstWindowMs = 5_000
)

// ClassConfig is the per-class configuration block of the scheduler
// context: data type, period, relative deadline, and target
// element count per production event.
type ClassConfig struct {
	DataType      wireclass.DataType
	PeriodMs      int64 // 0 for non-periodic (the random class)
	RelDeadlineMs int64
	CountTarget   int
}

// ClampPeriod coerces a requested period into [MinPeriodMs, MaxPeriodMs].
func ClampPeriod(ms int64) int64 {
	return clampI64(ms, MinPeriodMs, MaxPeriodMs)
}

// ClampThreshold coerces a requested processing horizon into
// [MinThresholdMs, MaxThresholdMs].
func ClampThreshold(ms int64) int64 {
	return clampI64(ms, MinThresholdMs, MaxThresholdMs)
}

// ClampCount coerces a requested target element count into
// [MinPacketCount, MaxPacketCount].
func ClampCount(n int) int {
	if n < MinPacketCount {
		return MinPacketCount
	}
	if n > MaxPacketCount {
		return MaxPacketCount
	}
	return n
}

func clampI64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RandomConfig parameterizes the aperiodic "random" class producer.
type RandomConfig struct {
	Enabled         bool
	MinIntervalMs   int64
	MaxIntervalMs   int64
	BurstEnabled    bool
	BurstPeriodMs   int64
	BurstIntervalMs int64
	ElementCount    int
	DataType        wireclass.DataType
	RelDeadlineMs   int64 // relative deadline applied to each random-class packet
}

// Validate applies configuration coercion: if MinIntervalMs
// is not strictly less than MaxIntervalMs, MaxIntervalMs is coerced to
// MinIntervalMs + 1000. RelDeadlineMs is clamped the same way a periodic
// class's deadline is.
func (c *RandomConfig) Validate() {
	if c.MinIntervalMs >= c.MaxIntervalMs {
		c.MaxIntervalMs = c.MinIntervalMs + 1000
	}
	c.RelDeadlineMs = ClampPeriod(c.RelDeadlineMs)
}

// DefaultClassConfigs returns the three periodic classes' default
// configuration.
func DefaultClassConfigs() [3]ClassConfig {
	return [3]ClassConfig{
		{DataType: wireclass.DataTypeI32, PeriodMs: 3000, RelDeadlineMs: 3000, CountTarget: 10},
		{DataType: wireclass.DataTypeF32, PeriodMs: 5000, RelDeadlineMs: 5000, CountTarget: 8},
		{DataType: wireclass.DataTypeI16, PeriodMs: 6000, RelDeadlineMs: 6000, CountTarget: 6},
	}
}

// DefaultRandomConfig returns the default aperiodic class configuration.
func DefaultRandomConfig() RandomConfig {
	return RandomConfig{
		Enabled:         true,
		MinIntervalMs:   500,
		MaxIntervalMs:   1500,
		BurstEnabled:    true,
		BurstPeriodMs:   5000,
		BurstIntervalMs: 50,
		ElementCount:    4,
		DataType:        wireclass.DataTypeI16,
		RelDeadlineMs:   2000,
	}
}
