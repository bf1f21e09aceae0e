// Package txpower implements the adaptive transmit-power controller: an
// independent periodic task that samples RSSI and maps it into one of
// four discrete power levels, expressed as a small integer Level type
// with its own String() method.
package txpower

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sprintradio/txsched/internal/metrics"
	"github.com/sprintradio/txsched/internal/radio"
)

// Default RSSI thresholds in dBm. A sample at or above a
// threshold maps to the corresponding power bin; everything below the
// lowest threshold maps to PowerHigh. No hysteresis band is applied:
// the controller re-evaluates independently on every tick.
const (
	DefaultRSSIExcellent = -20
	DefaultRSSIGood      = -35
	DefaultRSSIFair      = -60
)

// DefaultInterval is how often the controller samples RSSI.
const DefaultInterval = 5 * time.Second

// Thresholds holds the three RSSI bin edges, in dBm, from best to worst.
type Thresholds struct {
	Excellent int8
	Good      int8
	Fair      int8
}

// DefaultThresholds returns the default RSSI bin edges.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Excellent: DefaultRSSIExcellent,
		Good:      DefaultRSSIGood,
		Fair:      DefaultRSSIFair,
	}
}

// LevelFor maps an RSSI sample to a discrete TX power level using fixed
// >= thresholds, best link quality first.
func (t Thresholds) LevelFor(rssi int8) radio.Level {
	switch {
	case rssi >= t.Excellent:
		return radio.PowerMin
	case rssi >= t.Good:
		return radio.PowerLow
	case rssi >= t.Fair:
		return radio.PowerMedium
	default:
		return radio.PowerHigh
	}
}

// Controller periodically queries RSSI through a radio.Radio and
// applies the resulting power level only when it differs from the
// level last applied (write-only-on-change rule).
type Controller struct {
	r          radio.Radio
	thresholds Thresholds
	logger     *zap.Logger

	enabled atomic.Bool

	current    radio.Level
	hasApplied bool
}

// New constructs a Controller bound to r using the given thresholds.
// The controller starts enabled (automatic adjustment on).
func New(r radio.Radio, thresholds Thresholds, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{r: r, thresholds: thresholds, logger: logger}
	c.enabled.Store(true)
	return c
}

// SetEnabled toggles automatic RSSI-driven power adjustment (the
// "autotx on|off" control-surface command). While disabled, Tick is a
// no-op and the currently applied level is left untouched.
func (c *Controller) SetEnabled(enabled bool) { c.enabled.Store(enabled) }

// Enabled reports whether automatic adjustment is currently on.
func (c *Controller) Enabled() bool { return c.enabled.Load() }

// Tick samples RSSI once and applies a new power level if it changed.
// A QueryRSSI failure is logged and otherwise ignored; the controller
// simply tries again on the next tick. If disabled, Tick returns
// immediately without sampling.
func (c *Controller) Tick(ctx context.Context) {
	if !c.enabled.Load() {
		return
	}
	rssi, err := c.r.QueryRSSI(ctx)
	if err != nil {
		c.logger.Warn("txpower: rssi query failed", zap.Error(err))
		return
	}
	metrics.LinkQualityDBM.Set(float64(rssi))

	level := c.thresholds.LevelFor(rssi)
	if c.hasApplied && level == c.current {
		return
	}

	if err := c.r.SetPower(ctx, level); err != nil {
		c.logger.Warn("txpower: failed to apply power level", zap.Error(err))
		return
	}
	c.current = level
	c.hasApplied = true
	metrics.TXPowerLevel.Set(float64(level))
	c.logger.Info("txpower: level changed",
		zap.Int8("rssi_dbm", rssi), zap.String("level", level.String()))
}

// Run drives Tick on a fixed interval until ctx is canceled.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}
