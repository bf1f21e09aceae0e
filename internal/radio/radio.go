// Package radio models the radio capability surface the batcher and
// TX-power controller depend on: Send, QueryRSSI, SetPower. Both radio
// bring-up/association and CSI collection stay out of scope;
// this interface is the seam the rest of the scheduler is tested against,
// matching the habit of treating external I/O (ZMQ, RPC nodes)
// as a narrow interface behind a mock.
package radio

import "context"

// Level is a discrete TX power level, from lowest to highest.
type Level uint8

const (
	PowerMin Level = iota
	PowerLow
	PowerMedium
	PowerHigh
)

func (l Level) String() string {
	switch l {
	case PowerMin:
		return "min"
	case PowerLow:
		return "low"
	case PowerMedium:
		return "medium"
	case PowerHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseLevel maps a control-surface string to a Level. Used by the
// manual "txpower" command.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "min":
		return PowerMin, true
	case "low":
		return PowerLow, true
	case "medium":
		return PowerMedium, true
	case "high":
		return PowerHigh, true
	default:
		return 0, false
	}
}

// Radio is the capability surface the scheduler transmits and adapts
// power through.
type Radio interface {
	// Send transmits one complete on-air frame. The channel is
	// unacknowledged broadcast-style injection: Send reports
	// only local transmit failures, never delivery confirmation.
	Send(ctx context.Context, frameBytes []byte) error
	// QueryRSSI returns the last observed link quality in dBm. An error
	// means the sample is currently unavailable.
	QueryRSSI(ctx context.Context) (int8, error)
	// SetPower applies a new TX power level.
	SetPower(ctx context.Context, level Level) error
}
