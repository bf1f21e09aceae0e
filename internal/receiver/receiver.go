// Package receiver implements the receive-side pipeline: parsing a raw
// on-air frame, computing observed latency, and dispatching decoded
// samples per class. It keeps its own counters under its own mutex,
// independent of the scheduler Context's, since receive statistics are
// a distinct concern from the transmit-side queues.
package receiver

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sprintradio/txsched/internal/clock"
	"github.com/sprintradio/txsched/internal/frame"
	"github.com/sprintradio/txsched/internal/metrics"
	"github.com/sprintradio/txsched/internal/wireclass"
)

// maxReasonableSkewMs bounds how far in the past a frame's timestamp
// may sit before latency is considered unreliable: a restart of either
// endpoint's clock, or a stale replayed frame, can otherwise produce a
// nonsensical or negative latency (clock-skew guard).
const maxReasonableSkewMs = 30_000

// Stats is a snapshot of the receiver's cumulative counters.
type Stats struct {
	PacketsReceived uint64
	DataPackets     uint64
	ErrorPackets    map[string]uint64
}

// LastObserved is the per-class type/count configuration carried by the
// most recently successfully parsed frame.
type LastObserved struct {
	Counts [wireclass.NumClasses]int
	Types  [wireclass.NumClasses]wireclass.DataType
}

// Decoded is one decoded class run from a received frame, handed to a
// Dispatcher for application-level consumption.
type Decoded struct {
	Class     wireclass.Class
	DataType  wireclass.DataType
	Count     int
	Payload   []byte
	LatencyMs int64
}

// Dispatcher receives decoded class runs in ascending class order.
type Dispatcher interface {
	Dispatch(Decoded)
}

// Receiver owns the receive-side counters and decode dispatch.
type Receiver struct {
	mu           sync.Mutex
	received     uint64
	dataPackets  uint64
	errorPackets map[string]uint64
	lastObserved LastObserved

	clock      clock.Clock
	logger     *zap.Logger
	selfMAC    [6]byte
	expectDir  frame.Direction
	dispatcher Dispatcher
}

// New constructs a Receiver bound to selfMAC, accepting frames of
// expectDir, and forwarding decoded class runs to d.
func New(clk clock.Clock, logger *zap.Logger, selfMAC [6]byte, expectDir frame.Direction, d Dispatcher) *Receiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{
		clock: clk, logger: logger, selfMAC: selfMAC, expectDir: expectDir, dispatcher: d,
		errorPackets: make(map[string]uint64),
	}
}

// Handle is the radio receive callback: parse, validate, compute
// latency, and dispatch each non-empty class run in ascending order.
func (r *Receiver) Handle(raw []byte) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()
	metrics.ReceiverPacketsReceived.Inc()

	parsed, err := frame.Parse(raw, r.expectDir, r.selfMAC)
	if err != nil {
		kind := errorKind(err)
		r.recordError(kind)
		metrics.ReceiverErrorPackets.WithLabelValues(kind).Inc()
		r.logger.Warn("receiver: failed to parse frame", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.dataPackets++
	r.lastObserved = LastObserved{Counts: parsed.Counts, Types: parsed.Types}
	r.mu.Unlock()
	metrics.ReceiverDataPackets.Inc()

	if parsed.SizeMismatch {
		r.logger.Warn("receiver: declared total_size did not match class counts")
	}
	if parsed.Truncated {
		r.recordError("truncated")
		metrics.ReceiverErrorPackets.WithLabelValues("truncated").Inc()
		r.logger.Warn("receiver: payload shorter than declared total_size")
	}

	latency := r.latency(int64(parsed.TimestampMs))

	off := 0
	for c := 0; c < wireclass.NumClasses; c++ {
		count := parsed.Counts[c]
		if count == 0 {
			continue
		}
		dt := parsed.Types[c]
		width := dt.Width()
		n := count * width
		if off+n > len(parsed.Payload) {
			n = len(parsed.Payload) - off
			if n < 0 {
				n = 0
			}
		}
		chunk := parsed.Payload[off : off+n]
		off += n

		if r.dispatcher != nil {
			r.dispatcher.Dispatch(Decoded{
				Class: wireclass.Class(c), DataType: dt, Count: count,
				Payload: chunk, LatencyMs: latency,
			})
		}
	}
}

// latency computes the observed one-way latency for a frame carrying
// timestampMs, guarding against clock skew or an endpoint restart:
// timestamps more than maxReasonableSkewMs in the past, or in the
// future, yield a latency of zero rather than a nonsensical value.
func (r *Receiver) latency(timestampMs int64) int64 {
	now := r.clock.NowMs()
	delta := now - timestampMs
	if delta < 0 || delta > maxReasonableSkewMs {
		return 0
	}
	return delta
}

func (r *Receiver) recordError(kind string) {
	r.mu.Lock()
	r.errorPackets[kind]++
	r.mu.Unlock()
}

// Stats returns a snapshot of the receiver's cumulative counters.
func (r *Receiver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := make(map[string]uint64, len(r.errorPackets))
	for k, v := range r.errorPackets {
		errs[k] = v
	}
	return Stats{PacketsReceived: r.received, DataPackets: r.dataPackets, ErrorPackets: errs}
}

// LastObserved returns the per-class type/count configuration carried by
// the most recently successfully parsed frame.
func (r *Receiver) LastObserved() LastObserved {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastObserved
}

func errorKind(err error) string {
	switch err {
	case frame.ErrTooShort:
		return "too_short"
	case frame.ErrWrongFrameType:
		return "wrong_frame_type"
	case frame.ErrNotForUs:
		return "not_for_us"
	case frame.ErrInvalidTypeTag:
		return "invalid_type_tag"
	case frame.ErrTotalSizeTooLarge:
		return "total_size_too_large"
	default:
		return "unknown"
	}
}
