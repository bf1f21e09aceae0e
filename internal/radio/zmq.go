//go:build !nozmq
// +build !nozmq

package radio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pebbe/zmq4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// frameTopic is the PUB/SUB topic prefix on-air frames are published
// under. The channel is unacknowledged broadcast injection:
// there is no request/response pairing, only a publish.
const frameTopic = "frame"

// ErrRSSIUnavailable is returned by QueryRSSI when the endpoint was not
// given an RSSI source.
var ErrRSSIUnavailable = errors.New("radio: no rssi source configured")

// RSSISource supplies link-quality samples to a ZMQRadio. On real
// hardware this would read a register or vendor ioctl; ZMQRadio only
// models the injection channel, so the sample has to come from outside.
type RSSISource func(ctx context.Context) (int8, error)

// ZMQRadio transmits frames over a ZeroMQ PUB socket, modeling the
// station's unacknowledged broadcast-style injection channel.
// Send is wrapped in a circuit breaker so a wedged or disconnected
// socket degrades the batcher's transmit path instead of hanging it.
type ZMQRadio struct {
	logger *zap.Logger
	socket *zmq4.Socket
	cb     *gobreaker.CircuitBreaker

	rssi  RSSISource
	power Level

	boundEndpoint string
	mockMode      bool
}

// NewZMQRadio binds a PUB socket to the first endpoint in endpoints
// (priority order, e.g. from config.Config.RadioEndpointURLs()) that accepts
// a bind. If every candidate fails, or endpoints is empty, it falls back
// to a mock mode that logs and drops sends instead of failing startup.
func NewZMQRadio(endpoints []string, rssi RSSISource, logger *zap.Logger) *ZMQRadio {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ZMQRadio{logger: logger, rssi: rssi, power: PowerMedium}
	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "radio-send",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})

	for _, endpoint := range endpoints {
		socket, err := zmq4.NewSocket(zmq4.PUB)
		if err != nil {
			logger.Warn("radio: failed to create zmq socket", zap.Error(err))
			continue
		}
		if err := socket.Bind(endpoint); err != nil {
			logger.Warn("radio: failed to bind zmq endpoint, trying next candidate",
				zap.String("endpoint", endpoint), zap.Error(err))
			socket.Close()
			continue
		}
		r.socket = socket
		r.boundEndpoint = endpoint
		logger.Info("radio: zmq publisher bound", zap.String("endpoint", endpoint))
		return r
	}

	logger.Warn("radio: no candidate endpoint could be bound, using mock mode",
		zap.Int("candidates", len(endpoints)))
	r.mockMode = true
	return r
}

// Send publishes frameBytes under frameTopic, protected by the circuit
// breaker.
func (r *ZMQRadio) Send(ctx context.Context, frameBytes []byte) error {
	if r.mockMode {
		r.logger.Debug("radio: mock send", zap.Int("bytes", len(frameBytes)))
		return nil
	}
	_, err := r.cb.Execute(func() (interface{}, error) {
		_, sendErr := r.socket.SendMessage(frameTopic, frameBytes)
		return nil, sendErr
	})
	if err != nil {
		return fmt.Errorf("radio: send: %w", err)
	}
	return nil
}

// QueryRSSI delegates to the configured RSSISource.
func (r *ZMQRadio) QueryRSSI(ctx context.Context) (int8, error) {
	if r.rssi == nil {
		return 0, ErrRSSIUnavailable
	}
	return r.rssi(ctx)
}

// SetPower records the requested power level. A real station would
// write a vendor register here; ZMQRadio only tracks the request so the
// TX-power controller's write-only-on-change logic has something to
// observe in tests and logs.
func (r *ZMQRadio) SetPower(ctx context.Context, level Level) error {
	r.power = level
	r.logger.Info("radio: tx power changed", zap.String("level", level.String()))
	return nil
}

// Close releases the underlying socket, if any.
func (r *ZMQRadio) Close() error {
	if r.socket != nil {
		return r.socket.Close()
	}
	return nil
}

// BoundEndpoint returns the candidate endpoint this radio successfully
// bound to, or "" if it is running in mock mode.
func (r *ZMQRadio) BoundEndpoint() string {
	return r.boundEndpoint
}

// ZMQSubscriber is the receive-side counterpart to ZMQRadio: a SUB socket
// connected to a station's frame-publishing endpoint, handing each
// received frame to a callback (normally receiver.Receiver.Handle).
type ZMQSubscriber struct {
	logger  *zap.Logger
	socket  *zmq4.Socket
	stopped bool

	mockMode bool
	backoff  backoff.BackOff
}

// NewZMQSubscriber connects a SUB socket to endpoint and subscribes to
// frameTopic. On failure it falls back to mock mode (Run receives
// nothing, blocks until ctx is canceled, and returns nil), matching
// ZMQRadio's degrade-and-log policy.
func NewZMQSubscriber(endpoint string, logger *zap.Logger) *ZMQSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0 // retry indefinitely while the subscriber is running

	s := &ZMQSubscriber{logger: logger, backoff: bo}

	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		logger.Warn("radio: failed to create zmq sub socket, using mock mode", zap.Error(err))
		s.mockMode = true
		return s
	}
	if err := socket.Connect(endpoint); err != nil {
		logger.Warn("radio: failed to connect zmq sub endpoint, using mock mode",
			zap.String("endpoint", endpoint), zap.Error(err))
		socket.Close()
		s.mockMode = true
		return s
	}
	if err := socket.SetSubscribe(frameTopic); err != nil {
		logger.Warn("radio: failed to subscribe to frame topic, using mock mode", zap.Error(err))
		socket.Close()
		s.mockMode = true
		return s
	}
	s.socket = socket
	logger.Info("radio: zmq subscriber connected", zap.String("endpoint", endpoint))
	return s
}

// Run receives frames until ctx is canceled, invoking handle with each
// frame's payload bytes. In mock mode it blocks on ctx.Done() only.
func (s *ZMQSubscriber) Run(ctx context.Context, handle func([]byte)) error {
	if s.mockMode {
		<-ctx.Done()
		return nil
	}
	defer s.socket.Close()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		s.stopped = true
		s.socket.Close()
		close(done)
	}()

	for !s.stopped {
		msgs, err := s.socket.RecvMessage(0)
		if err != nil {
			if s.stopped {
				break
			}
			wait := s.backoff.NextBackOff()
			s.logger.Warn("radio: zmq receive error, backing off",
				zap.Error(err), zap.Duration("wait", wait))
			time.Sleep(wait)
			continue
		}
		s.backoff.Reset()
		if len(msgs) < 2 {
			continue
		}
		handle([]byte(msgs[1]))
	}
	<-done
	return ctx.Err()
}
