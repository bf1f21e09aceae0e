package radio

import (
	"context"
	"sync"
)

// Mock is an in-memory Radio used by scheduler tests: it records every
// transmitted frame and plays back a scripted RSSI sequence.
type Mock struct {
	mu sync.Mutex

	Sent    [][]byte
	Power   []Level
	rssiSeq []int8
	rssiIdx int

	SendErr      error
	QueryRSSIErr error
	SetPowerErr  error
}

// NewMock returns a Mock that replays rssiSeq in order on each QueryRSSI
// call, repeating the final value once the sequence is exhausted.
func NewMock(rssiSeq ...int8) *Mock {
	return &Mock{rssiSeq: rssiSeq}
}

func (m *Mock) Send(_ context.Context, frameBytes []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	cp := append([]byte(nil), frameBytes...)
	m.Sent = append(m.Sent, cp)
	return nil
}

func (m *Mock) QueryRSSI(_ context.Context) (int8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryRSSIErr != nil {
		return 0, m.QueryRSSIErr
	}
	if len(m.rssiSeq) == 0 {
		return 0, nil
	}
	idx := m.rssiIdx
	if idx >= len(m.rssiSeq) {
		idx = len(m.rssiSeq) - 1
	} else {
		m.rssiIdx++
	}
	return m.rssiSeq[idx], nil
}

func (m *Mock) SetPower(_ context.Context, level Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetPowerErr != nil {
		return m.SetPowerErr
	}
	m.Power = append(m.Power, level)
	return nil
}

// FrameCount returns how many frames have been sent so far.
func (m *Mock) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// LastFrame returns the most recently sent frame, or nil if none yet.
func (m *Mock) LastFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

// QueryRSSICount returns how many times QueryRSSI has been called.
func (m *Mock) QueryRSSICount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rssiIdx
}
