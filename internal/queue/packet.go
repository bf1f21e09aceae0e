package queue

import "github.com/sprintradio/txsched/internal/wireclass"

// MaxPacketSize is the largest payload a single queued packet may carry.
const MaxPacketSize = 1400

// Packet is a single producer-generated unit bound to one traffic class.
// Payload is value-copied on enqueue and on peek; the queue owns its
// storage and callers only ever see snapshots.
type Packet struct {
	ClassID    wireclass.Class
	DataType   wireclass.DataType
	DataCount  int
	Size       int
	DeadlineMs int64
	Payload    []byte
}

// clone returns a deep copy of p so queue internals never alias caller
// buffers or vice versa.
func (p Packet) clone() Packet {
	cp := p
	cp.Payload = append([]byte(nil), p.Payload...)
	return cp
}
