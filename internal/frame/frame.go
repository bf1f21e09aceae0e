// Package frame implements the single on-air frame codec shared by both
// transmit (Build) and receive (Parse) endpoints: the AP and station
// sides collapse into one codec parameterized only by direction and
// endpoint address. Layout is packed and little-endian throughout;
// fields are serialized one at a time with encoding/binary rather than
// relying on struct layout or host endianness.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sprintradio/txsched/internal/wireclass"
)

// Wire-visible size constants.
const (
	MacHdrSize    = 24
	MaxPacketSize = 1400
	MaxTXSize     = 1400
)

// numClasses is fixed at 4 by wireclass.NumClasses; AppHdrSize is derived
// from it: a uint16 count + a uint8 type tag per class, plus a uint16
// total_size and a uint32 timestamp.
var AppHdrSize = wireclass.NumClasses*3 + 2 + 4

// Direction is the MAC frame-control ToDS/FromDS pairing.
type Direction uint8

const (
	// DirUplink is a station->AP frame: ToDS=1, FromDS=0.
	DirUplink Direction = iota
	// DirDownlink is an AP->station frame: FromDS=1, ToDS=0.
	DirDownlink
)

const (
	flagToDS      = 0x01
	flagFromDS    = 0x02
	dataFrameType = 0x08
)

// Broadcast is the all-ones MAC address, the permitted fallback
// destination when the peer address is unknown.
var Broadcast = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Parse failure kinds. PayloadTruncated is
// soft: the caller still receives a ParsedFrame with what could be
// decoded.
var (
	ErrTooShort          = errors.New("frame: shorter than header size")
	ErrWrongFrameType    = errors.New("frame: not a data frame or wrong direction")
	ErrNotForUs          = errors.New("frame: destination does not match station or broadcast")
	ErrInvalidTypeTag    = errors.New("frame: type tag exceeds DataTypeDouble")
	ErrTotalSizeTooLarge = errors.New("frame: total_size exceeds MaxPacketSize")
)

// BuildParams is everything Build needs to assemble one on-air frame.
type BuildParams struct {
	Direction   Direction
	Dest        [6]byte
	Src         [6]byte
	BSSID       [6]byte
	Counts      [wireclass.NumClasses]int
	Types       [wireclass.NumClasses]wireclass.DataType
	Payload     []byte // concatenation of class runs, ascending class order
	TimestampMs int64
}

// totalSize returns the declared payload size implied by Counts/Types.
func (p *BuildParams) totalSize() int {
	n := 0
	for c := range p.Counts {
		n += p.Counts[c] * p.Types[c].Width()
	}
	return n
}

// Build assembles a contiguous on-air frame: MAC header + application
// header + payload.
func Build(p BuildParams) ([]byte, error) {
	total := p.totalSize()
	if total != len(p.Payload) {
		return nil, fmt.Errorf("frame: declared total_size %d does not match payload length %d", total, len(p.Payload))
	}
	if total > MaxTXSize {
		return nil, ErrTotalSizeTooLarge
	}

	buf := make([]byte, MacHdrSize+AppHdrSize+total)

	// MAC header.
	buf[0] = dataFrameType
	switch p.Direction {
	case DirUplink:
		buf[1] = flagToDS
	case DirDownlink:
		buf[1] = flagFromDS
	}
	copy(buf[4:10], p.Dest[:])
	copy(buf[10:16], p.Src[:])
	copy(buf[16:22], p.BSSID[:])

	// Application header.
	off := MacHdrSize
	for c := 0; c < wireclass.NumClasses; c++ {
		binary.LittleEndian.PutUint16(buf[off:], uint16(p.Counts[c]))
		off += 2
	}
	for c := 0; c < wireclass.NumClasses; c++ {
		buf[off] = byte(p.Types[c])
		off++
	}
	binary.LittleEndian.PutUint16(buf[off:], uint16(total))
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], uint32(p.TimestampMs))
	off += 4

	copy(buf[off:], p.Payload)

	return buf, nil
}

// ParsedFrame is what Parse hands the receiver dispatcher for
// per-class decoding.
type ParsedFrame struct {
	Direction   Direction
	Dest        [6]byte
	Counts      [wireclass.NumClasses]int
	Types       [wireclass.NumClasses]wireclass.DataType
	Payload     []byte
	TimestampMs uint32
	// SizeMismatch is set when total_size did not match
	// sum(count[c]*width(type[c])) — a soft warning, decoding proceeds
	// with whatever payload was actually present.
	SizeMismatch bool
	// Truncated is set when fewer payload bytes were present than
	// total_size declared (PayloadTruncated, soft failure).
	Truncated bool
}

// Parse validates and decodes a raw 802.11 data frame addressed to
// selfMAC, accepting the given expectDir (the direction this endpoint
// is entitled to receive: a station expects DirDownlink, an AP expects
// DirUplink).
func Parse(raw []byte, expectDir Direction, selfMAC [6]byte) (ParsedFrame, error) {
	if len(raw) < MacHdrSize+AppHdrSize {
		return ParsedFrame{}, ErrTooShort
	}

	if raw[0] != dataFrameType {
		return ParsedFrame{}, ErrWrongFrameType
	}
	var wantFlag byte
	switch expectDir {
	case DirUplink:
		wantFlag = flagToDS
	case DirDownlink:
		wantFlag = flagFromDS
	}
	if raw[1] != wantFlag {
		return ParsedFrame{}, ErrWrongFrameType
	}

	var dest [6]byte
	copy(dest[:], raw[4:10])
	if dest != selfMAC && dest != Broadcast {
		return ParsedFrame{}, ErrNotForUs
	}

	out := ParsedFrame{Direction: expectDir, Dest: dest}

	off := MacHdrSize
	for c := 0; c < wireclass.NumClasses; c++ {
		out.Counts[c] = int(binary.LittleEndian.Uint16(raw[off:]))
		off += 2
	}
	for c := 0; c < wireclass.NumClasses; c++ {
		t := wireclass.DataType(raw[off])
		if t > wireclass.DataTypeDouble {
			return ParsedFrame{}, ErrInvalidTypeTag
		}
		out.Types[c] = t
		off++
	}
	totalSize := int(binary.LittleEndian.Uint16(raw[off:]))
	off += 2
	if totalSize > MaxPacketSize {
		return ParsedFrame{}, ErrTotalSizeTooLarge
	}
	out.TimestampMs = binary.LittleEndian.Uint32(raw[off:])
	off += 4

	expected := 0
	for c := 0; c < wireclass.NumClasses; c++ {
		expected += out.Counts[c] * out.Types[c].Width()
	}
	if expected != totalSize {
		out.SizeMismatch = true
	}

	available := raw[off:]
	want := totalSize
	if len(available) < want {
		out.Truncated = true
		want = len(available)
	}
	out.Payload = append([]byte(nil), available[:want]...)

	return out, nil
}
