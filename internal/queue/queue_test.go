package queue

import (
	"testing"

	"github.com/sprintradio/txsched/internal/wireclass"
	"github.com/stretchr/testify/require"
)

func pkt(deadline int64) Packet {
	return Packet{
		ClassID:    wireclass.ClassA,
		DataType:   wireclass.DataTypeI32,
		DataCount:  1,
		Size:       4,
		DeadlineMs: deadline,
		Payload:    []byte{1, 2, 3, 4},
	}
}

func TestFIFOOrder(t *testing.T) {
	q := New()
	require.NoError(t, q.EnqueueBack(pkt(10)))
	require.NoError(t, q.EnqueueBack(pkt(20)))
	require.NoError(t, q.EnqueueBack(pkt(30)))

	p1, err := q.DequeueFront()
	require.NoError(t, err)
	require.EqualValues(t, 10, p1.DeadlineMs)

	p2, err := q.DequeueFront()
	require.NoError(t, err)
	require.EqualValues(t, 20, p2.DeadlineMs)
}

func TestFullRejects(t *testing.T) {
	q := New()
	for i := 0; i < MaxQueueSize; i++ {
		require.NoError(t, q.EnqueueBack(pkt(int64(i))))
	}
	require.ErrorIs(t, q.EnqueueBack(pkt(999)), ErrFull)
	require.ErrorIs(t, q.EnqueueFront(pkt(999)), ErrFull)
}

func TestEnqueueBackRejectsOversizePacket(t *testing.T) {
	q := New()
	atMax := pkt(10)
	atMax.Size = MaxPacketSize
	require.NoError(t, q.EnqueueBack(atMax))

	tooBig := pkt(20)
	tooBig.Size = MaxPacketSize + 1
	require.ErrorIs(t, q.EnqueueBack(tooBig), ErrPacketTooLarge)
	require.Equal(t, 1, q.Len())
}

func TestEmptyErrors(t *testing.T) {
	q := New()
	_, err := q.DequeueFront()
	require.ErrorIs(t, err, ErrEmpty)
	_, err = q.PeekFront()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestPutBackToFront(t *testing.T) {
	q := New()
	require.NoError(t, q.EnqueueBack(pkt(10)))
	require.NoError(t, q.EnqueueBack(pkt(20)))

	head, err := q.DequeueFront()
	require.NoError(t, err)
	require.EqualValues(t, 10, head.DeadlineMs)

	require.NoError(t, q.EnqueueFront(head))

	p, err := q.PeekFront()
	require.NoError(t, err)
	require.EqualValues(t, 10, p.DeadlineMs)
	require.Equal(t, 2, q.Len())
}

func TestPeekDoesNotMutate(t *testing.T) {
	q := New()
	require.NoError(t, q.EnqueueBack(pkt(10)))
	p, err := q.PeekFront()
	require.NoError(t, err)
	p.Payload[0] = 0xFF

	p2, err := q.PeekFront()
	require.NoError(t, err)
	require.EqualValues(t, 1, p2.Payload[0])
}

func TestWrapAroundAfterManyDequeues(t *testing.T) {
	q := New()
	for round := 0; round < MaxQueueSize*3; round++ {
		require.NoError(t, q.EnqueueBack(pkt(int64(round))))
		p, err := q.DequeueFront()
		require.NoError(t, err)
		require.EqualValues(t, round, p.DeadlineMs)
	}
	require.Equal(t, 0, q.Len())
}
