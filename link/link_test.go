package link_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pktgraph/pktgraph/core/testenv"
	"github.com/pktgraph/pktgraph/link"
	"github.com/pktgraph/pktgraph/pktbuf"
)

var makeAR = testenv.MakeAR

var testID = link.ID{From: "A", FromPort: "output", To: "B", ToPort: "input"}

type recordWaker []int

func (w *recordWaker) Wake(slot int) {
	*w = append(*w, slot)
}

func TestAlignCapacity(t *testing.T) {
	assert, _ := makeAR(t)

	assert.Equal(link.DefaultCapacity, link.AlignCapacity(0))
	assert.Equal(link.DefaultCapacity, link.AlignCapacity(-1))
	assert.Equal(4, link.AlignCapacity(1))
	assert.Equal(64, link.AlignCapacity(64))
	assert.Equal(128, link.AlignCapacity(65))
	assert.Equal(link.MaxCapacity, link.AlignCapacity(100000))
}

func TestLink(t *testing.T) {
	assert, require := makeAR(t)

	var w recordWaker
	l := link.New(testID, 4)
	l.SetWaker(&w, 7)
	assert.Equal("A.output -> B.input", l.String())
	assert.Equal(4, l.Capacity())
	assert.True(l.Empty())

	_, e := l.Receive()
	assert.ErrorIs(e, link.ErrUnderflow)

	pkts := make([]*pktbuf.Packet, 5)
	for i := range pkts {
		pkts[i] = pktbuf.New(make([]byte, 10+i))
	}
	for i := 0; i < 4; i++ {
		require.NoError(l.Transmit(pkts[i]))
	}
	assert.True(l.Full())
	assert.Equal(0, l.NWritable())
	assert.ErrorIs(l.Transmit(pkts[4]), link.ErrOverflow)
	assert.Equal([]int{7, 7, 7, 7}, []int(w))

	for i := 0; i < 2; i++ {
		pkt, e := l.Receive()
		require.NoError(e)
		assert.Same(pkts[i], pkt)
	}
	assert.Equal(2, l.NReadable())

	cnt := l.Counters()
	assert.EqualValues(4, cnt.TxPackets)
	assert.EqualValues(10+11+12+13, cnt.TxBytes)
	assert.EqualValues(2, cnt.RxPackets)
	assert.EqualValues(10+11, cnt.RxBytes)
	assert.EqualValues(1, cnt.TxDrop)

	assert.NoError(l.Close())
	assert.True(l.Empty())
	assert.Equal(0, pkts[3].Len())
}

func TestRingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// true means transmit, false means receive
	properties.Property("occupancy bounds, FIFO order, counter balance", prop.ForAll(
		func(capacity int, ops []bool) bool {
			l := link.New(testID, capacity)
			var sent, recv []*pktbuf.Packet
			for _, op := range ops {
				if op {
					pkt := pktbuf.New(make([]byte, 1))
					wasFull := l.Full()
					e := l.Transmit(pkt)
					if wasFull != (e != nil) {
						return false
					}
					if e == nil {
						sent = append(sent, pkt)
					}
				} else {
					wasEmpty := l.Empty()
					pkt, e := l.Receive()
					if wasEmpty != (e != nil) {
						return false
					}
					if e == nil {
						recv = append(recv, pkt)
					}
				}

				n := l.NReadable()
				if n < 0 || n > l.Capacity() || n+l.NWritable() != l.Capacity() {
					return false
				}
				cnt := l.Counters()
				if cnt.TxPackets-cnt.RxPackets != uint64(n) {
					return false
				}
			}

			for i, pkt := range recv {
				if sent[i] != pkt {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 32),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
