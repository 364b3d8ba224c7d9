// Package link implements bounded FIFO queues that connect apps.
package link

import (
	"errors"
	"fmt"

	binutils "github.com/jfoster/binary-utilities"
	"github.com/pkg/math"
	"github.com/pktgraph/pktgraph/pktbuf"
)

// Limits and defaults.
const (
	MinCapacity     = 4
	MaxCapacity     = 65536
	DefaultCapacity = 1024
)

// Error conditions.
var (
	ErrOverflow  = errors.New("link is full")
	ErrUnderflow = errors.New("link is empty")
)

// AlignCapacity adjusts link capacity to a power of two between MinCapacity and MaxCapacity.
// DefaultCapacity is used if input is zero or negative.
func AlignCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	capacity = int(binutils.NextPowerOfTwo(int64(capacity)))
	return math.MinInt(math.MaxInt(MinCapacity, capacity), MaxCapacity)
}

// ID identifies a link by its two endpoints.
type ID struct {
	From     string `json:"from"`
	FromPort string `json:"fromPort"`
	To       string `json:"to"`
	ToPort   string `json:"toPort"`
}

func (id ID) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", id.From, id.FromPort, id.To, id.ToPort)
}

// Waker is notified when a packet is transmitted into a link.
// The graph implements Waker to mark the consumer app runnable.
type Waker interface {
	Wake(slot int)
}

// Counters contains link counters.
type Counters struct {
	TxPackets uint64 `json:"txPackets" gqldesc:"Packets enqueued by the producer."`
	TxBytes   uint64 `json:"txBytes"`
	RxPackets uint64 `json:"rxPackets" gqldesc:"Packets dequeued by the consumer."`
	RxBytes   uint64 `json:"rxBytes"`
	TxDrop    uint64 `json:"txDrop" gqldesc:"Transmits refused because the link was full."`
}

func (cnt Counters) String() string {
	return fmt.Sprintf("%dtx %drx %ddrop", cnt.TxPackets, cnt.RxPackets, cnt.TxDrop)
}

// Link is a bounded FIFO queue of packets.
// It connects exactly one producer port to exactly one consumer port.
type Link struct {
	id    ID
	ring  []*pktbuf.Packet
	mask  uint64
	head  uint64 // next read position
	tail  uint64 // next write position
	cnt   Counters
	waker Waker
	slot  int
}

// New creates a link.
// Capacity is adjusted with AlignCapacity.
func New(id ID, capacity int) *Link {
	capacity = AlignCapacity(capacity)
	return &Link{
		id:   id,
		ring: make([]*pktbuf.Packet, capacity),
		mask: uint64(capacity - 1),
	}
}

// ID returns link identifier.
func (l *Link) ID() ID {
	return l.id
}

func (l *Link) String() string {
	return l.id.String()
}

// SetWaker binds the consumer notification.
func (l *Link) SetWaker(w Waker, slot int) {
	l.waker, l.slot = w, slot
}

// Capacity returns link capacity.
func (l *Link) Capacity() int {
	return len(l.ring)
}

// NReadable returns number of packets available to Receive.
func (l *Link) NReadable() int {
	return int(l.tail - l.head)
}

// NWritable returns number of packets that can be transmitted without overflow.
func (l *Link) NWritable() int {
	return len(l.ring) - l.NReadable()
}

// Full determines whether the link has no writable space.
func (l *Link) Full() bool {
	return l.NWritable() == 0
}

// Empty determines whether the link has no readable packet.
func (l *Link) Empty() bool {
	return l.head == l.tail
}

// Transmit enqueues a packet and wakes the consumer.
// If the link is full, it returns ErrOverflow and the caller keeps ownership of pkt.
func (l *Link) Transmit(pkt *pktbuf.Packet) error {
	if l.Full() {
		l.cnt.TxDrop++
		return ErrOverflow
	}
	l.ring[l.tail&l.mask] = pkt
	l.tail++
	l.cnt.TxPackets++
	l.cnt.TxBytes += uint64(pkt.Len())
	if l.waker != nil {
		l.waker.Wake(l.slot)
	}
	return nil
}

// Receive dequeues the oldest packet.
// Ownership of the packet passes to the caller.
func (l *Link) Receive() (*pktbuf.Packet, error) {
	if l.Empty() {
		return nil, ErrUnderflow
	}
	i := l.head & l.mask
	pkt := l.ring[i]
	l.ring[i] = nil
	l.head++
	l.cnt.RxPackets++
	l.cnt.RxBytes += uint64(pkt.Len())
	return pkt, nil
}

// Counters returns link counters.
func (l *Link) Counters() Counters {
	return l.cnt
}

// Close releases every queued packet.
func (l *Link) Close() error {
	for !l.Empty() {
		i := l.head & l.mask
		l.ring[i].Close()
		l.ring[i] = nil
		l.head++
	}
	l.waker = nil
	return nil
}
