// Package pktbuf contains packet buffers and buffer pools.
package pktbuf

import (
	"fmt"
)

// Packet is an opaque packet buffer.
//
// A packet has exactly one holder at a time: a link slot, or an app processing it.
// A holder that does not forward a packet must Close it.
type Packet struct {
	data []byte
	pool *Pool
}

// New creates a packet that is not backed by a pool.
func New(data []byte) *Packet {
	return &Packet{data: data}
}

// Len returns packet length in octets.
func (pkt *Packet) Len() int {
	return len(pkt.data)
}

// Bytes returns the packet payload.
// The returned slice is valid until the packet is closed.
func (pkt *Packet) Bytes() []byte {
	return pkt.data
}

// Clone copies the packet into a new buffer from the same pool.
func (pkt *Packet) Clone() (*Packet, error) {
	if pkt.pool == nil {
		return New(append([]byte(nil), pkt.data...)), nil
	}
	c, e := pkt.pool.Alloc(len(pkt.data))
	if e != nil {
		return nil, e
	}
	copy(c.data, pkt.data)
	return c, nil
}

// Close releases the packet.
func (pkt *Packet) Close() error {
	if pkt.pool != nil {
		pkt.pool.free(pkt)
	}
	pkt.data = nil
	return nil
}

func (pkt *Packet) String() string {
	return fmt.Sprintf("Packet(%d)", len(pkt.data))
}

// Vector is a vector of packet buffers.
type Vector []*Packet

// Len returns total length of packets in the vector.
func (vec Vector) Len() (n int) {
	for _, pkt := range vec {
		if pkt != nil {
			n += pkt.Len()
		}
	}
	return n
}

// Close releases the packets.
func (vec Vector) Close() error {
	for i, pkt := range vec {
		if pkt != nil {
			pkt.Close()
			vec[i] = nil
		}
	}
	return nil
}
