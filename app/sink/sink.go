// Package sink implements an app that drains and releases its input.
package sink

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pktgraph/pktgraph/graph"
)

// PortInput is the input port name.
const PortInput = "input"

// Config contains sink configuration.
type Config struct {
	// Decode enables Ethernet decoding of every packet, counting malformed frames.
	Decode bool `json:"decode,omitempty"`

	// FlowTable is the number of flows tracked per 5-tuple, least recently seen evicted first.
	// A positive value implies Decode.
	FlowTable int `json:"flowTable,omitempty"`
}

type flowKey struct {
	network, transport gopacket.Flow
}

func (k flowKey) String() string {
	return k.network.String() + " " + k.transport.String()
}

// Counters contains sink counters.
type Counters struct {
	Packets   uint64 `json:"packets"`
	Bytes     uint64 `json:"bytes"`
	Malformed uint64 `json:"malformed"`
	Flows     int    `json:"flows,omitempty"`
	FlowEvict uint64 `json:"flowEvict,omitempty"`
}

// Sink drains every input port.
type Sink struct {
	cfg   Config
	cnt   Counters
	flows *lru.Cache
}

var (
	_ graph.Pusher   = (*Sink)(nil)
	_ graph.Reporter = (*Sink)(nil)
)

// New creates a sink.
func New(cfg Config) *Sink {
	s := &Sink{cfg: cfg}
	if cfg.FlowTable > 0 {
		s.cfg.Decode = true
		s.flows, _ = lru.NewWithEvict(cfg.FlowTable, func(any, any) { s.cnt.FlowEvict++ })
	}
	return s
}

// Push implements graph.Pusher.
// It accepts any input port; an app without inputs is a wiring error.
func (s *Sink) Push(p *graph.Ports) error {
	names := p.InputNames()
	if len(names) == 0 {
		_, e := p.Input(PortInput)
		return e
	}
	for _, name := range names {
		in, _ := p.Input(name)
		for !in.Empty() {
			pkt, e := in.Receive()
			if e != nil {
				return e
			}
			s.cnt.Packets++
			s.cnt.Bytes += uint64(pkt.Len())
			if s.cfg.Decode {
				s.decode(pkt.Bytes())
			}
			pkt.Close()
		}
	}
	return nil
}

func (s *Sink) decode(frame []byte) {
	decoded := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.NoCopy)
	if decoded.ErrorLayer() != nil {
		s.cnt.Malformed++
		return
	}
	if s.flows == nil {
		return
	}

	nl, tl := decoded.NetworkLayer(), decoded.TransportLayer()
	if nl == nil || tl == nil {
		return
	}
	key := flowKey{nl.NetworkFlow(), tl.TransportFlow()}
	if v, ok := s.flows.Get(key); ok {
		*v.(*uint64)++
		return
	}
	n := uint64(1)
	s.flows.Add(key, &n)
}

// Counters returns sink counters.
func (s *Sink) Counters() Counters {
	cnt := s.cnt
	if s.flows != nil {
		cnt.Flows = s.flows.Len()
	}
	return cnt
}

// Flows returns packet counts of tracked flows, keyed by "srcIP->dstIP srcPort->dstPort".
func (s *Sink) Flows() map[string]uint64 {
	m := map[string]uint64{}
	if s.flows == nil {
		return m
	}
	for _, key := range s.flows.Keys() {
		if v, ok := s.flows.Peek(key); ok {
			m[key.(flowKey).String()] = *v.(*uint64)
		}
	}
	return m
}

// Report implements graph.Reporter.
func (s *Sink) Report() map[string]any {
	return map[string]any{
		"packets":   s.cnt.Packets,
		"bytes":     s.cnt.Bytes,
		"malformed": s.cnt.Malformed,
		"flows":     s.Counters().Flows,
	}
}
