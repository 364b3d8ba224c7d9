// Package tee implements an app that copies its input to every output port.
package tee

import (
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/link"
)

// Port names. Outputs may have any name; PortOutput is reported when none is bound.
const (
	PortInput  = "input"
	PortOutput = "output"
)

// Config contains tee configuration.
type Config struct{}

// Counters contains tee counters.
type Counters struct {
	Rx        uint64 `json:"rx"`
	Tx        uint64 `json:"tx"`
	CloneFail uint64 `json:"cloneFail"`
}

// Tee copies each input packet to every bound output port.
// The number of packets taken per push is bounded by the least writable output.
type Tee struct {
	cnt Counters
}

var (
	_ graph.Pusher   = (*Tee)(nil)
	_ graph.Reporter = (*Tee)(nil)
)

// New creates a tee.
func New(Config) *Tee {
	return &Tee{}
}

// Push implements graph.Pusher.
func (t *Tee) Push(p *graph.Ports) error {
	in, e := p.Input(PortInput)
	if e != nil {
		return e
	}

	names := p.OutputNames()
	if len(names) == 0 {
		_, e := p.Output(PortOutput)
		return e
	}
	outs := make([]*link.Link, len(names))
	n := in.NReadable()
	for i, name := range names {
		outs[i], _ = p.Output(name)
		n = min(n, outs[i].NWritable())
	}

	for ; n > 0; n-- {
		pkt, e := in.Receive()
		if e != nil {
			return e
		}
		t.cnt.Rx++

		last := len(outs) - 1
		for _, out := range outs[:last] {
			clone, e := pkt.Clone()
			if e != nil {
				t.cnt.CloneFail++
				continue
			}
			if e := out.Transmit(clone); e != nil {
				clone.Close()
				return e
			}
			t.cnt.Tx++
		}
		if e := outs[last].Transmit(pkt); e != nil {
			pkt.Close()
			return e
		}
		t.cnt.Tx++
	}
	return nil
}

// Counters returns tee counters.
func (t *Tee) Counters() Counters {
	return t.cnt
}

// Report implements graph.Reporter.
func (t *Tee) Report() map[string]any {
	return map[string]any{
		"rx":        t.cnt.Rx,
		"tx":        t.cnt.Tx,
		"cloneFail": t.cnt.CloneFail,
	}
}
