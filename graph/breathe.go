package graph

import (
	"github.com/pktgraph/pktgraph/core/runningstat"
)

// BreathStats contains scheduler counters.
type BreathStats struct {
	Breaths   uint64 `json:"breaths" gqldesc:"Completed breathe cycles."`
	PullCalls uint64 `json:"pullCalls"`
	PushCalls uint64 `json:"pushCalls"`
	Passes    uint64 `json:"passes" gqldesc:"Exhale passes that invoked at least one push."`
	Transmits uint64 `json:"transmits" gqldesc:"Packets transmitted into any link."`

	PassesPerBreath runningstat.Snapshot `json:"passesPerBreath"`
}

// Stats returns scheduler counters.
func (g *Graph) Stats() BreathStats {
	s := g.stats
	s.PassesPerBreath = g.passes.Read()
	return s
}

// Breathe runs one breathe cycle: a pull phase followed by the exhale phase.
//
// The pull phase invokes every Puller in registration order and marks every app runnable.
// The exhale phase repeatedly invokes Push on runnable apps until a full pass invokes none.
// An app becomes runnable again when a packet is transmitted into one of its input links.
//
// The first error returned by an app stops the cycle and is returned as AppError.
func (g *Graph) Breathe() error {
	if g.stale {
		return ErrStale
	}

	for _, ent := range g.appsi {
		if ent.puller != nil {
			g.stats.PullCalls++
			if e := ent.puller.Pull(&ent.ports); e != nil {
				return AppError{ent.name, "pull", e}
			}
		}
		ent.runnable = true
	}

	nPasses := 0
	for {
		progress := false
		for _, ent := range g.appsi {
			if !ent.runnable || ent.pusher == nil {
				continue
			}
			ent.runnable = false
			progress = true
			g.stats.PushCalls++
			if e := ent.pusher.Push(&ent.ports); e != nil {
				return AppError{ent.name, "push", e}
			}
		}
		if !progress {
			break
		}
		nPasses++
	}

	g.stats.Breaths++
	g.stats.Passes += uint64(nPasses)
	g.passes.Push(float64(nPasses))
	return nil
}
