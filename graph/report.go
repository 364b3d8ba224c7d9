package graph

import (
	"fmt"
	"io"
	"sort"

	"github.com/rickb777/plural"
)

var packetPlurals = plural.FromZero("%d packets", "%d packet", "%d packets")

func formatPackets(n uint64) string {
	s, e := packetPlurals.Format(int(n))
	if e != nil {
		return fmt.Sprintf("%d packets", n)
	}
	return s
}

// Report writes a textual report.
// It lists every link with its cumulative transmitted packets, then every Reporter app's counters.
func (g *Graph) Report(w io.Writer) error {
	ew := errWriter{w: w}
	ew.printf("link report:\n")
	for _, l := range g.Links() {
		cnt := l.Counters()
		ew.printf("  %20s sent on %s (loss rate: %d%%)\n", formatPackets(cnt.TxPackets), l, lossRate(cnt.TxPackets, cnt.TxDrop))
	}

	for _, name := range g.order {
		r, ok := g.apps[name].app.(Reporter)
		if !ok {
			continue
		}
		ew.printf("app report for %s:\n", name)
		counters := r.Report()
		keys := make([]string, 0, len(counters))
		for k := range counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ew.printf("  %s: %v\n", k, counters[k])
		}
	}

	s := g.Stats()
	ew.printf("scheduler: %d breaths, %d pull calls, %d push calls, %.2f passes per breath\n",
		s.Breaths, s.PullCalls, s.PushCalls, s.PassesPerBreath.Mean)
	return ew.err
}

func lossRate(tx, drop uint64) uint64 {
	if tx+drop == 0 {
		return 0
	}
	return drop * 100 / (tx + drop)
}

// WriteDot writes a Graphviz digraph.
// Apps are nodes; links are edges labelled with transmitted packets.
func (g *Graph) WriteDot(w io.Writer) error {
	ew := errWriter{w: w}
	ew.printf("digraph pktgraph {\n")
	for _, name := range g.order {
		ew.printf("  %q;\n", name)
	}
	for _, l := range g.Links() {
		id := l.ID()
		ew.printf("  %q -> %q [taillabel=%q headlabel=%q label=%q];\n",
			id.From, id.To, id.FromPort, id.ToPort, fmt.Sprint(l.Counters().TxPackets))
	}
	ew.printf("}\n")
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...any) {
	if ew.err == nil {
		_, ew.err = fmt.Fprintf(ew.w, format, a...)
	}
}
