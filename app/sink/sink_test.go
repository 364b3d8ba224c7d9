package sink_test

import (
	"strings"
	"testing"

	"github.com/pktgraph/pktgraph/app/sink"
	"github.com/pktgraph/pktgraph/app/source"
	"github.com/pktgraph/pktgraph/core/testenv"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/pktbuf"
)

var makeAR = testenv.MakeAR

func TestSink(t *testing.T) {
	assert, require := makeAR(t)

	pool := pktbuf.NewPool(pktbuf.PoolConfig{})
	src, e := source.New("src", pool, source.Config{Limit: 20})
	require.NoError(e)
	s := sink.New(sink.Config{Decode: true})

	g := graph.New(graph.Config{LinkCapacity: 8})
	require.NoError(g.AddApp("src", src))
	require.NoError(g.AddApp("sink", s))
	require.NoError(g.AddApp("other", sink.New(sink.Config{})))
	_, e = g.Connect("src", "output", "sink", "input")
	require.NoError(e)
	g.Relink()

	e = g.Breathe()
	assert.ErrorIs(e, graph.ErrPortNotFound)
	require.NoError(g.RemoveApp("other"))
	g.Relink()

	for i := 0; i < 3; i++ {
		require.NoError(g.Breathe())
	}
	cnt := s.Counters()
	assert.EqualValues(20, cnt.Packets)
	assert.EqualValues(20*source.DefaultFrameSize, cnt.Bytes)
	assert.Zero(cnt.Malformed)
	assert.Equal(0, pool.Counters().InUse)

	l, e := g.Connect("src", "garbage", "sink", "raw")
	require.NoError(e)
	require.NoError(l.Transmit(pktbuf.New([]byte{0x01, 0x02, 0x03})))
	g.Relink()
	require.NoError(g.Breathe())
	assert.EqualValues(1, s.Counters().Malformed)
}

func TestFlows(t *testing.T) {
	assert, require := makeAR(t)

	s := sink.New(sink.Config{FlowTable: 2})
	g := graph.New(graph.Config{LinkCapacity: 16})
	require.NoError(g.AddApp("sink", s))
	require.NoError(g.AddApp("feed", struct{}{}))
	l, e := g.Connect("feed", "output", "sink", "input")
	require.NoError(e)
	g.Relink()

	send := func(port uint16, count int) {
		frame, e := source.BuildFrame(source.Config{SrcPort: port})
		require.NoError(e)
		for i := 0; i < count; i++ {
			require.NoError(l.Transmit(pktbuf.New(frame)))
		}
	}
	send(41000, 3)
	send(42000, 2)
	require.NoError(g.Breathe())
	assert.ElementsMatch([]uint64{3, 2}, flowCounts(s))

	send(43000, 1)
	require.NoError(g.Breathe())
	cnt := s.Counters()
	assert.Equal(2, cnt.Flows)
	assert.EqualValues(1, cnt.FlowEvict)
	assert.ElementsMatch([]uint64{2, 1}, flowCounts(s))
	assert.EqualValues(6, cnt.Packets)
	assert.Zero(cnt.Malformed)
}

func flowCounts(s *sink.Sink) (list []uint64) {
	for key, n := range s.Flows() {
		if strings.HasPrefix(key, "192.168.0.1->192.168.0.2 ") {
			list = append(list, n)
		}
	}
	return list
}
