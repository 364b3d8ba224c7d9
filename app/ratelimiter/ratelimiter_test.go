package ratelimiter_test

import (
	"testing"
	"time"

	"github.com/pktgraph/pktgraph/app/ratelimiter"
	"github.com/pktgraph/pktgraph/app/sink"
	"github.com/pktgraph/pktgraph/app/source"
	"github.com/pktgraph/pktgraph/core/testenv"
	"github.com/pktgraph/pktgraph/engine"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/link"
	"github.com/pktgraph/pktgraph/pktbuf"
	"github.com/pktgraph/pktgraph/timer"
	testclock "k8s.io/utils/clock/testing"
)

var makeAR = testenv.MakeAR

const frameSize = 60

type fixture struct {
	clk  *testclock.FakeClock
	eng  *engine.Engine
	rl   *ratelimiter.RateLimiter
	sink *sink.Sink
	in   *link.Link
}

func newFixture(t testing.TB, cfg ratelimiter.Config) (f fixture) {
	_, require := makeAR(t)

	f.clk = testenv.NewFakeClock()
	g := graph.New(graph.Config{LinkCapacity: 256})
	f.eng = engine.New(f.clk, engine.Config{})
	f.eng.SetGraph(g)
	t.Cleanup(func() { g.Close() })

	src, e := source.New("src", pktbuf.NewPool(pktbuf.PoolConfig{Capacity: 1024}), source.Config{FrameSize: frameSize})
	require.NoError(e)
	f.rl, e = ratelimiter.New("rl", f.eng.Timers(), cfg)
	require.NoError(e)
	f.sink = sink.New(sink.Config{})

	require.NoError(g.AddApp("src", src))
	require.NoError(g.AddApp("rl", f.rl))
	require.NoError(g.AddApp("sink", f.sink))
	f.in, e = g.Connect("src", "output", "rl", "input")
	require.NoError(e)
	_, e = g.Connect("rl", "output", "sink", "input")
	require.NoError(e)
	g.Relink()
	return f
}

func (f fixture) run(step time.Duration, n int) error {
	return testenv.StepEach(f.clk, step, n, func() error {
		_, e := f.eng.Step()
		return e
	})
}

func (f fixture) steps(n int) error {
	for i := 0; i < n; i++ {
		if _, e := f.eng.Step(); e != nil {
			return e
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func TestConfig(t *testing.T) {
	assert, require := makeAR(t)
	clk := testenv.NewFakeClock()
	eng := engine.New(clk, engine.Config{})

	_, e := ratelimiter.New("a", eng.Timers(), ratelimiter.Config{BucketCapacity: 1000})
	assert.ErrorIs(e, ratelimiter.ErrConfig)
	assert.ErrorContains(e, "Rate is required")
	_, e = ratelimiter.New("a", eng.Timers(), ratelimiter.Config{Rate: 1000})
	assert.ErrorIs(e, ratelimiter.ErrConfig)
	_, e = ratelimiter.New("a", eng.Timers(), ratelimiter.Config{Rate: 1000, BucketCapacity: 1000, TickRate: 5000})
	assert.ErrorIs(e, ratelimiter.ErrConfig)

	rl, e := ratelimiter.New("a", eng.Timers(), ratelimiter.Config{Rate: 1000, BucketCapacity: 500, InitialCapacity: ptr[uint64](9999)})
	require.NoError(e)
	assert.Equal(500.0, rl.Bucket().Content())
	assert.Equal(ratelimiter.DefaultTickRate, rl.Config().TickRate)
	assert.Equal(1, eng.Timers().Counters().Scheduled)

	assert.ErrorIs(rl.Reconfigure(map[string]any{"rate": 1000, "bucketCapacity": 500, "burst": 1}), ratelimiter.ErrConfig)
	require.NoError(rl.Reconfigure(map[string]any{"rate": 2000, "bucketCapacity": 800, "initialCapacity": 0, "tickRate": 100}))
	assert.Equal(20.0, rl.Bucket().TokensPerTick())
	assert.Equal(0.0, rl.Bucket().Content())
	assert.Equal(1, eng.Timers().Counters().Scheduled)

	assert.NoError(rl.Close())
	assert.Equal(0, eng.Timers().Counters().Scheduled)
}

func TestThroughput(t *testing.T) {
	assert, require := makeAR(t)

	f := newFixture(t, ratelimiter.Config{Rate: 200000, BucketCapacity: 50000})
	prev := f.rl.Stats()
	require.NoError(f.run(time.Millisecond, 5000))
	curr := f.rl.Stats()

	assert.Equal(5*time.Second, curr.Time.Sub(prev.Time))
	assert.Greater(curr.Rx, curr.Tx)
	throughput := curr.Throughput(prev, frameSize)
	assert.InDelta(200000, throughput, 20000)
	assert.Equal(curr.Tx, f.sink.Counters().Packets)

	report := f.rl.Report()
	assert.Equal(curr.Rx-curr.Tx, report["dropped"])
}

func TestBurst(t *testing.T) {
	assert, require := makeAR(t)

	f := newFixture(t, ratelimiter.Config{Rate: 200000, BucketCapacity: 50000, InitialCapacity: ptr[uint64](50000)})

	// zero elapsed time: only the initial bucket content is admitted
	require.NoError(f.steps(10))
	s := f.rl.Stats()
	assert.EqualValues(50000/frameSize, s.Tx)
	assert.InDelta(50000%frameSize, f.rl.Bucket().Content(), 0.001)

	// one tick refills 20000 bytes
	require.NoError(f.run(100*time.Millisecond, 1))
	require.NoError(f.steps(5))
	assert.EqualValues((50000+20000)/frameSize, f.rl.Stats().Tx)
}

func TestReset(t *testing.T) {
	assert, require := makeAR(t)

	f := newFixture(t, ratelimiter.Config{Rate: 200000, BucketCapacity: 50000, InitialCapacity: ptr[uint64](0)})
	require.NoError(f.steps(3))
	assert.Zero(f.rl.Stats().Tx)
	for i := 0; i < 5; i++ {
		require.NoError(f.in.Transmit(pktbuf.New(make([]byte, frameSize))))
	}

	require.NoError(f.rl.Reset(ratelimiter.Config{Rate: 400000, BucketCapacity: 50000, InitialCapacity: ptr[uint64](0)}))
	assert.Equal(5, f.in.NReadable())
	assert.Equal(40000.0, f.rl.Bucket().TokensPerTick())

	require.NoError(f.run(100*time.Millisecond, 1))
	require.NoError(f.steps(5))
	assert.EqualValues(40000/frameSize, f.rl.Stats().Tx)

	stats := f.rl.Stats()
	diff := stats.Sub(ratelimiter.Stats{Rx: 1, Tx: 1})
	assert.Equal(stats.Tx-1, diff.Tx)
	assert.Equal(stats.Time, diff.Time)
}

type holdApp struct{}

func (holdApp) Push(*graph.Ports) error {
	return nil
}

func TestDropsDoNotConsumeRoom(t *testing.T) {
	assert, require := makeAR(t)

	g := graph.New(graph.Config{LinkCapacity: 4})
	defer g.Close()
	rl, e := ratelimiter.New("rl", timer.New(testenv.NewFakeClock()), ratelimiter.Config{Rate: 50, BucketCapacity: 50})
	require.NoError(e)
	require.NoError(g.AddApp("feed", holdApp{}))
	require.NoError(g.AddApp("rl", rl))
	require.NoError(g.AddApp("hold", holdApp{}))
	in, e := g.Connect("feed", "output", "rl", "input")
	require.NoError(e)
	out, e := g.Connect("rl", "output", "hold", "input")
	require.NoError(e)
	g.Relink()

	for out.NWritable() > 2 {
		require.NoError(out.Transmit(pktbuf.New(make([]byte, 1))))
	}
	// oversized packets at the head are dropped; the small ones behind them fill the room
	for _, size := range []int{100, 100, 10, 10} {
		require.NoError(in.Transmit(pktbuf.New(make([]byte, size))))
	}

	require.NoError(g.Breathe())
	assert.True(in.Empty())
	assert.True(out.Full())
	assert.EqualValues(4, rl.Stats().Rx)
	assert.EqualValues(2, rl.Stats().Tx)
	assert.Equal(uint64(2), rl.Report()["dropped"])
	assert.InDelta(30.0, rl.Bucket().Content(), 1e-9)
}
