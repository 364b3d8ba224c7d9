package graphmgmt_test

import (
	"testing"

	"github.com/pktgraph/pktgraph/core/gqlserver"
	"github.com/pktgraph/pktgraph/core/testenv"
	"github.com/pktgraph/pktgraph/engine"
	"github.com/pktgraph/pktgraph/mgmt/graphmgmt"
	"github.com/pktgraph/pktgraph/pipeline"
	"github.com/pktgraph/pktgraph/pktbuf"
)

var makeAR = testenv.MakeAR

const pipelineYAML = `
apps:
  gen: {class: source, args: {burst: 10}}
  limit: {class: ratelimiter, args: {rate: 100000, bucketCapacity: 6000}}
  out: {class: sink}
links:
  - gen.output -> limit.input
  - limit.output -> out.input
`

func TestGraphQL(t *testing.T) {
	assert, require := makeAR(t)

	cfg, e := pipeline.Load([]byte(pipelineYAML))
	require.NoError(e)
	clk := testenv.NewFakeClock()
	eng := engine.New(clk, engine.Config{})
	g, e := pipeline.Build(pipeline.Env{Pool: pktbuf.NewPool(pktbuf.PoolConfig{}), Timers: eng.Timers()}, cfg)
	require.NoError(e)
	defer g.Close()
	eng.SetGraph(g)
	graphmgmt.GqlEngine = eng
	defer func() { graphmgmt.GqlEngine = nil }()

	for i := 0; i < 3; i++ {
		_, e := eng.Step()
		require.NoError(e)
	}

	res := gqlserver.Do(`{
		apps { name type inputs outputs counters }
		links { id capacity nReadable txPackets rxPackets txDrop }
		breathStats { breaths passes passesMean validBreaths }
		rateLimiter(name: "limit") { rate bucketCapacity content rx tx }
	}`, nil)
	require.Empty(res.Errors)
	data := testenv.ToJSON(res.Data)

	var parsed struct {
		Apps []struct {
			Name     string         `json:"name"`
			Type     string         `json:"type"`
			Inputs   []string       `json:"inputs"`
			Counters map[string]any `json:"counters"`
		} `json:"apps"`
		Links []struct {
			ID        string `json:"id"`
			Capacity  int    `json:"capacity"`
			TxPackets uint64 `json:"txPackets"`
		} `json:"links"`
		BreathStats struct {
			Breaths      uint64 `json:"breaths"`
			ValidBreaths uint64 `json:"validBreaths"`
		} `json:"breathStats"`
		RateLimiter struct {
			Rate    uint64  `json:"rate"`
			Content float64 `json:"content"`
			Rx      uint64  `json:"rx"`
			Tx      uint64  `json:"tx"`
		} `json:"rateLimiter"`
	}
	testenv.FromJSON(data, &parsed)

	require.Len(parsed.Apps, 3)
	assert.Equal("limit", parsed.Apps[1].Name)
	assert.Equal("*ratelimiter.RateLimiter", parsed.Apps[1].Type)
	assert.Equal([]string{"input"}, parsed.Apps[1].Inputs)
	assert.EqualValues(30, parsed.Apps[2].Counters["packets"])

	require.Len(parsed.Links, 2)
	assert.Equal("gen.output -> limit.input", parsed.Links[0].ID)
	assert.Equal(1024, parsed.Links[0].Capacity)
	assert.EqualValues(30, parsed.Links[0].TxPackets)

	assert.EqualValues(3, parsed.BreathStats.Breaths)
	assert.EqualValues(3, parsed.BreathStats.ValidBreaths)

	assert.EqualValues(100000, parsed.RateLimiter.Rate)
	assert.EqualValues(30, parsed.RateLimiter.Rx)
	assert.EqualValues(30, parsed.RateLimiter.Tx)
	assert.InDelta(6000-30*60, parsed.RateLimiter.Content, 0.001)

	res = gqlserver.Do(`mutation($rate: Uint64!) {
		resetRateLimiter(name: "limit", rate: $rate, bucketCapacity: 1000, initialCapacity: 0) { rate content tickRate }
	}`, map[string]any{"rate": 50000})
	require.Empty(res.Errors)
	assert.JSONEq(`{"resetRateLimiter":{"rate":50000,"content":0,"tickRate":10}}`, testenv.ToJSON(res.Data))

	res = gqlserver.Do(`{ rateLimiter(name: "out") { rate } }`, nil)
	assert.NotEmpty(res.Errors)
	res = gqlserver.Do(`mutation { resetRateLimiter(name: "nope", rate: 1, bucketCapacity: 1) { rate } }`, nil)
	assert.NotEmpty(res.Errors)
}
