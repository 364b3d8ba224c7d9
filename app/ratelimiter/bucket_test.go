package ratelimiter_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pktgraph/pktgraph/app/ratelimiter"
)

func TestTokenBucket(t *testing.T) {
	assert, _ := makeAR(t)

	tb := ratelimiter.NewTokenBucket(200000, 50000, 60000, 10)
	assert.Equal(50000.0, tb.Content())
	assert.Equal(20000.0, tb.TokensPerTick())

	assert.True(tb.Admit(30000))
	assert.Equal(20000.0, tb.Content())
	assert.False(tb.Admit(20001))
	assert.Equal(20000.0, tb.Content())
	assert.True(tb.Admit(20000))
	assert.Equal(0.0, tb.Content())

	tb.Tick()
	tb.Tick()
	tb.Tick()
	assert.Equal(50000.0, tb.Content())
}

func TestTokenBucketProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// negative op means tick, otherwise it is a packet length
	properties.Property("content bounds and exact admission", prop.ForAll(
		func(rate, capacity uint32, ops []int) bool {
			tb := ratelimiter.NewTokenBucket(float64(rate), float64(capacity), float64(capacity), 10)
			for _, op := range ops {
				before := tb.Content()
				if op < 0 {
					tb.Tick()
				} else {
					admitted := tb.Admit(op)
					if admitted != (float64(op) <= before) {
						return false
					}
					if admitted && tb.Content() != before-float64(op) {
						return false
					}
					if !admitted && tb.Content() != before {
						return false
					}
				}
				if c := tb.Content(); c < 0 || c > tb.Capacity() {
					return false
				}
			}
			return true
		},
		gen.UInt32Range(1, 10000000),
		gen.UInt32Range(1, 100000),
		gen.SliceOf(gen.IntRange(-1500, 1500)),
	))

	properties.TestingRun(t)
}
