package timer_test

import (
	"testing"
	"time"

	"github.com/pktgraph/pktgraph/core/testenv"
	"github.com/pktgraph/pktgraph/timer"
)

var makeAR = testenv.MakeAR

func TestRepeating(t *testing.T) {
	assert, require := makeAR(t)

	clk := testenv.NewFakeClock()
	svc := timer.New(clk)
	n := 0
	svc.Schedule("tick", func() { n++ }, 100*time.Millisecond, timer.Repeating)

	require.NoError(testenv.StepEach(clk, time.Millisecond, 1000, func() error {
		svc.Run()
		return nil
	}))
	assert.Equal(10, n)
	assert.EqualValues(10, svc.Counters().Fired)
	assert.EqualValues(0, svc.Counters().Skipped)
}

func TestOnceAndCancel(t *testing.T) {
	assert, _ := makeAR(t)

	clk := testenv.NewFakeClock()
	svc := timer.New(clk)
	var fired []string
	svc.Schedule("b", func() { fired = append(fired, "b") }, 20*time.Millisecond, timer.Once)
	svc.Schedule("a", func() { fired = append(fired, "a") }, 10*time.Millisecond, timer.Once)
	c := svc.Schedule("c", func() { fired = append(fired, "c") }, 5*time.Millisecond, timer.Repeating)
	assert.Equal(3, svc.Counters().Scheduled)

	deadline, ok := svc.NextDeadline()
	assert.True(ok)
	assert.Equal(testenv.Epoch.Add(5*time.Millisecond), deadline)

	c.Cancel()
	c.Cancel()
	assert.Equal(0, svc.Run())

	clk.Step(30 * time.Millisecond)
	assert.Equal(2, svc.Run())
	assert.Equal([]string{"a", "b"}, fired)
	assert.Equal(0, svc.Counters().Scheduled)

	_, ok = svc.NextDeadline()
	assert.False(ok)
}

func TestCatchUp(t *testing.T) {
	assert, _ := makeAR(t)

	clk := testenv.NewFakeClock()
	svc := timer.New(clk)
	svc.MaxCatchUp = 3
	n := 0
	tmr := svc.Schedule("tick", func() { n++ }, 10*time.Millisecond, timer.Repeating)

	clk.Step(55 * time.Millisecond)
	assert.Equal(3, svc.Run())
	assert.EqualValues(2, svc.Counters().Skipped)
	assert.Equal(testenv.Epoch.Add(60*time.Millisecond), tmr.Deadline())

	clk.Step(5 * time.Millisecond)
	assert.Equal(1, svc.Run())
	assert.Equal(4, n)
}

func TestCancelFromCallback(t *testing.T) {
	assert, _ := makeAR(t)

	clk := testenv.NewFakeClock()
	svc := timer.New(clk)
	n := 0
	var tmr *timer.Timer
	tmr = svc.Schedule("self", func() {
		n++
		tmr.Cancel()
	}, time.Millisecond, timer.Repeating)

	clk.Step(10 * time.Millisecond)
	svc.Run()
	assert.Equal(1, n)
	assert.Equal(0, svc.Counters().Scheduled)
}
