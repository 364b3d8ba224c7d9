package testenv

import (
	"time"

	testclock "k8s.io/utils/clock/testing"
)

// Epoch is the initial time of NewFakeClock.
var Epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewFakeClock creates a fake clock positioned at Epoch.
func NewFakeClock() *testclock.FakeClock {
	return testclock.NewFakeClock(Epoch)
}

// StepEach advances the clock by step, n times, invoking f after each step.
// It stops early and returns the error if f fails.
func StepEach(clk *testclock.FakeClock, step time.Duration, n int, f func() error) error {
	for i := 0; i < n; i++ {
		clk.Step(step)
		if e := f(); e != nil {
			return e
		}
	}
	return nil
}
