// Package timer provides a pumped timer service.
//
// Callbacks never run on their own goroutine: they run inside Service.Run, which the host loop
// invokes between breathe cycles. This keeps timer callbacks sequenced with app callbacks.
package timer

import (
	"container/heap"
	"time"

	"github.com/pktgraph/pktgraph/core/logging"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

var logger = logging.New("timer")

// DefaultMaxCatchUp is the default limit of missed periods replayed per pump.
const DefaultMaxCatchUp = 8

// Mode indicates whether a timer repeats.
type Mode int

// Timer modes.
const (
	Once Mode = iota
	Repeating
)

func (m Mode) String() string {
	if m == Repeating {
		return "repeating"
	}
	return "once"
}

// Counters contains timer service counters.
type Counters struct {
	Scheduled int    `json:"scheduled"`
	Fired     uint64 `json:"fired"`
	Skipped   uint64 `json:"skipped"`
}

// Timer is a scheduled callback.
type Timer struct {
	svc      *Service
	name     string
	fn       func()
	period   time.Duration
	mode     Mode
	deadline time.Time
	index    int
}

// Name returns timer name.
func (t *Timer) Name() string {
	return t.name
}

// Deadline returns when the timer fires next.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Cancel removes the timer.
// It is safe to call Cancel more than once, including from the timer's own callback.
func (t *Timer) Cancel() {
	if t.index < 0 {
		return
	}
	heap.Remove(&t.svc.timers, t.index)
	logger.Debug("cancel", zap.String("name", t.name))
}

// Service is a timer service.
// It is not thread-safe.
type Service struct {
	clk        clock.PassiveClock
	timers     timerHeap
	cnt        Counters
	MaxCatchUp int
}

// New creates a timer service.
func New(clk clock.PassiveClock) *Service {
	return &Service{
		clk:        clk,
		MaxCatchUp: DefaultMaxCatchUp,
	}
}

// Clock returns the underlying clock.
func (svc *Service) Clock() clock.PassiveClock {
	return svc.clk
}

// Schedule registers a callback that fires one period from now.
// A repeating timer fires once per period as long as Run is invoked at least as often.
func (svc *Service) Schedule(name string, fn func(), period time.Duration, mode Mode) *Timer {
	if period <= 0 {
		logger.Panic("non-positive period", zap.String("name", name), zap.Duration("period", period))
	}
	t := &Timer{
		svc:      svc,
		name:     name,
		fn:       fn,
		period:   period,
		mode:     mode,
		deadline: svc.clk.Now().Add(period),
	}
	heap.Push(&svc.timers, t)
	logger.Debug("schedule", zap.String("name", name), zap.Duration("period", period), zap.Stringer("mode", mode))
	return t
}

// Run fires every due timer in deadline order, and returns how many callbacks were invoked.
//
// A repeating timer's deadline advances by whole periods.
// If more than MaxCatchUp periods were missed, the excess are skipped rather than replayed.
func (svc *Service) Run() (nFired int) {
	now := svc.clk.Now()
	for len(svc.timers) > 0 {
		t := svc.timers[0]
		if t.deadline.After(now) {
			break
		}

		if t.mode == Once {
			heap.Pop(&svc.timers)
			t.fn()
			nFired++
			svc.cnt.Fired++
			continue
		}

		missed := int(now.Sub(t.deadline)/t.period) + 1
		t.deadline = t.deadline.Add(time.Duration(missed) * t.period)
		heap.Fix(&svc.timers, t.index)
		replay := min(missed, max(1, svc.MaxCatchUp))
		svc.cnt.Skipped += uint64(missed - replay)
		for i := 0; i < replay && t.index >= 0; i++ {
			t.fn()
			nFired++
			svc.cnt.Fired++
		}
	}
	return nFired
}

// NextDeadline returns the earliest deadline among scheduled timers.
func (svc *Service) NextDeadline() (deadline time.Time, ok bool) {
	if len(svc.timers) == 0 {
		return time.Time{}, false
	}
	return svc.timers[0].deadline, true
}

// Counters returns timer service counters.
func (svc *Service) Counters() Counters {
	cnt := svc.cnt
	cnt.Scheduled = len(svc.timers)
	return cnt
}

type timerHeap []*Timer

func (h timerHeap) Len() int {
	return len(h)
}

func (h timerHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
