// Package engine contains the host loop that drives a graph.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pktgraph/pktgraph/core/logging"
	"github.com/pktgraph/pktgraph/core/nnduration"
	"github.com/pktgraph/pktgraph/core/subtract"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/timer"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

var logger = logging.New("engine")

// DefaultIdleSleep is the default sleep duration after a breath that moved no packets.
const DefaultIdleSleep = nnduration.Nanoseconds(time.Microsecond)

// Error conditions.
var (
	ErrRunning = errors.New("engine is already running")
	ErrNoGraph = errors.New("engine has no graph")
)

// Config contains engine configuration.
type Config struct {
	// IdleSleep is the sleep duration after a breath that moved no packets.
	// Default is 1µs.
	IdleSleep nnduration.Nanoseconds `json:"idleSleep,omitempty"`
}

// LoadStat contains statistics of the host loop.
type LoadStat struct {
	EmptyBreaths uint64 `json:"emptyBreaths" gqldesc:"Breaths that moved no packets."`
	ValidBreaths uint64 `json:"validBreaths" gqldesc:"Breaths that moved at least one packet."`
}

// Sub computes the difference.
func (s LoadStat) Sub(prev LoadStat) (diff LoadStat) {
	subtract.SubFields(s, prev, &diff)
	return diff
}

// Engine drives a graph and a timer service from a single goroutine.
type Engine struct {
	g         *graph.Graph
	timers    *timer.Service
	clk       clock.Clock
	idleSleep time.Duration

	active  atomic.Bool
	running sync.Mutex // held by Run, or by Do when running inline
	ctrl    chan func()
	stat    LoadStat
}

// New creates an engine.
// SetGraph must be called before Step or Run.
func New(clk clock.Clock, cfg Config) *Engine {
	return &Engine{
		timers:    timer.New(clk),
		clk:       clk,
		idleSleep: cfg.IdleSleep.DurationOr(DefaultIdleSleep),
		ctrl:      make(chan func()),
	}
}

// Graph returns the graph.
func (e *Engine) Graph() *graph.Graph {
	return e.g
}

// SetGraph assigns the graph.
// If the engine is running, the graph is swapped between breaths.
func (e *Engine) SetGraph(g *graph.Graph) {
	e.Do(func() { e.g = g })
}

// Timers returns the timer service.
func (e *Engine) Timers() *timer.Service {
	return e.timers
}

// Clock returns the clock.
func (e *Engine) Clock() clock.Clock {
	return e.clk
}

// LoadStat returns host loop statistics.
// It must be called via Do while the engine is running.
func (e *Engine) LoadStat() LoadStat {
	return e.stat
}

// Step pumps timers then runs one breathe cycle.
// It returns whether the breath moved any packet.
// This should only be used when Run is not active, such as in tests.
func (e *Engine) Step() (active bool, err error) {
	e.timers.Run()
	before := e.g.Stats().Transmits
	if err = e.g.Breathe(); err != nil {
		return false, err
	}
	if active = e.g.Stats().Transmits != before; active {
		e.stat.ValidBreaths++
	} else {
		e.stat.EmptyBreaths++
	}
	return active, nil
}

// Run executes the host loop until ctx is cancelled or a breath fails.
// Cancellation returns nil; a failed breath returns its error.
func (e *Engine) Run(ctx context.Context) error {
	if !e.active.CompareAndSwap(false, true) {
		return ErrRunning
	}
	if e.g == nil {
		e.active.Store(false)
		return ErrNoGraph
	}
	defer e.active.Store(false)
	e.running.Lock()
	defer e.running.Unlock()

	logger.Info("engine started", zap.Duration("idle-sleep", e.idleSleep))
	defer func() {
		logger.Info("engine stopped", zap.Uint64("valid-breaths", e.stat.ValidBreaths), zap.Uint64("empty-breaths", e.stat.EmptyBreaths))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-e.ctrl:
			fn()
		default:
		}

		active, err := e.Step()
		if err != nil {
			logger.Error("breath failed", zap.Error(err))
			return err
		}
		if !active {
			e.clk.Sleep(e.idleSleep)
		}
	}
}

// Do executes fn between breaths.
// If the engine is running, fn runs on the engine goroutine; otherwise, fn runs inline.
// Do blocks until fn returns.
func (e *Engine) Do(fn func()) {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	for {
		if e.running.TryLock() {
			wrapped()
			e.running.Unlock()
			return
		}

		select {
		case e.ctrl <- wrapped:
			<-done
			return
		case <-time.After(time.Millisecond):
		}
	}
}
