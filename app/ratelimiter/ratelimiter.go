// Package ratelimiter implements a token bucket rate limiter app.
package ratelimiter

import (
	"fmt"
	"time"

	"github.com/pktgraph/pktgraph/core/jsonhelper"
	"github.com/pktgraph/pktgraph/core/logging"
	"github.com/pktgraph/pktgraph/core/subtract"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/timer"
	"go.uber.org/zap"
)

var logger = logging.New("ratelimiter")

// Port names.
const (
	PortInput  = "input"
	PortOutput = "output"
)

// Stats is a snapshot of rate limiter counters.
type Stats struct {
	Rx   uint64    `json:"rx" gqldesc:"Packets received on input."`
	Tx   uint64    `json:"tx" gqldesc:"Packets transmitted on output."`
	Time time.Time `json:"time" subtract:"-"`
}

// Sub computes the difference.
// Time is copied from s.
func (s Stats) Sub(prev Stats) (diff Stats) {
	subtract.SubFields(s, prev, &diff)
	return diff
}

// Throughput computes effective output rate in bytes per second since prev.
func (s Stats) Throughput(prev Stats, avgPacketSize float64) float64 {
	elapsed := s.Time.Sub(prev.Time).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Sub(prev).Tx) * avgPacketSize / elapsed
}

// RateLimiter is an app that admits packets according to a token bucket.
// Packets exceeding available tokens are dropped.
type RateLimiter struct {
	name   string
	cfg    Config
	bucket TokenBucket
	timers *timer.Service
	tick   *timer.Timer

	rx      uint64
	tx      uint64
	dropped uint64
}

var (
	_ graph.Pusher       = (*RateLimiter)(nil)
	_ graph.Reporter     = (*RateLimiter)(nil)
	_ graph.Reconfigurer = (*RateLimiter)(nil)
)

// New creates a rate limiter and registers its tick on timers.
func New(name string, timers *timer.Service, cfg Config) (*RateLimiter, error) {
	if e := cfg.Validate(); e != nil {
		return nil, e
	}
	rl := &RateLimiter{
		name:   name,
		timers: timers,
	}
	rl.apply(cfg)
	return rl, nil
}

func (rl *RateLimiter) apply(cfg Config) {
	rl.bucket.Reset(float64(cfg.Rate), float64(cfg.BucketCapacity), float64(cfg.initial()), cfg.TickRate)
	if rl.tick == nil || cfg.TickRate != rl.cfg.TickRate {
		if rl.tick != nil {
			rl.tick.Cancel()
		}
		rl.tick = rl.timers.Schedule("ratelimiter/"+rl.name, rl.bucket.Tick, time.Second/time.Duration(cfg.TickRate), timer.Repeating)
	}
	rl.cfg = cfg
	logger.Info("configured",
		zap.String("app", rl.name),
		zap.Uint64("rate", cfg.Rate),
		zap.Uint64("bucket-capacity", cfg.BucketCapacity),
		zap.Float64("content", rl.bucket.Content()),
		zap.Int("tick-rate", cfg.TickRate),
	)
}

func (rl *RateLimiter) String() string {
	return fmt.Sprintf("ratelimiter(%s,%dB/s)", rl.name, rl.cfg.Rate)
}

// Config returns current configuration.
func (rl *RateLimiter) Config() Config {
	return rl.cfg
}

// Bucket returns a copy of the token bucket.
func (rl *RateLimiter) Bucket() TokenBucket {
	return rl.bucket
}

// Reset replaces token bucket parameters.
// Packets queued on links are unaffected.
func (rl *RateLimiter) Reset(cfg Config) error {
	if e := cfg.Validate(); e != nil {
		return e
	}
	rl.apply(cfg)
	return nil
}

// Reconfigure implements graph.Reconfigurer.
func (rl *RateLimiter) Reconfigure(args any) error {
	var cfg Config
	if e := jsonhelper.Roundtrip(args, &cfg, jsonhelper.DisallowUnknownFields); e != nil {
		return fmt.Errorf("%w: %v", ErrConfig, e)
	}
	return rl.Reset(cfg)
}

// Push admits packets from input to output.
// It stops once output has no room; the rest stay queued on input.
// Dropped packets do not consume output room.
func (rl *RateLimiter) Push(p *graph.Ports) error {
	in, e := p.Input(PortInput)
	if e != nil {
		return e
	}
	out, e := p.Output(PortOutput)
	if e != nil {
		return e
	}

	for room := out.NWritable(); room > 0 && !in.Empty(); {
		pkt, e := in.Receive()
		if e != nil {
			return e
		}
		rl.rx++
		if !rl.bucket.Admit(pkt.Len()) {
			pkt.Close()
			rl.dropped++
			continue
		}
		if e := out.Transmit(pkt); e != nil {
			pkt.Close()
			return e
		}
		rl.tx++
		room--
	}
	return nil
}

// Stats returns a counters snapshot.
func (rl *RateLimiter) Stats() Stats {
	return Stats{
		Rx:   rl.rx,
		Tx:   rl.tx,
		Time: rl.timers.Clock().Now(),
	}
}

// Report implements graph.Reporter.
func (rl *RateLimiter) Report() map[string]any {
	return map[string]any{
		"rx":      rl.rx,
		"tx":      rl.tx,
		"dropped": rl.dropped,
		"content": rl.bucket.Content(),
	}
}

// Close cancels the tick timer.
func (rl *RateLimiter) Close() error {
	if rl.tick != nil {
		rl.tick.Cancel()
		rl.tick = nil
	}
	return nil
}
