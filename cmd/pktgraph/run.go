package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gogf/greuse"
	"github.com/pktgraph/pktgraph/core/gqlserver"
	_ "github.com/pktgraph/pktgraph/core/logging/logginggql"
	"github.com/pktgraph/pktgraph/engine"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/mgmt/graphmgmt"
	"github.com/pktgraph/pktgraph/mgmt/promexport"
	"github.com/pktgraph/pktgraph/pipeline"
	"github.com/pktgraph/pktgraph/pktbuf"
	"github.com/pktgraph/pktgraph/timer"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"k8s.io/utils/clock"
)

type pipelineInstance struct {
	eng *engine.Engine
	g   *graph.Graph
}

func newPipeline() (p pipelineInstance, e error) {
	p.eng = engine.New(clock.RealClock{}, cfg.Engine)
	env := pipeline.Env{
		Pool:   pktbuf.NewPool(pktbuf.PoolConfig{}),
		Timers: p.eng.Timers(),
	}
	if p.g, e = pipeline.Build(env, cfg); e != nil {
		return p, e
	}
	p.eng.SetGraph(p.g)
	return p, nil
}

func (p pipelineInstance) Close() error {
	return p.g.Close()
}

func runPipeline(ctx context.Context, service bool) (e error) {
	p, e := newPipeline()
	if e != nil {
		return e
	}
	defer func() { e = multierr.Append(e, p.Close()) }()

	ctx, stop := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if service {
		if listen != "" {
			ln, e := greuse.Listen("tcp", listen)
			if e != nil {
				return e
			}
			defer ln.Close()
			go serveMgmt(ln, p.eng)
		}
		if reportInterval > 0 {
			p.eng.Timers().Schedule("report", func() {
				p.g.Report(os.Stderr)
			}, reportInterval, timer.Repeating)
		}
		go systemdNotify(ctx)
	}

	logger.Info("pipeline running", zap.Duration("duration", duration))
	if e := p.eng.Run(ctx); e != nil {
		logger.Fatal("breath failed", zap.Error(e))
	}
	if service {
		daemon.SdNotify(false, daemon.SdNotifyStopping)
	}
	return p.g.Report(os.Stdout)
}

func mgmtHandler(eng *engine.Engine) http.Handler {
	graphmgmt.GqlEngine = eng
	mux := http.NewServeMux()
	mux.Handle("/", gqlserver.Handler())
	mux.Handle("/metrics", promexport.Handler(eng))
	return mux
}

func serveMgmt(ln net.Listener, eng *engine.Engine) {
	logger.Info("management HTTP server starting", zap.Stringer("listen", ln.Addr()))
	e := http.Serve(ln, mgmtHandler(eng))
	if !errors.Is(e, http.ErrServerClosed) && !errors.Is(e, net.ErrClosed) {
		logger.Error("management HTTP server error", zap.Error(e))
	}
}

func systemdNotify(ctx context.Context) {
	daemon.SdNotify(false, daemon.SdNotifyReady)

	d, e := daemon.SdWatchdogEnabled(false)
	if d == 0 || e != nil {
		logger.Debug("systemd watchdog not configured", zap.Error(e))
		return
	}

	d /= 2
	logger.Debug("systemd watchdog enabled", zap.Duration("duration", d))
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
