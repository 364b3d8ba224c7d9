package pipeline

import (
	"fmt"

	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/link"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func createApp(g *graph.Graph, env Env, cfg Config, name string) error {
	ac := cfg.Apps[name]
	newApp, ok := classes[ac.Class]
	if !ok {
		return fmt.Errorf("%w %q in app %s", ErrUnknownClass, ac.Class, name)
	}
	app, e := newApp(env, name, cfg.AppArgs(name))
	if e != nil {
		return fmt.Errorf("app %s: %w", name, e)
	}
	return g.AddApp(name, app)
}

// Apply executes a plan on a graph, then relinks it.
// It attempts every step and returns the combined errors.
//
// The caller must ensure the graph is not breathing concurrently, such as by invoking Apply via engine.Do.
func Apply(g *graph.Graph, env Env, plan Plan) (e error) {
	cfg := plan.target
	for _, id := range plan.Disconnect {
		if g.Link(id) != nil {
			e = multierr.Append(e, g.Disconnect(id))
		}
	}
	for _, name := range plan.Delete {
		e = multierr.Append(e, g.RemoveApp(name))
	}

	replace := append([]string(nil), plan.Replace...)
	for _, name := range plan.Reconfigure {
		app, ok := g.App(name)
		if !ok {
			e = multierr.Append(e, fmt.Errorf("%w %s", graph.ErrAppNotFound, name))
			continue
		}
		rc, ok := app.(graph.Reconfigurer)
		if !ok {
			replace = append(replace, name)
			continue
		}
		if err := rc.Reconfigure(cfg.AppArgs(name)); err != nil {
			e = multierr.Append(e, fmt.Errorf("app %s: %w", name, err))
			continue
		}
		logger.Info("reconfigured", zap.String("app", name))
	}

	connect := append([]link.ID(nil), plan.Connect...)
	for _, name := range replace {
		if _, ok := g.App(name); ok {
			connect = append(connect, linksOf(g, name)...)
			e = multierr.Append(e, g.RemoveApp(name))
		}
		e = multierr.Append(e, createApp(g, env, cfg, name))
		logger.Info("replaced", zap.String("app", name))
	}
	for _, name := range plan.Create {
		e = multierr.Append(e, createApp(g, env, cfg, name))
	}

	for _, id := range connect {
		if g.Link(id) != nil {
			continue
		}
		_, err := g.Connect(id.From, id.FromPort, id.To, id.ToPort)
		e = multierr.Append(e, err)
	}

	g.Relink()
	return e
}

func linksOf(g *graph.Graph, name string) (list []link.ID) {
	for _, l := range g.Links() {
		if id := l.ID(); id.From == name || id.To == name {
			list = append(list, id)
		}
	}
	return list
}

// Build creates a graph from a configuration.
func Build(env Env, cfg Config) (*graph.Graph, error) {
	if e := cfg.Validate(); e != nil {
		return nil, e
	}
	g := graph.New(graph.Config{LinkCapacity: cfg.LinkCapacity})
	if e := Apply(g, env, Diff(Config{}, cfg)); e != nil {
		return nil, multierr.Append(e, g.Close())
	}
	logger.Info("pipeline built", zap.Int("apps", len(cfg.Apps)), zap.Int("links", len(cfg.Links)))
	return g, nil
}
