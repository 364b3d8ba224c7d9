package pipeline

import (
	"fmt"
	"sort"

	"github.com/pktgraph/pktgraph/app/ratelimiter"
	"github.com/pktgraph/pktgraph/app/sink"
	"github.com/pktgraph/pktgraph/app/source"
	"github.com/pktgraph/pktgraph/app/tee"
	"github.com/pktgraph/pktgraph/core/jsonhelper"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/pktbuf"
	"github.com/pktgraph/pktgraph/timer"
)

// Env contains shared resources available to app constructors.
type Env struct {
	Pool   *pktbuf.Pool
	Timers *timer.Service
}

// ClassFunc constructs an app.
// args is the loosely typed "args" section of AppConfig.
type ClassFunc func(env Env, name string, args any) (graph.App, error)

var classes = map[string]ClassFunc{}

// RegisterClass registers an app class.
// It panics on duplicate registration.
func RegisterClass(class string, fn ClassFunc) {
	if _, ok := classes[class]; ok {
		panic(fmt.Errorf("duplicate class %s", class))
	}
	classes[class] = fn
}

// Classes returns sorted names of registered classes.
func Classes() (list []string) {
	for class := range classes {
		list = append(list, class)
	}
	sort.Strings(list)
	return list
}

func decodeArgs[T any](args any) (cfg T, e error) {
	e = jsonhelper.Roundtrip(args, &cfg, jsonhelper.DisallowUnknownFields)
	return
}

func init() {
	RegisterClass("source", func(env Env, name string, args any) (graph.App, error) {
		cfg, e := decodeArgs[source.Config](args)
		if e != nil {
			return nil, e
		}
		return source.New(name, env.Pool, cfg)
	})
	RegisterClass("sink", func(env Env, name string, args any) (graph.App, error) {
		cfg, e := decodeArgs[sink.Config](args)
		if e != nil {
			return nil, e
		}
		return sink.New(cfg), nil
	})
	RegisterClass("tee", func(env Env, name string, args any) (graph.App, error) {
		cfg, e := decodeArgs[tee.Config](args)
		if e != nil {
			return nil, e
		}
		return tee.New(cfg), nil
	})
	RegisterClass("ratelimiter", func(env Env, name string, args any) (graph.App, error) {
		cfg, e := decodeArgs[ratelimiter.Config](args)
		if e != nil {
			return nil, fmt.Errorf("%w: %v", ratelimiter.ErrConfig, e)
		}
		return ratelimiter.New(name, env.Timers, cfg)
	})
}
