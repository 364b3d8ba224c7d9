// Package graphmgmt provides management of the running graph via GraphQL.
package graphmgmt

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/pktgraph/pktgraph/app/ratelimiter"
	"github.com/pktgraph/pktgraph/core/gqlserver"
	"github.com/pktgraph/pktgraph/engine"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/link"
)

// GqlEngine is the engine exposed via GraphQL.
// It must be assigned before serving queries.
var GqlEngine *engine.Engine

var errNoEngine = errors.New("engine is not running")

// do runs fn between breaths and returns its result.
func do[T any](fn func(g *graph.Graph) (T, error)) (result T, e error) {
	if GqlEngine == nil {
		return result, errNoEngine
	}
	GqlEngine.Do(func() { result, e = fn(GqlEngine.Graph()) })
	return
}

type appView struct {
	Name     string         `json:"name" gqldesc:"App name."`
	Type     string         `json:"type" gqldesc:"Implementation type."`
	Inputs   []string       `json:"inputs"`
	Outputs  []string       `json:"outputs"`
	Counters map[string]any `json:"counters,omitempty" gqldesc:"Counters reported by the app, if any."`
}

type linkView struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	FromPort  string `json:"fromPort"`
	To        string `json:"to"`
	ToPort    string `json:"toPort"`
	Capacity  int    `json:"capacity"`
	NReadable int    `json:"nReadable" gqldesc:"Packets queued."`
	link.Counters
}

func newLinkView(l *link.Link) linkView {
	id := l.ID()
	return linkView{
		ID:        id.String(),
		From:      id.From,
		FromPort:  id.FromPort,
		To:        id.To,
		ToPort:    id.ToPort,
		Capacity:  l.Capacity(),
		NReadable: l.NReadable(),
		Counters:  l.Counters(),
	}
}

type breathView struct {
	Breaths    uint64  `json:"breaths"`
	PullCalls  uint64  `json:"pullCalls"`
	PushCalls  uint64  `json:"pushCalls"`
	Passes     uint64  `json:"passes"`
	Transmits  uint64  `json:"transmits"`
	PassesMean float64 `json:"passesMean" gqldesc:"Mean exhale passes per breath."`
	engine.LoadStat
}

type rateLimiterView struct {
	Name           string    `json:"name"`
	Rate           uint64    `json:"rate"`
	BucketCapacity uint64    `json:"bucketCapacity"`
	TickRate       int       `json:"tickRate"`
	Content        float64   `json:"content" gqldesc:"Bucket content in bytes."`
	Rx             uint64    `json:"rx"`
	Tx             uint64    `json:"tx"`
	Time           time.Time `json:"time"`
}

func newRateLimiterView(name string, rl *ratelimiter.RateLimiter) *rateLimiterView {
	cfg, st := rl.Config(), rl.Stats()
	return &rateLimiterView{
		Name:           name,
		Rate:           cfg.Rate,
		BucketCapacity: cfg.BucketCapacity,
		TickRate:       cfg.TickRate,
		Content:        rl.Bucket().Content(),
		Rx:             st.Rx,
		Tx:             st.Tx,
		Time:           st.Time,
	}
}

func findRateLimiter(g *graph.Graph, name string) (*ratelimiter.RateLimiter, error) {
	app, ok := g.App(name)
	if !ok {
		return nil, fmt.Errorf("%w %s", graph.ErrAppNotFound, name)
	}
	rl, ok := app.(*ratelimiter.RateLimiter)
	if !ok {
		return nil, fmt.Errorf("app %s is not a rate limiter", name)
	}
	return rl, nil
}

// GraphQL types.
var (
	GqlAppType         *graphql.Object
	GqlLinkType        *graphql.Object
	GqlBreathStatsType *graphql.Object
	GqlRateLimiterType *graphql.Object
)

func init() {
	GqlAppType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "App",
		Fields: gqlserver.BindFields[appView](gqlserver.FieldTypes{reflect.TypeOf(map[string]any{}): gqlserver.JSON}),
	})
	GqlLinkType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "Link",
		Fields: gqlserver.BindFields[linkView](nil),
	})
	GqlBreathStatsType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "BreathStats",
		Fields: gqlserver.BindFields[breathView](nil),
	})
	GqlRateLimiterType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "RateLimiter",
		Fields: gqlserver.BindFields[rateLimiterView](gqlserver.FieldTypes{reflect.TypeOf(time.Time{}): graphql.DateTime}),
	})

	gqlserver.AddQuery(&graphql.Field{
		Name:        "apps",
		Description: "List apps in registration order.",
		Type:        gqlserver.NewListNonNullBoth(GqlAppType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return do(func(g *graph.Graph) (list []appView, e error) {
				ports := portNames(g)
				for _, name := range g.AppNames() {
					app, _ := g.App(name)
					v := appView{
						Name:    name,
						Type:    fmt.Sprintf("%T", app),
						Inputs:  ports[name][0],
						Outputs: ports[name][1],
					}
					if r, ok := app.(graph.Reporter); ok {
						v.Counters = r.Report()
					}
					list = append(list, v)
				}
				return list, nil
			})
		},
	})

	gqlserver.AddQuery(&graphql.Field{
		Name:        "links",
		Description: "List links.",
		Type:        gqlserver.NewListNonNullBoth(GqlLinkType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return do(func(g *graph.Graph) (list []linkView, e error) {
				for _, l := range g.Links() {
					list = append(list, newLinkView(l))
				}
				return list, nil
			})
		},
	})

	gqlserver.AddQuery(&graphql.Field{
		Name:        "breathStats",
		Description: "Scheduler statistics.",
		Type:        graphql.NewNonNull(GqlBreathStatsType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return do(func(g *graph.Graph) (v breathView, e error) {
				s := g.Stats()
				v = breathView{
					Breaths:   s.Breaths,
					PullCalls: s.PullCalls,
					PushCalls: s.PushCalls,
					Passes:    s.Passes,
					Transmits: s.Transmits,
					LoadStat:  GqlEngine.LoadStat(),
				}
				if !math.IsNaN(s.PassesPerBreath.Mean) {
					v.PassesMean = s.PassesPerBreath.Mean
				}
				return v, nil
			})
		},
	})

	gqlserver.AddQuery(&graphql.Field{
		Name:        "rateLimiter",
		Description: "Retrieve rate limiter state.",
		Args: graphql.FieldConfigArgument{
			"name": &graphql.ArgumentConfig{Type: gqlserver.NonNullString},
		},
		Type: GqlRateLimiterType,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			name := p.Args["name"].(string)
			return do(func(g *graph.Graph) (*rateLimiterView, error) {
				rl, e := findRateLimiter(g, name)
				if e != nil {
					return nil, e
				}
				return newRateLimiterView(name, rl), nil
			})
		},
	})

	gqlserver.AddMutation(&graphql.Field{
		Name:        "resetRateLimiter",
		Description: "Replace rate limiter parameters.",
		Args: graphql.FieldConfigArgument{
			"name":            &graphql.ArgumentConfig{Type: gqlserver.NonNullString},
			"rate":            &graphql.ArgumentConfig{Type: gqlserver.NonNullUint64},
			"bucketCapacity":  &graphql.ArgumentConfig{Type: gqlserver.NonNullUint64},
			"initialCapacity": &graphql.ArgumentConfig{Type: gqlserver.Uint64},
			"tickRate":        &graphql.ArgumentConfig{Type: graphql.Int},
		},
		Type: graphql.NewNonNull(GqlRateLimiterType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			name := p.Args["name"].(string)
			cfg := ratelimiter.Config{
				Rate:           p.Args["rate"].(uint64),
				BucketCapacity: p.Args["bucketCapacity"].(uint64),
			}
			if ic, ok := p.Args["initialCapacity"].(uint64); ok {
				cfg.InitialCapacity = &ic
			}
			if tr, ok := p.Args["tickRate"].(int); ok {
				cfg.TickRate = tr
			}
			return do(func(g *graph.Graph) (*rateLimiterView, error) {
				rl, e := findRateLimiter(g, name)
				if e != nil {
					return nil, e
				}
				if e := rl.Reset(cfg); e != nil {
					return nil, e
				}
				return newRateLimiterView(name, rl), nil
			})
		},
	})
}

// portNames maps app name to its bound input and output port names.
func portNames(g *graph.Graph) map[string][2][]string {
	m := map[string][2][]string{}
	for _, l := range g.Links() {
		id := l.ID()
		to := m[id.To]
		to[0] = append(to[0], id.ToPort)
		m[id.To] = to
		from := m[id.From]
		from[1] = append(from[1], id.FromPort)
		m[id.From] = from
	}
	return m
}
