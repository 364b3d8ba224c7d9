// Package graph contains the app/link graph and its breathe cycle scheduler.
package graph

import (
	"fmt"
	"io"
	"sort"

	"github.com/pktgraph/pktgraph/core/events"
	"github.com/pktgraph/pktgraph/core/logging"
	"github.com/pktgraph/pktgraph/core/runningstat"
	"github.com/pktgraph/pktgraph/link"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var logger = logging.New("graph")

// Graph events.
const (
	EventRelink     = "relink"
	EventAppAdded   = "app-added"
	EventAppRemoved = "app-removed"
)

// Config contains graph configuration.
type Config struct {
	// LinkCapacity is the capacity of new links, adjusted by link.AlignCapacity.
	LinkCapacity int `json:"linkCapacity,omitempty"`
}

type appEntry struct {
	name     string
	app      App
	ports    Ports
	puller   Puller
	pusher   Pusher
	runnable bool
}

// Graph holds apps and the links between them.
// It is not thread-safe: every method must be invoked from the same goroutine, or sequenced by the caller.
type Graph struct {
	cfg     Config
	apps    map[string]*appEntry
	order   []string
	links   map[link.ID]*link.Link
	appsi   []*appEntry
	stale   bool
	emitter *events.Emitter

	stats  BreathStats
	passes runningstat.RunningStat
}

var _ link.Waker = (*Graph)(nil)

// New creates an empty graph.
func New(cfg Config) *Graph {
	cfg.LinkCapacity = link.AlignCapacity(cfg.LinkCapacity)
	return &Graph{
		cfg:     cfg,
		apps:    map[string]*appEntry{},
		links:   map[link.ID]*link.Link{},
		emitter: events.NewEmitter(),
	}
}

// On registers an event listener.
//
// EventRelink: func()
// EventAppAdded, EventAppRemoved: func(name string)
func (g *Graph) On(event string, fn any) io.Closer {
	return g.emitter.On(event, fn)
}

// AddApp registers an app.
// Relink must be called before the next breath.
func (g *Graph) AddApp(name string, app App) error {
	if _, ok := g.apps[name]; ok {
		return fmt.Errorf("%w %s", ErrDuplicateApp, name)
	}
	ent := &appEntry{
		name:  name,
		app:   app,
		ports: newPorts(name),
	}
	ent.puller, _ = app.(Puller)
	ent.pusher, _ = app.(Pusher)
	g.apps[name] = ent
	g.order = append(g.order, name)
	g.stale = true
	logger.Info("app added", zap.String("app", name), zap.String("type", fmt.Sprintf("%T", app)))
	g.emitter.Emit(EventAppAdded, name)
	return nil
}

// RemoveApp disconnects and closes an app.
func (g *Graph) RemoveApp(name string) error {
	ent, ok := g.apps[name]
	if !ok {
		return fmt.Errorf("%w %s", ErrAppNotFound, name)
	}

	var errs []error
	for _, l := range g.appLinks(ent) {
		errs = append(errs, g.Disconnect(l.ID()))
	}
	if c, ok := ent.app.(io.Closer); ok {
		errs = append(errs, c.Close())
	}

	delete(g.apps, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.stale = true
	logger.Info("app removed", zap.String("app", name))
	g.emitter.Emit(EventAppRemoved, name)
	return multierr.Combine(errs...)
}

func (g *Graph) appLinks(ent *appEntry) (list []*link.Link) {
	for _, l := range ent.ports.in {
		list = append(list, l)
	}
	for _, l := range ent.ports.out {
		if l.ID().To != ent.name { // self-loop already listed
			list = append(list, l)
		}
	}
	return list
}

// App returns an app by name.
func (g *Graph) App(name string) (app App, ok bool) {
	ent, ok := g.apps[name]
	if !ok {
		return nil, false
	}
	return ent.app, true
}

// AppNames returns app names in registration order.
func (g *Graph) AppNames() []string {
	return append([]string(nil), g.order...)
}

// Connect creates a link from an output port to an input port.
// Relink must be called before the next breath.
func (g *Graph) Connect(from, fromPort, to, toPort string) (*link.Link, error) {
	src, dst := g.apps[from], g.apps[to]
	switch {
	case src == nil:
		return nil, fmt.Errorf("%w %s", ErrAppNotFound, from)
	case dst == nil:
		return nil, fmt.Errorf("%w %s", ErrAppNotFound, to)
	case src.ports.out[fromPort] != nil:
		return nil, fmt.Errorf("%w %s.%s", ErrPortInUse, from, fromPort)
	case dst.ports.in[toPort] != nil:
		return nil, fmt.Errorf("%w %s.%s", ErrPortInUse, to, toPort)
	}

	id := link.ID{From: from, FromPort: fromPort, To: to, ToPort: toPort}
	l := link.New(id, g.cfg.LinkCapacity)
	src.ports.out[fromPort] = l
	dst.ports.in[toPort] = l
	g.links[id] = l
	g.stale = true
	logger.Debug("connected", zap.Stringer("link", id), zap.Int("capacity", l.Capacity()))
	return l, nil
}

// Disconnect removes a link and releases its queued packets.
func (g *Graph) Disconnect(id link.ID) error {
	l := g.links[id]
	if l == nil {
		return fmt.Errorf("%w %s", ErrPortNotFound, id)
	}
	if src := g.apps[id.From]; src != nil {
		delete(src.ports.out, id.FromPort)
	}
	if dst := g.apps[id.To]; dst != nil {
		delete(dst.ports.in, id.ToPort)
	}
	delete(g.links, id)
	g.stale = true
	logger.Debug("disconnected", zap.Stringer("link", id))
	return l.Close()
}

// Link returns a link by ID.
func (g *Graph) Link(id link.ID) *link.Link {
	return g.links[id]
}

// Links returns all links, sorted by ID.
func (g *Graph) Links() (list []*link.Link) {
	for _, l := range g.links {
		list = append(list, l)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].String() < list[j].String() })
	return list
}

// Relink refreshes iteration order after topology changes.
func (g *Graph) Relink() {
	g.appsi = g.appsi[:0]
	slots := map[string]int{}
	for i, name := range g.order {
		g.appsi = append(g.appsi, g.apps[name])
		slots[name] = i
	}
	for id, l := range g.links {
		l.SetWaker(g, slots[id.To])
	}
	g.stale = false
	logger.Info("relinked", zap.Int("apps", len(g.appsi)), zap.Int("links", len(g.links)))
	g.emitter.Emit(EventRelink)
}

// Wake marks an app runnable.
// It is called by links when a packet is transmitted.
func (g *Graph) Wake(slot int) {
	g.stats.Transmits++
	if slot >= 0 && slot < len(g.appsi) {
		g.appsi[slot].runnable = true
	}
}

// Close removes every app and link.
func (g *Graph) Close() error {
	var errs []error
	for _, l := range g.Links() {
		errs = append(errs, g.Disconnect(l.ID()))
	}
	for _, name := range g.AppNames() {
		errs = append(errs, g.RemoveApp(name))
	}
	g.appsi = nil
	return multierr.Combine(errs...)
}
