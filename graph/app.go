package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pktgraph/pktgraph/link"
)

// Error conditions.
var (
	ErrPortNotFound = errors.New("port not found")
	ErrPortInUse    = errors.New("port already connected")
	ErrDuplicateApp = errors.New("duplicate app name")
	ErrAppNotFound  = errors.New("app not found")
	ErrStale        = errors.New("topology changed without Relink")
)

// App is a processing node.
// It may implement any subset of Puller, Pusher, Reporter, Reconfigurer, io.Closer.
type App any

// Puller is an app that originates or drains packets without needing input.
type Puller interface {
	Pull(p *Ports) error
}

// Pusher is an app that consumes available input and/or produces output.
// It must not produce more packets than its output links can accept.
type Pusher interface {
	Push(p *Ports) error
}

// Reporter is an app that reports diagnostic counters.
type Reporter interface {
	Report() map[string]any
}

// Reconfigurer is an app that can absorb new arguments without being recreated.
type Reconfigurer interface {
	Reconfigure(args any) error
}

// Direction indicates input or output.
type Direction string

// Directions.
const (
	DirInput  Direction = "input"
	DirOutput Direction = "output"
)

// PortError indicates an app referenced a port with no bound link.
type PortError struct {
	App  string
	Dir  Direction
	Port string
}

func (e PortError) Error() string {
	return fmt.Sprintf("app %s has no %s port %s", e.App, e.Dir, e.Port)
}

// Unwrap returns ErrPortNotFound.
func (PortError) Unwrap() error {
	return ErrPortNotFound
}

// AppError wraps an error returned by an app callback.
type AppError struct {
	App   string
	Phase string
	Err   error
}

func (e AppError) Error() string {
	return fmt.Sprintf("app %s %s: %v", e.App, e.Phase, e.Err)
}

func (e AppError) Unwrap() error {
	return e.Err
}

// Ports contains the links bound to an app.
type Ports struct {
	app string
	in  map[string]*link.Link
	out map[string]*link.Link
}

func newPorts(app string) Ports {
	return Ports{
		app: app,
		in:  map[string]*link.Link{},
		out: map[string]*link.Link{},
	}
}

// Input returns the link bound to an input port.
func (p *Ports) Input(port string) (*link.Link, error) {
	if l := p.in[port]; l != nil {
		return l, nil
	}
	return nil, PortError{p.app, DirInput, port}
}

// Output returns the link bound to an output port.
func (p *Ports) Output(port string) (*link.Link, error) {
	if l := p.out[port]; l != nil {
		return l, nil
	}
	return nil, PortError{p.app, DirOutput, port}
}

// InputNames returns sorted names of bound input ports.
func (p *Ports) InputNames() []string {
	return sortedKeys(p.in)
}

// OutputNames returns sorted names of bound output ports.
func (p *Ports) OutputNames() []string {
	return sortedKeys(p.out)
}

func sortedKeys(m map[string]*link.Link) (names []string) {
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
