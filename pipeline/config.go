// Package pipeline builds and updates graphs from declarative configuration.
package pipeline

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/peterbourgon/mergemap"
	"github.com/pktgraph/pktgraph/core/logging"
	"github.com/pktgraph/pktgraph/core/yamlflag"
	"github.com/pktgraph/pktgraph/engine"
	"github.com/pktgraph/pktgraph/link"
)

var logger = logging.New("pipeline")

// Error conditions.
var (
	ErrUnknownClass = errors.New("unknown app class")
	ErrLinkSyntax   = errors.New("bad link syntax")
)

// AppConfig describes an app instance.
type AppConfig struct {
	Class string         `json:"class"`
	Args  map[string]any `json:"args,omitempty"`
}

// Config describes a pipeline.
type Config struct {
	Apps         map[string]AppConfig `json:"apps"`
	Links        []string             `json:"links,omitempty"`

	// ClassDefaults contains args applied to every app of a class.
	// Per-app args take precedence; nested objects are merged.
	ClassDefaults map[string]map[string]any `json:"classDefaults,omitempty"`

	LinkCapacity int                  `json:"linkCapacity,omitempty"`
	Engine       engine.Config        `json:"engine,omitempty"`
}

// Load parses a YAML or JSON document.
func Load(doc []byte) (cfg Config, e error) {
	if e = yamlflag.Decode(doc, &cfg); e != nil {
		return Config{}, e
	}
	return cfg, cfg.Validate()
}

// LoadFile reads and parses a YAML or JSON file.
func LoadFile(filename string) (cfg Config, e error) {
	if e = yamlflag.DecodeFile(filename, &cfg); e != nil {
		return Config{}, e
	}
	return cfg, cfg.Validate()
}

// Validate checks app classes, link syntax, and the JSON schema.
func (cfg Config) Validate() error {
	for name, ac := range cfg.Apps {
		if _, ok := classes[ac.Class]; !ok {
			return fmt.Errorf("%w %q in app %s", ErrUnknownClass, ac.Class, name)
		}
	}
	for class := range cfg.ClassDefaults {
		if _, ok := classes[class]; !ok {
			return fmt.Errorf("%w %q in classDefaults", ErrUnknownClass, class)
		}
	}
	for _, s := range cfg.Links {
		id, e := ParseLink(s)
		if e != nil {
			return e
		}
		for _, app := range []string{id.From, id.To} {
			if _, ok := cfg.Apps[app]; !ok {
				return fmt.Errorf("link %s references undefined app %s", s, app)
			}
		}
	}
	return checkSchema(cfg)
}

// AppArgs returns the effective args of an app, after merging class defaults.
func (cfg Config) AppArgs(name string) map[string]any {
	ac, ok := cfg.Apps[name]
	if !ok {
		return nil
	}
	dflt := cfg.ClassDefaults[ac.Class]
	if len(dflt) == 0 {
		return ac.Args
	}
	return mergemap.Merge(cloneArgs(dflt), cloneArgs(ac.Args))
}

func cloneArgs(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			v = cloneArgs(sub)
		}
		c[k] = v
	}
	return c
}

func (cfg Config) linkIDs() map[link.ID]bool {
	m := map[link.ID]bool{}
	for _, s := range cfg.Links {
		if id, e := ParseLink(s); e == nil {
			m[id] = true
		}
	}
	return m
}

var linkRegexp = regexp.MustCompile(`^\s*([^.\s]+)\.([^.\s]+)\s*->\s*([^.\s]+)\.([^.\s]+)\s*$`)

// ParseLink parses a link specification like "app1.output -> app2.input".
func ParseLink(s string) (id link.ID, e error) {
	m := linkRegexp.FindStringSubmatch(s)
	if m == nil {
		return id, fmt.Errorf("%w %q", ErrLinkSyntax, s)
	}
	return link.ID{From: m[1], FromPort: m[2], To: m[3], ToPort: m[4]}, nil
}
