package pipeline

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pktgraph/pktgraph/link"
)

// Plan lists the changes that transform one configuration into another.
type Plan struct {
	Create      []string  `json:"create,omitempty"`
	Replace     []string  `json:"replace,omitempty"`
	Reconfigure []string  `json:"reconfigure,omitempty"`
	Delete      []string  `json:"delete,omitempty"`
	Connect     []link.ID `json:"connect,omitempty"`
	Disconnect  []link.ID `json:"disconnect,omitempty"`

	target Config
}

// Empty determines whether the plan has no changes.
func (plan Plan) Empty() bool {
	return len(plan.Create)+len(plan.Replace)+len(plan.Reconfigure)+len(plan.Delete)+
		len(plan.Connect)+len(plan.Disconnect) == 0
}

var argsEqual = cmpopts.EquateEmpty()

// Diff computes the plan from old to new.
// It does not inspect or modify any graph.
//
// An app whose class changed is replaced.
// An app whose args changed is reconfigured; Apply falls back to replacing it if it cannot absorb new args.
// Links touching a replaced app are disconnected and connected again.
func Diff(old, new Config) (plan Plan) {
	plan.target = new
	replaced := map[string]bool{}
	for name, nac := range new.Apps {
		oac, ok := old.Apps[name]
		switch {
		case !ok:
			plan.Create = append(plan.Create, name)
		case oac.Class != nac.Class:
			plan.Replace = append(plan.Replace, name)
			replaced[name] = true
		case !cmp.Equal(old.AppArgs(name), new.AppArgs(name), argsEqual):
			plan.Reconfigure = append(plan.Reconfigure, name)
		}
	}
	for name := range old.Apps {
		if _, ok := new.Apps[name]; !ok {
			plan.Delete = append(plan.Delete, name)
			replaced[name] = true
		}
	}

	touches := func(id link.ID) bool { return replaced[id.From] || replaced[id.To] }
	oldLinks, newLinks := old.linkIDs(), new.linkIDs()
	for id := range oldLinks {
		if !newLinks[id] || touches(id) {
			plan.Disconnect = append(plan.Disconnect, id)
		}
	}
	for id := range newLinks {
		if !oldLinks[id] || touches(id) {
			plan.Connect = append(plan.Connect, id)
		}
	}

	sort.Strings(plan.Create)
	sort.Strings(plan.Replace)
	sort.Strings(plan.Reconfigure)
	sort.Strings(plan.Delete)
	sortLinks(plan.Connect)
	sortLinks(plan.Disconnect)
	return plan
}

func sortLinks(list []link.ID) {
	sort.Slice(list, func(i, j int) bool { return list[i].String() < list[j].String() })
}
