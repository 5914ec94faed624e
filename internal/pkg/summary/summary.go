/*
summary.go Flattens a computed tree into one entry per conversion or
distribution stage, including the stages of every nested subsystem.
*/

package summary

import (
	"github.com/ohowland/pdn_core/internal/pkg/graph"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"github.com/ohowland/pdn_core/internal/pkg/project"
)

// Entry is one Converter, DualOutputConverter or Bus.
type Entry struct {
	Location   string       `json:"location"`
	Multiplier int          `json:"multiplier"`
	NodeID     string       `json:"nodeId"`
	Name       string       `json:"name"`
	Kind       project.Kind `json:"kind"`
	PIn        float64      `json:"P_in"`
	POut       float64      `json:"P_out"`
	IIn        float64      `json:"I_in"`
	IOut       float64      `json:"I_out"`
	Loss       float64      `json:"loss"`
	Efficiency float64      `json:"efficiency,omitempty"`
	Outputs    []Output     `json:"outputs,omitempty"`

	// DownstreamEdgeLoss is the interconnect dissipation between this stage
	// and the next conversion stage or load, per instance.
	DownstreamEdgeLoss float64  `json:"downstreamEdgeLoss"`
	Warnings           []string `json:"warnings"`
}

// Output is one branch of a DualOutputConverter entry.
type Output struct {
	ID                 string  `json:"id"`
	Label              string  `json:"label"`
	Vout               float64 `json:"Vout"`
	PIn                float64 `json:"P_in"`
	POut               float64 `json:"P_out"`
	IOut               float64 `json:"I_out"`
	Loss               float64 `json:"loss"`
	Efficiency         float64 `json:"efficiency"`
	DownstreamEdgeLoss float64 `json:"downstreamEdgeLoss"`
}

// Build summarizes p using the default engine. res is computed when nil.
func Build(p *project.Project, res *powerflow.Result) []Entry {
	return BuildWith(powerflow.Default(), p, res)
}

// BuildWith summarizes p, expanding subsystems with e.
func BuildWith(e *powerflow.Engine, p *project.Project, res *powerflow.Result) []Entry {
	entries := []Entry{}
	if p == nil {
		return entries
	}
	if res == nil {
		res = e.Compute(p)
	}
	w := &walker{
		engine:     e,
		scenario:   res.Scenario,
		expansions: make(map[string]powerflow.Expansion),
	}
	w.level(location(p), 1, p, res, 0)
	return append(entries, w.entries...)
}

func location(p *project.Project) string {
	switch {
	case p.Name != "":
		return p.Name
	case p.ID != "":
		return p.ID
	}
	return "project"
}

type walker struct {
	engine   *powerflow.Engine
	scenario project.Scenario
	entries  []Entry

	expansions map[string]powerflow.Expansion
}

func (w *walker) level(loc string, mult int, p *project.Project, res *powerflow.Result, depth int) {
	g, _ := graph.New(p.Nodes, p.Edges)
	for _, id := range g.NodeIDs() {
		nr, ok := res.Nodes[id]
		if !ok {
			continue
		}
		switch n := nr.Node.(type) {
		case *project.Converter, *project.Bus:
			e := newEntry(loc, mult, nr)
			e.DownstreamEdgeLoss = w.downstream(loc, g, res, g.Outgoing(id), depth, visited{})
			w.entries = append(w.entries, e)
		case *project.DualOutputConverter:
			w.entries = append(w.entries, w.dual(loc, mult, g, res, nr, n, depth))
		case *project.Subsystem:
			x := w.expand(loc, n, depth)
			if x.Result == nil {
				continue
			}
			w.level(loc+"."+n.Label(), mult*x.Multiplier, x.Project, x.Result, depth+1)
		}
	}
}

func newEntry(loc string, mult int, nr *powerflow.NodeResult) Entry {
	return Entry{
		Location:   loc,
		Multiplier: mult,
		NodeID:     nr.ID,
		Name:       nr.Name,
		Kind:       nr.Kind,
		PIn:        nr.PIn,
		POut:       nr.POut,
		IIn:        nr.IIn,
		IOut:       nr.IOut,
		Loss:       nr.Loss,
		Efficiency: nr.Efficiency,
		Warnings:   append([]string{}, nr.Warnings...),
	}
}

func (w *walker) dual(loc string, mult int, g *graph.Graph, res *powerflow.Result, nr *powerflow.NodeResult, n *project.DualOutputConverter, depth int) Entry {
	e := newEntry(loc, mult, nr)
	groups := make([][]project.Edge, len(n.Outputs))
	for _, edge := range g.Outgoing(nr.ID) {
		idx := 0
		for i, o := range n.Outputs {
			if o.ID == edge.FromHandle {
				idx = i
				break
			}
		}
		if len(groups) > 0 {
			groups[idx] = append(groups[idx], edge)
		}
	}
	for i, b := range nr.Outputs {
		out := Output{
			ID:         b.ID,
			Label:      b.Label,
			Vout:       b.Vout,
			PIn:        b.PIn,
			POut:       b.POut,
			IOut:       b.IOut,
			Loss:       b.Loss,
			Efficiency: b.Efficiency,
		}
		if i < len(groups) {
			out.DownstreamEdgeLoss = w.downstream(loc, g, res, groups[i], depth, visited{})
		}
		e.DownstreamEdgeLoss += out.DownstreamEdgeLoss
		e.Outputs = append(e.Outputs, out)
	}
	return e
}

// visited is keyed by location and edge id so a malformed tree is walked once per entry.
type visited map[string]bool

// downstream sums interconnect loss from edges onwards. The walk passes
// through buses, subsystem inputs and notes and enters subsystems at the
// matching input port; it stops at anything else.
func (w *walker) downstream(loc string, g *graph.Graph, res *powerflow.Result, edges []project.Edge, depth int, seen visited) float64 {
	total := 0.0
	for _, e := range edges {
		key := loc + "/" + e.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		if er, ok := res.Edges[e.ID]; ok {
			total += er.PLoss
		}
		child, ok := res.Nodes[e.To]
		if !ok {
			continue
		}

		switch n := child.Node.(type) {
		case *project.Bus, *project.SubsystemInput, *project.Note:
			total += w.downstream(loc, g, res, g.Outgoing(e.To), depth, seen)
		case *project.Subsystem:
			total += w.enter(loc, n, e.ToHandle, depth, seen)
		}
	}
	return total
}

func (w *walker) enter(loc string, sub *project.Subsystem, handle string, depth int, seen visited) float64 {
	x := w.expand(loc, sub, depth)
	if x.Result == nil {
		return 0
	}
	ports := x.Inputs
	for _, port := range x.Inputs {
		if handle != "" && port.ID == handle {
			ports = []powerflow.Port{port}
			break
		}
	}

	inner := loc + "." + sub.Label()
	g, _ := graph.New(x.Project.Nodes, x.Project.Edges)
	total := 0.0
	for _, port := range ports {
		total += w.downstream(inner, g, x.Result, g.Outgoing(port.ID), depth+1, seen)
	}
	return total * float64(x.Multiplier)
}

// expand recomputes a subsystem once per location.
func (w *walker) expand(loc string, sub *project.Subsystem, depth int) powerflow.Expansion {
	key := loc + "/" + sub.ID
	if x, ok := w.expansions[key]; ok {
		return x
	}
	x := w.engine.Expand(sub, w.scenario, depth+1)
	w.expansions[key] = x
	return x
}
