package summary

import (
	"math"
	"testing"

	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"gotest.tools/v3/assert"
)

func approx(t *testing.T, got, want float64) {
	t.Helper()
	assert.Assert(t, math.Abs(got-want) < 1e-9, "got %v, want %v", got, want)
}

func link(id, from, to string, mOhm float64) project.Edge {
	return project.Edge{ID: id, From: from, To: to, Interconnect: &project.Interconnect{RMilliohm: mOhm}}
}

func chain() *project.Project {
	return &project.Project{
		ID: "chain",
		Nodes: []project.Node{
			&project.Source{Base: project.Base{ID: "src"}, Vnom: 12},
			&project.Converter{Base: project.Base{ID: "conv", Name: "5V buck"}, VinMin: 10, VinMax: 14, Vout: 5,
				Efficiency: project.FixedEfficiency(0.9)},
			&project.Bus{Base: project.Base{ID: "fuse"}, RMilliohm: 50},
			&project.Load{Base: project.Base{ID: "ld"}, Vreq: 5, Ityp: 3},
		},
		Edges: []project.Edge{
			link("e1", "src", "conv", 100),
			link("e2", "conv", "fuse", 10),
			link("e3", "fuse", "ld", 20),
		},
	}
}

func TestBuildChain(t *testing.T) {
	p := chain()
	res := powerflow.Compute(p)
	entries := Build(p, res)

	assert.Equal(t, len(entries), 2)
	conv, fuse := entries[0], entries[1]

	assert.Equal(t, conv.NodeID, "conv")
	assert.Equal(t, conv.Name, "5V buck")
	assert.Equal(t, conv.Kind, project.KindConverter)
	assert.Equal(t, conv.Location, "chain")
	assert.Equal(t, conv.Multiplier, 1)
	approx(t, conv.POut, res.Nodes["conv"].POut)
	approx(t, conv.Loss, res.Nodes["conv"].Loss)
	approx(t, conv.DownstreamEdgeLoss, res.Edges["e2"].PLoss+res.Edges["e3"].PLoss)

	assert.Equal(t, fuse.Kind, project.KindBus)
	approx(t, fuse.DownstreamEdgeLoss, res.Edges["e3"].PLoss)
	assert.Assert(t, fuse.DownstreamEdgeLoss > 0)
}

func TestBuildComputesWhenResultMissing(t *testing.T) {
	p := chain()
	assert.DeepEqual(t, Build(p, nil), Build(p, powerflow.Compute(p)))
	assert.Equal(t, len(Build(nil, nil)), 0)
}

func nested(n int) *project.Project {
	inner := &project.Project{
		ID:   "board",
		Name: "board",
		Nodes: []project.Node{
			&project.SubsystemInput{Base: project.Base{ID: "in"}, Vout: 12},
			&project.Converter{Base: project.Base{ID: "buck"}, VinMin: 10, VinMax: 14, Vout: 5,
				Efficiency: project.FixedEfficiency(0.9)},
			&project.Load{Base: project.Base{ID: "soc"}, Vreq: 5, Ityp: 2},
		},
		Edges: []project.Edge{
			link("i1", "in", "buck", 40),
			link("i2", "buck", "soc", 0),
		},
	}
	return &project.Project{
		ID:   "rack",
		Name: "rack",
		Nodes: []project.Node{
			&project.Source{Base: project.Base{ID: "src"}, Vnom: 48},
			&project.Converter{Base: project.Base{ID: "ibc"}, VinMin: 40, VinMax: 56, Vout: 12,
				Efficiency: project.FixedEfficiency(0.95)},
			&project.Subsystem{Base: project.Base{ID: "sub", Name: "board"}, InputVnom: 12,
				NumParalleledSystems: n, Project: inner},
		},
		Edges: []project.Edge{
			link("e1", "src", "ibc", 0),
			{ID: "feed", From: "ibc", To: "sub", ToHandle: "in", Interconnect: &project.Interconnect{RMilliohm: 100}},
		},
	}
}

func TestBuildNested(t *testing.T) {
	p := nested(2)
	res := powerflow.Compute(p)
	entries := Build(p, res)

	assert.Equal(t, len(entries), 2)
	ibc, buck := entries[0], entries[1]

	inner := res.Nodes["sub"].Inner
	assert.Assert(t, inner != nil)

	assert.Equal(t, ibc.Location, "rack")
	approx(t, ibc.DownstreamEdgeLoss, res.Edges["feed"].PLoss+2*inner.Edges["i1"].PLoss)

	assert.Equal(t, buck.Location, "rack.board")
	assert.Equal(t, buck.Multiplier, 2)
	assert.Equal(t, buck.NodeID, "buck")
	approx(t, buck.POut, 10)
	approx(t, buck.DownstreamEdgeLoss, 0)
}

func TestBuildNestedMultiplierAccumulates(t *testing.T) {
	outer := nested(3)
	p := &project.Project{
		Name: "hall",
		Nodes: []project.Node{
			&project.Source{Base: project.Base{ID: "grid"}, Vnom: 48},
			&project.Subsystem{Base: project.Base{ID: "row"}, InputVnom: 48, NumParalleledSystems: 2, Project: &project.Project{
				Name: "rack",
				Nodes: []project.Node{
					&project.SubsystemInput{Base: project.Base{ID: "src"}, Vout: 48},
					outer.Nodes[1],
					outer.Nodes[2],
				},
				Edges: outer.Edges,
			}},
		},
		Edges: []project.Edge{link("g", "grid", "row", 0)},
	}

	entries := Build(p, nil)
	assert.Equal(t, len(entries), 2)
	assert.Equal(t, entries[0].Location, "hall.row")
	assert.Equal(t, entries[0].Multiplier, 2)
	assert.Equal(t, entries[1].Location, "hall.row.board")
	assert.Equal(t, entries[1].Multiplier, 6)
}

func TestBuildDual(t *testing.T) {
	p := &project.Project{
		Name: "pmic",
		Nodes: []project.Node{
			&project.Source{Base: project.Base{ID: "src"}, Vnom: 12},
			&project.DualOutputConverter{Base: project.Base{ID: "dual"}, VinMin: 10, VinMax: 14,
				Outputs: []project.ConverterOutput{
					{ID: "a", Vout: 5, Efficiency: project.FixedEfficiency(0.9)},
					{ID: "b", Vout: 3.3, Efficiency: project.FixedEfficiency(0.85)},
				}},
			&project.Load{Base: project.Base{ID: "la"}, Vreq: 5, Ityp: 1},
			&project.Load{Base: project.Base{ID: "lb"}, Vreq: 3.3, Ityp: 2},
		},
		Edges: []project.Edge{
			link("e0", "src", "dual", 0),
			{ID: "ea", From: "dual", To: "la", FromHandle: "a", Interconnect: &project.Interconnect{RMilliohm: 100}},
			{ID: "eb", From: "dual", To: "lb", FromHandle: "b", Interconnect: &project.Interconnect{RMilliohm: 50}},
		},
	}

	res := powerflow.Compute(p)
	entries := Build(p, res)
	assert.Equal(t, len(entries), 1)

	e := entries[0]
	assert.Equal(t, len(e.Outputs), 2)
	approx(t, e.Outputs[0].DownstreamEdgeLoss, res.Edges["ea"].PLoss)
	approx(t, e.Outputs[1].DownstreamEdgeLoss, res.Edges["eb"].PLoss)
	approx(t, e.Outputs[1].POut, 6.6)
	approx(t, e.DownstreamEdgeLoss, res.Edges["ea"].PLoss+res.Edges["eb"].PLoss)
}

func TestBuildTerminatesOnCycle(t *testing.T) {
	p := &project.Project{
		Name: "loop",
		Nodes: []project.Node{
			&project.Bus{Base: project.Base{ID: "b1"}, RMilliohm: 1},
			&project.Bus{Base: project.Base{ID: "b2"}, RMilliohm: 1},
		},
		Edges: []project.Edge{
			link("x", "b1", "b2", 1),
			link("y", "b2", "b1", 1),
		},
	}

	entries := Build(p, nil)
	assert.Equal(t, len(entries), 2)
	for _, e := range entries {
		assert.Equal(t, e.DownstreamEdgeLoss, 0.0)
	}
}
