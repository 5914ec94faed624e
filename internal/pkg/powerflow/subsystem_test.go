package powerflow

import (
	"testing"

	"github.com/ohowland/pdn_core/internal/pkg/project"
	"gotest.tools/v3/assert"
)

func innerProject() *project.Project {
	return &project.Project{
		ID:   "board",
		Name: "board",
		Nodes: []project.Node{
			&project.SubsystemInput{Base: project.Base{ID: "in"}, Vout: 12},
			converter("buck", 5, 0.9),
			load("soc", 5, 2),
		},
		Edges: []project.Edge{
			edge("i1", "in", "buck", 0),
			edge("i2", "buck", "soc", 0),
		},
	}
}

func subsystemProject(n int) *project.Project {
	return &project.Project{
		ID:   "rack",
		Name: "rack",
		Nodes: []project.Node{
			source("src", 12),
			&project.Subsystem{
				Base:                 project.Base{ID: "sub", Name: "board"},
				InputVnom:            12,
				NumParalleledSystems: n,
				Project:              innerProject(),
			},
		},
		Edges: []project.Edge{edge("feed", "src", "sub", 0)},
	}
}

func TestSubsystemRollUp(t *testing.T) {
	res := Compute(subsystemProject(1))

	sub := res.Nodes["sub"]
	assert.Assert(t, sub.PIn > sub.POut)
	assert.Assert(t, sub.POut > 0)
	approx(t, sub.POut, 10)
	approx(t, sub.PIn, 10/0.9)
	approx(t, sub.VIn, 12)
	approx(t, res.Edges["feed"].IEdge, sub.PIn/12)
	approx(t, sub.Ports["in"], sub.PIn)
	assert.Assert(t, sub.Inner != nil)
	assert.Equal(t, sub.Inner.Nodes["in"].Kind, project.KindSource)

	approx(t, res.TotalLoadPower, 10)
	approx(t, res.TotalSourcePower, 10/0.9)
	assert.Equal(t, res.WarningCount(), 0)
}

func TestSubsystemMultiplier(t *testing.T) {
	res := Compute(subsystemProject(3))

	sub := res.Nodes["sub"]
	approx(t, sub.POut, 30)
	approx(t, sub.PIn, 30/0.9)
	approx(t, sub.IIn, 30/0.9/12)
	approx(t, res.Nodes["src"].POut, 30/0.9)
}

func TestSubsystemFollowsParentScenario(t *testing.T) {
	p := subsystemProject(1)
	p.CurrentScenario = project.Max

	res := Compute(p)
	approx(t, res.Nodes["sub"].POut, 20)
	assert.Equal(t, res.Nodes["sub"].Inner.Scenario, project.Max)
}

func TestSubsystemDoesNotMutateInput(t *testing.T) {
	p := subsystemProject(1)
	Compute(p)

	inner := p.Nodes[1].(*project.Subsystem).Project
	_, ok := inner.Nodes[0].(*project.SubsystemInput)
	assert.Assert(t, ok)
	assert.Equal(t, inner.CurrentScenario, project.Scenario(""))
}

func TestSubsystemInputCount(t *testing.T) {
	p := subsystemProject(1)
	inner := p.Nodes[1].(*project.Subsystem).Project
	inner.Nodes = append(inner.Nodes, &project.SubsystemInput{Base: project.Base{ID: "in2"}, Vout: 12})

	res := Compute(p)
	sub := res.Nodes["sub"]
	assert.Assert(t, hasWarning(sub.Warnings, "exactly one subsystem input, found 2"))
	// with several inputs the nominal input voltage is used
	approx(t, sub.VIn, 12)
}

func TestSubsystemVoltageFallback(t *testing.T) {
	p := subsystemProject(1)
	sub := p.Nodes[1].(*project.Subsystem)
	sub.InputVnom = 24
	sub.Project.Nodes[0].(*project.SubsystemInput).Vout = 0

	res := Compute(p)
	approx(t, res.Nodes["sub"].VIn, 24)
}

func TestSubsystemWithoutProject(t *testing.T) {
	p := subsystemProject(1)
	p.Nodes[1].(*project.Subsystem).Project = nil

	res := Compute(p)
	sub := res.Nodes["sub"]
	assert.Assert(t, hasWarning(sub.Warnings, "no embedded project"))
	assert.Equal(t, sub.PIn, 0.0)
}

func TestSubsystemEdgeLossReconciled(t *testing.T) {
	p := subsystemProject(1)
	p.Nodes[0] = source("src", 48)
	p.Nodes = append(p.Nodes, &project.Converter{
		Base:       project.Base{ID: "ibc"},
		VinMin:     40,
		VinMax:     56,
		Vout:       12,
		Efficiency: project.FixedEfficiency(0.95),
	})
	p.Edges = []project.Edge{
		edge("e1", "src", "ibc", 0),
		edge("feed", "ibc", "sub", 100),
	}

	res := Compute(p)
	ibc := res.Nodes["ibc"]
	sub := res.Nodes["sub"]
	feed := res.Edges["feed"]
	assert.Assert(t, feed.PLoss > 0)
	approx(t, feed.IEdge, sub.PIn/12)
	approx(t, ibc.POut, sub.PIn+feed.PLoss)
	approx(t, ibc.PIn, ibc.POut/0.95)
	approx(t, res.Nodes["src"].POut, ibc.PIn)
}

func TestSelfNestingIsBounded(t *testing.T) {
	loop := &project.Subsystem{Base: project.Base{ID: "loop"}, InputVnom: 12}
	inner := &project.Project{
		ID: "recursive",
		Nodes: []project.Node{
			&project.SubsystemInput{Base: project.Base{ID: "in"}, Vout: 12},
			loop,
		},
		Edges: []project.Edge{edge("i1", "in", "loop", 0)},
	}
	loop.Project = inner

	p := &project.Project{
		Nodes: []project.Node{
			source("src", 12),
			&project.Subsystem{Base: project.Base{ID: "sub"}, InputVnom: 12, Project: inner},
		},
		Edges: []project.Edge{edge("feed", "src", "sub", 0)},
	}

	res := New(Config{MaxDepth: 3}).Compute(p)
	assert.Assert(t, hasWarning(allWarnings(res), "nesting depth 4 exceeds limit 3"))
}

func TestExpand(t *testing.T) {
	sub := subsystemProject(2).Nodes[1].(*project.Subsystem)

	x := std.Expand(sub, project.Idle, 1)
	assert.Equal(t, x.Multiplier, 2)
	assert.Equal(t, x.Voltage, 12.0)
	assert.DeepEqual(t, x.Inputs, []Port{{ID: "in", Voltage: 12}})
	assert.Equal(t, len(x.Warnings), 0)
	assert.Equal(t, x.Project.CurrentScenario, project.Idle)
	approx(t, x.Result.TotalLoadPower, 2)
}
