package graph

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/ohowland/pdn_core/internal/pkg/project"
)

func load(id string) project.Node {
	return &project.Load{Base: project.Base{ID: id}, Vreq: 5, Ityp: 1}
}

func edge(id, from, to string) project.Edge {
	return project.Edge{ID: id, From: from, To: to}
}

func TestAddNode(t *testing.T) {
	g := NewGraph()
	assert.NilError(t, g.AddNode(load("a")))

	err := g.AddNode(load("a"))
	assert.Assert(t, errors.Is(err, ErrNodeExists))
	assert.Equal(t, len(g.NodeIDs()), 1)
}

func TestNilNodesRejected(t *testing.T) {
	g := NewGraph()
	var typed *project.Source
	assert.Assert(t, errors.Is(g.AddNode(nil), ErrNilNode))
	assert.Assert(t, errors.Is(g.AddNode(typed), ErrNilNode))

	g, issues := New([]project.Node{load("a"), nil}, nil)
	assert.Equal(t, len(issues), 1)
	assert.Assert(t, errors.Is(issues[0], ErrNilNode))
	assert.ErrorContains(t, issues[0], "node 1 skipped")
	assert.DeepEqual(t, g.NodeIDs(), []string{"a"})
}

func TestAddDirectedEdge(t *testing.T) {
	g := NewGraph()
	assert.NilError(t, g.AddNode(load("a")))
	assert.NilError(t, g.AddNode(load("b")))

	assert.NilError(t, g.AddDirectedEdge(edge("e1", "a", "b")))
	assert.Assert(t, errors.Is(g.AddDirectedEdge(edge("e1", "a", "b")), ErrEdgeExists))
	assert.Assert(t, errors.Is(g.AddDirectedEdge(edge("e2", "a", "z")), ErrNodeNotFound))
	assert.Assert(t, errors.Is(g.AddDirectedEdge(edge("e3", "z", "a")), ErrNodeNotFound))

	out := g.Outgoing("a")
	assert.Equal(t, len(out), 1)
	assert.Equal(t, out[0].To, "b")
	assert.Equal(t, len(g.Incoming("b")), 1)
	assert.Equal(t, len(g.Outgoing("b")), 0)
}

func TestNewCollectsIssues(t *testing.T) {
	nodes := []project.Node{load("a"), load("b"), load("a")}
	edges := []project.Edge{edge("e1", "a", "b"), edge("e2", "b", "missing"), {From: "a", To: "b"}}

	g, issues := New(nodes, edges)
	assert.Equal(t, len(issues), 2)
	assert.Equal(t, len(g.NodeIDs()), 2)
	assert.DeepEqual(t, g.EdgeIDs(), []string{"e1", "a->b#2"})
}

func TestTopologicalOrder(t *testing.T) {
	nodes := []project.Node{load("load"), load("conv"), load("src")}
	edges := []project.Edge{edge("e1", "src", "conv"), edge("e2", "conv", "load")}

	g, issues := New(nodes, edges)
	assert.Equal(t, len(issues), 0)

	order, err := g.TopologicalOrder()
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"src", "conv", "load"})

	reverse, err := g.ReverseTopologicalOrder()
	assert.NilError(t, err)
	assert.DeepEqual(t, reverse, []string{"load", "conv", "src"})
}

func TestTopologicalOrderIsDeterministic(t *testing.T) {
	nodes := []project.Node{load("b"), load("a"), load("c")}
	g, _ := New(nodes, nil)

	order, err := g.TopologicalOrder()
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"b", "a", "c"})
}

func TestCycleDetected(t *testing.T) {
	nodes := []project.Node{load("a"), load("b"), load("c")}
	edges := []project.Edge{edge("e1", "a", "b"), edge("e2", "b", "a"), edge("e3", "c", "a")}

	g, _ := New(nodes, edges)
	_, err := g.TopologicalOrder()
	assert.Assert(t, errors.Is(err, ErrCycle))

	_, err = g.ReverseTopologicalOrder()
	assert.Assert(t, errors.Is(err, ErrCycle))
}

func TestSelfLoopIsCycle(t *testing.T) {
	g, _ := New([]project.Node{load("a")}, []project.Edge{edge("e1", "a", "a")})
	_, err := g.TopologicalOrder()
	assert.Assert(t, errors.Is(err, ErrCycle))
}
