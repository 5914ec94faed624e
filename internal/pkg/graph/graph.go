package graph

import (
	"errors"
	"fmt"

	"github.com/ohowland/pdn_core/internal/pkg/project"
)

var (
	ErrCycle        = errors.New("graph contains a cycle")
	ErrNodeExists   = errors.New("node already exists in graph")
	ErrNodeNotFound = errors.New("node does not exist in graph")
	ErrEdgeExists   = errors.New("edge already exists in graph")
	ErrNilNode      = errors.New("nil node")
)

// Graph indexes the nodes and edges of one project level. Insertion order is
// kept so every traversal is deterministic.
type Graph struct {
	nodeOrder []string
	edgeOrder []string
	nodes     map[string]project.Node
	edges     map[string]project.Edge
	outgoing  map[string][]string
	incoming  map[string][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]project.Node),
		edges:    make(map[string]project.Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// New builds a graph from flat node and edge lists. Entries that cannot be
// added (duplicate ids, dangling edges) are skipped and returned as errors.
func New(nodes []project.Node, edges []project.Edge) (*Graph, []error) {
	g := NewGraph()
	var issues []error
	for i, n := range nodes {
		if err := g.AddNode(n); errors.Is(err, ErrNilNode) {
			issues = append(issues, fmt.Errorf("node %d skipped: %w", i, err))
		} else if err != nil {
			issues = append(issues, err)
		}
	}
	for i, e := range edges {
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s->%s#%d", e.From, e.To, i)
		}
		if err := g.AddDirectedEdge(e); err != nil {
			issues = append(issues, err)
		}
	}
	return g, issues
}

// AddNode adds n to the graph.
func (g *Graph) AddNode(n project.Node) error {
	if project.IsNil(n) {
		return ErrNilNode
	}
	id := n.Header().ID
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %q", ErrNodeExists, id)
	}
	g.nodes[id] = n
	g.nodeOrder = append(g.nodeOrder, id)
	g.outgoing[id] = make([]string, 0)
	g.incoming[id] = make([]string, 0)
	return nil
}

// AddDirectedEdge connects e.From to e.To.
func (g *Graph) AddDirectedEdge(e project.Edge) error {
	if _, exists := g.edges[e.ID]; exists {
		return fmt.Errorf("%w: %q", ErrEdgeExists, e.ID)
	}
	if _, exists := g.nodes[e.From]; !exists {
		return fmt.Errorf("edge %q: start %w: %q", e.ID, ErrNodeNotFound, e.From)
	}
	if _, exists := g.nodes[e.To]; !exists {
		return fmt.Errorf("edge %q: end %w: %q", e.ID, ErrNodeNotFound, e.To)
	}
	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.ID)
	g.incoming[e.To] = append(g.incoming[e.To], e.ID)
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (project.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (project.Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.nodeOrder...)
}

// EdgeIDs returns edge ids in insertion order.
func (g *Graph) EdgeIDs() []string {
	return append([]string(nil), g.edgeOrder...)
}

// Outgoing returns the edges leaving node id.
func (g *Graph) Outgoing(id string) []project.Edge {
	return g.collect(g.outgoing[id])
}

// Incoming returns the edges entering node id.
func (g *Graph) Incoming(id string) []project.Edge {
	return g.collect(g.incoming[id])
}

func (g *Graph) collect(ids []string) []project.Edge {
	edges := make([]project.Edge, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, g.edges[id])
	}
	return edges
}

// TopologicalOrder orders nodes parents-first using Kahn's algorithm, seeded
// in insertion order. ErrCycle is returned when some nodes can never be emitted.
func (g *Graph) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, id := range g.nodeOrder {
		inDegree[id] = len(g.incoming[id])
	}

	queue := make([]string, 0, len(g.nodes))
	for _, id := range g.nodeOrder {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, eid := range g.outgoing[id] {
			child := g.edges[eid].To
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) < len(g.nodes) {
		return order, fmt.Errorf("%w: ordered %d of %d nodes", ErrCycle, len(order), len(g.nodes))
	}
	return order, nil
}

// ReverseTopologicalOrder orders nodes children-first.
func (g *Graph) ReverseTopologicalOrder() ([]string, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
