package powerflow

import "github.com/ohowland/pdn_core/internal/pkg/project"

// Result is the computed state of one project for one scenario. It is built
// fresh by every Compute call and is not modified afterwards.
type Result struct {
	ProjectID            string                 `json:"projectId"`
	ProjectName          string                 `json:"projectName"`
	Scenario             project.Scenario       `json:"scenario"`
	Nodes                map[string]*NodeResult `json:"nodes"`
	Edges                map[string]*EdgeResult `json:"edges"`
	Order                []string               `json:"order"`
	TotalLoadPower       float64                `json:"totalLoadPower"`
	CriticalLoadPower    float64                `json:"criticalLoadPower"`
	NonCriticalLoadPower float64                `json:"nonCriticalLoadPower"`
	TotalSourcePower     float64                `json:"totalSourcePower"`
	OverallEfficiency    float64                `json:"overallEfficiency"`
	GlobalWarnings       []string               `json:"globalWarnings"`
}

// NodeResult is a node together with its computed operating point.
type NodeResult struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Kind       project.Kind   `json:"kind"`
	Node       project.Node   `json:"node"`
	PIn        float64        `json:"P_in"`
	POut       float64        `json:"P_out"`
	IIn        float64        `json:"I_in"`
	IOut       float64        `json:"I_out"`
	Loss       float64        `json:"loss"`
	Efficiency float64        `json:"efficiency,omitempty"`
	VUpstream  float64        `json:"V_upstream,omitempty"`
	Outputs    []BranchResult `json:"outputs,omitempty"`

	// Subsystem only: resolved input voltage, input power per input port
	// (already multiplied by the parallel count) and the inner computation.
	VIn   float64            `json:"V_in,omitempty"`
	Ports map[string]float64 `json:"ports,omitempty"`
	Inner *Result            `json:"inner,omitempty"`

	Warnings []string `json:"warnings"`
}

// BranchResult is the operating point of one DualOutputConverter output.
type BranchResult struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Vout       float64  `json:"Vout"`
	PIn        float64  `json:"P_in"`
	POut       float64  `json:"P_out"`
	IOut       float64  `json:"I_out"`
	Loss       float64  `json:"loss"`
	Efficiency float64  `json:"efficiency"`
	Warnings   []string `json:"warnings"`
}

// EdgeResult is the resistive behaviour of one interconnect.
type EdgeResult struct {
	Edge      project.Edge `json:"edge"`
	IEdge     float64      `json:"I_edge"`
	VDrop     float64      `json:"V_drop"`
	PLoss     float64      `json:"P_loss_edge"`
	RTotal    float64      `json:"R_total"`
	VUpstream float64      `json:"V_upstream"`
}

func newResult(p *project.Project) *Result {
	r := &Result{
		Nodes:          make(map[string]*NodeResult),
		Edges:          make(map[string]*EdgeResult),
		Order:          []string{},
		GlobalWarnings: []string{},
	}
	if p != nil {
		r.ProjectID = p.ID
		r.ProjectName = p.Name
		r.Scenario = p.Scenario()
	}
	return r
}

func newNodeResult(n project.Node) *NodeResult {
	return &NodeResult{
		ID:       n.Header().ID,
		Name:     n.Label(),
		Kind:     n.Kind(),
		Node:     n,
		Warnings: []string{},
	}
}

// Node returns the computed node with the given id.
func (r *Result) Node(id string) (*NodeResult, bool) {
	n, ok := r.Nodes[id]
	return n, ok
}

// Edge returns the computed edge with the given id.
func (r *Result) Edge(id string) (*EdgeResult, bool) {
	e, ok := r.Edges[id]
	return e, ok
}

// WarningCount counts global and node warnings, including those of nested subsystems.
func (r *Result) WarningCount() int {
	if r == nil {
		return 0
	}
	count := len(r.GlobalWarnings)
	for _, n := range r.Nodes {
		count += len(n.Warnings) + n.Inner.WarningCount()
	}
	return count
}

// TotalEdgeLoss sums the dissipation of every interconnect at this level.
func (r *Result) TotalEdgeLoss() float64 {
	total := 0.0
	for _, e := range r.Edges {
		total += e.PLoss
	}
	return total
}
