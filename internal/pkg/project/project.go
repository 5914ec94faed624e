/*
project.go Representation of a power-distribution project. A Project holds the
electrical nodes and interconnects of one level of the tree; Subsystem nodes
embed further Projects.
*/

package project

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scenario selects the current a Load draws.
type Scenario string

const (
	Typical Scenario = "Typical"
	Max     Scenario = "Max"
	Idle    Scenario = "Idle"
)

// DefaultScenarios is used when a project does not list its own.
var DefaultScenarios = []Scenario{Typical, Max, Idle}

// IdleFactor scales the typical load current in the Idle scenario.
const IdleFactor = 0.2

// Units holds display labels. The engine always computes in V, A, W and mOhm.
type Units struct {
	Voltage    string `json:"voltage,omitempty"`
	Current    string `json:"current,omitempty"`
	Power      string `json:"power,omitempty"`
	Resistance string `json:"resistance,omitempty"`
}

// Margins are percentage safety buffers subtracted from ratings before a
// design-rule warning triggers. 10 means 10 %.
type Margins struct {
	CurrentPct       float64 `json:"currentPct"`
	PowerPct         float64 `json:"powerPct"`
	VoltageDropPct   float64 `json:"voltageDropPct"`
	VoltageMarginPct float64 `json:"voltageMarginPct"`
}

// Project is a named electrical system: nodes, edges, scenario set and margin configuration.
type Project struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Units           Units           `json:"units"`
	DefaultMargins  Margins         `json:"defaultMargins"`
	Scenarios       []Scenario      `json:"scenarios,omitempty"`
	CurrentScenario Scenario        `json:"currentScenario,omitempty"`
	Nodes           []Node          `json:"nodes"`
	Edges           []Edge          `json:"edges"`
	Markups         json.RawMessage `json:"markups,omitempty"`

	// Issues records substitutions made while decoding (missing or
	// malformed lists, unknown node types). Compute reports them as global warnings.
	Issues []string `json:"-"`
}

// ReadFile reads and decodes a project file.
func ReadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses a JSON project document.
func Decode(data []byte) (*Project, error) {
	p := &Project{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return p, nil
}

// Scenario returns the active scenario, Typical when none is set.
func (p *Project) Scenario() Scenario {
	if p.CurrentScenario == "" {
		return Typical
	}
	return p.CurrentScenario
}

// ScenarioList returns the configured scenarios, or DefaultScenarios.
func (p *Project) ScenarioList() []Scenario {
	if len(p.Scenarios) == 0 {
		return append([]Scenario(nil), DefaultScenarios...)
	}
	return append([]Scenario(nil), p.Scenarios...)
}

// Node returns the node with the given id.
func (p *Project) Node(id string) (Node, bool) {
	for _, n := range p.Nodes {
		if !IsNil(n) && n.Header().ID == id {
			return n, true
		}
	}
	return nil, false
}

// Inputs returns the SubsystemInput nodes of the project in node order.
func (p *Project) Inputs() []*SubsystemInput {
	inputs := make([]*SubsystemInput, 0, 1)
	for _, n := range p.Nodes {
		if in, ok := n.(*SubsystemInput); ok && in != nil {
			inputs = append(inputs, in)
		}
	}
	return inputs
}

// Clone returns a copy of this level: nodes, edges and efficiency models are
// copied, embedded subsystem projects are shared.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Scenarios = append([]Scenario(nil), p.Scenarios...)
	c.Issues = append([]string(nil), p.Issues...)
	if p.Markups != nil {
		c.Markups = append(json.RawMessage(nil), p.Markups...)
	}
	if p.Nodes != nil {
		c.Nodes = make([]Node, len(p.Nodes))
		for i, n := range p.Nodes {
			if IsNil(n) {
				continue
			}
			c.Nodes[i] = n.Clone()
		}
	}
	if p.Edges != nil {
		c.Edges = make([]Edge, len(p.Edges))
		for i, e := range p.Edges {
			c.Edges[i] = e.Clone()
		}
	}
	return &c
}

// UnmarshalJSON decodes a project leniently: a missing or malformed node or
// edge list becomes empty, and individual bad entries are skipped. Every
// substitution is recorded in Issues.
func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	raw := struct {
		*alias
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Nodes = nil
	p.Edges = nil

	nodes, issue := splitList("nodes", raw.Nodes)
	if issue != "" {
		p.Issues = append(p.Issues, issue)
	}
	for i, item := range nodes {
		n, err := DecodeNode(item)
		if err != nil {
			p.Issues = append(p.Issues, fmt.Sprintf("node %d skipped: %v", i, err))
			continue
		}
		p.Issues = append(p.Issues, malformedModels(n)...)
		p.Nodes = append(p.Nodes, n)
	}

	edges, issue := splitList("edges", raw.Edges)
	if issue != "" {
		p.Issues = append(p.Issues, issue)
	}
	for i, item := range edges {
		e := Edge{}
		if err := json.Unmarshal(item, &e); err != nil {
			p.Issues = append(p.Issues, fmt.Sprintf("edge %d skipped: %v", i, err))
			continue
		}
		p.Edges = append(p.Edges, e)
	}
	return nil
}

func splitList(name string, data json.RawMessage) ([]json.RawMessage, string) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Sprintf("%s list missing; treated as empty", name)
	}
	items := []json.RawMessage{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Sprintf("%s list malformed; treated as empty", name)
	}
	return items, ""
}
