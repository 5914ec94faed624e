package powerflow

import (
	"math"

	"github.com/ohowland/pdn_core/internal/pkg/efficiency"
	"github.com/ohowland/pdn_core/internal/pkg/project"
)

// propagate computes one node from its already computed children.
func (lv *level) propagate(id string) {
	nr := lv.nodes[id]
	switch n := nr.Node.(type) {
	case *project.Load:
		lv.load(nr, n)
	case *project.Converter:
		lv.applyConverter(nr, n, lv.childPower(lv.graph.Outgoing(id)))
	case *project.DualOutputConverter:
		lv.dual(nr, n)
	case *project.Bus:
		lv.bus(nr, n)
	case *project.Subsystem:
		lv.subsystem(nr, n)
	case *project.Source:
		lv.supply(nr, n.Vnom)
	case *project.SubsystemInput:
		lv.supply(nr, n.Vout)
	case *project.Note:
	}
}

func (lv *level) load(nr *NodeResult, n *project.Load) {
	i := nonNegative(n.Current(lv.scenario))
	p := nonNegative(n.Vreq * i)
	nr.IIn, nr.IOut = i, i
	nr.PIn, nr.POut = p, p
}

// stage is one conversion step: output power in, input power out.
type stage struct {
	POut float64
	IOut float64
	PIn  float64
	Loss float64
	Eta  float64
}

func convert(pOut, vout float64, model *project.EfficiencyModel, r efficiency.Ratings) stage {
	s := stage{POut: pOut}
	if vout > 0 {
		s.IOut = pOut / vout
	}
	s.Eta = efficiency.Eta(model, s.POut, s.IOut, r)
	s.PIn = s.POut / s.Eta
	s.Loss = s.PIn - s.POut
	return s
}

func (lv *level) applyConverter(nr *NodeResult, n *project.Converter, pOut float64) {
	s := convert(pOut, n.Vout, n.Efficiency, efficiency.ConverterRatings(n))
	nr.POut, nr.IOut, nr.PIn, nr.Loss, nr.Efficiency = s.POut, s.IOut, s.PIn, s.Loss, s.Eta
	nr.IIn = 0
	if vin := n.VinMid(); vin > 0 {
		nr.IIn = nr.PIn / vin
	}
}

func (lv *level) dual(nr *NodeResult, n *project.DualOutputConverter) {
	groups := lv.branchEdges(nr.ID, n)
	pOut := make([]float64, len(n.Outputs))
	for i := range n.Outputs {
		pOut[i] = lv.childPower(groups[i])
	}
	lv.applyDual(nr, n, pOut)
}

func (lv *level) applyDual(nr *NodeResult, n *project.DualOutputConverter, pOut []float64) {
	nr.Outputs = make([]BranchResult, len(n.Outputs))
	nr.POut, nr.PIn, nr.IOut, nr.Loss, nr.IIn, nr.Efficiency = 0, 0, 0, 0, 0, 0
	for i, o := range n.Outputs {
		s := convert(pOut[i], o.Vout, o.Efficiency, efficiency.OutputRatings(o))
		nr.Outputs[i] = BranchResult{
			ID:         o.ID,
			Label:      o.Name(),
			Vout:       o.Vout,
			PIn:        s.PIn,
			POut:       s.POut,
			IOut:       s.IOut,
			Loss:       s.Loss,
			Efficiency: s.Eta,
			Warnings:   []string{},
		}
		nr.POut += s.POut
		nr.PIn += s.PIn
		nr.IOut += s.IOut
		nr.Loss += s.Loss
	}
	if vin := n.VinMid(); vin > 0 {
		nr.IIn = nr.PIn / vin
	}
	if nr.PIn > 0 {
		nr.Efficiency = nr.POut / nr.PIn
	}
}

// branchEdges groups outgoing edges by output branch. Edges whose handle
// names no output are attributed to the first output.
func (lv *level) branchEdges(id string, n *project.DualOutputConverter) [][]project.Edge {
	groups := make([][]project.Edge, len(n.Outputs))
	if len(n.Outputs) == 0 {
		return groups
	}
	for _, e := range lv.graph.Outgoing(id) {
		idx := branchIndex(n, e)
		if idx < 0 {
			lv.note(id, "edge %q uses unknown output handle %q; attributed to %s", e.ID, e.FromHandle, n.Outputs[0].Name())
			idx = 0
		}
		groups[idx] = append(groups[idx], e)
	}
	return groups
}

func branchIndex(n *project.DualOutputConverter, e project.Edge) int {
	for i, o := range n.Outputs {
		if o.ID == e.FromHandle {
			return i
		}
	}
	return -1
}

func (lv *level) bus(nr *NodeResult, n *project.Bus) {
	edges := lv.graph.Outgoing(nr.ID)
	nr.POut = lv.childPower(edges)
	nr.IOut = lv.childCurrent(edges)
	nr.Loss = nr.IOut * nr.IOut * n.Resistance()
	nr.PIn = nr.POut + nr.Loss
	nr.IIn = nr.IOut
}

// supply computes a Source or top-level SubsystemInput from child currents.
// finalizeSources replaces these figures once edge losses are known.
func (lv *level) supply(nr *NodeResult, v float64) {
	nr.IOut = lv.childCurrent(lv.graph.Outgoing(nr.ID))
	nr.IIn = nr.IOut
	nr.POut = nr.IOut * v
	nr.PIn = nr.POut
}

func (lv *level) subsystem(nr *NodeResult, n *project.Subsystem) {
	x := lv.engine.Expand(n, lv.scenario, lv.depth+1)
	for _, w := range x.Warnings {
		lv.note(nr.ID, "%s", w)
	}
	nr.VIn = x.Voltage
	if x.Result == nil {
		return
	}

	m := float64(x.Multiplier)
	nr.Inner = x.Result
	nr.PIn = x.Result.TotalSourcePower * m
	nr.POut = x.Result.TotalLoadPower * m
	nr.Loss = nonNegative(nr.PIn - nr.POut)
	if len(x.Inputs) > 0 {
		nr.Ports = make(map[string]float64, len(x.Inputs))
		for _, port := range x.Inputs {
			if inner, ok := x.Result.Nodes[port.ID]; ok {
				nr.Ports[port.ID] = inner.PIn * m
			}
		}
	}
	if x.Voltage > 0 {
		nr.IIn = nr.PIn / x.Voltage
		nr.IOut = nr.POut / x.Voltage
	}
	for _, w := range x.Result.GlobalWarnings {
		lv.note(nr.ID, "inner: %s", w)
	}
}

func (lv *level) childPower(edges []project.Edge) float64 {
	total := 0.0
	for _, e := range edges {
		total += lv.nodes[e.To].PIn
	}
	return total
}

func (lv *level) childCurrent(edges []project.Edge) float64 {
	total := 0.0
	for _, e := range edges {
		total += lv.nodes[e.To].IIn
	}
	return total
}

func (lv *level) edgeLoss(edges []project.Edge, keep func(project.Edge) bool) float64 {
	total := 0.0
	for _, e := range edges {
		if keep == nil || keep(e) {
			total += lv.edges[e.ID].PLoss
		}
	}
	return total
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
