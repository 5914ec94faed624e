package powerflow

import "github.com/ohowland/pdn_core/internal/pkg/project"

// resolveEdges computes current, drop and loss on every interconnect. Parents
// are visited first so a bus knows its own upstream voltage before feeding
// its children.
func (lv *level) resolveEdges(order []string) {
	for _, id := range order {
		parent := lv.nodes[id]
		for _, e := range lv.graph.Outgoing(id) {
			er := lv.edges[e.ID]
			child := lv.nodes[e.To]

			v := lv.upstreamVoltage(parent, e)
			er.RTotal = e.Resistance()
			er.VUpstream = v
			er.IEdge = edgeCurrent(child, e, v)
			er.VDrop = er.IEdge * er.RTotal
			er.PLoss = er.IEdge * er.IEdge * er.RTotal

			if v <= 0 {
				continue
			}
			// the weakest feed sets the child's upstream voltage
			vc := v - er.VDrop
			if !lv.resolved[e.To] || vc < child.VUpstream {
				child.VUpstream = vc
				lv.resolved[e.To] = true
			}
		}
	}
}

func (lv *level) upstreamVoltage(parent *NodeResult, e project.Edge) float64 {
	switch n := parent.Node.(type) {
	case *project.Source:
		return n.Vnom
	case *project.SubsystemInput:
		return n.Vout
	case *project.Converter:
		return n.Vout
	case *project.DualOutputConverter:
		if o, ok := n.Output(e.FromHandle); ok {
			return o.Vout
		}
		if len(n.Outputs) > 0 {
			return n.Outputs[0].Vout
		}
	case *project.Bus:
		if lv.resolved[parent.ID] {
			return parent.VUpstream - parent.IIn*n.Resistance()
		}
	}
	return 0
}

// edgeCurrent is the current carried into child. Converters and subsystems
// draw their input power at the upstream voltage; every other node draws its
// own input current.
func edgeCurrent(child *NodeResult, e project.Edge, v float64) float64 {
	if v <= 0 {
		return child.IIn
	}
	switch child.Kind {
	case project.KindConverter, project.KindDualOutputConverter:
		return child.PIn / v
	case project.KindSubsystem:
		if p, ok := child.Ports[e.ToHandle]; ok && e.ToHandle != "" {
			return p / v
		}
		return child.PIn / v
	}
	return child.IIn
}
