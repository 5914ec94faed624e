package powerflow

import "github.com/ohowland/pdn_core/internal/pkg/project"

// reconcile folds interconnect losses back into converter and bus figures.
// It is a fixed two-pass correction, not an iteration to convergence:
// chains of converter -> subsystem -> converter -> subsystem deeper than
// two may still under-count loss.
func (lv *level) reconcile(reverse []string) {
	// pass 1: refresh efficiency and input figures from the known outputs
	for _, id := range reverse {
		nr := lv.nodes[id]
		switch n := nr.Node.(type) {
		case *project.Converter:
			lv.applyConverter(nr, n, nr.POut)
		case *project.DualOutputConverter:
			pOut := make([]float64, len(nr.Outputs))
			for i, b := range nr.Outputs {
				pOut[i] = b.POut
			}
			lv.applyDual(nr, n, pOut)
		}
	}

	// pass 2: a subsystem input boundary has no loss of its own, so the
	// converter feeding it must supply the interconnect loss as well
	for _, id := range reverse {
		nr := lv.nodes[id]
		edges := lv.graph.Outgoing(id)
		switch n := nr.Node.(type) {
		case *project.Converter:
			pOut := lv.childPower(edges) + lv.edgeLoss(edges, lv.feedsSubsystem)
			lv.applyConverter(nr, n, pOut)
		case *project.DualOutputConverter:
			groups := lv.branchEdges(id, n)
			pOut := make([]float64, len(n.Outputs))
			for i := range n.Outputs {
				pOut[i] = lv.childPower(groups[i]) + lv.edgeLoss(groups[i], lv.feedsSubsystem)
			}
			lv.applyDual(nr, n, pOut)
		case *project.Bus:
			nr.POut = lv.childPower(edges) + lv.edgeLoss(edges, nil)
			nr.Loss = nr.IOut * nr.IOut * n.Resistance()
			nr.PIn = nr.POut + nr.Loss
		}
	}
}

// finalizeSources recomputes every supply from its children's input power
// plus the loss on all of its outgoing interconnects.
func (lv *level) finalizeSources(reverse []string) {
	for _, id := range reverse {
		nr := lv.nodes[id]
		var v float64
		switch n := nr.Node.(type) {
		case *project.Source:
			v = n.Vnom
		case *project.SubsystemInput:
			v = n.Vout
		default:
			continue
		}
		edges := lv.graph.Outgoing(id)
		p := lv.childPower(edges) + lv.edgeLoss(edges, nil)
		nr.POut, nr.PIn = p, p
		if v > 0 {
			nr.IOut = p / v
		} else {
			nr.IOut = lv.childCurrent(edges)
		}
		nr.IIn = nr.IOut
		nr.Loss = 0
	}
}

func (lv *level) feedsSubsystem(e project.Edge) bool {
	return lv.nodes[e.To].Kind == project.KindSubsystem
}
