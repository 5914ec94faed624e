package powerflow

import (
	"fmt"

	"github.com/ohowland/pdn_core/internal/pkg/efficiency"
	"github.com/ohowland/pdn_core/internal/pkg/project"
)

// checkRules attaches design-rule warnings using the final figures. Values
// are never altered here; an overloaded node still reports its operating point.
func (lv *level) checkRules(order []string) {
	for _, id := range order {
		nr := lv.nodes[id]
		nr.Warnings = append(nr.Warnings, lv.notes[id]...)

		switch n := nr.Node.(type) {
		case *project.Source:
			lv.sourceRules(nr, n)
		case *project.Converter:
			lv.converterRules(nr, n)
		case *project.DualOutputConverter:
			lv.dualRules(nr, n)
		case *project.Bus:
			if n.RMilliohm < 0 {
				nr.Warnings = append(nr.Warnings, fmt.Sprintf("negative resistance %.3f mΩ ignored; 0 assumed", n.RMilliohm))
			}
			if n.Imax > 0 {
				lv.overcurrent(&nr.Warnings, nr.IOut, n.Imax)
			}
		case *project.Load:
			lv.loadRules(nr, n)
		}
		lv.dropRules(nr)
	}
}

func (lv *level) derate(rating, pct float64) float64 {
	return rating * (1 - pct/100)
}

func (lv *level) overcurrent(warnings *[]string, i, rating float64) {
	if limit := lv.derate(rating, lv.margins.CurrentPct); i > limit {
		*warnings = append(*warnings, fmt.Sprintf("overcurrent: %.3f A exceeds %.3f A (rating %.3f A, %.0f%% margin)",
			i, limit, rating, lv.margins.CurrentPct))
	}
}

func (lv *level) overpower(warnings *[]string, p, rating float64) {
	if limit := lv.derate(rating, lv.margins.PowerPct); p > limit {
		*warnings = append(*warnings, fmt.Sprintf("overpower: %.3f W exceeds %.3f W (rating %.3f W, %.0f%% margin)",
			p, limit, rating, lv.margins.PowerPct))
	}
}

func (lv *level) sourceRules(nr *NodeResult, n *project.Source) {
	units := float64(n.Units())
	if n.Vnom <= 0 {
		nr.Warnings = append(nr.Warnings, "nominal voltage not set")
	}
	if n.Imax > 0 {
		lv.overcurrent(&nr.Warnings, nr.IOut, n.Imax*units)
	}
	if n.Pmax > 0 {
		lv.overpower(&nr.Warnings, nr.POut, n.Pmax*units)
	}
	if n.Redundancy != project.RedundancyNPlus1 {
		return
	}
	switch {
	case n.Units() < 2:
		nr.Warnings = append(nr.Warnings, "redundancy shortfall: N+1 requires at least 2 units")
	case n.Pmax <= 0:
		nr.Warnings = append(nr.Warnings, "redundancy unverifiable: P_max not set")
	default:
		if available := n.Pmax * (units - 1); nr.POut > available {
			nr.Warnings = append(nr.Warnings, fmt.Sprintf("redundancy shortfall: %.3f W required, %d of %d units provide %.3f W",
				nr.POut, n.Units()-1, n.Units(), available))
		}
	}
}

func (lv *level) converterRules(nr *NodeResult, n *project.Converter) {
	if n.Vout <= 0 {
		nr.Warnings = append(nr.Warnings, "output voltage not set; output current unknown")
	}
	if n.VinMid() <= 0 {
		nr.Warnings = append(nr.Warnings, "input voltage range not set; input current unknown")
	}
	if _, err := efficiency.Evaluate(n.Efficiency, nr.POut, nr.IOut, efficiency.ConverterRatings(n)); err != nil {
		nr.Warnings = append(nr.Warnings, fmt.Sprintf("efficiency model: %v; %.2f assumed", err, efficiency.Default))
	}
	if n.IoutMax > 0 {
		lv.overcurrent(&nr.Warnings, nr.IOut, n.IoutMax)
	}
	if n.PoutMax > 0 {
		lv.overpower(&nr.Warnings, nr.POut, n.PoutMax)
	}
	lv.inputRange(nr, n.VinMin, n.VinMax)
}

func (lv *level) dualRules(nr *NodeResult, n *project.DualOutputConverter) {
	if len(n.Outputs) == 0 {
		nr.Warnings = append(nr.Warnings, "no outputs defined")
	}
	for i, o := range n.Outputs {
		b := &nr.Outputs[i]
		if _, err := efficiency.Evaluate(o.Efficiency, b.POut, b.IOut, efficiency.OutputRatings(o)); err != nil {
			b.Warnings = append(b.Warnings, fmt.Sprintf("efficiency model: %v; %.2f assumed", err, efficiency.Default))
		}
		if o.IoutMax > 0 {
			lv.overcurrent(&b.Warnings, b.IOut, o.IoutMax)
		}
		if o.PoutMax > 0 {
			lv.overpower(&b.Warnings, b.POut, o.PoutMax)
		}
		for _, w := range b.Warnings {
			nr.Warnings = append(nr.Warnings, b.Label+": "+w)
		}
	}
	lv.inputRange(nr, n.VinMin, n.VinMax)
}

func (lv *level) inputRange(nr *NodeResult, lo, hi float64) {
	if !lv.resolved[nr.ID] {
		return
	}
	v := nr.VUpstream
	if (lo > 0 && v < lo) || (hi > 0 && v > hi) {
		nr.Warnings = append(nr.Warnings, fmt.Sprintf("input voltage %.3f V outside range %.3f-%.3f V", v, lo, hi))
	}
}

func (lv *level) loadRules(nr *NodeResult, n *project.Load) {
	if !lv.resolved[nr.ID] || n.Vreq <= 0 {
		return
	}
	if limit := lv.derate(n.Vreq, lv.margins.VoltageMarginPct); nr.VUpstream < limit {
		nr.Warnings = append(nr.Warnings, fmt.Sprintf("voltage margin shortfall: %.3f V supplied, %.3f V required (%.3f V less %.0f%% margin)",
			nr.VUpstream, limit, n.Vreq, lv.margins.VoltageMarginPct))
	}
}

// dropRules flags incoming interconnects whose drop exceeds the configured share of their upstream voltage.
func (lv *level) dropRules(nr *NodeResult) {
	limit := lv.margins.VoltageDropPct
	if limit <= 0 {
		return
	}
	for _, e := range lv.graph.Incoming(nr.ID) {
		er := lv.edges[e.ID]
		if er.VUpstream <= 0 {
			continue
		}
		if pct := er.VDrop / er.VUpstream * 100; pct > limit {
			nr.Warnings = append(nr.Warnings, fmt.Sprintf("interconnect %q drops %.2f%% of %.3f V, limit %.2f%%",
				e.ID, pct, er.VUpstream, limit))
		}
	}
}
