package powerflow

import (
	"fmt"

	"github.com/ohowland/pdn_core/internal/pkg/project"
)

// Port is one input of an expanded subsystem.
type Port struct {
	ID      string
	Voltage float64
}

// Expansion is a subsystem's embedded project with its inputs replaced by
// sources, computed for the parent's scenario.
type Expansion struct {
	Project    *project.Project
	Result     *Result
	Voltage    float64
	Multiplier int
	Inputs     []Port
	Warnings   []string
}

// Expand clones the subsystem's project, substitutes every SubsystemInput
// with a Source of the same id at the resolved input voltage and computes it.
// depth is the nesting level of the embedded project; beyond the configured
// limit nothing is computed.
func (e *Engine) Expand(sub *project.Subsystem, scenario project.Scenario, depth int) Expansion {
	x := Expansion{
		Voltage:    sub.InputVnom,
		Multiplier: sub.Multiplier(),
	}
	if sub.Project == nil {
		x.Warnings = append(x.Warnings, "no embedded project; subsystem not computed")
		return x
	}
	if depth > e.config.maxDepth() {
		x.Warnings = append(x.Warnings, fmt.Sprintf("nesting depth %d exceeds limit %d; subsystem not computed", depth, e.config.maxDepth()))
		e.logf("[PowerFlow] %s: nesting depth limit reached", sub.Label())
		return x
	}

	inner := sub.Project.Clone()
	inputs := inner.Inputs()
	if len(inputs) != 1 {
		x.Warnings = append(x.Warnings, fmt.Sprintf("expected exactly one subsystem input, found %d", len(inputs)))
	}
	if len(inputs) == 1 && inputs[0].Vout > 0 {
		x.Voltage = inputs[0].Vout
	}

	for i, n := range inner.Nodes {
		in, ok := n.(*project.SubsystemInput)
		if !ok || in == nil {
			continue
		}
		v := in.Vout
		if v <= 0 {
			v = sub.InputVnom
		}
		inner.Nodes[i] = &project.Source{Base: in.Base, Vnom: v, Count: 1}
		x.Inputs = append(x.Inputs, Port{ID: in.ID, Voltage: v})
	}
	if x.Voltage <= 0 {
		x.Warnings = append(x.Warnings, "input voltage unresolved; input current unknown")
	}

	inner.CurrentScenario = scenario
	x.Project = inner
	x.Result = e.compute(inner, depth)
	return x
}
