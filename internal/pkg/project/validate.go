package project

import "fmt"

// Validate reports structural issues without computing anything. Embedded
// projects are checked recursively; their issues are prefixed with the
// subsystem name.
func Validate(p *Project) []string {
	return validate(p, 0)
}

// MaxValidateDepth bounds the recursion into embedded projects.
const MaxValidateDepth = 16

func validate(p *Project, depth int) []string {
	if p == nil {
		return []string{"project is nil"}
	}
	if depth > MaxValidateDepth {
		return []string{fmt.Sprintf("nested deeper than %d levels; not checked", MaxValidateDepth)}
	}
	issues := append([]string(nil), p.Issues...)

	ids := make(map[string]bool, len(p.Nodes))
	for i, n := range p.Nodes {
		if IsNil(n) {
			issues = append(issues, fmt.Sprintf("node %d is nil", i))
			continue
		}
		id := n.Header().ID
		if id == "" {
			issues = append(issues, fmt.Sprintf("%s node without id", n.Kind()))
			continue
		}
		if ids[id] {
			issues = append(issues, fmt.Sprintf("duplicate node id %q", id))
		}
		ids[id] = true
	}

	for _, e := range p.Edges {
		if !ids[e.From] {
			issues = append(issues, fmt.Sprintf("edge %q: unknown source node %q", e.ID, e.From))
		}
		if !ids[e.To] {
			issues = append(issues, fmt.Sprintf("edge %q: unknown target node %q", e.ID, e.To))
		}
	}

	for _, n := range p.Nodes {
		if IsNil(n) {
			continue
		}
		switch v := n.(type) {
		case *Converter:
			issues = append(issues, validateModel(v.Label(), v.Efficiency)...)
		case *DualOutputConverter:
			if len(v.Outputs) == 0 {
				issues = append(issues, fmt.Sprintf("%s: no outputs defined", v.Label()))
			}
			for _, o := range v.Outputs {
				issues = append(issues, validateModel(v.Label()+"/"+o.Name(), o.Efficiency)...)
			}
		case *Subsystem:
			if v.Project == nil {
				issues = append(issues, fmt.Sprintf("%s: no embedded project", v.Label()))
				continue
			}
			if c := len(v.Project.Inputs()); c != 1 {
				issues = append(issues, fmt.Sprintf("%s: expected exactly one subsystem input, found %d", v.Label(), c))
			}
			for _, issue := range validate(v.Project, depth+1) {
				issues = append(issues, v.Label()+": "+issue)
			}
		}
	}
	return issues
}

// TableShapeError describes why a 2-D efficiency table cannot be used.
func TableShapeError(t *Table2D) error {
	if t == nil {
		return fmt.Errorf("table missing")
	}
	if len(t.OutputVoltages) == 0 || len(t.OutputCurrents) == 0 {
		return fmt.Errorf("table axes empty")
	}
	if len(t.Values) != len(t.OutputVoltages) {
		return fmt.Errorf("table has %d rows for %d voltages", len(t.Values), len(t.OutputVoltages))
	}
	for i, row := range t.Values {
		if len(row) != len(t.OutputCurrents) {
			return fmt.Errorf("table row %d has %d cells for %d currents", i, len(row), len(t.OutputCurrents))
		}
	}
	return nil
}

func validateModel(owner string, m *EfficiencyModel) []string {
	if m == nil || m.Type != ModelCurve {
		return nil
	}
	if m.Mode == Mode2D {
		if err := TableShapeError(m.Table); err != nil {
			return []string{fmt.Sprintf("%s: %v", owner, err)}
		}
		return nil
	}
	if len(m.Points) == 0 {
		return []string{fmt.Sprintf("%s: efficiency curve has no points", owner)}
	}
	return nil
}
