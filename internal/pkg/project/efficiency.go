package project

import (
	"encoding/json"
	"fmt"
)

// ModelType selects the efficiency model variant.
type ModelType string

const (
	ModelFixed ModelType = "fixed"
	ModelCurve ModelType = "curve"
)

// CurveBase names the rating that normalises the load axis of a 1-D curve.
type CurveBase string

const (
	BasePoutMax CurveBase = "Pout_max"
	BaseIoutMax CurveBase = "Iout_max"
)

// CurveMode selects a point list or a voltage × current table.
type CurveMode string

const (
	Mode1D CurveMode = "1d"
	Mode2D CurveMode = "2d"
)

// EfficiencyModel specifies a converter's conversion efficiency.
type EfficiencyModel struct {
	Type     ModelType    `json:"type"`
	Value    float64      `json:"value,omitempty"`
	PerPhase bool         `json:"perPhase,omitempty"`
	Base     CurveBase    `json:"base,omitempty"`
	Mode     CurveMode    `json:"mode,omitempty"`
	Points   []CurvePoint `json:"points,omitempty"`
	Table    *Table2D     `json:"table,omitempty"`

	// Malformed holds the decode error of a model that could not be read.
	// Such a model evaluates to the default efficiency.
	Malformed string `json:"-"`
}

// CurvePoint is one point of a 1-D curve, keyed either by load percentage or by output current.
type CurvePoint struct {
	LoadPct *float64 `json:"loadPct,omitempty"`
	Current *float64 `json:"current,omitempty"`
	Eta     float64  `json:"eta"`
}

// Table2D is efficiency indexed by output voltage (rows) and output current
// (columns). A nil cell holds no measurement.
type Table2D struct {
	OutputVoltages []float64    `json:"outputVoltages"`
	OutputCurrents []float64    `json:"outputCurrents"`
	Values         [][]*float64 `json:"values"`
}

// FixedEfficiency returns a constant efficiency model.
func FixedEfficiency(v float64) *EfficiencyModel {
	return &EfficiencyModel{Type: ModelFixed, Value: v}
}

// LoadPoint and CurrentPoint build curve points.
func LoadPoint(pct, eta float64) CurvePoint { return CurvePoint{LoadPct: &pct, Eta: eta} }

func CurrentPoint(amps, eta float64) CurvePoint { return CurvePoint{Current: &amps, Eta: eta} }

// Cell is shorthand for a present table value.
func Cell(v float64) *float64 { return &v }

// UnmarshalJSON accepts a bare number as a fixed efficiency. A model of the
// wrong shape is kept with Malformed set so its converter still decodes.
func (m *EfficiencyModel) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*m = EfficiencyModel{Type: ModelFixed, Value: v}
		return nil
	}
	type alias EfficiencyModel
	decoded := EfficiencyModel{}
	if err := json.Unmarshal(data, (*alias)(&decoded)); err != nil {
		*m = EfficiencyModel{Malformed: err.Error()}
		return nil
	}
	*m = decoded
	return nil
}

// malformedModels lists the efficiency models of n that failed to decode.
func malformedModels(n Node) []string {
	var out []string
	switch n := n.(type) {
	case *Converter:
		if n.Efficiency != nil && n.Efficiency.Malformed != "" {
			out = append(out, fmt.Sprintf("node %q: efficiency model malformed (%s); default assumed", n.ID, n.Efficiency.Malformed))
		}
	case *DualOutputConverter:
		for _, o := range n.Outputs {
			if o.Efficiency != nil && o.Efficiency.Malformed != "" {
				out = append(out, fmt.Sprintf("node %q output %q: efficiency model malformed (%s); default assumed", n.ID, o.ID, o.Efficiency.Malformed))
			}
		}
	}
	return out
}

// Clone returns a deep copy; nil stays nil.
func (m *EfficiencyModel) Clone() *EfficiencyModel {
	if m == nil {
		return nil
	}
	c := *m
	if m.Points != nil {
		c.Points = make([]CurvePoint, len(m.Points))
		for i, p := range m.Points {
			c.Points[i] = CurvePoint{LoadPct: copyFloat(p.LoadPct), Current: copyFloat(p.Current), Eta: p.Eta}
		}
	}
	if m.Table != nil {
		t := Table2D{
			OutputVoltages: append([]float64(nil), m.Table.OutputVoltages...),
			OutputCurrents: append([]float64(nil), m.Table.OutputCurrents...),
			Values:         make([][]*float64, len(m.Table.Values)),
		}
		for i, row := range m.Table.Values {
			t.Values[i] = make([]*float64, len(row))
			for j, cell := range row {
				t.Values[i][j] = copyFloat(cell)
			}
		}
		c.Table = &t
	}
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
