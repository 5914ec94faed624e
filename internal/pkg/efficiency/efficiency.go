/*
efficiency.go Evaluates converter efficiency models at an operating point.
Malformed models never fail the caller; they degrade to Default.
*/

package efficiency

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ohowland/pdn_core/internal/pkg/project"
	"gonum.org/v1/gonum/interp"
)

const (
	// Default is substituted whenever a model cannot be evaluated.
	Default = 0.9
	// Min and Max bound every curve result.
	Min = 0.01
	Max = 0.999
)

var (
	ErrInvalidValue   = errors.New("fixed efficiency outside (0,1]")
	ErrUnknownModel   = errors.New("unknown efficiency model")
	ErrNoPoints       = errors.New("efficiency curve has no usable points")
	ErrNoRating       = errors.New("efficiency curve base rating is zero")
	ErrMalformedTable = errors.New("malformed efficiency table")
	ErrMalformedModel = errors.New("malformed efficiency model")
)

// Ratings are the nameplate values of the converter or branch that owns a model.
type Ratings struct {
	Vout       float64 `json:"Vout"`
	IoutMax    float64 `json:"Iout_max,omitempty"`
	PoutMax    float64 `json:"Pout_max,omitempty"`
	PhaseCount int     `json:"phaseCount,omitempty"`
}

// ConverterRatings returns the nameplate of a single-output converter.
func ConverterRatings(c *project.Converter) Ratings {
	return Ratings{Vout: c.Vout, IoutMax: c.IoutMax, PoutMax: c.PoutMax, PhaseCount: c.PhaseCount}
}

// OutputRatings returns the nameplate of one DualOutputConverter branch.
func OutputRatings(o project.ConverterOutput) Ratings {
	return Ratings{Vout: o.Vout, IoutMax: o.IoutMax, PoutMax: o.PoutMax, PhaseCount: o.PhaseCount}
}

func (r Ratings) phases() float64 {
	if r.PhaseCount < 1 {
		return 1
	}
	return float64(r.PhaseCount)
}

// Eta returns the efficiency of model at output power pOut and current iOut.
// The result is always finite and within (0,1].
func Eta(model *project.EfficiencyModel, pOut, iOut float64, r Ratings) float64 {
	eta, _ := Evaluate(model, pOut, iOut, r)
	return eta
}

// Evaluate is Eta with the reason for any substitution. The returned
// efficiency is usable even when err is non-nil.
func Evaluate(model *project.EfficiencyModel, pOut, iOut float64, r Ratings) (float64, error) {
	if model == nil {
		return Default, nil
	}
	if model.Malformed != "" {
		return Default, fmt.Errorf("%w: %s", ErrMalformedModel, model.Malformed)
	}
	pOut, iOut = operating(pOut), operating(iOut)

	switch model.Type {
	case project.ModelFixed, "":
		v := model.Value
		if !finite(v) || v <= 0 || v > 1 {
			return Default, fmt.Errorf("%w: %v", ErrInvalidValue, v)
		}
		return v, nil
	case project.ModelCurve:
		if model.Mode == project.Mode2D {
			return table2D(model, iOut, r)
		}
		return curve1D(model, pOut, iOut, r)
	default:
		return Default, fmt.Errorf("%w: %q", ErrUnknownModel, model.Type)
	}
}

func curve1D(m *project.EfficiencyModel, pOut, iOut float64, r Ratings) (float64, error) {
	byCurrent := len(m.Points) > 0 && m.Points[0].LoadPct == nil && m.Points[0].Current != nil

	axis := make([]float64, 0, len(m.Points))
	etas := make([]float64, 0, len(m.Points))
	for _, p := range m.Points {
		key := p.LoadPct
		if byCurrent {
			key = p.Current
		}
		if key == nil || !finite(*key) || !finite(p.Eta) {
			continue
		}
		axis = append(axis, *key)
		etas = append(etas, p.Eta)
	}
	if len(axis) == 0 {
		return Default, ErrNoPoints
	}
	xs, ys := strictlyIncreasing(axis, etas)

	phases := 1.0
	if m.PerPhase {
		phases = r.phases()
	}

	var x float64
	if byCurrent {
		x = iOut / phases
		if r.IoutMax > 0 {
			x = clamp(x, 0, r.IoutMax/phases)
		}
	} else {
		value, rated := pOut, r.PoutMax
		if m.Base == project.BaseIoutMax {
			value, rated = iOut, r.IoutMax
		}
		if !finite(rated) || rated <= 0 {
			return Default, ErrNoRating
		}
		x = clamp((value/phases)/(rated/phases)*100, 0, 100)
	}

	eta := ys[0]
	if len(xs) > 1 {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return Default, fmt.Errorf("%w: %v", ErrNoPoints, err)
		}
		eta = pl.Predict(x)
	}
	return bound(eta), nil
}

// strictlyIncreasing sorts the curve by key. Of several points on one key the
// last listed wins.
func strictlyIncreasing(axis, etas []float64) ([]float64, []float64) {
	order := sortedIndex(axis)
	xs := make([]float64, 0, len(order))
	ys := make([]float64, 0, len(order))
	for _, idx := range order {
		if n := len(xs); n > 0 && xs[n-1] == axis[idx] {
			ys[n-1] = etas[idx]
			continue
		}
		xs = append(xs, axis[idx])
		ys = append(ys, etas[idx])
	}
	return xs, ys
}

func table2D(m *project.EfficiencyModel, iOut float64, r Ratings) (float64, error) {
	t := m.Table
	if err := project.TableShapeError(t); err != nil {
		return Default, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}

	vOrder := sortedIndex(t.OutputVoltages)
	cOrder := sortedIndex(t.OutputCurrents)
	volts := permute(t.OutputVoltages, vOrder)
	currents := permute(t.OutputCurrents, cOrder)

	current := iOut
	if m.PerPhase {
		current /= r.phases()
	}

	row := func(i int) (float64, bool) {
		cells := t.Values[vOrder[i]]
		return interpolate(currents, func(j int) (float64, bool) {
			cell := cells[cOrder[j]]
			if cell == nil || !finite(*cell) {
				return 0, false
			}
			return *cell, true
		}, current)
	}

	eta, ok := interpolate(volts, row, r.Vout)
	if !ok {
		return Default, fmt.Errorf("%w: no values present", ErrMalformedTable)
	}
	return bound(eta), nil
}

// interpolate evaluates a piecewise-linear function over an ascending axis at
// x, clamped to the axis range. Absent values are skipped by searching outward
// for the nearest present neighbour on each side.
func interpolate(axis []float64, value func(int) (float64, bool), x float64) (float64, bool) {
	n := len(axis)
	if n == 0 {
		return 0, false
	}
	if !finite(x) {
		x = axis[0]
	}
	x = clamp(x, axis[0], axis[n-1])

	lo := sort.Search(n, func(i int) bool { return axis[i] > x }) - 1
	if lo < 0 {
		lo = 0
	}
	hi := lo
	if axis[lo] != x && lo+1 < n {
		hi = lo + 1
	}

	for lo >= 0 {
		if _, ok := value(lo); ok {
			break
		}
		lo--
	}
	for hi < n {
		if _, ok := value(hi); ok {
			break
		}
		hi++
	}

	switch {
	case lo < 0 && hi >= n:
		return 0, false
	case lo < 0:
		return value(hi)
	case hi >= n, lo == hi:
		return value(lo)
	}

	vLo, _ := value(lo)
	vHi, _ := value(hi)
	if axis[hi] == axis[lo] {
		return vLo, true
	}
	frac := (x - axis[lo]) / (axis[hi] - axis[lo])
	return vLo + frac*(vHi-vLo), true
}

func sortedIndex(axis []float64) []int {
	order := make([]int, len(axis))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return axis[order[a]] < axis[order[b]] })
	return order
}

func permute(values []float64, order []int) []float64 {
	out := make([]float64, len(order))
	for i, idx := range order {
		out[i] = values[idx]
	}
	return out
}

func bound(eta float64) float64 {
	if !finite(eta) {
		return Default
	}
	return clamp(eta, Min, Max)
}

// operating sanitises an operating point: an unbounded load sits at the
// full-load end of every curve.
func operating(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsNaN(v), v < 0:
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
