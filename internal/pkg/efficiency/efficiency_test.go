package efficiency

import (
	"errors"
	"math"
	"testing"

	"github.com/ohowland/pdn_core/internal/pkg/project"
	"gotest.tools/v3/assert"
)

func approx(t *testing.T, got, want float64) {
	t.Helper()
	assert.Assert(t, math.Abs(got-want) < 1e-9, "got %v, want %v", got, want)
}

func loadCurve(base project.CurveBase, points ...project.CurvePoint) *project.EfficiencyModel {
	return &project.EfficiencyModel{Type: project.ModelCurve, Base: base, Mode: project.Mode1D, Points: points}
}

func table(values [][]*float64) *project.EfficiencyModel {
	return &project.EfficiencyModel{
		Type: project.ModelCurve,
		Mode: project.Mode2D,
		Table: &project.Table2D{
			OutputVoltages: []float64{1, 2},
			OutputCurrents: []float64{0, 10},
			Values:         values,
		},
	}
}

func TestFixed(t *testing.T) {
	eta, err := Evaluate(project.FixedEfficiency(0.92), 5, 1, Ratings{})
	assert.NilError(t, err)
	approx(t, eta, 0.92)

	eta, err = Evaluate(project.FixedEfficiency(1), 5, 1, Ratings{})
	assert.NilError(t, err)
	approx(t, eta, 1)

	for _, v := range []float64{0, -0.5, 1.2, math.NaN()} {
		eta, err = Evaluate(project.FixedEfficiency(v), 5, 1, Ratings{})
		assert.Assert(t, errors.Is(err, ErrInvalidValue))
		approx(t, eta, Default)
	}
}

func TestNilAndUnknownModel(t *testing.T) {
	eta, err := Evaluate(nil, 5, 1, Ratings{})
	assert.NilError(t, err)
	approx(t, eta, Default)

	eta, err = Evaluate(&project.EfficiencyModel{Type: "lookup"}, 5, 1, Ratings{})
	assert.Assert(t, errors.Is(err, ErrUnknownModel))
	approx(t, eta, Default)
}

func TestCurveMidpoint(t *testing.T) {
	m := loadCurve(project.BasePoutMax,
		project.LoadPoint(0, 0.8),
		project.LoadPoint(50, 0.9),
		project.LoadPoint(100, 0.95),
	)
	approx(t, Eta(m, 50, 0, Ratings{PoutMax: 100}), 0.9)
	approx(t, Eta(m, 75, 0, Ratings{PoutMax: 100}), 0.925)
}

func TestCurveUnsortedPoints(t *testing.T) {
	m := loadCurve(project.BasePoutMax,
		project.LoadPoint(100, 0.95),
		project.LoadPoint(0, 0.8),
		project.LoadPoint(50, 0.9),
	)
	approx(t, Eta(m, 25, 0, Ratings{PoutMax: 100}), 0.85)
}

func TestCurveClampsWithoutExtrapolation(t *testing.T) {
	m := loadCurve(project.BasePoutMax,
		project.LoadPoint(20, 0.85),
		project.LoadPoint(80, 0.95),
	)
	approx(t, Eta(m, 5, 0, Ratings{PoutMax: 100}), 0.85)
	approx(t, Eta(m, 150, 0, Ratings{PoutMax: 100}), 0.95)
}

func TestCurveBoundsResult(t *testing.T) {
	m := loadCurve(project.BasePoutMax, project.LoadPoint(0, 1.4), project.LoadPoint(100, 1.6))
	approx(t, Eta(m, 50, 0, Ratings{PoutMax: 100}), Max)

	m = loadCurve(project.BasePoutMax, project.LoadPoint(0, 0), project.LoadPoint(100, 0))
	approx(t, Eta(m, 50, 0, Ratings{PoutMax: 100}), Min)
}

func TestCurveCurrentBase(t *testing.T) {
	m := loadCurve(project.BaseIoutMax,
		project.LoadPoint(0, 0.8),
		project.LoadPoint(100, 1.0),
	)
	approx(t, Eta(m, 999, 5, Ratings{IoutMax: 20}), 0.85)
}

func TestCurveWithoutRating(t *testing.T) {
	m := loadCurve(project.BasePoutMax, project.LoadPoint(0, 0.8), project.LoadPoint(100, 0.95))
	eta, err := Evaluate(m, 50, 0, Ratings{})
	assert.Assert(t, errors.Is(err, ErrNoRating))
	approx(t, eta, Default)
}

func TestCurveWithoutPoints(t *testing.T) {
	eta, err := Evaluate(loadCurve(project.BasePoutMax), 50, 0, Ratings{PoutMax: 100})
	assert.Assert(t, errors.Is(err, ErrNoPoints))
	approx(t, eta, Default)
}

func TestPerPhaseCurrentCurve(t *testing.T) {
	m := &project.EfficiencyModel{
		Type:     project.ModelCurve,
		PerPhase: true,
		Base:     project.BaseIoutMax,
		Points: []project.CurvePoint{
			project.CurrentPoint(0, 0.88),
			project.CurrentPoint(20, 0.93),
			project.CurrentPoint(40, 0.96),
		},
	}
	approx(t, Eta(m, 0, 90, Ratings{IoutMax: 120, PhaseCount: 3}), 0.945)

	// operating current is clamped to the per-phase rating
	approx(t, Eta(m, 0, 900, Ratings{IoutMax: 120, PhaseCount: 3}), 0.96)
}

func TestPerPhaseLoadCurve(t *testing.T) {
	m := loadCurve(project.BaseIoutMax, project.LoadPoint(0, 0.8), project.LoadPoint(100, 1.0))
	m.PerPhase = true
	approx(t, Eta(m, 0, 60, Ratings{IoutMax: 120, PhaseCount: 4}), 0.9)
}

func TestTableBilinear(t *testing.T) {
	c := project.Cell
	m := table([][]*float64{{c(0.8), c(0.9)}, {c(0.82), c(0.94)}})

	eta, err := Evaluate(m, 0, 5, Ratings{Vout: 1.5})
	assert.NilError(t, err)
	approx(t, eta, 0.865)

	approx(t, Eta(m, 0, 0, Ratings{Vout: 1}), 0.8)
	approx(t, Eta(m, 0, 50, Ratings{Vout: 5}), 0.94)
}

func TestTableAbsentCells(t *testing.T) {
	c := project.Cell
	m := table([][]*float64{{c(0.8), nil}, {c(0.82), c(0.94)}})
	approx(t, Eta(m, 0, 5, Ratings{Vout: 1.5}), 0.84)

	m = table([][]*float64{{nil, nil}, {nil, nil}})
	eta, err := Evaluate(m, 0, 5, Ratings{Vout: 1.5})
	assert.Assert(t, errors.Is(err, ErrMalformedTable))
	approx(t, eta, Default)
}

func TestTableMalformed(t *testing.T) {
	c := project.Cell
	cases := []*project.EfficiencyModel{
		table([][]*float64{{c(0.8), c(0.9)}}),
		table([][]*float64{{c(0.8)}, {c(0.82), c(0.94)}}),
		{Type: project.ModelCurve, Mode: project.Mode2D},
	}
	for _, m := range cases {
		eta, err := Evaluate(m, 0, 5, Ratings{Vout: 1.5})
		assert.Assert(t, errors.Is(err, ErrMalformedTable))
		approx(t, eta, Default)
	}
}

func TestNegativeOperatingPoint(t *testing.T) {
	m := loadCurve(project.BasePoutMax, project.LoadPoint(0, 0.8), project.LoadPoint(100, 0.95))
	approx(t, Eta(m, -10, -1, Ratings{PoutMax: 100}), 0.8)
	approx(t, Eta(m, math.NaN(), 0, Ratings{PoutMax: 100}), 0.8)
}

func TestUnboundedOperatingPoint(t *testing.T) {
	m := loadCurve(project.BasePoutMax, project.LoadPoint(0, 0.8), project.LoadPoint(100, 0.95))
	approx(t, Eta(m, math.Inf(1), 0, Ratings{PoutMax: 100}), 0.95)
	approx(t, Eta(m, math.Inf(1), 0, Ratings{PoutMax: 0.5}), 0.95)

	byCurrent := &project.EfficiencyModel{Type: project.ModelCurve, Points: []project.CurvePoint{
		project.CurrentPoint(1, 0.85), project.CurrentPoint(10, 0.92),
	}}
	approx(t, Eta(byCurrent, 0, math.Inf(1), Ratings{}), 0.92)

	c := project.Cell
	approx(t, Eta(table([][]*float64{{c(0.8), c(0.9)}, {c(0.82), c(0.94)}}), 0, math.Inf(1), Ratings{Vout: 1}), 0.9)
}

func TestCurveDuplicateKeys(t *testing.T) {
	m := loadCurve(project.BasePoutMax,
		project.LoadPoint(0, 0.7),
		project.LoadPoint(50, 0.8),
		project.LoadPoint(50, 0.9),
		project.LoadPoint(100, 0.9),
	)
	eta, err := Evaluate(m, 50, 0, Ratings{PoutMax: 100})
	assert.NilError(t, err)
	approx(t, eta, 0.9)
	approx(t, Eta(m, 25, 0, Ratings{PoutMax: 100}), 0.8)
}

func TestCurveSinglePoint(t *testing.T) {
	m := loadCurve(project.BasePoutMax, project.LoadPoint(40, 0.88))
	approx(t, Eta(m, 5, 0, Ratings{PoutMax: 100}), 0.88)
	approx(t, Eta(m, 95, 0, Ratings{PoutMax: 100}), 0.88)
}

func TestMalformedModel(t *testing.T) {
	eta, err := Evaluate(&project.EfficiencyModel{Malformed: "bad table"}, 5, 1, Ratings{})
	assert.Assert(t, errors.Is(err, ErrMalformedModel))
	approx(t, eta, Default)
}
