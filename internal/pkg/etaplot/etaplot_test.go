package etaplot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ohowland/pdn_core/internal/pkg/efficiency"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"gotest.tools/v3/assert"
)

func TestCurveFixed(t *testing.T) {
	xys := Curve(project.FixedEfficiency(0.95), efficiency.Ratings{Vout: 12}, 11)
	assert.Equal(t, len(xys), 11)
	assert.Equal(t, xys[0].X, 0.0)
	assert.Equal(t, xys[10].X, 100.0)
	for _, xy := range xys {
		assert.Equal(t, xy.Y, 0.95)
	}
}

func TestCurveLoad(t *testing.T) {
	model := &project.EfficiencyModel{
		Type:   project.ModelCurve,
		Base:   project.BasePoutMax,
		Points: []project.CurvePoint{project.LoadPoint(0, 0.5), project.LoadPoint(100, 0.9)},
	}
	xys := Curve(model, efficiency.Ratings{Vout: 10, PoutMax: 100}, 5)
	assert.Equal(t, len(xys), 5)
	assert.Equal(t, xys[2].X, 50.0)
	assert.Assert(t, xys[2].Y > 0.6999 && xys[2].Y < 0.7001, "got %v", xys[2].Y)
	assert.Assert(t, xys[4].Y > 0.8999 && xys[4].Y < 0.9001, "got %v", xys[4].Y)

	assert.Equal(t, len(Curve(model, efficiency.Ratings{}, 0)), DefaultSamples)
}

func TestProjectCurves(t *testing.T) {
	p, err := project.ReadFile("../project/testdata/rack.json")
	assert.NilError(t, err)

	series := ProjectCurves(p, 21)
	labels := []string{}
	for _, s := range series {
		labels = append(labels, s.Label)
		assert.Equal(t, len(s.XYs), 21)
	}
	assert.Assert(t, len(series) >= 3, "%v", labels)
	assert.Equal(t, labels[0], "IBC")
}

func TestProjectCurvesSelfNesting(t *testing.T) {
	loop := &project.Subsystem{Base: project.Base{ID: "loop"}}
	p := &project.Project{Nodes: []project.Node{
		&project.Converter{Base: project.Base{ID: "c"}, Vout: 1},
		loop,
	}}
	loop.Project = p
	assert.Equal(t, len(ProjectCurves(p, 3)), 1)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eta.png")
	err := Save(path, "rack", Series{Label: "fixed", XYs: Curve(project.FixedEfficiency(0.9), efficiency.Ratings{Vout: 1}, 3)})
	assert.NilError(t, err)

	info, err := os.Stat(path)
	assert.NilError(t, err)
	assert.Assert(t, info.Size() > 0)

	assert.Assert(t, errors.Is(Save(path, "empty"), ErrNoSeries))
}
