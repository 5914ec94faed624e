/*
etaplot.go Samples efficiency models across their operating range and renders
the curves with gonum/plot.
*/

package etaplot

import (
	"errors"
	"fmt"

	"github.com/ohowland/pdn_core/internal/pkg/efficiency"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// DefaultSamples is used when a non-positive sample count is requested.
const DefaultSamples = 101

var ErrNoSeries = errors.New("nothing to plot")

// Series is one labelled curve.
type Series struct {
	Label string
	XYs   plotter.XYs
}

// Curve samples model from 0 to 100 % of the rated output. The rated output
// current is IoutMax, else PoutMax/Vout; without either the x axis runs over
// 0..1 A. X is percent of rating, Y is efficiency.
func Curve(model *project.EfficiencyModel, r efficiency.Ratings, samples int) plotter.XYs {
	if samples < 2 {
		samples = DefaultSamples
	}
	full := r.IoutMax
	if full <= 0 && r.PoutMax > 0 && r.Vout > 0 {
		full = r.PoutMax / r.Vout
	}
	if full <= 0 {
		full = 1
	}

	xys := make(plotter.XYs, samples)
	for i := range xys {
		pct := 100 * float64(i) / float64(samples-1)
		iOut := full * pct / 100
		xys[i].X = pct
		xys[i].Y = efficiency.Eta(model, iOut*r.Vout, iOut, r)
	}
	return xys
}

// ProjectCurves returns one series per converter and converter output of p,
// including those of embedded projects. Labels carry the subsystem path.
func ProjectCurves(p *project.Project, samples int) []Series {
	series := []Series{}
	collect(&series, "", p, samples, map[*project.Project]bool{})
	return series
}

func collect(series *[]Series, prefix string, p *project.Project, samples int, open map[*project.Project]bool) {
	if p == nil || open[p] {
		return
	}
	open[p] = true
	defer delete(open, p)

	for _, n := range p.Nodes {
		if project.IsNil(n) {
			continue
		}
		switch c := n.(type) {
		case *project.Converter:
			*series = append(*series, Series{
				Label: prefix + c.Label(),
				XYs:   Curve(c.Efficiency, efficiency.ConverterRatings(c), samples),
			})
		case *project.DualOutputConverter:
			for _, o := range c.Outputs {
				*series = append(*series, Series{
					Label: fmt.Sprintf("%s%s %s", prefix, c.Label(), o.Name()),
					XYs:   Curve(o.Efficiency, efficiency.OutputRatings(o), samples),
				})
			}
		case *project.Subsystem:
			collect(series, prefix+c.Label()+"/", c.Project, samples, open)
		}
	}
}

// Save renders series to path. The format follows the file extension
// (.png, .svg, .pdf, ...).
func Save(path, title string, series ...Series) error {
	if len(series) == 0 {
		return ErrNoSeries
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "load (% of rating)"
	p.Y.Label.Text = "efficiency"
	p.X.Min, p.X.Max = 0, 100
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	lines := make([]interface{}, 0, 2*len(series))
	for _, s := range series {
		lines = append(lines, s.Label, s.XYs)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return fmt.Errorf("plot %s: %w", title, err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
