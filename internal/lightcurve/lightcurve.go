// Public domain.

// Package lightcurve plots observed and corrected magnitudes against
// heliocentric distance, with the fitted curve of each solved partition.
package lightcurve

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/curtisa1/icqsplitter/internal/correct"
	"github.com/curtisa1/icqsplitter/internal/record"
	"github.com/curtisa1/icqsplitter/internal/regress"
)

// Data is what gets plotted.  Rows is aligned with Store.
type Data struct {
	Title      string
	Store      *record.Store
	Rows       []correct.Row
	Mode       correct.Mode
	Apparition *regress.Apparition // nil without a solve
}

// Size of saved images.
var (
	Width  = 10 * vg.Inch
	Height = 7 * vg.Inch
)

// signedR returns r, negative before perihelion.
func (d *Data) signedR(i int) float64 {
	r := d.Rows[i].R
	if d.Apparition != nil && regress.Pre(d.Store.Time(i), d.Apparition.Perihelion) {
		return -r
	}
	return r
}

type series struct {
	name string
	xy   plotter.XYs
}

func (d *Data) series() []series {
	raw := series{name: "m"}
	helio := series{name: "mhelio"}
	ph := series{name: d.Mode.Input()}
	for i := 0; i < d.Store.Len(); i++ {
		x := d.signedR(i)
		raw.xy = append(raw.xy, plotter.XY{X: x, Y: d.Store.Mag(i)})
		if d.Mode.Helio {
			helio.xy = append(helio.xy, plotter.XY{X: x, Y: d.Rows[i].MHelio})
		}
		if d.Mode.Phase {
			ph.xy = append(ph.xy, plotter.XY{X: x, Y: d.Rows[i].MPhase})
		}
	}
	s := []series{raw}
	if d.Mode.Helio {
		s = append(s, helio)
	}
	if d.Mode.Phase {
		s = append(s, ph)
	}
	if d.Apparition == nil {
		return s
	}
	shift := series{name: "mshift"}
	for _, r := range []*regress.Result{d.Apparition.Pre, d.Apparition.Post} {
		if r == nil || r.Empty() {
			continue
		}
		for k, p := range r.Points {
			shift.xy = append(shift.xy, plotter.XY{X: d.signedR(p.Row), Y: r.Fit.MShift[k]})
		}
	}
	return append(s, shift)
}

// curve returns the fitted polynomial of r as a function of signed r.
func curve(r *regress.Result, pre bool) *plotter.Function {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range r.Points {
		lo = math.Min(lo, p.R)
		hi = math.Max(hi, p.R)
	}
	c := r.Fit.Coef
	sign := 1.
	if pre {
		sign = -1
	}
	f := plotter.NewFunction(func(x float64) float64 {
		return c.Eval(math.Log10(sign * x))
	})
	f.XMin, f.XMax = lo, hi
	if pre {
		f.XMin, f.XMax = -hi, -lo
	}
	f.Samples = 200
	return f
}

// New builds the plot.  Magnitudes increase downward.
func New(d *Data) (*plot.Plot, error) {
	if d.Rows == nil || len(d.Rows) != d.Store.Len() {
		return nil, fmt.Errorf("lightcurve: %d rows for %d observations", len(d.Rows), d.Store.Len())
	}
	p := plot.New()
	p.Title.Text = d.Title
	p.X.Label.Text = "r (au), negative before perihelion"
	p.Y.Label.Text = "magnitude"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	for i, s := range d.series() {
		if len(s.xy) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(s.xy)
		if err != nil {
			return nil, fmt.Errorf("lightcurve: %s: %w", s.name, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(s.name, sc)
	}
	if a := d.Apparition; a != nil {
		for i, r := range []*regress.Result{a.Pre, a.Post} {
			if r == nil || r.Empty() {
				continue
			}
			f := curve(r, i == 0)
			f.Color = plotutil.Color(4 + i)
			f.Width = vg.Points(1.5)
			p.Add(f)
			p.Legend.Add(r.Label+" fit", f)
		}
	}
	return p, nil
}

// Save builds the plot and writes it to path, the format following the
// file extension.
func Save(d *Data, path string) error {
	p, err := New(d)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("lightcurve: saving %s: %w", path, err)
	}
	return nil
}
