// Public domain.

package regress

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MaxIterations bounds the shift-fit iterations after the initial fit.
const MaxIterations = 20

// ObserverStats summarizes one observer's residuals in the last iteration.
type ObserverStats struct {
	Count int
	Mean  float64 // the shift applied in the last iteration
	Std   float64 // sample standard deviation, NaN for a single point
}

// Seed carries a previous shift-fit into a new one.
type Seed struct {
	Coef   Poly
	MShift []float64
	Sigma  []float64
}

// ShiftFit is the result of iterating fit and observer shift to
// convergence.
type ShiftFit struct {
	First      Poly      // fit of the first iteration
	Coef       Poly      // final fit
	MShift     []float64 // shifted magnitudes
	Sigma      []float64 // weights the next iteration would use
	Residual   []float64 // Coef(x) - MShift
	Observers  map[string]ObserverStats
	Iterations int // iterations after the first fit
	Converged  bool
}

// Seed returns a seed continuing f.
func (f *ShiftFit) Seed() *Seed {
	return &Seed{
		Coef:   append(Poly{}, f.Coef...),
		MShift: append([]float64{}, f.MShift...),
		Sigma:  append([]float64{}, f.Sigma...),
	}
}

// groups indexes points by observer.
type groups struct {
	order []string
	idx   map[string][]int
}

func groupObservers(obs []string) groups {
	g := groups{idx: map[string][]int{}}
	for i, o := range obs {
		if _, ok := g.idx[o]; !ok {
			g.order = append(g.order, o)
		}
		g.idx[o] = append(g.idx[o], i)
	}
	return g
}

func (g groups) values(o string, v []float64) []float64 {
	ix := g.idx[o]
	s := make([]float64, len(ix))
	for k, i := range ix {
		s[k] = v[i]
	}
	return s
}

// FitShifts runs the shift-fit on points x = log10 r with magnitudes y
// and observer codes obs.
//
// Without a seed the first iteration fits y with unit weights.  Each
// following iteration weights points by their observer's residual
// standard deviation, fits the shifted magnitudes, and shifts each
// observer's magnitudes by the observer's mean residual.  Iteration stops
// when no coefficient moves by Tolerance or more, or after MaxIterations.
//
// With a seed, iteration starts from the seed's shifted magnitudes and
// weights and the first fit is compared against the seed's coefficients.
func FitShifts(x, y []float64, obs []string, seed *Seed) (*ShiftFit, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrNoPoints
	}
	if len(y) != n || len(obs) != n {
		return nil, errors.New("regress: x, y, observer lengths differ")
	}
	g := groupObservers(obs)
	f := &ShiftFit{}
	var (
		p     Poly
		sigma []float64
		resid []float64
		err   error
	)
	if seed == nil {
		sigma = make([]float64, n)
		for i := range sigma {
			sigma[i] = 1
		}
		if p, err = Fit(x, y, sigma); err != nil {
			return nil, err
		}
		f.First = p
		f.MShift = append([]float64{}, y...)
		resid = residuals(p, x, f.MShift)
		g.shift(f.MShift, resid)
	} else {
		if len(seed.MShift) != n || len(seed.Sigma) != n {
			return nil, errors.New("regress: seed does not match points")
		}
		p = seed.Coef
		f.First = seed.Coef
		f.MShift = append([]float64{}, seed.MShift...)
		sigma = seed.Sigma
	}
	for k := 1; k <= MaxIterations; k++ {
		if resid != nil {
			sigma = g.sigma(resid)
		}
		prev := p
		if p, err = Fit(x, f.MShift, sigma); err != nil {
			return nil, err
		}
		resid = residuals(p, x, f.MShift)
		g.shift(f.MShift, resid)
		f.Iterations = k
		if p.Converged(prev) {
			f.Converged = true
			break
		}
	}
	f.Coef = p
	f.Sigma = g.sigma(resid)
	f.Observers = make(map[string]ObserverStats, len(g.order))
	for _, o := range g.order {
		r := g.values(o, resid)
		f.Observers[o] = ObserverStats{Count: len(r), Mean: stat.Mean(r, nil), Std: sampleStd(r)}
	}
	f.Residual = residuals(p, x, f.MShift)
	return f, nil
}

// residuals returns p(x) - y.
func residuals(p Poly, x, y []float64) []float64 {
	r := make([]float64, len(x))
	for i := range x {
		r[i] = p.Eval(x[i]) - y[i]
	}
	return r
}

// shift adds each observer's mean residual to the observer's magnitudes.
func (g groups) shift(m, resid []float64) {
	for _, o := range g.order {
		mean := stat.Mean(g.values(o, resid), nil)
		for _, i := range g.idx[o] {
			m[i] += mean
		}
	}
}

// sigma returns per point weights, the residual standard deviation of the
// point's observer.  Observers with one point or identical residuals take
// the standard deviation of all residuals, or 1 if that is not positive
// either.
func (g groups) sigma(resid []float64) []float64 {
	pooled := sampleStd(resid)
	if !(pooled > 0) {
		pooled = 1
	}
	s := make([]float64, len(resid))
	for _, o := range g.order {
		sd := sampleStd(g.values(o, resid))
		if !(sd > 0) {
			sd = pooled
		}
		for _, i := range g.idx[o] {
			s[i] = sd
		}
	}
	return s
}

// sampleStd is the n-1 standard deviation, NaN for fewer than 2 values.
func sampleStd(v []float64) float64 {
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil)
}
