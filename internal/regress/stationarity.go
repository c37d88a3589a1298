// Public domain.

package regress

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the default significance level below which an observer's
// residuals are taken to drift.
const Alpha = .05

// Stationarity is the result of testing one observer.
type Stationarity struct {
	Observer    string
	Early, Late int     // points in each half
	T, DF, P    float64 // NaN when not tested
	Tested      bool
	Condemned   bool
	MeanEarly   float64
	MeanLate    float64
}

// CheckStationarity compares each observer's early and late residuals with
// Welch's unequal variance t-test.
//
// Points must be in apparition order, descending r.  An observer's first
// n/2 points, rounded down, are the early half and the rest the late
// half.  Observers with fewer than 2 points in a half or with zero
// standard error are not tested and are never condemned.  Results are in
// order of first appearance.
func CheckStationarity(obs []string, resid []float64, alpha float64) []Stationarity {
	g := groupObservers(obs)
	out := make([]Stationarity, 0, len(g.order))
	for _, o := range g.order {
		r := g.values(o, resid)
		h := len(r) / 2
		st := welch(r[:h], r[h:])
		st.Observer = o
		st.Condemned = st.Tested && st.P < alpha
		out = append(out, st)
	}
	return out
}

func welch(a, b []float64) (s Stationarity) {
	s.Early, s.Late = len(a), len(b)
	s.T, s.DF, s.P = math.NaN(), math.NaN(), math.NaN()
	s.MeanEarly, s.MeanLate = math.NaN(), math.NaN()
	if len(a) > 0 {
		s.MeanEarly = stat.Mean(a, nil)
	}
	if len(b) > 0 {
		s.MeanLate = stat.Mean(b, nil)
	}
	if len(a) < 2 || len(b) < 2 {
		return
	}
	na, nb := float64(len(a)), float64(len(b))
	qa := stat.Variance(a, nil) / na
	qb := stat.Variance(b, nil) / nb
	se := math.Sqrt(qa + qb)
	if !(se > 0) {
		return
	}
	s.Tested = true
	s.T = (s.MeanEarly - s.MeanLate) / se
	s.DF = (qa + qb) * (qa + qb) / (qa*qa/(na-1) + qb*qb/(nb-1))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: s.DF}
	s.P = 2 * t.CDF(-math.Abs(s.T))
	return
}
