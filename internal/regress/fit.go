// Public domain.

// Package regress fits a light curve polynomial to magnitudes from many
// observers while solving for each observer's systematic offset, and drops
// observers whose offset drifts over the apparition.
package regress

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Degree of the fitted polynomial in log10 r.
const Degree = 5

// Tolerance is the largest change in any coefficient between iterations
// that counts as converged.
const Tolerance = 1e-4

var eps = math.Nextafter(1, 2) - 1

// ErrNoPoints is returned for fits with no data.
var ErrNoPoints = errors.New("regress: no points")

// Poly holds polynomial coefficients, highest degree first.
type Poly []float64

// Eval evaluates p at x.
func (p Poly) Eval(x float64) (y float64) {
	for _, c := range p {
		y = y*x + c
	}
	return
}

// MaxDiff returns the largest absolute coefficient difference.  Polys of
// different length compare as infinitely different.
func (p Poly) MaxDiff(q Poly) float64 {
	if len(p) != len(q) {
		return math.Inf(1)
	}
	d := 0.
	for i := range p {
		d = math.Max(d, math.Abs(p[i]-q[i]))
	}
	return d
}

// Converged reports whether every coefficient of p is within Tolerance
// of q.
func (p Poly) Converged(q Poly) bool { return p.MaxDiff(q) < Tolerance }

// Fit solves the weighted least squares polynomial of Degree through
// (x, y) with standard errors sigma.
//
// The design matrix is decomposed by thin SVD and singular values below
// max(N, Degree+1) * eps * the largest are dropped, giving the minimum norm
// solution when distances cluster and the design is rank deficient.
func Fit(x, y, sigma []float64) (Poly, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrNoPoints
	}
	if len(y) != n || len(sigma) != n {
		return nil, errors.New("regress: x, y, sigma lengths differ")
	}
	const nc = Degree + 1
	a := mat.NewDense(n, nc, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		xp := 1.
		for j := 0; j < nc; j++ {
			a.Set(i, j, xp/sigma[i])
			xp *= x[i]
		}
		b.SetVec(i, y[i]/sigma[i])
	}
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, errors.New("regress: SVD failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	var w mat.VecDense
	w.MulVec(u.T(), b)
	cut := float64(max(n, nc)) * eps * s[0]
	for k, sk := range s {
		if sk > cut {
			w.SetVec(k, w.AtVec(k)/sk)
		} else {
			w.SetVec(k, 0)
		}
	}
	var c mat.VecDense
	c.MulVec(&v, &w)

	p := make(Poly, nc)
	for j := 0; j < nc; j++ {
		p[Degree-j] = c.AtVec(j)
	}
	return p, nil
}
