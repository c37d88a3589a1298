// Public domain.

package regress_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	xrand "golang.org/x/exp/rand"

	"github.com/curtisa1/icqsplitter/internal/regress"
)

func ExamplePoly_Eval() {
	p := regress.Poly{1, 2, 3} // x² + 2x + 3
	fmt.Println(p.Eval(2))
	// Output:
	// 11
}

// grid returns n points per observer, interleaved over x in [.05, .95],
// in descending x.
func grid(observers []string, n int) (x []float64, obs []string) {
	for j := n - 1; j >= 0; j-- {
		for o := len(observers) - 1; o >= 0; o-- {
			x = append(x, .05+.9*(float64(j)+float64(o)/float64(len(observers)))/float64(n))
			obs = append(obs, observers[o])
		}
	}
	return
}

func TestFitRecoversPolynomial(t *testing.T) {
	want := regress.Poly{.5, -1, 2, -3, 10, 5}
	var x, y, s []float64
	for i := 0; i < 30; i++ {
		xi := float64(i) / 29
		x = append(x, xi)
		y = append(y, want.Eval(xi))
		s = append(s, 1+float64(i%3))
	}
	got, err := regress.Fit(x, y, s)
	require.NoError(t, err)
	require.Len(t, got, regress.Degree+1)
	assert.Less(t, got.MaxDiff(want), 1e-6)
}

func TestFitRankDeficient(t *testing.T) {
	// all at one distance: minimum norm solution still fits the data
	p, err := regress.Fit([]float64{.5, .5, .5}, []float64{2, 2, 2}, []float64{1, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 2, p.Eval(.5), 1e-9)

	// fewer points than coefficients interpolate
	p, err = regress.Fit([]float64{.1, .9}, []float64{7, 3}, []float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 7, p.Eval(.1), 1e-9)
	assert.InDelta(t, 3, p.Eval(.9), 1e-9)

	_, err = regress.Fit(nil, nil, nil)
	assert.ErrorIs(t, err, regress.ErrNoPoints)
}

func TestPolyMaxDiff(t *testing.T) {
	p := regress.Poly{1, 2, 3}
	assert.Equal(t, .5, p.MaxDiff(regress.Poly{1, 2.5, 3}))
	assert.True(t, math.IsInf(p.MaxDiff(regress.Poly{1}), 1))
	assert.True(t, p.Converged(regress.Poly{1, 2, 3.00005}))
	assert.False(t, p.Converged(regress.Poly{1, 2, 3.0002}))
}

func TestLinearConvergesQuickly(t *testing.T) {
	x, obs := grid([]string{"A", "B", "C"}, 10)
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 5 + 10*xi
	}
	f, err := regress.FitShifts(x, y, obs, nil)
	require.NoError(t, err)
	assert.True(t, f.Converged)
	assert.LessOrEqual(t, f.Iterations, 2)
	assert.True(t, f.Coef.Converged(regress.Poly{0, 0, 0, 0, 10, 5}), "%v", f.Coef)
	for i := range y {
		assert.InDelta(t, y[i], f.MShift[i], 1e-6)
	}
}

// offsetData has exact magnitudes 5 + 10x plus a constant per observer.
func offsetData() (x, y []float64, obs []string, offset map[string]float64) {
	offset = map[string]float64{"A": 0, "B": .3, "C": -.2, "D": .5}
	x, obs = grid([]string{"A", "B", "C", "D"}, 12)
	y = make([]float64, len(x))
	for i, xi := range x {
		y[i] = 5 + 10*xi + offset[obs[i]]
	}
	return
}

func TestShiftsRemoveObserverOffsets(t *testing.T) {
	x, y, obs, offset := offsetData()
	f, err := regress.FitShifts(x, y, obs, nil)
	require.NoError(t, err)
	require.True(t, f.Converged)
	// shifted magnitudes differ from the truth by one common constant
	c := f.MShift[0] - (5 + 10*x[0])
	for i := range x {
		assert.InDelta(t, c, f.MShift[i]-(5+10*x[i]), 1e-3)
		assert.InDelta(t, offset[obs[0]]-offset[obs[i]], (f.MShift[i]-y[i])-(f.MShift[0]-y[0]), 1e-3)
	}
	assert.Len(t, f.Observers, 4)
	assert.Equal(t, 12, f.Observers["C"].Count)
	assert.Len(t, f.Sigma, len(x))
	assert.Len(t, f.Residual, len(x))
}

func TestSeedFromConvergedFit(t *testing.T) {
	x, y, obs, _ := offsetData()
	f, err := regress.FitShifts(x, y, obs, nil)
	require.NoError(t, err)
	require.True(t, f.Converged)

	g, err := regress.FitShifts(x, y, obs, f.Seed())
	require.NoError(t, err)
	assert.True(t, g.Converged)
	assert.Equal(t, 1, g.Iterations)
	assert.Less(t, g.Coef.MaxDiff(f.Coef), regress.Tolerance)
	assert.Equal(t, f.Coef, g.First)

	_, err = regress.FitShifts(x, y, obs, &regress.Seed{Coef: f.Coef})
	assert.Error(t, err)
}

func TestNoisyShifts(t *testing.T) {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(3)
	x, y, obs, offset := offsetData()
	for i := range y {
		y[i] += .02 * rnd.NormFloat64()
	}
	f, err := regress.FitShifts(x, y, obs, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.Iterations, regress.MaxIterations)
	first := map[string]float64{}
	for i, o := range obs {
		if _, ok := first[o]; !ok {
			first[o] = f.MShift[i] - y[i]
		}
	}
	for o, off := range offset {
		assert.InDelta(t, -(off - offset["A"]), first[o]-first["A"], .1, o)
	}
}

func TestSinglePointObserver(t *testing.T) {
	x, y, obs, _ := offsetData()
	x = append(x, .5)
	y = append(y, 10.4)
	obs = append(obs, "LONE")
	f, err := regress.FitShifts(x, y, obs, nil)
	require.NoError(t, err)
	lone := f.Observers["LONE"]
	assert.Equal(t, 1, lone.Count)
	assert.True(t, math.IsNaN(lone.Std))
	assert.Greater(t, f.Sigma[len(x)-1], 0.)
	for _, s := range f.Sigma {
		assert.False(t, math.IsNaN(s))
	}
	for _, st := range regress.CheckStationarity(obs, f.Residual, regress.Alpha) {
		if st.Observer == "LONE" {
			assert.False(t, st.Tested)
			assert.False(t, st.Condemned)
		}
	}
}

func TestWelch(t *testing.T) {
	obs := []string{"W", "W", "W", "W", "W", "W", "W", "W"}
	res := []float64{1, 2, 3, 4, 2, 4, 6, 8}
	st := regress.CheckStationarity(obs, res, regress.Alpha)
	require.Len(t, st, 1)
	assert.True(t, st[0].Tested)
	assert.False(t, st[0].Condemned)
	assert.InDelta(t, -math.Sqrt(3), st[0].T, 1e-9)
	assert.InDelta(t, 4.411765, st[0].DF, 1e-5)
	assert.InDelta(t, .1516, st[0].P, 1e-3)
	assert.Equal(t, 4, st[0].Early)
	assert.Equal(t, 4, st[0].Late)
}

func TestStationarityCases(t *testing.T) {
	var obs []string
	var res []float64
	add := func(o string, r ...float64) {
		for _, v := range r {
			obs = append(obs, o)
			res = append(res, v)
		}
	}
	add("DRIFT", .5, .6, .4, .5, -.5, -.4, -.6, -.5)
	add("STEADY", .1, -.1, .05, -.05, .1, -.1, .05, -.05)
	add("FEW", .1, .2, .3)
	add("FLAT", .2, .2, .2, .2)
	got := map[string]regress.Stationarity{}
	for _, st := range regress.CheckStationarity(obs, res, regress.Alpha) {
		got[st.Observer] = st
	}
	assert.True(t, got["DRIFT"].Condemned)
	assert.True(t, got["STEADY"].Tested)
	assert.False(t, got["STEADY"].Condemned)
	assert.InDelta(t, 1, got["STEADY"].P, 1e-9)
	assert.False(t, got["FEW"].Tested)
	assert.Equal(t, 1, got["FEW"].Early)
	assert.False(t, got["FLAT"].Tested)
	assert.False(t, got["FLAT"].Condemned)
	assert.True(t, math.IsNaN(got["FLAT"].P))
}

// driftData has four steady observers and observer "BIAS", whose later
// half of points is 1 magnitude fainter.  Every observer's scatter is the
// same in both halves.
func driftData() []regress.Point {
	names := []string{"O1", "O2", "O3", "O4", "BIAS"}
	offset := []float64{0, .3, -.2, .1, 0}
	scatter := []float64{.1, -.05, -.1, .05}
	const n = 8
	var pts []regress.Point
	for o, name := range names {
		for j := 0; j < n; j++ {
			x := .05 + .9*(float64(j)+float64(o)/5)/n
			rank := n - 1 - j // in descending r
			m := 5 + 10*x + offset[o] + scatter[rank%(n/2)]
			if name == "BIAS" && rank >= n/2 {
				m++
			}
			pts = append(pts, regress.Point{
				Row:      len(pts),
				Observer: name,
				Time:     time.Date(1996, 6, 1+j, 0, 0, 0, 0, time.UTC),
				R:        math.Pow(10, x),
				Mag:      m,
			})
		}
	}
	return pts
}

func TestSolvePartitionCondemnsDrift(t *testing.T) {
	res, err := regress.SolvePartition(context.Background(), "pre", driftData(),
		regress.DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"BIAS"}, res.Condemned)
	assert.Equal(t, 2, res.Outer)
	assert.True(t, res.Settled)
	require.False(t, res.Empty())
	assert.Len(t, res.Points, 32)
	assert.Len(t, res.Fit.MShift, 32)
	for i := 1; i < len(res.Points); i++ {
		assert.GreaterOrEqual(t, res.Points[i-1].R, res.Points[i].R)
	}
	for _, p := range res.Points {
		assert.NotEqual(t, "BIAS", p.Observer)
	}
}

func TestSolvePartitionBound(t *testing.T) {
	opt := regress.DefaultOptions()
	opt.MaxOuter = 1
	res, err := regress.SolvePartition(context.Background(), "pre", driftData(), opt, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, res.Settled)
	assert.Equal(t, 1, res.Outer)
	assert.Equal(t, []string{"BIAS"}, res.Condemned)
	// condemned observer's points leave the table, the fit is the last pass's
	require.Len(t, res.Points, 32)
	assert.Len(t, res.Fit.MShift, 32)
	assert.Len(t, res.Fit.Sigma, 32)
	assert.Len(t, res.Fit.Residual, 32)
	for _, p := range res.Points {
		assert.NotEqual(t, "BIAS", p.Observer)
	}
	assert.Len(t, res.Fit.Coef, regress.Degree+1)
	assert.Contains(t, res.Fit.Observers, "BIAS")
}

func TestShiftsIterationCap(t *testing.T) {
	// a magnitude that is not a number leaves every coefficient NaN, so
	// successive fits never agree
	x, y, obs, _ := offsetData()
	y[5] = math.NaN()
	f, err := regress.FitShifts(x, y, obs, nil)
	require.NoError(t, err)
	assert.False(t, f.Converged)
	assert.Equal(t, regress.MaxIterations, f.Iterations)
	assert.Len(t, f.Coef, regress.Degree+1)
	assert.Len(t, f.MShift, len(x))
	assert.Len(t, f.Sigma, len(x))
	for _, s := range f.Sigma {
		assert.Greater(t, s, 0.)
	}
}

func TestSolvePartitionWarnsNoConvergence(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pts := driftData()
	pts[3].Mag = math.NaN()
	res, err := regress.SolvePartition(context.Background(), "post", pts,
		regress.DefaultOptions(), zap.New(core))
	require.NoError(t, err)
	assert.False(t, res.Fit.Converged)
	assert.Equal(t, regress.MaxIterations, res.Fit.Iterations)
	// untestable residuals condemn nobody
	assert.True(t, res.Settled)
	assert.Empty(t, res.Condemned)

	warned := logs.FilterMessage("fit did not converge").All()
	require.Len(t, warned, 1)
	ctx := warned[0].ContextMap()
	assert.Equal(t, "post", ctx["partition"])
	assert.EqualValues(t, regress.MaxIterations, ctx["iterations"])
	assert.EqualValues(t, 1, ctx["pass"])
}

func TestSolveSplitsAtPerihelion(t *testing.T) {
	pts := driftData()
	perihelion := time.Date(1996, 6, 4, 18, 0, 0, 0, time.UTC)
	pre, post := regress.Split(pts, perihelion)
	assert.Len(t, pre, 20) // June 1 through 4
	assert.Len(t, post, 20)

	for _, parallel := range []bool{false, true} {
		opt := regress.DefaultOptions()
		opt.Parallel = parallel
		a, err := regress.Solve(context.Background(), pts, perihelion, opt, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "pre", a.Pre.Label)
		assert.Equal(t, "post", a.Post.Label)
		assert.False(t, a.Pre.Empty())
		assert.False(t, a.Post.Empty())
	}
}

func TestSolveEmptyPartition(t *testing.T) {
	pts := driftData()
	a, err := regress.Solve(context.Background(), pts,
		time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), regress.DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	assert.True(t, a.Pre.Empty())
	assert.True(t, a.Pre.Settled)
	assert.Empty(t, a.Pre.Points)
	assert.Zero(t, a.Pre.Outer)
	assert.False(t, a.Post.Empty())
	assert.Equal(t, []string{"BIAS"}, a.Post.Condemned)
}

func TestSolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := regress.SolvePartition(ctx, "pre", driftData(), regress.DefaultOptions(), zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
