// Public domain.

package regress

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Point is one corrected observation offered to the regression.
type Point struct {
	Row      int // caller's index
	Observer string
	Time     time.Time
	R        float64 // heliocentric distance, au
	Mag      float64 // input magnitude
}

// Options control Solve.
type Options struct {
	// MaxOuter bounds the condemnation passes.
	MaxOuter int
	// Alpha is the significance level of the stationarity test.
	Alpha float64
	// Parallel solves the pre and post perihelion partitions concurrently.
	Parallel bool
}

// DefaultOptions returns the standard options.
func DefaultOptions() Options {
	return Options{MaxOuter: 50, Alpha: Alpha, Parallel: true}
}

// Result is the solution for one partition.
type Result struct {
	Label string
	// Points are the retained points in descending r.  Fit slices are
	// aligned with Points.
	Points    []Point
	Fit       *ShiftFit // nil for an empty partition
	Tests     []Stationarity
	Condemned []string // in order condemned
	Outer     int      // condemnation passes run
	// Settled is false if the pass bound was reached with observers still
	// being condemned.  Points and the Fit slices then exclude observers
	// condemned in the last pass, but Fit.Coef is the last pass's fit, which
	// included them.
	Settled bool
}

// Empty reports whether the partition had no points to fit.
func (r *Result) Empty() bool { return r.Fit == nil }

// Apparition holds the pre and post perihelion results.
type Apparition struct {
	Perihelion time.Time
	Pre, Post  *Result
}

// Pre reports whether t falls on or before the calendar date of
// perihelion.
func Pre(t, perihelion time.Time) bool {
	y, m, d := t.UTC().Date()
	py, pm, pd := perihelion.UTC().Date()
	return !time.Date(y, m, d, 0, 0, 0, 0, time.UTC).After(time.Date(py, pm, pd, 0, 0, 0, 0, time.UTC))
}

// Split partitions points by calendar date: those on or before the date of
// perihelion are pre, the rest post.
func Split(pts []Point, perihelion time.Time) (pre, post []Point) {
	for _, p := range pts {
		if Pre(p.Time, perihelion) {
			pre = append(pre, p)
		} else {
			post = append(post, p)
		}
	}
	return
}

// Solve splits pts at perihelion and solves both partitions.
func Solve(ctx context.Context, pts []Point, perihelion time.Time, opt Options, log *zap.Logger) (*Apparition, error) {
	pre, post := Split(pts, perihelion)
	a := &Apparition{Perihelion: perihelion}
	if !opt.Parallel {
		var err error
		if a.Pre, err = SolvePartition(ctx, "pre", pre, opt, log); err != nil {
			return nil, err
		}
		if a.Post, err = SolvePartition(ctx, "post", post, opt, log); err != nil {
			return nil, err
		}
		return a, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a.Pre, err = SolvePartition(gctx, "pre", pre, opt, log)
		return
	})
	g.Go(func() (err error) {
		a.Post, err = SolvePartition(gctx, "post", post, opt, log)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return a, nil
}

// SolvePartition repeats the shift-fit, removing every observer the
// stationarity test condemns and restarting from the input magnitudes,
// until a pass condemns nobody or opt.MaxOuter passes have run.
func SolvePartition(ctx context.Context, label string, pts []Point, opt Options, log *zap.Logger) (*Result, error) {
	if opt.MaxOuter <= 0 {
		opt.MaxOuter = DefaultOptions().MaxOuter
	}
	if opt.Alpha <= 0 {
		opt.Alpha = Alpha
	}
	log = log.Named("regress").With(zap.String("partition", label))
	res := &Result{Label: label}
	active := append([]Point{}, pts...)
	sort.SliceStable(active, func(i, j int) bool { return active[i].R > active[j].R })

	var bad map[string]bool
	for res.Outer < opt.MaxOuter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Points = active
		res.Fit, res.Tests = nil, nil
		if len(active) == 0 {
			log.Info("no points to fit")
			res.Settled = true
			return res, nil
		}
		res.Outer++
		x := make([]float64, len(active))
		y := make([]float64, len(active))
		obs := make([]string, len(active))
		for i, p := range active {
			x[i] = math.Log10(p.R)
			y[i] = p.Mag
			obs[i] = p.Observer
		}
		f, err := FitShifts(x, y, obs, nil)
		if err != nil {
			return nil, err
		}
		res.Fit = f
		if !f.Converged {
			log.Warn("fit did not converge",
				zap.Int("pass", res.Outer),
				zap.Int("iterations", f.Iterations),
				zap.Float64s("coefficients", f.Coef))
		} else {
			log.Debug("fit converged",
				zap.Int("pass", res.Outer),
				zap.Int("iterations", f.Iterations))
		}
		res.Tests = CheckStationarity(obs, f.Residual, opt.Alpha)
		bad = map[string]bool{}
		for _, st := range res.Tests {
			if st.Condemned {
				bad[st.Observer] = true
				res.Condemned = append(res.Condemned, st.Observer)
				log.Info("observer condemned",
					zap.String("observer", st.Observer),
					zap.Float64("t", st.T),
					zap.Float64("p", st.P))
			}
		}
		if len(bad) == 0 {
			res.Settled = true
			log.Info("partition solved",
				zap.Int("points", len(active)),
				zap.Int("observers", len(f.Observers)),
				zap.Int("passes", res.Outer),
				zap.Int("condemned", len(res.Condemned)))
			return res, nil
		}
		keep := active[:0:0]
		for _, p := range active {
			if !bad[p.Observer] {
				keep = append(keep, p)
			}
		}
		active = keep
	}
	log.Error("condemnation passes exhausted",
		zap.Int("passes", res.Outer),
		zap.Int("condemned", len(res.Condemned)))
	res.drop(bad)
	return res, nil
}

// drop removes points of the bad observers from Points and the aligned
// Fit slices.
func (r *Result) drop(bad map[string]bool) {
	if r.Fit == nil || len(bad) == 0 {
		return
	}
	f := *r.Fit
	f.MShift, f.Sigma, f.Residual = nil, nil, nil
	var pts []Point
	for k, p := range r.Points {
		if bad[p.Observer] {
			continue
		}
		pts = append(pts, p)
		f.MShift = append(f.MShift, r.Fit.MShift[k])
		f.Sigma = append(f.Sigma, r.Fit.Sigma[k])
		f.Residual = append(f.Residual, r.Fit.Residual[k])
	}
	r.Points, r.Fit = pts, &f
}
