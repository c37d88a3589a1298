// Public domain.

// Package splitter runs the whole reduction: read, filter, correct, solve
// and write.
package splitter

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/curtisa1/icqsplitter/internal/config"
	"github.com/curtisa1/icqsplitter/internal/correct"
	"github.com/curtisa1/icqsplitter/internal/ephemeris"
	"github.com/curtisa1/icqsplitter/internal/export"
	"github.com/curtisa1/icqsplitter/internal/filter"
	"github.com/curtisa1/icqsplitter/internal/icq"
	"github.com/curtisa1/icqsplitter/internal/phase"
	"github.com/curtisa1/icqsplitter/internal/record"
	"github.com/curtisa1/icqsplitter/internal/regress"
)

// Result is everything a run produced.
type Result struct {
	ID         string
	Started    time.Time
	Stats      icq.ReadStats
	Kept       *record.Store
	Removed    *record.Removed
	Rows       []correct.Row       // aligned with Kept; nil without corrections
	Apparition *regress.Apparition // nil without stats
	MShift     []float64           // aligned with Kept, NaN where not solved; nil without stats
	Report     *export.Report
}

// NewSource returns the ephemeris source the configuration selects.
func NewSource(c *config.Config, log *zap.Logger) ephemeris.Source {
	e := &c.Ephemeris
	if e.Source == "file" {
		return ephemeris.File{Path: e.File}
	}
	h := ephemeris.NewHorizons(c.Target, log)
	if e.URL != "" {
		h.URL = e.URL
	}
	h.MaxSteps = e.MaxSteps
	h.Timeout = e.Timeout
	h.Limiter = rate.NewLimiter(rate.Limit(e.Rate), 1)
	h.Retry.MaxAttempts = e.Attempts
	return h
}

// ReadInput reads the configured observation file.
func ReadInput(path string, log *zap.Logger) ([]icq.Observation, icq.ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, icq.ReadStats{}, err
	}
	defer f.Close()
	obs, st, err := icq.Read(f)
	if err != nil {
		return nil, st, fmt.Errorf("%s: %w", path, err)
	}
	log.Info("observations read",
		zap.String("input", path),
		zap.Int("lines", st.Lines),
		zap.Int("padded", st.Padded))
	if st.Truncated > 0 {
		log.Warn("lines longer than 80 characters cut", zap.Int("lines", st.Truncated))
	}
	return obs, st, nil
}

// Run runs the reduction c describes and writes its outputs.  src supplies
// the ephemeris when corrections are selected.
func Run(ctx context.Context, c *config.Config, src ephemeris.Source, log *zap.Logger) (*Result, error) {
	res := &Result{ID: uuid.NewString(), Started: time.Now().UTC()}
	log = log.With(zap.String("run", res.ID))

	obs, st, err := ReadInput(c.Input, log)
	if err != nil {
		return nil, err
	}
	res.Stats = st
	chain := filter.Standard(filter.Options{
		CCDOnly:          c.CCD,
		RejectedCatalogs: c.Catalogs.Rejected,
	}, log)
	res.Kept, res.Removed = chain.Run(record.NewStore(obs))

	if mode := c.Mode(); mode.Any() {
		if err := correctKept(ctx, c, src, res, log); err != nil {
			return nil, err
		}
	}
	if n := res.Kept.Len() + res.Removed.Len(); n != len(obs) {
		return nil, fmt.Errorf("splitter: %d kept and removed of %d read", n, len(obs))
	}
	log.Info("observations sorted",
		zap.Int("kept", res.Kept.Len()),
		zap.Int("removed", res.Removed.Len()))

	if c.Stats {
		pts := Points(res.Kept, res.Rows)
		res.Apparition, err = regress.Solve(ctx, pts, c.PerihelionTime(), c.RegressOptions(), log)
		if err != nil {
			return nil, err
		}
		res.MShift = MShift(res.Kept.Len(), res.Apparition)
	}
	res.Report = newReport(c, res)
	if err := Write(ctx, c, res, log); err != nil {
		return nil, err
	}
	return res, nil
}

func correctKept(ctx context.Context, c *config.Config, src ephemeris.Source, res *Result, log *zap.Logger) error {
	if res.Kept.Len() == 0 {
		log.Warn("no observations to correct")
		res.Rows = []correct.Row{}
		return nil
	}
	incr := c.Ephemeris.IncrementDuration()
	times := make([]time.Time, res.Kept.Len())
	for i := range times {
		times[i] = res.Kept.Time(i)
	}
	start, stop, _ := ephemeris.Range(times)
	samples, err := src.Samples(ctx, start, stop, incr)
	if err != nil {
		return fmt.Errorf("ephemeris: %w", err)
	}
	table, err := ephemeris.NewTable(incr, samples)
	if err != nil {
		return err
	}
	log.Info("ephemeris loaded",
		zap.Time("start", start),
		zap.Time("stop", stop),
		zap.Duration("increment", incr),
		zap.Int("samples", table.Len()))
	cr := &correct.Corrector{
		Mode:      c.Mode(),
		Ephemeris: table,
		Log:       log.Named("correct"),
	}
	if cr.Mode.Phase {
		if cr.Phase, err = phase.ReadFile(c.PhaseTable); err != nil {
			return err
		}
	}
	res.Kept, res.Rows, err = cr.Apply(res.Kept, res.Removed)
	return err
}

// Points returns the regression input of the kept observations.
func Points(s *record.Store, rows []correct.Row) []regress.Point {
	pts := make([]regress.Point, s.Len())
	for i := range pts {
		pts[i] = regress.Point{
			Row:      i,
			Observer: s.Observer(i),
			Time:     s.Time(i),
			R:        rows[i].R,
			Mag:      rows[i].Input(),
		}
	}
	return pts
}

// MShift aligns the shifted magnitudes of a with the n kept observations.
// Observations not in a final fit are NaN.
func MShift(n int, a *regress.Apparition) []float64 {
	m := make([]float64, n)
	for i := range m {
		m[i] = math.NaN()
	}
	for _, r := range []*regress.Result{a.Pre, a.Post} {
		if r == nil || r.Empty() {
			continue
		}
		for k, p := range r.Points {
			m[p.Row] = r.Fit.MShift[k]
		}
	}
	return m
}

func newReport(c *config.Config, res *Result) *export.Report {
	rep := &export.Report{
		Run:        res.ID,
		Started:    res.Started,
		Input:      c.Input,
		Magnitude:  c.Mode().Input(),
		Perihelion: c.PerihelionTime(),
		Read:       res.Stats.Lines,
		Kept:       res.Kept.Len(),
		Removed:    res.Removed.Len(),
		RemovedBy:  export.CountRemoved(res.Removed),
	}
	if a := res.Apparition; a != nil {
		rep.Partitions = []export.Partition{export.NewPartition(a.Pre), export.NewPartition(a.Post)}
	}
	return rep
}
