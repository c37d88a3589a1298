// Public domain.

// Package correct applies distance and phase angle corrections to
// observed magnitudes.
package correct

import (
	"errors"
	"math"

	"github.com/soniakeys/unit"
	"go.uber.org/zap"

	"github.com/curtisa1/icqsplitter/internal/ephemeris"
	"github.com/curtisa1/icqsplitter/internal/phase"
	"github.com/curtisa1/icqsplitter/internal/record"
)

// Mode selects the corrections applied.
type Mode struct {
	Helio bool // remove the observer distance term
	Phase bool // normalize to 0 degrees phase angle
}

// Any reports whether any correction is selected.
func (m Mode) Any() bool { return m.Helio || m.Phase }

// Input names the magnitude that feeds the regression.
func (m Mode) Input() string {
	switch {
	case m.Phase && m.Helio:
		return "mph"
	case m.Phase:
		return "mph*"
	case m.Helio:
		return "mhelio"
	}
	return "m"
}

// Row is the geometry and corrected magnitudes of one kept observation.
// Magnitudes not computed in the mode are NaN.
type Row struct {
	R, Delta float64
	Phase    unit.Angle
	MHelio   float64
	MPhase   float64
}

// Input returns the regression input magnitude: the phase corrected
// magnitude when computed, otherwise the distance corrected one.
func (r *Row) Input() float64 {
	if !math.IsNaN(r.MPhase) {
		return r.MPhase
	}
	return r.MHelio
}

// Other returns the corrected magnitude that is not the input, NaN if
// only one was computed.
func (r *Row) Other() float64 {
	if math.IsNaN(r.MPhase) {
		return math.NaN()
	}
	return r.MHelio
}

// Helio removes the observer distance term: m - 5 log10 delta.
func Helio(m, delta float64) float64 { return m - 5*math.Log10(delta) }

// Corrector applies corrections in one mode.
type Corrector struct {
	Mode      Mode
	Ephemeris *ephemeris.Table
	Phase     phase.Table // required in phase mode
	Log       *zap.Logger
}

// Apply corrects every row of s.  Rows without an ephemeris sample and,
// in phase mode, rows whose phase angle is outside the phase table are
// moved to rm.  Returned rows are aligned with the returned store.
func (c *Corrector) Apply(s *record.Store, rm *record.Removed) (*record.Store, []Row, error) {
	if c.Ephemeris == nil {
		return nil, nil, errors.New("correct: no ephemeris")
	}
	if c.Mode.Phase && c.Phase == nil {
		return nil, nil, errors.New("correct: phase mode without a phase table")
	}
	rows := make([]Row, 0, s.Len())
	n := rm.Len()
	kept := s.Partition(rm, func(i int) (record.Reason, bool) {
		smp, ok := c.Ephemeris.Lookup(s.Time(i))
		if !ok {
			return record.NoEphemeris, true
		}
		r := Row{R: smp.R, Delta: smp.Delta, Phase: smp.Phase,
			MHelio: math.NaN(), MPhase: math.NaN()}
		m := s.Mag(i)
		if c.Mode.Helio {
			r.MHelio = Helio(m, smp.Delta)
			m = r.MHelio
		}
		if c.Mode.Phase {
			dm, ok := c.Phase.Correction(smp.Phase)
			if !ok {
				return record.PhaseOutOfTable, true
			}
			r.MPhase = m + dm
		}
		// Partition visits rows in order, so rows stays aligned with kept
		rows = append(rows, r)
		return 0, false
	})
	if removed := rm.Len() - n; removed > 0 {
		cnt := map[record.Reason]int{}
		for _, r := range rm.Reasons[n:] {
			cnt[r]++
		}
		c.Log.Warn("observations without correction removed",
			zap.Int("no_ephemeris", cnt[record.NoEphemeris]),
			zap.Int("phase_out_of_table", cnt[record.PhaseOutOfTable]))
	}
	c.Log.Info("corrections applied",
		zap.Bool("heliocentric", c.Mode.Helio),
		zap.Bool("phase", c.Mode.Phase),
		zap.Int("corrected", kept.Len()))
	return kept, rows, nil
}
