// Public domain.

// Package export lays out kept, removed and per partition observations as
// tables and writes them as CSV files, an xlsx workbook and a YAML fit
// report.
package export

import (
	"math"
	"strconv"

	"github.com/curtisa1/icqsplitter/internal/correct"
	"github.com/curtisa1/icqsplitter/internal/icq"
	"github.com/curtisa1/icqsplitter/internal/record"
	"github.com/curtisa1/icqsplitter/internal/regress"
)

// Table is rows of cells, the first row being headings.
type Table [][]string

// DateLayout formats observation times.
const DateLayout = "2006-01-02T15:04:05"

// Column headings beyond the observation fields.
const (
	HeadDate     = "Date YYYY-MM-DDTHH:MM:SS"
	HeadR        = "Heliocentric Distance (au)"
	HeadDelta    = "Delta (au)"
	HeadPhase    = "Phase Angle"
	HeadMHelio   = "magnitudes with only heliocentric correction (mhelio)"
	HeadMPhase   = "magnitudes with only phase correction (mph*)"
	HeadMBoth    = "magnitudes with heliocentric and phase corrections applied (mph)"
	HeadMShift   = "mshift"
	HeadRemoved  = "Point removed"
	HeadReason   = "Reason Point was Removed"
	HeadSignedR  = "r (au), negative before perihelion"
	HeadResidual = "residual of mshift from polyfit"
)

func fieldHeadings() []string {
	h := make([]string, icq.NumFields)
	for f, c := range icq.Columns {
		h[f] = c.Heading
	}
	return h
}

func fields(s *record.Store, i int) []string {
	r := make([]string, icq.NumFields)
	for f := range r {
		r[f] = s.Field(i, f)
	}
	return r
}

// num formats v with prec decimals, blank for NaN.
func num(v float64, prec int) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func mag(v float64) string { return num(v, 4) }
func au(v float64) string  { return num(v, 6) }

func magHeading(m correct.Mode, phase bool) string {
	switch {
	case !phase:
		return HeadMHelio
	case m.Helio:
		return HeadMBoth
	}
	return HeadMPhase
}

// Kept is the table of kept observations.
type Kept struct {
	Store  *record.Store
	Mode   correct.Mode
	Rows   []correct.Row // aligned with Store; nil without corrections
	MShift []float64     // aligned with Store, NaN where not solved; nil without a solve
}

// Table lays out the kept observations.  With corrections the date,
// distances, phase angle and corrected magnitudes follow the fields, then
// mshift when solved.
func (k *Kept) Table() Table {
	head := fieldHeadings()
	corrected := k.Rows != nil && k.Mode.Any()
	if corrected {
		head = append(head, HeadDate, HeadR, HeadDelta, HeadPhase)
		if k.Mode.Helio {
			head = append(head, magHeading(k.Mode, false))
		}
		if k.Mode.Phase {
			head = append(head, magHeading(k.Mode, true))
		}
	}
	if k.MShift != nil {
		head = append(head, HeadMShift)
	}
	t := Table{head}
	for i := 0; i < k.Store.Len(); i++ {
		row := fields(k.Store, i)
		if corrected {
			c := &k.Rows[i]
			row = append(row, k.Store.Time(i).Format(DateLayout),
				au(c.R), au(c.Delta), num(c.Phase.Deg(), 4))
			if k.Mode.Helio {
				row = append(row, mag(c.MHelio))
			}
			if k.Mode.Phase {
				row = append(row, mag(c.MPhase))
			}
		}
		if k.MShift != nil {
			row = append(row, mag(k.MShift[i]))
		}
		t = append(t, row)
	}
	return t
}

// RemovedTable lays out removed observations with the removal marker and
// reason.
func RemovedTable(rm *record.Removed) Table {
	t := Table{append(fieldHeadings(), HeadRemoved, HeadReason)}
	for i := range rm.Obs {
		o := &rm.Obs[i]
		row := append([]string{}, o.Fields[:]...)
		t = append(t, append(row, record.RemovedMarker, rm.Reasons[i].String()))
	}
	return t
}

// Stats is the table of one solved partition.
type Stats struct {
	Result *regress.Result
	Store  *record.Store // indexed by regress.Point.Row
	Rows   []correct.Row // aligned with Store
	Mode   correct.Mode
	Pre    bool // distances are written negative
}

// Table lays out the partition's points in descending r.  An empty
// partition gives the heading row only.
func (s *Stats) Table() Table {
	other := "other magnitude (blank if not calculated)"
	if s.Mode.Helio && s.Mode.Phase {
		other = HeadMHelio
	}
	t := Table{append(fieldHeadings(), HeadDate, HeadSignedR, other,
		magHeading(s.Mode, s.Mode.Phase), HeadMShift, HeadDelta, HeadPhase, HeadResidual)}
	if s.Result == nil || s.Result.Empty() {
		return t
	}
	f := s.Result.Fit
	for k, p := range s.Result.Points {
		c := &s.Rows[p.Row]
		r := p.R
		if s.Pre {
			r = -r
		}
		row := append(fields(s.Store, p.Row),
			s.Store.Time(p.Row).Format(DateLayout),
			au(r),
			mag(c.Other()),
			mag(p.Mag),
			mag(f.MShift[k]),
			au(c.Delta),
			num(c.Phase.Deg(), 4),
			mag(f.Residual[k]))
		t = append(t, row)
	}
	return t
}
