// Public domain.

package ephemeris

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/soniakeys/unit"
)

// FileLayout is the time layout of ephemeris CSV files.
const FileLayout = "2006-01-02 15:04"

var fileHeader = []string{"time", "r", "delta", "phase"}

// ReadCSV reads samples written by WriteCSV.  The header line is
// required.  An empty phase column is derived from the distances.
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(fileHeader)
	cr.TrimLeadingSpace = true
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ephemeris csv header: %w", err)
	}
	for i, h := range fileHeader {
		if head[i] != h {
			return nil, fmt.Errorf("ephemeris csv: column %d is %q, want %q", i+1, head[i], h)
		}
	}
	var ss []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ephemeris csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		var s Sample
		if s.Time, err = time.Parse(FileLayout, rec[0]); err != nil {
			return nil, fmt.Errorf("ephemeris csv line %d: %w", line, err)
		}
		if s.R, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, fmt.Errorf("ephemeris csv line %d: %w", line, err)
		}
		if s.Delta, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("ephemeris csv line %d: %w", line, err)
		}
		s.Phase = unit.Angle(math.NaN())
		if rec[3] != "" {
			p, err := strconv.ParseFloat(rec[3], 64)
			if err != nil {
				return nil, fmt.Errorf("ephemeris csv line %d: %w", line, err)
			}
			s.Phase = unit.AngleFromDeg(p)
		}
		ss = append(ss, s)
	}
	fillPhase(ss)
	return ss, nil
}

// WriteCSV writes samples with phase in degrees.
func WriteCSV(w io.Writer, ss []Sample) error {
	cw := csv.NewWriter(w)
	cw.Write(fileHeader)
	for _, s := range ss {
		cw.Write([]string{
			s.Time.UTC().Format(FileLayout),
			strconv.FormatFloat(s.R, 'f', -1, 64),
			strconv.FormatFloat(s.Delta, 'f', -1, 64),
			strconv.FormatFloat(s.Phase.Deg(), 'f', 4, 64),
		})
	}
	cw.Flush()
	return cw.Error()
}

// File is a Source backed by an ephemeris CSV file.
type File struct {
	Path string
}

// Samples implements Source.  It returns the samples of the file that
// fall within start through stop; step is not checked against the file
// grid.
func (f File) Samples(ctx context.Context, start, stop time.Time, step time.Duration) ([]Sample, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	all, err := ReadCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	var ss []Sample
	for _, s := range all {
		if !s.Time.Before(start) && !s.Time.After(stop) {
			ss = append(ss, s)
		}
	}
	if len(ss) == 0 {
		return nil, fmt.Errorf("%w: %s has nothing from %s to %s", ErrNoSamples,
			f.Path, start.Format(FileLayout), stop.Format(FileLayout))
	}
	return ss, nil
}
