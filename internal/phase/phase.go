// Public domain.

// Package phase holds a tabulated phase function: the brightness ratio of
// the target at each whole degree of phase angle relative to 0 degrees.
package phase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"
)

// Table maps whole degrees of phase angle to brightness ratios.
type Table map[int]float64

// Read reads a whitespace separated table with degrees in the first column
// and the ratio normalized to 0 degrees in the second.  Further columns
// are ignored.  Lines that do not parse as data, such as headings, are
// quietly skipped.
func Read(r io.Reader) (Table, error) {
	t := Table{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 2 {
			continue
		}
		d, err := strconv.ParseFloat(f[0], 64)
		if err != nil || d != math.Trunc(d) || d < 0 || d > 180 {
			continue
		}
		ratio, err := strconv.ParseFloat(f[1], 64)
		if err != nil || !(ratio > 0) {
			continue // log10 of the ratio must exist
		}
		t[int(d)] = ratio
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, errors.New("phase: no table rows")
	}
	return t, nil
}

// ReadFile reads a table from a file.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Lookup returns the ratio at a rounded half to even to whole degrees.
func (t Table) Lookup(a unit.Angle) (ratio float64, ok bool) {
	// clear conversion noise so 2.5 stays a tie
	d := math.Round(a.Deg()*1e9) / 1e9
	ratio, ok = t[int(math.RoundToEven(d))]
	return
}

// Correction returns the magnitude correction at a, 2.5 log10 ratio.
// Adding it to a magnitude normalizes the magnitude to 0 degrees phase.
func (t Table) Correction(a unit.Angle) (dm float64, ok bool) {
	ratio, ok := t.Lookup(a)
	if !ok {
		return 0, false
	}
	return 2.5 * math.Log10(ratio), true
}
