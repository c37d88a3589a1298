// Public domain.

// Package icq parses comet brightness observations in the 80 column format
// used by the International Comet Quarterly and the COBS database.
package icq

import (
	"bufio"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// LineLen is the fixed record length.
const LineLen = 80

// Field indexes into Observation.Fields.
const (
	FApparition = iota
	FDesignation
	FSplitNucleus
	FYear
	FMonth
	FDay
	FNote
	FMethod
	FMag
	FPoorConditions
	FCatalog
	FAperture
	FInstrument
	FFocalRatio
	FMagnification
	FComaEstimate
	FComaDiameter
	FCondensationNote
	FCondensation
	FTail
	FTailPA
	FPublication
	FNote2
	FObserver
	NumFields
)

// Columns gives the 0-based half-open byte range and the output heading of
// each field.
var Columns = [NumFields]struct {
	Start, End int
	Heading    string
}{
	{0, 3, "col 1-3 : short period comet designation"},
	{3, 9, "col 4-9 : Standard comet designation"},
	{9, 10, "col 10 : multiple nuclei present?"},
	{11, 15, "col 12-15 : year observed"},
	{16, 18, "col 17-18 : month observed"},
	{19, 24, "col 20-24 : day observed"},
	{25, 26, "col 26 : special note / extinction note"},
	{26, 27, "col 27 : Magnitude collection method"},
	{28, 32, "col 28-32 : visual magnitude estimate"},
	{32, 33, "col 33 : poor conditions?"},
	{33, 35, "col 34 - 35 : reference catalog"},
	{35, 40, "col 36-40 : instrument aperture in centimeters"},
	{40, 41, "col 41 : instrument type"},
	{41, 43, "col 42 - 43 : focal ratio"},
	{43, 47, "col 44-47 : magnification used"},
	{48, 49, "col 49 : error estimate for coma diameter"},
	{49, 54, "col 50 - 54 : coma diameter in arcminutes"},
	{54, 55, "col 55 : special note on central condensation of comet"},
	{55, 57, "col 56 -57 : degree of condensation (note / means estimate)"},
	{58, 63, "col 59 - 64 : error of tail approximation and tail approximation"},
	{64, 67, "col 65 - 67 : direction tail is pointed"},
	{68, 74, "col 69-74 : ICQ reference publication"},
	{74, 75, "col 75 : second special note / extinction note"},
	{75, 80, "col 76-80 : observer name"},
}

// Magnitude methods accepted by the field standard, in order of preference.
const (
	MethodSidgwick     = 'S'
	MethodMorris       = 'M'
	MethodBobrovnikoff = 'B'
	MethodInOut        = 'I'
	MethodExtrafocal   = 'E'
)

// Observation is a single parsed line.
//
// Fields holds the trimmed text of every column and is what gets written
// back out.  Time, Mag and Aperture are parsed from it.  A zero Time means
// the date columns did not parse; Mag is NaN when no magnitude is reported
// or the magnitude is not numeric.
type Observation struct {
	Fields   [NumFields]string
	Time     time.Time
	Mag      float64
	Aperture float64
}

// Observer returns the observer code.
func (o *Observation) Observer() string { return o.Fields[FObserver] }

// Method returns the magnitude method letter, or 0 if blank.
func (o *Observation) Method() byte {
	if m := o.Fields[FMethod]; len(m) > 0 {
		return m[0]
	}
	return 0
}

// HasMag reports whether a numeric magnitude was reported.
func (o *Observation) HasMag() bool { return !math.IsNaN(o.Mag) }

// HasTime reports whether the date columns parsed.
func (o *Observation) HasTime() bool { return !o.Time.IsZero() }

// Night returns the calendar date of the observation as yyyymmdd, the key
// used for one-observation-per-night checks.
func (o *Observation) Night() int {
	y, m, d := o.Time.Date()
	return (y*100+int(m))*100 + d
}

// ParseLine parses a single line.  Lines shorter than LineLen are padded
// with spaces; longer lines are an error.  Malformed numeric fields are not
// errors, they leave the parsed value absent.
func ParseLine(line string) (o Observation, err error) {
	if len(line) > LineLen {
		err = errors.New("ParseLine: line longer than 80 characters")
		return
	}
	if len(line) < LineLen {
		line += strings.Repeat(" ", LineLen-len(line))
	}
	for f, c := range Columns {
		o.Fields[f] = string([]byte(strings.TrimSpace(line[c.Start:c.End])))
	}
	o.Time = parseTime(o.Fields[FYear], o.Fields[FMonth], o.Fields[FDay])
	o.Mag = math.NaN()
	if m, err := strconv.ParseFloat(o.Fields[FMag], 64); err == nil {
		o.Mag = m
	}
	if a, err := strconv.ParseFloat(o.Fields[FAperture], 64); err == nil {
		o.Aperture = a
	}
	return
}

// parseTime converts year, month, and decimal day to a UTC time, truncated
// to the second.
func parseTime(ys, ms, ds string) time.Time {
	year, err := strconv.Atoi(ys)
	if err != nil {
		return time.Time{}
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}
	}
	day, err := strconv.ParseFloat(ds, 64)
	if err != nil || day < 1 {
		return time.Time{}
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	// past the last day of the month
	if day >= float64(first.AddDate(0, 1, -1).Day()+1) {
		return time.Time{}
	}
	// round to the millisecond first so .5 day does not land on 11:59:59
	ms64 := math.Round((day - 1) * 86400e3)
	return first.Add(time.Duration(ms64) * time.Millisecond).Truncate(time.Second)
}

// ReadStats counts line handling that callers may want to report.
type ReadStats struct {
	Lines     int // non-blank lines read
	Padded    int // lines shorter than 80 characters
	Truncated int // lines longer than 80 characters, cut at 80
}

// Read parses all observations from r.  Blank lines are skipped.  Only read
// errors are returned; every non-blank line yields an Observation.
func Read(r io.Reader) (obs []Observation, st ReadStats, err error) {
	br := bufio.NewReader(r)
	for {
		line, rerr := br.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return nil, st, rerr
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			st.Lines++
			switch {
			case len(line) > LineLen:
				st.Truncated++
				line = line[:LineLen]
			case len(line) < LineLen:
				st.Padded++
			}
			o, _ := ParseLine(line) // length is ensured above
			obs = append(obs, o)
		}
		if rerr == io.EOF {
			return obs, st, nil
		}
	}
}
