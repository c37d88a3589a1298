// Public domain.

// Package icqtest builds 80 column observation lines for tests.
package icqtest

import (
	"fmt"
	"strings"

	"github.com/curtisa1/icqsplitter/internal/icq"
)

// Fields maps icq field indexes to column text.
type Fields map[int]string

// Line lays out f in the 80 column format.  Text is right aligned within
// its columns and cut to the column width.
func Line(f Fields) string {
	b := []byte(strings.Repeat(" ", icq.LineLen))
	for fx, s := range f {
		c := icq.Columns[fx]
		w := c.End - c.Start
		if len(s) > w {
			s = s[:w]
		}
		copy(b[c.End-len(s):c.End], s)
	}
	return string(b)
}

// Visual returns fields of an ordinary Sidgwick visual estimate with a
// reflector, which passes every quality filter when mag is between 5.4 and
// 8.1.
func Visual(observer string, year, month int, day, mag, aperture float64) Fields {
	return Fields{
		icq.FApparition:    "",
		icq.FDesignation:   "1995O1",
		icq.FYear:          fmt.Sprintf("%4d", year),
		icq.FMonth:         fmt.Sprintf("%02d", month),
		icq.FDay:           fmt.Sprintf("%5.2f", day),
		icq.FMethod:        "S",
		icq.FMag:           fmt.Sprintf("%4.1f", mag),
		icq.FCatalog:       "AA",
		icq.FAperture:      fmt.Sprintf("%5.1f", aperture),
		icq.FInstrument:    "L",
		icq.FFocalRatio:    "5",
		icq.FMagnification: "40",
		icq.FPublication:   "ICQ XX",
		icq.FObserver:      observer,
	}
}

// With returns a copy of f with field fx set to s.
func (f Fields) With(fx int, s string) Fields {
	g := make(Fields, len(f)+1)
	for k, v := range f {
		g[k] = v
	}
	g[fx] = s
	return g
}
