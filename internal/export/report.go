// Public domain.

package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/curtisa1/icqsplitter/internal/record"
	"github.com/curtisa1/icqsplitter/internal/regress"
)

// Report summarizes a run.
type Report struct {
	Run        string         `yaml:"run"`
	Started    time.Time      `yaml:"started"`
	Input      string         `yaml:"input"`
	Magnitude  string         `yaml:"magnitude"`
	Perihelion time.Time      `yaml:"perihelion,omitempty"`
	Read       int            `yaml:"read"`
	Kept       int            `yaml:"kept"`
	Removed    int            `yaml:"removed"`
	RemovedBy  map[string]int `yaml:"removed_by_reason,omitempty"`
	Partitions []Partition    `yaml:"partitions,omitempty"`
}

// Partition summarizes the solution of one partition.
type Partition struct {
	Label        string     `yaml:"label"`
	Points       int        `yaml:"points"`
	Coefficients []float64  `yaml:"coefficients,flow"`
	Iterations   int        `yaml:"iterations"`
	Converged    bool       `yaml:"converged"`
	Passes       int        `yaml:"passes"`
	Settled      bool       `yaml:"settled"`
	Condemned    []string   `yaml:"condemned,omitempty"`
	Observers    []Observer `yaml:"observers,omitempty"`
}

// Observer is one observer's residual statistics and stationarity test.
type Observer struct {
	Code  string  `yaml:"code"`
	Count int     `yaml:"count"`
	Shift float64 `yaml:"shift"`
	Std   float64 `yaml:"std"`
	P     float64 `yaml:"p"`
}

// CountRemoved tallies rm by reason text.
func CountRemoved(rm *record.Removed) map[string]int {
	by := map[string]int{}
	for r, n := range rm.Count() {
		by[r.String()] = n
	}
	return by
}

// NewPartition summarizes r.  Observers are listed in order of first
// appearance.
func NewPartition(r *regress.Result) Partition {
	p := Partition{
		Label:     r.Label,
		Points:    len(r.Points),
		Passes:    r.Outer,
		Settled:   r.Settled,
		Condemned: r.Condemned,
	}
	if r.Empty() {
		return p
	}
	f := r.Fit
	p.Coefficients = f.Coef
	p.Iterations = f.Iterations
	p.Converged = f.Converged
	for _, st := range r.Tests {
		o := f.Observers[st.Observer]
		p.Observers = append(p.Observers, Observer{
			Code:  st.Observer,
			Count: o.Count,
			Shift: o.Mean,
			Std:   o.Std,
			P:     st.P,
		})
	}
	return p
}

// WriteReport encodes rep as YAML.
func WriteReport(w io.Writer, rep *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("export: encoding report: %w", err)
	}
	return enc.Close()
}

// WriteReportFile writes rep to the named file, replacing it.
func WriteReportFile(path string, rep *Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteReport(f, rep)
}
