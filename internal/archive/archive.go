// Public domain.

// Package archive keeps a SQLite history of runs: counts, fitted
// coefficients, observer statistics and condemned observers.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/curtisa1/icqsplitter/internal/export"
)

//go:embed schema.sql
var schemaSQL string

// Archive is an open run archive.
type Archive struct {
	db *sql.DB
}

// Open creates or opens the archive at path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: connect: %w", err)
	}
	// one writer
	db.SetMaxOpenConns(1)
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the archive.
func (a *Archive) Close() error { return a.db.Close() }

const timeLayout = time.RFC3339Nano

// nullable stores NaN as NULL.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func formatPoly(c []float64) string {
	s := make([]string, len(c))
	for i, v := range c {
		s[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(s, " ")
}

func parsePoly(s string) ([]float64, error) {
	f := strings.Fields(s)
	c := make([]float64, len(f))
	for i, v := range f {
		var err error
		if c[i], err = strconv.ParseFloat(v, 64); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Record stores rep in one transaction.
func (a *Archive) Record(ctx context.Context, rep *export.Report) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	var peri sql.NullString
	if !rep.Perihelion.IsZero() {
		peri = sql.NullString{String: rep.Perihelion.UTC().Format(timeLayout), Valid: true}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started, input, magnitude, perihelion, read_count, kept, removed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.Run, rep.Started.UTC().Format(timeLayout), rep.Input, rep.Magnitude, peri,
		rep.Read, rep.Kept, rep.Removed); err != nil {
		return fmt.Errorf("archive: run %s: %w", rep.Run, err)
	}
	for reason, n := range rep.RemovedBy {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO removals (run_id, reason, count) VALUES (?, ?, ?)`,
			rep.Run, reason, n); err != nil {
			return fmt.Errorf("archive: removals: %w", err)
		}
	}
	for _, p := range rep.Partitions {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO fits (run_id, label, points, coefficients, iterations, converged, passes, settled)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.Run, p.Label, p.Points, formatPoly(p.Coefficients), p.Iterations,
			boolInt(p.Converged), p.Passes, boolInt(p.Settled)); err != nil {
			return fmt.Errorf("archive: fit %s: %w", p.Label, err)
		}
		for _, o := range p.Observers {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO observers (run_id, label, code, count, shift, std, p)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rep.Run, p.Label, o.Code, o.Count,
				nullable(o.Shift), nullable(o.Std), nullable(o.P)); err != nil {
				return fmt.Errorf("archive: observer %s: %w", o.Code, err)
			}
		}
		for i, c := range p.Condemned {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO condemned (run_id, label, seq, code) VALUES (?, ?, ?, ?)`,
				rep.Run, p.Label, i, c); err != nil {
				return fmt.Errorf("archive: condemned %s: %w", c, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Run is a stored run summary.
type Run struct {
	ID      string
	Started time.Time
	Input   string
	Kept    int
	Removed int
}

// Runs lists up to limit runs, most recent first.
func (a *Archive) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, started, input, kept, removed FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Input, &r.Kept, &r.Removed); err != nil {
			return nil, err
		}
		if r.Started, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("archive: run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Fit returns the stored partition summary of a run, with observers and
// condemned observers.  ok is false if there is none.
func (a *Archive) Fit(ctx context.Context, run, partition string) (p export.Partition, ok bool, err error) {
	var coef string
	var conv, settled int
	err = a.db.QueryRowContext(ctx,
		`SELECT points, coefficients, iterations, converged, passes, settled
		 FROM fits WHERE run_id = ? AND label = ?`, run, partition).
		Scan(&p.Points, &coef, &p.Iterations, &conv, &p.Passes, &settled)
	if err == sql.ErrNoRows {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("archive: fit: %w", err)
	}
	p.Label = partition
	p.Converged, p.Settled = conv == 1, settled == 1
	if coef != "" {
		if p.Coefficients, err = parsePoly(coef); err != nil {
			return p, false, fmt.Errorf("archive: coefficients: %w", err)
		}
	}
	if p.Observers, err = a.observers(ctx, run, partition); err != nil {
		return p, false, err
	}
	if p.Condemned, err = a.condemned(ctx, run, partition); err != nil {
		return p, false, err
	}
	return p, true, nil
}

func (a *Archive) observers(ctx context.Context, run, partition string) ([]export.Observer, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT code, count, shift, std, p FROM observers
		 WHERE run_id = ? AND label = ? ORDER BY rowid`, run, partition)
	if err != nil {
		return nil, fmt.Errorf("archive: observers: %w", err)
	}
	defer rows.Close()
	var obs []export.Observer
	for rows.Next() {
		var o export.Observer
		var shift, std, p sql.NullFloat64
		if err := rows.Scan(&o.Code, &o.Count, &shift, &std, &p); err != nil {
			return nil, err
		}
		o.Shift, o.Std, o.P = orNaN(shift), orNaN(std), orNaN(p)
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

func (a *Archive) condemned(ctx context.Context, run, partition string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT code FROM condemned WHERE run_id = ? AND label = ? ORDER BY seq`, run, partition)
	if err != nil {
		return nil, fmt.Errorf("archive: condemned: %w", err)
	}
	defer rows.Close()
	var c []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		c = append(c, code)
	}
	return c, rows.Err()
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
