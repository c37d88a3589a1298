// Public domain.

package splitter

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/curtisa1/icqsplitter/internal/archive"
	"github.com/curtisa1/icqsplitter/internal/config"
	"github.com/curtisa1/icqsplitter/internal/export"
	"github.com/curtisa1/icqsplitter/internal/lightcurve"
	"github.com/curtisa1/icqsplitter/internal/metrics"
)

type csvFile struct {
	name string
	t    export.Table
}

// Write writes every configured output of res.
func Write(ctx context.Context, c *config.Config, res *Result, log *zap.Logger) error {
	o := &c.Outputs
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return err
	}
	mode := c.Mode()
	kept := (&export.Kept{Store: res.Kept, Mode: mode, Rows: res.Rows, MShift: res.MShift}).Table()
	removed := export.RemovedTable(res.Removed)
	sheets := []export.Sheet{{Name: "kept", Table: kept}, {Name: "removed", Table: removed}}

	files := []csvFile{
		{o.Kept, kept},
		{o.Removed, removed},
	}
	if a := res.Apparition; a != nil {
		for _, part := range []struct {
			name string
			s    export.Stats
		}{
			{o.Pre, export.Stats{Result: a.Pre, Store: res.Kept, Rows: res.Rows, Mode: mode, Pre: true}},
			{o.Post, export.Stats{Result: a.Post, Store: res.Kept, Rows: res.Rows, Mode: mode}},
		} {
			t := part.s.Table()
			files = append(files, csvFile{part.name, t})
			sheets = append(sheets, export.Sheet{Name: part.s.Result.Label, Table: t})
			if part.s.Result.Empty() {
				log.Info("no points to write", zap.String("partition", part.s.Result.Label))
			}
		}
	}
	for _, f := range files {
		if p := o.Path(f.name); p != "" {
			if err := export.WriteCSVFile(p, f.t); err != nil {
				return err
			}
			log.Debug("csv written", zap.String("path", p), zap.Int("rows", len(f.t)-1))
		}
	}
	if p := o.Path(o.Workbook); p != "" {
		if err := export.WriteWorkbook(p, sheets); err != nil {
			return err
		}
		log.Debug("workbook written", zap.String("path", p))
	}
	if p := o.Path(o.Report); p != "" {
		if err := export.WriteReportFile(p, res.Report); err != nil {
			return err
		}
	}
	if p := o.Path(o.Plot); c.Plot && p != "" {
		title := c.Name
		if title == "" {
			title = c.Input
		}
		if err := lightcurve.Save(&lightcurve.Data{
			Title:      title,
			Store:      res.Kept,
			Rows:       res.Rows,
			Mode:       mode,
			Apparition: res.Apparition,
		}, p); err != nil {
			return err
		}
		log.Info("light curve plotted", zap.String("path", p))
	}
	if p := o.Path(o.Archive); p != "" {
		a, err := archive.Open(p)
		if err != nil {
			return err
		}
		err = a.Record(ctx, res.Report)
		if cerr := a.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		log.Debug("run archived", zap.String("path", p))
	}
	if p := o.Path(o.Metrics); p != "" {
		m := metrics.New()
		m.Observe(res.Report, time.Since(res.Started), time.Now())
		if err := m.WriteTextfile(p); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}
