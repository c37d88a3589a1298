// Public domain.

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// WriteCSV writes t as comma separated values.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t); err != nil {
		return fmt.Errorf("export: writing csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes t to the named file, replacing it.
func WriteCSVFile(path string, t Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, t)
}
