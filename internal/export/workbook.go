// Public domain.

package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named table in a workbook.
type Sheet struct {
	Name  string
	Table Table
}

// WriteWorkbook saves sheets as an xlsx workbook, one worksheet per sheet
// in order.  The first sheet is active.
func WriteWorkbook(path string, sheets []Sheet) (err error) {
	if len(sheets) == 0 {
		return fmt.Errorf("export: workbook %s: no sheets", path)
	}
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	def := f.GetSheetName(0)
	for _, sh := range sheets {
		if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("export: sheet %s: %w", sh.Name, err)
		}
		for r, row := range sh.Table {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sh.Name, cell, &row); err != nil {
				return fmt.Errorf("export: sheet %s row %d: %w", sh.Name, r+1, err)
			}
		}
	}
	if !hasSheet(sheets, def) {
		if err := f.DeleteSheet(def); err != nil {
			return err
		}
	}
	idx, err := f.GetSheetIndex(sheets[0].Name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: saving workbook: %w", err)
	}
	return nil
}

func hasSheet(sheets []Sheet, name string) bool {
	for _, sh := range sheets {
		if sh.Name == name {
			return true
		}
	}
	return false
}
