package grid

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX saves g as the only sheet of a new workbook at path, replacing any existing file.
func WriteXLSX(path string, g *Grid) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Errorf("failed to close workbook %s: %v", path, err)
		}
	}()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	err := g.Each(func(row, col int, v any) error {
		name, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, name, v)
	})
	if err != nil {
		return fmt.Errorf("failed to fill sheet: %w", err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// ReadXLSX loads the active sheet of the workbook at path with unformatted cell values.
func ReadXLSX(path string) (*Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Errorf("failed to close workbook %s: %v", path, err)
		}
	}()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheet, path, err)
	}
	return FromRows(rows), nil
}
