package grid

import (
	"encoding/csv"
	"fmt"
	"io"
)

func WriteCSV(w io.Writer, g *Grid) error {
	writer := csv.NewWriter(w)
	for _, row := range g.TextRows() {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadCSV(r io.Reader) (*Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return FromRows(rows), nil
}
