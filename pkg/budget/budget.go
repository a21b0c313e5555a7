package budget

import (
	"errors"
	"time"
)

const DescriptorExt = ".bp"

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	ErrBudgetNotFound  = errors.New("budget not found")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// Budget is a named record collection with its own table.
type Budget struct {
	Name      string
	CreatedAt time.Time
}

// Descriptor is the content of a .bp sidecar file.
type Descriptor struct {
	DB        string `json:"db"`
	TableName string `json:"table_name"`
}

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatXLSX, FormatCSV:
		return Format(s), nil
	}
	return "", ErrUnsupportedFile
}
