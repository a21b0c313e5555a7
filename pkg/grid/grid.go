package grid

import (
	"sort"
	"strconv"
	"strings"
)

type cell struct {
	row, col int
}

// Grid is a sparse sheet of 1-based cells holding int, float64 or string values.
type Grid struct {
	cells map[cell]any
	rows  int
	cols  int
}

func New() *Grid {
	return &Grid{cells: make(map[cell]any)}
}

// FromRows builds a grid from row-major text, skipping empty cells.
func FromRows(rows [][]string) *Grid {
	g := New()
	for r, row := range rows {
		for c, v := range row {
			if strings.TrimSpace(v) != "" {
				g.Set(r+1, c+1, v)
			}
		}
	}
	return g
}

func (g *Grid) Set(row, col int, v any) {
	if row < 1 || col < 1 {
		return
	}
	g.cells[cell{row, col}] = v
	g.rows = max(g.rows, row)
	g.cols = max(g.cols, col)
}

func (g *Grid) Get(row, col int) any {
	return g.cells[cell{row, col}]
}

// Text renders the cell the way a spreadsheet shows it, trimmed. Missing cells are "".
func (g *Grid) Text(row, col int) string {
	switch v := g.Get(row, col).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// Each visits the set cells row by row.
func (g *Grid) Each(fn func(row, col int, v any) error) error {
	keys := make([]cell, 0, len(g.cells))
	for k := range g.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].row != keys[j].row {
			return keys[i].row < keys[j].row
		}
		return keys[i].col < keys[j].col
	})
	for _, k := range keys {
		if err := fn(k.row, k.col, g.cells[k]); err != nil {
			return err
		}
	}
	return nil
}

// TextRows returns the dense text form, one slice per row, each Cols() wide.
func (g *Grid) TextRows() [][]string {
	out := make([][]string, g.rows)
	for r := 1; r <= g.rows; r++ {
		line := make([]string, g.cols)
		for c := 1; c <= g.cols; c++ {
			line[c-1] = g.Text(r, c)
		}
		out[r-1] = line
	}
	return out
}
