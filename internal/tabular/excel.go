package tabular

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExcelSource implements Source on top of an excelize workbook handle.
type ExcelSource struct {
	f      *excelize.File
	logger *zap.Logger
}

// OpenExcel opens the workbook at path.
func OpenExcel(path string, logger *zap.Logger) (*ExcelSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExcelSource{f: f, logger: logger}, nil
}

func (s *ExcelSource) Close() error {
	return s.f.Close()
}

func (s *ExcelSource) ListSheets() ([]string, error) {
	return s.f.GetSheetList(), nil
}

func (s *ExcelSource) ReadCell(sheet, ref string) (string, error) {
	return s.f.GetCellValue(sheet, ref)
}

// ReadRange reads the bounded block rng ("A1:B5", or a single cell name)
// from sheet. Absolute markers are tolerated so named-range targets can be
// passed through unchanged.
func (s *ExcelSource) ReadRange(sheet, rng string) (Grid, error) {
	start, end, found := strings.Cut(rng, ":")
	if !found {
		end = start
	}
	c1, r1, err := excelize.CellNameToCoordinates(strings.ReplaceAll(start, "$", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	c2, r2, err := excelize.CellNameToCoordinates(strings.ReplaceAll(end, "$", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid range %q: %w", rng, err)
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}

	grid := make(Grid, 0, r2-r1+1)
	for r := r1; r <= r2; r++ {
		row := make([]string, 0, c2-c1+1)
		for c := c1; c <= c2; c++ {
			name, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return nil, err
			}
			v, err := s.f.GetCellValue(sheet, name)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// ReadNamedRange resolves a workbook defined name and reads the block it
// refers to. Name matching is case-insensitive, as in Excel itself.
func (s *ExcelSource) ReadNamedRange(name string) (Grid, error) {
	for _, dn := range s.f.GetDefinedName() {
		if !strings.EqualFold(dn.Name, name) {
			continue
		}
		sheet, rng, err := splitRefersTo(dn.RefersTo)
		if err != nil {
			return nil, fmt.Errorf("named range %q: %w", name, err)
		}
		s.logger.Debug("resolved named range",
			zap.String("name", dn.Name),
			zap.String("sheet", sheet),
			zap.String("range", rng))
		return s.ReadRange(sheet, rng)
	}
	return nil, fmt.Errorf("named range %q not found", name)
}

// splitRefersTo parses a defined-name target like 'My Sheet'!$A$1:$B$5.
func splitRefersTo(refersTo string) (sheet, rng string, err error) {
	ref := strings.TrimPrefix(refersTo, "=")
	sheet, rng, found := strings.Cut(ref, "!")
	if !found {
		return "", "", fmt.Errorf("malformed reference %q", refersTo)
	}
	return strings.Trim(sheet, "'"), strings.ReplaceAll(rng, "$", ""), nil
}

// ReadLastInColumn walks down from ref while cells are non-empty and returns
// the last value of the run. An empty starting cell yields an empty string.
func (s *ExcelSource) ReadLastInColumn(sheet, ref string) (string, error) {
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return "", fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}

	last := ""
	for r := row; ; r++ {
		name, err := excelize.CoordinatesToCellName(col, r)
		if err != nil {
			return "", err
		}
		v, err := s.f.GetCellValue(sheet, name)
		if err != nil {
			return "", err
		}
		if v == "" {
			break
		}
		last = v
	}
	return last, nil
}

// ReadTitledLast scans rightward along ref's row for a column whose header
// equals title, then applies the downward last-value scan on that column.
func (s *ExcelSource) ReadTitledLast(sheet, ref, title string) (string, error) {
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return "", fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}
	rows, err := s.f.GetRows(sheet)
	if err != nil {
		return "", err
	}
	if row > len(rows) {
		return "", fmt.Errorf("row %d is past the end of sheet %s", row, sheet)
	}

	header := rows[row-1]
	want := strings.TrimSpace(title)
	for c := col - 1; c < len(header); c++ {
		if !strings.EqualFold(strings.TrimSpace(header[c]), want) {
			continue
		}
		last := ""
		for r := row; r < len(rows); r++ {
			v := ""
			if c < len(rows[r]) {
				v = rows[r][c]
			}
			if v == "" {
				break
			}
			last = v
		}
		return last, nil
	}
	return "", fmt.Errorf("title %q not found on row %d of sheet %s", title, row, sheet)
}

// ReadColumns collects one column per token and zips them into a grid, padding
// ragged columns with empty cells. In title mode each token is located in row
// startRow; otherwise each token is the cell reference of the column's top.
func (s *ExcelSource) ReadColumns(sheet string, tokens []string, useTitles bool, startRow int) (Grid, error) {
	rows, err := s.f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if startRow < 1 {
		startRow = 1
	}

	type anchor struct{ col, row int } // zero-based
	anchors := make([]anchor, 0, len(tokens))
	if useTitles {
		if startRow > len(rows) {
			return nil, fmt.Errorf("start row %d is past the end of sheet %s", startRow, sheet)
		}
		header := rows[startRow-1]
		for _, tok := range tokens {
			want := strings.TrimSpace(tok)
			found := -1
			for c, cell := range header {
				if strings.EqualFold(strings.TrimSpace(cell), want) {
					found = c
					break
				}
			}
			if found < 0 {
				return nil, fmt.Errorf("column title %q not found on row %d of sheet %s", tok, startRow, sheet)
			}
			anchors = append(anchors, anchor{col: found, row: startRow - 1})
		}
	} else {
		for _, tok := range tokens {
			c, r, err := excelize.CellNameToCoordinates(strings.TrimSpace(tok))
			if err != nil {
				return nil, fmt.Errorf("invalid column reference %q: %w", tok, err)
			}
			anchors = append(anchors, anchor{col: c - 1, row: r - 1})
		}
	}

	cols := make([][]string, len(anchors))
	height := 0
	for i, a := range anchors {
		var vals []string
		for r := a.row; r >= 0 && r < len(rows); r++ {
			v := ""
			if a.col < len(rows[r]) {
				v = rows[r][a.col]
			}
			vals = append(vals, v)
		}
		for len(vals) > 0 && vals[len(vals)-1] == "" {
			vals = vals[:len(vals)-1]
		}
		cols[i] = vals
		if len(vals) > height {
			height = len(vals)
		}
	}

	grid := make(Grid, height)
	for r := 0; r < height; r++ {
		row := make([]string, len(cols))
		for i, vals := range cols {
			if r < len(vals) {
				row[i] = vals[r]
			}
		}
		grid[r] = row
	}
	return grid, nil
}
