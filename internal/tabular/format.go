package tabular

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// FormatGrid renders a grid as aligned monospace text. Numeric cells are
// right-justified, text cells left-justified, and a dashed separator line
// follows the first row whenever further rows exist.
func FormatGrid(g Grid) string {
	if len(g) == 0 {
		return ""
	}

	widths := columnWidths(g)

	var lines []string
	for i, row := range g {
		cells := make([]string, len(row))
		for c, cell := range row {
			if isNumeric(cell) {
				cells[c] = padLeft(cell, widths[c])
			} else {
				cells[c] = padRight(cell, widths[c])
			}
		}
		lines = append(lines, strings.Join(cells, " | "))

		if i == 0 && len(g) > 1 {
			dashes := make([]string, len(widths))
			for c, w := range widths {
				dashes[c] = strings.Repeat("-", w)
			}
			lines = append(lines, strings.Join(dashes, "-+-"))
		}
	}
	return strings.Join(lines, "\n")
}

// isNumeric reports whether a cell should be right-justified. Thousands
// separators and currency markers do not disqualify a value.
func isNumeric(cell string) bool {
	cleaned := strings.NewReplacer(",", "", "$", "").Replace(cell)
	_, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	return err == nil
}

func columnWidths(g Grid) []int {
	cols := 0
	for _, row := range g {
		if len(row) > cols {
			cols = len(row)
		}
	}
	widths := make([]int, cols)
	for _, row := range g {
		for c, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[c] {
				widths[c] = n
			}
		}
	}
	return widths
}

func padLeft(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

func padRight(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
