// Package tabular reads workbook data for directive resolution.
package tabular

// Grid is a rectangular block of stringified cell values, row-major.
type Grid [][]string

// Source provides read access to a single workbook.
type Source interface {
	ListSheets() ([]string, error)
	ReadCell(sheet, ref string) (string, error)
	ReadRange(sheet, rng string) (Grid, error)
	ReadNamedRange(name string) (Grid, error)
	ReadLastInColumn(sheet, ref string) (string, error)
	ReadTitledLast(sheet, ref, title string) (string, error)
	ReadColumns(sheet string, tokens []string, useTitles bool, startRow int) (Grid, error)
}
