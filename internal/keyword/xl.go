package keyword

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"docfill/internal/directive"
	"docfill/internal/tabular"
)

// xlResolver answers XL directives from workbook data. An optional leading
// file.xlsx/file.xls field selects a workbook through the registry; the
// remainder dispatches on the CELL/LAST/RANGE/COLUMN subtype.
type xlResolver struct {
	engine *Engine
}

func (r *xlResolver) Resolve(_ context.Context, pc *ParseContext, d directive.Directive) Value {
	content := d.Rest(1)
	if strings.TrimSpace(content) == "" {
		return Errorf("Invalid Excel reference")
	}
	reg := r.engine.workbooks
	if reg == nil {
		return Errorf("Excel manager not initialized")
	}

	parts := strings.Split(content, "!")
	if lower := strings.ToLower(parts[0]); strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
		file := parts[0]
		src, err := reg.Open(file)
		if err != nil {
			if errors.Is(err, tabular.ErrWorkbookNotFound) {
				return Errorf("Excel file not found: %s", file)
			}
			return Errorf("Error loading Excel file %s: %v", file, err)
		}
		return r.content(pc, src, strings.Join(parts[1:], "!"))
	}

	src, err := reg.Default()
	if err != nil {
		return Errorf("Excel manager not initialized")
	}
	return r.content(pc, src, content)
}

func (r *xlResolver) content(pc *ParseContext, src tabular.Source, content string) Value {
	parts := strings.Split(content, "!")
	if len(parts) < 2 {
		return r.legacy(pc, src, content)
	}
	return r.call(pc, src, strings.ToUpper(strings.TrimSpace(parts[0])), strings.Join(parts[1:], "!"))
}

// legacy handles single-token content from before the typed grammar: a colon
// marks a range, anything else reads as a cell first and then as a named
// range.
func (r *xlResolver) legacy(pc *ParseContext, src tabular.Source, content string) Value {
	if strings.Contains(content, ":") {
		return r.call(pc, src, "RANGE", content)
	}
	if v := r.call(pc, src, "CELL", content); v.Kind != ValueError {
		return v
	}
	return r.call(pc, src, "RANGE", content)
}

func (r *xlResolver) call(pc *ParseContext, src tabular.Source, xlType, params string) Value {
	sheets, err := src.ListSheets()
	if err != nil {
		return Errorf("Error processing XL: %v", err)
	}
	if len(sheets) == 0 {
		return Errorf("Error processing XL: workbook has no sheets")
	}
	sheetMap := make(map[string]string, len(sheets))
	for _, s := range sheets {
		sheetMap[strings.ToLower(s)] = s
	}

	switch xlType {
	case "CELL":
		sheet, ref := splitSheetRef(params, sheets[0], sheetMap)
		v, err := src.ReadCell(sheet, ref)
		if err != nil {
			return Errorf("Error processing XL: %v", err)
		}
		return TextValue(v)

	case "LAST":
		lastParts := strings.Split(params, "!")
		if len(lastParts) >= 3 {
			sheet := resolveSheet(lastParts[0], sheetMap)
			if !slices.Contains(sheets, sheet) {
				return Errorf("Sheet not found: %s", sheet)
			}
			v, err := src.ReadTitledLast(sheet, lastParts[1], lastParts[2])
			if err != nil {
				return Errorf("Error processing XL: %v", err)
			}
			return TextValue(v)
		}
		sheet, ref := splitSheetRef(params, sheets[0], sheetMap)
		v, err := src.ReadLastInColumn(sheet, ref)
		if err != nil {
			return Errorf("Error processing XL: %v", err)
		}
		return TextValue(v)

	case "RANGE":
		sheet, ref := splitSheetRef(params, sheets[0], sheetMap)
		var grid tabular.Grid
		if strings.Contains(ref, ":") {
			grid, err = src.ReadRange(sheet, ref)
		} else {
			// No colon: treat the reference as a named range.
			grid, err = src.ReadNamedRange(ref)
		}
		if err != nil {
			return Errorf("Error reading range '%s' from sheet '%s': %v", ref, sheet, err)
		}
		return r.gridValue(pc, grid)

	case "COLUMN":
		colParts := strings.Split(params, "!")
		if len(colParts) < 2 {
			return Errorf("Invalid COLUMN format")
		}
		sheet := resolveSheet(colParts[0], sheetMap)
		if !slices.Contains(sheets, sheet) {
			return Errorf("Sheet not found: %s", sheet)
		}
		columns := strings.Trim(colParts[1], `"`)

		startRow := 1
		useTitles := false
		if len(colParts) > 2 {
			n, err := strconv.Atoi(strings.TrimSpace(colParts[2]))
			if err != nil {
				return Errorf("Invalid start row for COLUMN")
			}
			startRow = n
			useTitles = true
		} else if !strings.ContainsAny(strings.ReplaceAll(columns, ",", ""), "0123456789") {
			// Digit-free tokens are column titles rather than cell refs.
			useTitles = true
		}

		tokens := strings.Split(columns, ",")
		for i := range tokens {
			tokens[i] = strings.TrimSpace(tokens[i])
		}
		grid, err := src.ReadColumns(sheet, tokens, useTitles, startRow)
		if err != nil {
			return Errorf("Error processing XL: %v", err)
		}
		return r.gridValue(pc, grid)
	}

	return Errorf("Unknown XL type: %s", xlType)
}

// gridValue returns a table artifact when the caller can splice one in,
// otherwise the grid rendered as aligned text.
func (r *xlResolver) gridValue(pc *ParseContext, grid tabular.Grid) Value {
	if pc.WithSink && len(grid) > 0 {
		return TableValue(grid)
	}
	return TextValue(tabular.FormatGrid(grid))
}

// splitSheetRef mirrors the directive convention that an explicit sheet name
// may precede the reference: when the first token names a known sheet it is
// consumed, otherwise the whole params string is the reference on the default
// sheet.
func splitSheetRef(params, defaultSheet string, sheetMap map[string]string) (sheet, ref string) {
	parts := strings.Split(params, "!")
	if len(parts) > 1 {
		if actual, ok := sheetMap[strings.ToLower(strings.Trim(parts[0], "'"))]; ok {
			return actual, strings.Join(parts[1:], "!")
		}
	}
	return defaultSheet, params
}

// resolveSheet maps a case-insensitive sheet token to its canonical name,
// passing unknown tokens through for the caller's membership check.
func resolveSheet(token string, sheetMap map[string]string) string {
	if actual, ok := sheetMap[strings.ToLower(strings.Trim(token, "'"))]; ok {
		return actual
	}
	return token
}
