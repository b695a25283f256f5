package core

import "github.com/JonMunkholm/insightdesk/internal/workbook"

// SelectionRequest names the sheets and columns a user chose to persist.
// Empty fields mean "everything".
type SelectionRequest struct {
	Sheets          []string            `json:"selectedSheets"`
	ColumnsPerSheet map[string][]string `json:"selectedColumnsPerSheet"`
	Columns         []string            `json:"selectedColumns"`
}

// Selection is the result of applying a SelectionRequest to parsed sheets.
type Selection struct {
	UnionColumns []string
	Rows         []workbook.Row
}

// Select filters sheets down to the requested sheets and columns.
//
// A sheet's effective columns are its non-null entry in ColumnsPerSheet,
// else the fallback Columns, else all of its own columns. An explicit empty
// entry selects no columns. Every row is projected onto
// its own sheet's effective columns, so rows from different sheets may carry
// different keys. UnionColumns lists every effective column once, in the order
// first seen.
func Select(sheets []workbook.Sheet, req SelectionRequest) Selection {
	var wanted map[string]bool
	if len(req.Sheets) > 0 {
		wanted = make(map[string]bool, len(req.Sheets))
		for _, name := range req.Sheets {
			wanted[name] = true
		}
	}

	sel := Selection{UnionColumns: []string{}, Rows: []workbook.Row{}}
	seen := make(map[string]bool)

	for _, sh := range sheets {
		if wanted != nil && !wanted[sh.Name] {
			continue
		}

		cols := effectiveColumns(sh, req)
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				sel.UnionColumns = append(sel.UnionColumns, c)
			}
		}

		for _, row := range sh.Rows {
			sel.Rows = append(sel.Rows, row.Project(cols))
		}
	}

	return sel
}

func effectiveColumns(sh workbook.Sheet, req SelectionRequest) []string {
	if cols := req.ColumnsPerSheet[sh.Name]; cols != nil {
		return cols
	}
	if len(req.Columns) > 0 {
		return req.Columns
	}
	return sh.Columns
}
