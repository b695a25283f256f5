package workbook

// Sheet is one named table extracted from a file.
//
// Columns are unique and never empty. TotalRows always equals len(Rows)
// for a freshly parsed sheet; a window produced by Window keeps the
// original total.
type Sheet struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	TotalRows int      `json:"totalRows"`
}

// Window returns a copy of s holding at most limit rows starting at skip.
// TotalRows is left untouched so callers can page.
func (s Sheet) Window(skip, limit int) Sheet {
	out := Sheet{Name: s.Name, Columns: s.Columns, TotalRows: s.TotalRows}
	if skip < 0 {
		skip = 0
	}
	if skip >= len(s.Rows) || limit <= 0 {
		out.Rows = []Row{}
		return out
	}
	end := skip + limit
	if end > len(s.Rows) {
		end = len(s.Rows)
	}
	out.Rows = s.Rows[skip:end]
	return out
}

// buildSheet applies the header and blank-row rules shared by every format.
//
// Leading records whose cells are all blank are skipped, so a table that
// starts below empty rows still finds its header. The first remaining
// record is the header. A header cell that renders empty has no
// column and its data is dropped. When two header cells render the same
// name the column appears once, at its first position, and the right-most
// cell supplies the value. Records shorter than the header read as Null in
// the missing positions, and records whose cells are all blank are skipped.
func buildSheet(name string, records [][]Value) Sheet {
	sheet := Sheet{Name: name, Columns: []string{}, Rows: []Row{}}
	for len(records) > 0 && recordIsBlank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return sheet
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(header))
	for i, cell := range records[0] {
		h := cell.String()
		header[i] = h
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		sheet.Columns = append(sheet.Columns, h)
	}

	for _, rec := range records[1:] {
		if recordIsBlank(rec) {
			continue
		}
		row := make(Row, len(sheet.Columns))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = Null()
			}
		}
		if row.IsBlank() {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	sheet.TotalRows = len(sheet.Rows)
	return sheet
}

func recordIsBlank(rec []Value) bool {
	for _, v := range rec {
		if !v.IsBlank() {
			return false
		}
	}
	return true
}
