package workbook

import (
	"bytes"
	"strconv"

	"github.com/xuri/excelize/v2"
)

func readXLSX(data []byte) ([]rawSheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.GetSheetList()
	out := make([]rawSheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &ParseError{Format: "xlsx", Sheet: name, Err: err}
		}

		records := make([][]Value, len(rows))
		for r, cells := range rows {
			rec := make([]Value, len(cells))
			for c, raw := range cells {
				rec[c] = xlsxCell(f, name, c, r, raw)
			}
			records[r] = rec
		}
		out = append(out, rawSheet{name: name, records: records})
	}
	return out, nil
}

// xlsxCell coerces a raw cell string using the cell's stored type.
func xlsxCell(f *excelize.File, sheet string, col, row int, raw string) Value {
	if raw == "" {
		return Null()
	}

	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Text(raw)
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return Text(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return Bool(raw == "1" || raw == "TRUE" || raw == "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return Num(n)
		}
		return Text(raw)
	default:
		return Text(raw)
	}
}
