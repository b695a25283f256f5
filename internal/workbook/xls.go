package workbook

import (
	"bytes"
	"errors"

	"github.com/extrame/xls"
)

var errNoWorkbook = errors.New("no BIFF workbook found")

func readXLS(data []byte) ([]rawSheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, errNoWorkbook
	}

	out := make([]rawSheet, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}

		var records [][]Value
		if ws.MaxRow > 0 || ws.Row(0) != nil {
			records = make([][]Value, 0, int(ws.MaxRow)+1)
			for r := 0; r <= int(ws.MaxRow); r++ {
				records = append(records, xlsRecord(ws.Row(r)))
			}
		}
		out = append(out, rawSheet{name: ws.Name, records: records})
	}
	return out, nil
}

// xlsRecord lays a BIFF row out positionally from column 0. Missing rows
// come back as nil from the decoder and read as blank.
func xlsRecord(row *xls.Row) []Value {
	if row == nil {
		return nil
	}
	last := row.LastCol()
	rec := make([]Value, last)
	for c := 0; c < last; c++ {
		if c < row.FirstCol() {
			rec[c] = Null()
			continue
		}
		rec[c] = xlsCell(row.Col(c))
	}
	return rec
}

// xlsCell coerces the decoder's formatted string. BIFF stores numbers and
// booleans natively but the decoder only exposes text, so the record type is
// lost and a text cell that looks like a plain number reads as one.
// inferValue keeps leading-zero identifiers such as "00123" as text.
func xlsCell(raw string) Value {
	return inferValue(raw)
}
