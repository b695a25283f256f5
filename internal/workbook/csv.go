package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

// csvSheetName is the single sheet a CSV file produces.
const csvSheetName = "Sheet1"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV decodes a comma separated file. Cells are typed with inferValue,
// so an empty cell is Null and counts as blank.
func readCSV(data []byte) ([]rawSheet, error) {
	data = cleanText(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]Value
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Format: "csv", Sheet: csvSheetName, Err: err}
		}
		row := make([]Value, len(rec))
		for i, cell := range rec {
			row[i] = inferValue(cell)
		}
		records = append(records, row)
	}

	return []rawSheet{{name: csvSheetName, records: records}}, nil
}

// cleanText strips a leading UTF-8 byte order mark and replaces invalid
// UTF-8 sequences so spreadsheet exports from Excel decode cleanly.
func cleanText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}
