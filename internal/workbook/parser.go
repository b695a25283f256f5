package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnreadableWorkbook is returned when a file with a tabular extension
// cannot be decoded.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

// ParseError records which format (and sheet, when known) failed to decode.
type ParseError struct {
	Format string
	Sheet  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("parse %s sheet %q: %v", e.Format, e.Sheet, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes every ParseError match ErrUnreadableWorkbook.
func (e *ParseError) Is(target error) bool { return target == ErrUnreadableWorkbook }

// reader decodes one format into raw records per sheet.
type reader func(data []byte) ([]rawSheet, error)

type rawSheet struct {
	name    string
	records [][]Value
}

var readers = map[string]reader{
	".xlsx": readXLSX,
	".xls":  readXLS,
	".csv":  readCSV,
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsTabular reports whether ext names a format Parse can read.
func IsTabular(ext string) bool {
	_, ok := readers[NormalizeExt(ext)]
	return ok
}

// Parse decodes data according to ext and returns its sheets in workbook
// order. Extensions other than .xlsx, .xls and .csv yield an empty slice and
// no error.
func Parse(data []byte, ext string) (sheets []Sheet, err error) {
	ext = NormalizeExt(ext)
	read, ok := readers[ext]
	if !ok {
		return []Sheet{}, nil
	}

	format := strings.TrimPrefix(ext, ".")

	// The binary decoders index into untrusted input and can panic on
	// truncated files.
	defer func() {
		if r := recover(); r != nil {
			sheets = nil
			err = &ParseError{Format: format, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	raw, err := read(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ParseError{Format: format, Err: err}
	}

	sheets = make([]Sheet, 0, len(raw))
	for _, rs := range raw {
		sheets = append(sheets, buildSheet(rs.name, rs.records))
	}
	return sheets, nil
}

// ParseFile reads path and parses it using the file's own extension.
func ParseFile(path string) ([]Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Parse(data, filepath.Ext(path))
}
