package core

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/insightdesk/internal/logging"
	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

// DefaultPreviewRows is the per-sheet sample size returned by Preview.
const DefaultPreviewRows = 50

// Source tells where a view's rows were read from.
type Source string

const (
	SourceFile  Source = "file"
	SourceStore Source = "store"
)

// SheetSet is a multi-sheet result. Single is set when the result can also
// be shown as one flat table: exactly one parsed sheet, a non-tabular
// upload, or rows read back from the store. Sheets is nil for the latter two.
type SheetSet struct {
	Sheets []workbook.Sheet
	Single *workbook.Sheet
}

func newSheetSet(sheets []workbook.Sheet) SheetSet {
	set := SheetSet{Sheets: sheets}
	if len(sheets) == 1 {
		set.Single = &sheets[0]
	}
	return set
}

func flatSet(sh workbook.Sheet) SheetSet {
	return SheetSet{Single: &sh}
}

func emptySheet() workbook.Sheet {
	return workbook.Sheet{Columns: []string{}, Rows: []workbook.Row{}}
}

// View is a page of a dataset's rows.
type View struct {
	SheetSet
	Source  Source
	Version int
}

// EditedSheet is one sheet of a multi-sheet save.
type EditedSheet struct {
	Name    string         `json:"name"`
	Columns []string       `json:"columns" validate:"omitempty,dive,required"`
	Rows    []workbook.Row `json:"rows"`
}

// EditPayload is the body of a save. Sheets, when non-empty, takes
// precedence over the flat Columns and Rows. A non-zero Version must match
// the dataset's current version.
type EditPayload struct {
	Columns []string       `json:"columns" validate:"omitempty,dive,required"`
	Rows    []workbook.Row `json:"rows"`
	Sheets  []EditedSheet  `json:"sheets" validate:"omitempty,dive"`
	Version int            `json:"version" validate:"gte=0"`
}

// Coordinator serves previews and views of datasets and saves edits back.
type Coordinator struct {
	datasets    *DatasetStore
	files       Files
	previewRows int
	validate    *validator.Validate
}

// NewCoordinator returns a Coordinator. previewRows <= 0 selects
// DefaultPreviewRows.
func NewCoordinator(datasets *DatasetStore, files Files, previewRows int) *Coordinator {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	return &Coordinator{
		datasets:    datasets,
		files:       files,
		previewRows: previewRows,
		validate:    newValidator(),
	}
}

// Preview parses an upload and samples the first rows of every sheet.
// TotalRows keeps the full count. Files that are not spreadsheets produce a
// single empty table.
func (c *Coordinator) Preview(data []byte, ext string) (SheetSet, error) {
	if !workbook.IsTabular(ext) {
		return flatSet(emptySheet()), nil
	}

	sheets, err := workbook.Parse(data, ext)
	if err != nil {
		return SheetSet{}, err
	}
	for i := range sheets {
		sheets[i] = sheets[i].Window(0, c.previewRows)
	}
	return newSheetSet(sheets), nil
}

// ViewRows returns a page of a dataset. When the original spreadsheet is
// still on disk it is parsed again and every sheet is paged with the same
// window, since it carries the columns left out at ingest. Otherwise, or
// when parsing fails, the persisted rows are returned as one table.
func (c *Coordinator) ViewRows(ctx context.Context, id string, skip, limit int) (View, error) {
	skip, limit = c.datasets.Limits().Clamp(skip, limit)

	d, err := c.datasets.Get(ctx, id)
	if err != nil {
		return View{}, err
	}

	if sheets, ok := c.reparse(ctx, d); ok {
		for i := range sheets {
			sheets[i] = sheets[i].Window(skip, limit)
		}
		return View{SheetSet: newSheetSet(sheets), Source: SourceFile, Version: d.Version}, nil
	}

	page, err := c.datasets.FetchRowsPage(ctx, id, skip, limit)
	if err != nil {
		return View{}, err
	}
	total := page.TotalRows
	if total == 0 {
		total = len(page.Rows)
	}
	sh := workbook.Sheet{
		Name:      page.Dataset.Name,
		Columns:   nonNilColumns(page.Dataset.Metadata.Columns),
		Rows:      page.Rows,
		TotalRows: total,
	}
	return View{SheetSet: flatSet(sh), Source: SourceStore, Version: page.Dataset.Version}, nil
}

// reparse reads d's original file when it is a spreadsheet that still
// exists. Failures are logged and reported as !ok.
func (c *Coordinator) reparse(ctx context.Context, d store.Dataset) ([]workbook.Sheet, bool) {
	if c.files == nil || d.FilePath == "" || !workbook.IsTabular(filepath.Ext(d.Name)) {
		return nil, false
	}
	if !c.files.Exists(d.FilePath) {
		return nil, false
	}

	logger := logging.WithFields(ctx, "dataset_id", d.ID, "path", d.FilePath)

	data, err := c.files.ReadFile(d.FilePath)
	if err != nil {
		logger.Warn("read original file failed, using stored rows", "error", err)
		return nil, false
	}
	sheets, err := workbook.Parse(data, filepath.Ext(d.Name))
	if err != nil {
		logger.Warn("reparse failed, using stored rows", "error", err)
		return nil, false
	}
	return sheets, true
}

// SaveEditedRows replaces a dataset's rows with an edited copy.
//
// A flat payload without columns keeps the dataset's current columns. A
// multi-sheet payload records the union of every sheet's columns: its
// declared columns in order, then any other keys its rows carry, sorted.
// Rows are stored as sent.
func (c *Coordinator) SaveEditedRows(ctx context.Context, id string, p EditPayload) (store.Dataset, error) {
	if err := check(c.validate, p); err != nil {
		return store.Dataset{}, err
	}

	var (
		columns []string
		rows    []workbook.Row
	)

	if len(p.Sheets) > 0 {
		columns, rows = mergeSheets(p.Sheets)
	} else {
		columns = p.Columns
		if columns == nil {
			d, err := c.datasets.Get(ctx, id)
			if err != nil {
				return store.Dataset{}, err
			}
			columns = d.Metadata.Columns
		}
		rows = compactRows(p.Rows)
	}

	return c.datasets.ReplaceAllRows(ctx, id, nonNilColumns(columns), rows, p.Version)
}

func mergeSheets(sheets []EditedSheet) ([]string, []workbook.Row) {
	columns := []string{}
	rows := []workbook.Row{}
	seen := make(map[string]bool)

	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			columns = append(columns, col)
		}
	}

	for _, sh := range sheets {
		for _, col := range sh.Columns {
			add(col)
		}

		var extra []string
		for _, r := range sh.Rows {
			for k := range r {
				if !seen[k] {
					extra = append(extra, k)
				}
			}
		}
		sort.Strings(extra)
		for _, col := range extra {
			add(col)
		}

		rows = append(rows, compactRows(sh.Rows)...)
	}
	return columns, rows
}

// compactRows replaces JSON null rows with empty ones.
func compactRows(in []workbook.Row) []workbook.Row {
	out := make([]workbook.Row, len(in))
	for i, r := range in {
		if r == nil {
			r = workbook.Row{}
		}
		out[i] = r
	}
	return out
}

func nonNilColumns(cols []string) []string {
	if cols == nil {
		return []string{}
	}
	return cols
}
