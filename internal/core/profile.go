package core

import (
	"context"

	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

const profileSampleRows = 5

// ColumnProfile summarizes one column of a sheet.
type ColumnProfile struct {
	Name     string   `json:"name"`
	NonNull  int      `json:"nonNull"`
	Distinct int      `json:"distinct"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// SheetProfile summarizes one sheet.
type SheetProfile struct {
	Name      string          `json:"name"`
	Columns   []string        `json:"columns"`
	TotalRows int             `json:"totalRows"`
	Sample    []workbook.Row  `json:"sample"`
	Stats     []ColumnProfile `json:"stats"`
}

// Profile is the digest of a dataset.
type Profile struct {
	Source Source         `json:"source"`
	Sheets []SheetProfile `json:"sheets"`
}

// Profile digests a dataset sheet by sheet. Like ViewRows it prefers the
// original file and falls back to every stored row as a single sheet.
func (c *Coordinator) Profile(ctx context.Context, id string) (Profile, error) {
	d, err := c.datasets.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	if sheets, ok := c.reparse(ctx, d); ok {
		out := Profile{Source: SourceFile, Sheets: make([]SheetProfile, 0, len(sheets))}
		for _, sh := range sheets {
			out.Sheets = append(out.Sheets, ProfileSheet(sh))
		}
		return out, nil
	}

	rows, err := c.allRows(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	sh := workbook.Sheet{
		Name:      d.Name,
		Columns:   nonNilColumns(d.Metadata.Columns),
		Rows:      rows,
		TotalRows: len(rows),
	}
	return Profile{Source: SourceStore, Sheets: []SheetProfile{ProfileSheet(sh)}}, nil
}

// allRows pages through every stored row of a dataset.
func (c *Coordinator) allRows(ctx context.Context, id string) ([]workbook.Row, error) {
	limit := c.datasets.Limits().Max
	var rows []workbook.Row
	for skip := 0; ; skip += limit {
		page, err := c.datasets.FetchRowsPage(ctx, id, skip, limit)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page.Rows...)
		if len(page.Rows) < limit {
			return rows, nil
		}
	}
}

// ProfileSheet computes per-column counts and numeric ranges for sh.
// Missing keys count as null.
func ProfileSheet(sh workbook.Sheet) SheetProfile {
	p := SheetProfile{
		Name:      sh.Name,
		Columns:   nonNilColumns(sh.Columns),
		TotalRows: sh.TotalRows,
		Sample:    sh.Window(0, profileSampleRows).Rows,
		Stats:     make([]ColumnProfile, 0, len(sh.Columns)),
	}
	if p.Sample == nil {
		p.Sample = []workbook.Row{}
	}

	for _, col := range sh.Columns {
		cp := ColumnProfile{Name: col}
		distinct := make(map[string]struct{})

		for _, r := range sh.Rows {
			v := r.Get(col)
			if v.IsNull() {
				continue
			}
			cp.NonNull++
			distinct[v.Kind().String()+":"+v.String()] = struct{}{}

			if n, ok := v.AsNumber(); ok {
				if cp.Min == nil || n < *cp.Min {
					cp.Min = &n
				}
				if cp.Max == nil || n > *cp.Max {
					cp.Max = &n
				}
			}
		}
		cp.Distinct = len(distinct)
		p.Stats = append(p.Stats, cp)
	}
	return p
}
