package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/insightdesk/internal/store"
)

// RowCounter is the part of store.Repository a verify needs.
type RowCounter interface {
	ListDatasets(ctx context.Context) ([]store.Dataset, error)
	CountRows(ctx context.Context, datasetID string) (int64, error)
}

// Drift is a dataset whose stored row count differs from its recorded total.
type Drift struct {
	Dataset store.Dataset
	Stored  int64
}

// Verify compares every dataset's recorded total with the rows actually
// stored. A backend without transactions can be left with a partial row set
// when a save fails halfway; those datasets show up here.
func Verify(ctx context.Context, repo RowCounter) ([]Drift, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	list, err := repo.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	var drifts []Drift
	for _, d := range list {
		n, err := repo.CountRows(ctx, d.ID)
		if err != nil {
			return drifts, fmt.Errorf("count rows of %s (%s): %w", d.ID, d.Name, err)
		}
		if n != int64(d.Metadata.TotalRows) {
			drifts = append(drifts, Drift{Dataset: d, Stored: n})
		}
	}

	slog.Info("datasets verified", "checked", len(list), "drifted", len(drifts))
	return drifts, nil
}
