// Package store persists datasets and their rows.
//
// A dataset is one metadata record plus an ordered set of row records that
// reference it by id. The backends do not enforce that relation; callers
// delete rows before deleting their dataset.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

var (
	// ErrNotFound is returned when a dataset id does not resolve. Ids that
	// are malformed for the backend are reported the same way.
	ErrNotFound = errors.New("dataset not found")

	// ErrVersionMismatch is returned by UpdateDatasetSchema when the stored
	// version differs from the expected one.
	ErrVersionMismatch = errors.New("dataset version mismatch")
)

// Metadata is the user-supplied description of a dataset together with its
// persisted schema.
type Metadata struct {
	TableName   string   `json:"tableName" bson:"tableName"`
	SubPractice string   `json:"subPractice" bson:"subPractice"`
	FileType    string   `json:"fileType" bson:"fileType"`
	Description string   `json:"description" bson:"description"`
	Columns     []string `json:"columns" bson:"columns"`
	TotalRows   int      `json:"totalRows" bson:"totalRows"`
}

// Dataset is one ingested asset.
type Dataset struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	FilePath  string    `json:"filePath,omitempty"`
	MimeType  string    `json:"mimeType"`
	Metadata  Metadata  `json:"metadata"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository is implemented by every backend.
type Repository interface {
	// CreateDataset stores d and returns it with ID, Version and CreatedAt
	// assigned by the backend.
	CreateDataset(ctx context.Context, d Dataset) (Dataset, error)
	GetDataset(ctx context.Context, id string) (Dataset, error)
	// ListDatasets returns every dataset, newest first.
	ListDatasets(ctx context.Context) ([]Dataset, error)
	// UpdateDatasetSchema sets columns and total rows and increments the
	// version. expectedVersion 0 skips the version check.
	UpdateDatasetSchema(ctx context.Context, id string, columns []string, totalRows, expectedVersion int) (int, error)
	DeleteDataset(ctx context.Context, id string) error

	// InsertRows stores rows at positions offset, offset+1, ... in a single
	// backend call.
	InsertRows(ctx context.Context, datasetID string, offset int, rows []workbook.Row) error
	FetchRows(ctx context.Context, datasetID string, skip, limit int) ([]workbook.Row, error)
	DeleteRows(ctx context.Context, datasetID string) (int64, error)
	// CountRows counts stored rows. It is for consistency checks only;
	// totals shown to users come from Metadata.TotalRows.
	CountRows(ctx context.Context, datasetID string) (int64, error)

	// WithTx runs fn so that either all of its writes persist or none do.
	// fn must use the ctx and Repository it is given.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func nonNil(cols []string) []string {
	if cols == nil {
		return []string{}
	}
	return cols
}
