package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/insightdesk/internal/logging"
	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

const (
	// DefaultBatchSize is the number of rows written per backend call.
	DefaultBatchSize = 5000

	// DefaultPageLimit and MaxPageLimit bound row pages.
	DefaultPageLimit = 100
	MaxPageLimit     = 5000
)

// Files is the backing-file storage used for original uploads.
type Files interface {
	Save(name string, r io.Reader) (string, error)
	Exists(ref string) bool
	ReadFile(ref string) ([]byte, error)
	Remove(ref string) error
}

// PageLimits holds the default and maximum page size.
type PageLimits struct {
	Default int
	Max     int
}

// Clamp resolves a requested window. Negative values fall back to the
// defaults and limit never exceeds Max.
func (p PageLimits) Clamp(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = p.Default
	}
	if limit > p.Max {
		limit = p.Max
	}
	return skip, limit
}

// Asset describes an uploaded file before it is persisted.
type Asset struct {
	Name     string
	Size     int64
	FilePath string
	MimeType string
	Metadata IngestMetadata
}

// RowPage is one page of persisted rows.
type RowPage struct {
	Dataset   store.Dataset
	Rows      []workbook.Row
	TotalRows int
}

// DatasetStore owns every write to persisted datasets and their rows.
type DatasetStore struct {
	repo      store.Repository
	files     Files
	batchSize int
	limits    PageLimits
}

// NewDatasetStore returns a store writing rows in batches of batchSize.
// Zero values select the package defaults.
func NewDatasetStore(repo store.Repository, files Files, batchSize int, limits PageLimits) *DatasetStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if limits.Max <= 0 {
		limits.Max = MaxPageLimit
	}
	if limits.Default <= 0 || limits.Default > limits.Max {
		limits.Default = min(DefaultPageLimit, limits.Max)
	}
	return &DatasetStore{repo: repo, files: files, batchSize: batchSize, limits: limits}
}

// Limits returns the page limits enforced by FetchRowsPage.
func (s *DatasetStore) Limits() PageLimits { return s.limits }

// Create stores the metadata record for asset. Rows are written separately.
func (s *DatasetStore) Create(ctx context.Context, asset Asset, columns []string, rowCount int) (store.Dataset, error) {
	return s.create(ctx, s.repo, asset, columns, rowCount)
}

func (s *DatasetStore) create(ctx context.Context, repo store.Repository, asset Asset, columns []string, rowCount int) (store.Dataset, error) {
	if columns == nil {
		columns = []string{}
	}
	d, err := repo.CreateDataset(ctx, store.Dataset{
		Name:     asset.Name,
		Size:     asset.Size,
		FilePath: asset.FilePath,
		MimeType: asset.MimeType,
		Metadata: store.Metadata{
			TableName:   asset.Metadata.TableName,
			SubPractice: asset.Metadata.SubPractice,
			FileType:    asset.Metadata.FileType,
			Description: asset.Metadata.Description,
			Columns:     columns,
			TotalRows:   rowCount,
		},
	})
	if err != nil {
		return store.Dataset{}, storageErr("create dataset", err)
	}
	return d, nil
}

// InsertRows appends rows to a dataset that has none yet, one batch per
// backend call. The first failing batch stops the write and is reported as
// a *StorageError carrying its index.
func (s *DatasetStore) InsertRows(ctx context.Context, datasetID string, rows []workbook.Row) error {
	return s.insertRows(ctx, s.repo, datasetID, rows)
}

func (s *DatasetStore) insertRows(ctx context.Context, repo store.Repository, datasetID string, rows []workbook.Row) error {
	for batch, start := 0, 0; start < len(rows); batch, start = batch+1, start+s.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+s.batchSize, len(rows))

		if err := repo.InsertRows(ctx, datasetID, start, rows[start:end]); err != nil {
			logging.FromContext(ctx).Error("row batch insert failed",
				"dataset_id", datasetID,
				"batch", batch,
				"batch_size", end-start,
				"error", err,
			)
			return &StorageError{Op: "insert rows", Batch: batch, Err: err}
		}
	}
	return nil
}

// CreateWithRows stores a dataset together with its rows. When the backend
// cannot make the pair atomic, a failed write is cleaned up afterwards.
func (s *DatasetStore) CreateWithRows(ctx context.Context, asset Asset, columns []string, rows []workbook.Row) (store.Dataset, error) {
	var created store.Dataset

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Repository) error {
		d, err := s.create(ctx, tx, asset, columns, len(rows))
		if err != nil {
			return err
		}
		created = d
		return s.insertRows(ctx, tx, d.ID, rows)
	})
	if err != nil {
		if created.ID != "" {
			s.discard(ctx, created.ID)
		}
		return store.Dataset{}, storageErr("ingest", err)
	}
	return created, nil
}

// discard removes whatever a failed ingest left behind. Backends that rolled
// back report nothing to remove.
func (s *DatasetStore) discard(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.WithFields(ctx, "dataset_id", id)

	if _, err := s.repo.DeleteRows(ctx, id); err != nil {
		logger.Warn("cleanup of partial rows failed", "error", err)
	}
	if err := s.repo.DeleteDataset(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Warn("cleanup of partial dataset failed", "error", err)
	}
}

// Get returns one dataset.
func (s *DatasetStore) Get(ctx context.Context, id string) (store.Dataset, error) {
	d, err := s.repo.GetDataset(ctx, id)
	if err != nil {
		return store.Dataset{}, storageErr("get dataset", err)
	}
	return d, nil
}

// ListAll returns every dataset, newest first.
func (s *DatasetStore) ListAll(ctx context.Context) ([]store.Dataset, error) {
	ds, err := s.repo.ListDatasets(ctx)
	if err != nil {
		return nil, storageErr("list datasets", err)
	}
	if ds == nil {
		ds = []store.Dataset{}
	}
	return ds, nil
}

// FetchRowsPage returns one page of a dataset's rows. TotalRows comes from
// the dataset metadata rather than a count.
func (s *DatasetStore) FetchRowsPage(ctx context.Context, id string, skip, limit int) (RowPage, error) {
	skip, limit = s.limits.Clamp(skip, limit)

	d, err := s.Get(ctx, id)
	if err != nil {
		return RowPage{}, err
	}

	rows, err := s.repo.FetchRows(ctx, id, skip, limit)
	if err != nil {
		return RowPage{}, storageErr("fetch rows", err)
	}
	if rows == nil {
		rows = []workbook.Row{}
	}
	return RowPage{Dataset: d, Rows: rows, TotalRows: d.Metadata.TotalRows}, nil
}

// ReplaceAllRows swaps a dataset's rows for rows and records columns as its
// schema. The old rows are deleted before any new row is written and the
// metadata changes only after every batch succeeded. A non-zero
// expectedVersion must match the stored version or ErrConflict is returned.
func (s *DatasetStore) ReplaceAllRows(ctx context.Context, id string, columns []string, rows []workbook.Row, expectedVersion int) (store.Dataset, error) {
	if columns == nil {
		columns = []string{}
	}

	var (
		before  store.Dataset
		version int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Repository) error {
		d, err := tx.GetDataset(ctx, id)
		if err != nil {
			return storageErr("get dataset", err)
		}
		if expectedVersion > 0 && d.Version != expectedVersion {
			return fmt.Errorf("%w: have version %d, save names %d", ErrConflict, d.Version, expectedVersion)
		}
		before = d

		if _, err := tx.DeleteRows(ctx, id); err != nil {
			return storageErr("delete rows", err)
		}
		if err := s.insertRows(ctx, tx, id, rows); err != nil {
			return err
		}

		version, err = tx.UpdateDatasetSchema(ctx, id, columns, len(rows), d.Version)
		if err != nil {
			return storageErr("update dataset", err)
		}
		return nil
	})
	if err != nil {
		return store.Dataset{}, err
	}

	after := before
	after.Metadata.Columns = columns
	after.Metadata.TotalRows = len(rows)
	after.Version = version

	audit(ctx, AuditEvent{
		Action:       ActionReplaceRows,
		DatasetID:    id,
		DatasetName:  after.Name,
		RowsAffected: len(rows),
		Version:      version,
	})
	return after, nil
}

// DeleteCascade removes a dataset, its rows and its backing file. A file
// that cannot be removed is logged as a FileOrphanWarning and does not fail
// the delete.
func (s *DatasetStore) DeleteCascade(ctx context.Context, id string) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.repo.DeleteRows(ctx, id)
	if err != nil {
		return storageErr("delete rows", err)
	}
	if err := s.repo.DeleteDataset(ctx, id); err != nil {
		return storageErr("delete dataset", err)
	}

	if d.FilePath != "" && s.files != nil {
		if err := s.files.Remove(d.FilePath); err != nil {
			warn := &FileOrphanWarning{DatasetID: id, Path: d.FilePath, Err: err}
			logging.FromContext(ctx).Warn("backing file not removed",
				"dataset_id", id,
				"path", d.FilePath,
				"error", warn,
			)
		}
	}

	audit(ctx, AuditEvent{
		Action:       ActionDelete,
		DatasetID:    id,
		DatasetName:  d.Name,
		RowsAffected: int(removed),
	})
	return nil
}
