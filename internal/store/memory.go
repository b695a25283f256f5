package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

// Memory is an in-process Repository for tests and local development.
//
// Transactions are serialized and roll back by restoring a whole-store
// snapshot. Writes made outside a transaction wait for an open one to
// finish, so a rollback never discards them. A transaction must only write
// through the Repository it is handed; writing through the Memory itself
// from inside fn blocks forever.
type Memory struct {
	txMu sync.RWMutex

	mu       sync.RWMutex
	datasets map[string]memDataset
	rows     map[string][]workbook.Row
	seq      int64
	now      func() time.Time
}

type memDataset struct {
	Dataset
	seq int64
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{
		datasets: make(map[string]memDataset),
		rows:     make(map[string][]workbook.Row),
		now:      time.Now,
	}
}

func (m *Memory) createDataset(_ context.Context, d Dataset) (Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d.ID = uuid.NewString()
	d.Version = 1
	d.CreatedAt = m.now().UTC()
	d.Metadata.Columns = append([]string{}, d.Metadata.Columns...)

	m.seq++
	m.datasets[d.ID] = memDataset{Dataset: d, seq: m.seq}
	return d, nil
}

func (m *Memory) GetDataset(_ context.Context, id string) (Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.datasets[id]
	if !ok {
		return Dataset{}, ErrNotFound
	}
	return copyDataset(d.Dataset), nil
}

func (m *Memory) ListDatasets(_ context.Context) ([]Dataset, error) {
	m.mu.RLock()
	all := make([]memDataset, 0, len(m.datasets))
	for _, d := range m.datasets {
		all = append(all, d)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].seq > all[j].seq
	})

	out := make([]Dataset, len(all))
	for i, d := range all {
		out[i] = copyDataset(d.Dataset)
	}
	return out, nil
}

func (m *Memory) updateDatasetSchema(_ context.Context, id string, columns []string, totalRows, expectedVersion int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.datasets[id]
	if !ok {
		return 0, ErrNotFound
	}
	if expectedVersion != 0 && d.Version != expectedVersion {
		return 0, ErrVersionMismatch
	}

	d.Metadata.Columns = append([]string{}, columns...)
	d.Metadata.TotalRows = totalRows
	d.Version++
	m.datasets[id] = d
	return d.Version, nil
}

func (m *Memory) deleteDataset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.datasets[id]; !ok {
		return ErrNotFound
	}
	delete(m.datasets, id)
	return nil
}

func (m *Memory) insertRows(ctx context.Context, datasetID string, offset int, rows []workbook.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.rows[datasetID]
	if offset != len(existing) {
		return fmt.Errorf("insert at position %d: dataset has %d rows", offset, len(existing))
	}
	for _, r := range rows {
		existing = append(existing, r.Clone())
	}
	m.rows[datasetID] = existing
	return nil
}

func (m *Memory) FetchRows(_ context.Context, datasetID string, skip, limit int) ([]workbook.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.rows[datasetID]
	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) || limit <= 0 {
		return []workbook.Row{}, nil
	}
	end := min(skip+limit, len(all))

	out := make([]workbook.Row, 0, end-skip)
	for _, r := range all[skip:end] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *Memory) deleteRows(_ context.Context, datasetID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.rows[datasetID]))
	delete(m.rows, datasetID)
	return n, nil
}

func (m *Memory) CountRows(_ context.Context, datasetID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rows[datasetID])), nil
}

func (m *Memory) CreateDataset(ctx context.Context, d Dataset) (Dataset, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.createDataset(ctx, d)
}

func (m *Memory) UpdateDatasetSchema(ctx context.Context, id string, columns []string, totalRows, expectedVersion int) (int, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.updateDatasetSchema(ctx, id, columns, totalRows, expectedVersion)
}

func (m *Memory) DeleteDataset(ctx context.Context, id string) error {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.deleteDataset(ctx, id)
}

func (m *Memory) InsertRows(ctx context.Context, datasetID string, offset int, rows []workbook.Row) error {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.insertRows(ctx, datasetID, offset, rows)
}

func (m *Memory) DeleteRows(ctx context.Context, datasetID string) (int64, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	return m.deleteRows(ctx, datasetID)
}

func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	datasets, rows := m.snapshot()
	if err := fn(ctx, memTx{m}); err != nil {
		m.mu.Lock()
		m.datasets, m.rows = datasets, rows
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) Ping(context.Context) error  { return nil }
func (m *Memory) Close(context.Context) error { return nil }

// memTx is the Repository handed to a transaction. Its writes skip txMu,
// which the transaction already holds.
type memTx struct {
	*Memory
}

func (t memTx) CreateDataset(ctx context.Context, d Dataset) (Dataset, error) {
	return t.createDataset(ctx, d)
}

func (t memTx) UpdateDatasetSchema(ctx context.Context, id string, columns []string, totalRows, expectedVersion int) (int, error) {
	return t.updateDatasetSchema(ctx, id, columns, totalRows, expectedVersion)
}

func (t memTx) DeleteDataset(ctx context.Context, id string) error {
	return t.deleteDataset(ctx, id)
}

func (t memTx) InsertRows(ctx context.Context, datasetID string, offset int, rows []workbook.Row) error {
	return t.insertRows(ctx, datasetID, offset, rows)
}

func (t memTx) DeleteRows(ctx context.Context, datasetID string) (int64, error) {
	return t.deleteRows(ctx, datasetID)
}

// WithTx joins the enclosing transaction.
func (t memTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	return fn(ctx, t)
}

// snapshot copies the maps and row slices. Rows are never mutated in place
// so the row maps themselves can be shared.
func (m *Memory) snapshot() (map[string]memDataset, map[string][]workbook.Row) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	datasets := make(map[string]memDataset, len(m.datasets))
	for k, v := range m.datasets {
		datasets[k] = v
	}
	rows := make(map[string][]workbook.Row, len(m.rows))
	for k, v := range m.rows {
		rows[k] = append([]workbook.Row(nil), v...)
	}
	return datasets, rows
}

func copyDataset(d Dataset) Dataset {
	d.Metadata.Columns = append([]string{}, d.Metadata.Columns...)
	return d
}
