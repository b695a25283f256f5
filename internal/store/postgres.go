package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/JonMunkholm/insightdesk/internal/database"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

// Postgres stores datasets in the datasets table and rows as JSONB in
// data_rows.
type Postgres struct {
	pool *pgxpool.Pool // nil inside a transaction
	q    *db.Queries
}

// NewPostgres wraps an open pool. Call database.Migrate first.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: db.New(pool)}
}

func (p *Postgres) CreateDataset(ctx context.Context, d Dataset) (Dataset, error) {
	row, err := p.q.CreateDataset(ctx, db.CreateDatasetParams{
		ID:          pgUUID(uuid.New()),
		Name:        d.Name,
		Size:        d.Size,
		FilePath:    d.FilePath,
		MimeType:    d.MimeType,
		TableName:   d.Metadata.TableName,
		SubPractice: d.Metadata.SubPractice,
		FileType:    d.Metadata.FileType,
		Description: d.Metadata.Description,
		Columns:     nonNil(d.Metadata.Columns),
		TotalRows:   clampInt32(d.Metadata.TotalRows),
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	return fromRow(row), nil
}

func (p *Postgres) GetDataset(ctx context.Context, id string) (Dataset, error) {
	key, ok := parseID(id)
	if !ok {
		return Dataset{}, ErrNotFound
	}
	row, err := p.q.GetDataset(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dataset{}, ErrNotFound
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return fromRow(row), nil
}

func (p *Postgres) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := p.q.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	out := make([]Dataset, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

func (p *Postgres) UpdateDatasetSchema(ctx context.Context, id string, columns []string, totalRows, expectedVersion int) (int, error) {
	key, ok := parseID(id)
	if !ok {
		return 0, ErrNotFound
	}

	version, err := p.q.UpdateDatasetSchema(ctx, db.UpdateDatasetSchemaParams{
		ID:              key,
		Columns:         nonNil(columns),
		TotalRows:       clampInt32(totalRows),
		ExpectedVersion: clampInt32(expectedVersion),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is gone or the version guard rejected it.
		if _, getErr := p.GetDataset(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, ErrVersionMismatch
	}
	if err != nil {
		return 0, fmt.Errorf("update dataset schema: %w", err)
	}
	return int(version), nil
}

func (p *Postgres) DeleteDataset(ctx context.Context, id string) error {
	key, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}
	n, err := p.q.DeleteDataset(ctx, key)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) InsertRows(ctx context.Context, datasetID string, offset int, rows []workbook.Row) error {
	key, ok := parseID(datasetID)
	if !ok {
		return ErrNotFound
	}

	params := make([]db.InsertDataRowsParams, len(rows))
	for i, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", offset+i, err)
		}
		params[i] = db.InsertDataRowsParams{
			DatasetID: key,
			Position:  clampInt32(offset + i),
			Data:      data,
		}
	}

	n, err := p.q.InsertDataRows(ctx, params)
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy rows: wrote %d of %d", n, len(rows))
	}
	return nil
}

func (p *Postgres) FetchRows(ctx context.Context, datasetID string, skip, limit int) ([]workbook.Row, error) {
	key, ok := parseID(datasetID)
	if !ok {
		return nil, ErrNotFound
	}

	raw, err := p.q.ListDataRows(ctx, db.ListDataRowsParams{
		DatasetID: key,
		Limit:     clampInt32(limit),
		Offset:    clampInt32(max(skip, 0)),
	})
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}

	out := make([]workbook.Row, 0, len(raw))
	for _, data := range raw {
		var r workbook.Row
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Postgres) DeleteRows(ctx context.Context, datasetID string) (int64, error) {
	key, ok := parseID(datasetID)
	if !ok {
		return 0, ErrNotFound
	}
	n, err := p.q.DeleteDataRows(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("delete rows: %w", err)
	}
	return n, nil
}

func (p *Postgres) CountRows(ctx context.Context, datasetID string) (int64, error) {
	key, ok := parseID(datasetID)
	if !ok {
		return 0, ErrNotFound
	}
	n, err := p.q.CountDataRows(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func (p *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	if p.pool == nil {
		return fn(ctx, p)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(ctx, &Postgres{q: p.q.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close(context.Context) error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func fromRow(r db.Dataset) Dataset {
	d := Dataset{
		Name:     r.Name,
		Size:     r.Size,
		FilePath: r.FilePath,
		MimeType: r.MimeType,
		Metadata: Metadata{
			TableName:   r.TableName,
			SubPractice: r.SubPractice,
			FileType:    r.FileType,
			Description: r.Description,
			Columns:     nonNil(r.Columns),
			TotalRows:   int(r.TotalRows),
		},
		Version: int(r.Version),
	}
	if r.ID.Valid {
		d.ID = uuid.UUID(r.ID.Bytes).String()
	}
	if r.CreatedAt.Valid {
		d.CreatedAt = r.CreatedAt.Time
	}
	return d
}

func parseID(id string) (pgtype.UUID, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgUUID(u), true
}

func pgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func clampInt32(n int) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	default:
		return int32(n)
	}
}
