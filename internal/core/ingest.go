package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JonMunkholm/insightdesk/internal/logging"
	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

// IngestMetadata is the user's description of an upload.
type IngestMetadata struct {
	TableName   string `json:"tableName" validate:"required"`
	SubPractice string `json:"subPractice" validate:"required"`
	FileType    string `json:"fileType" validate:"required"`
	Description string `json:"description"`
}

// IngestRequest is one upload with its raw form fields. The JSON fields are
// decoded by Ingest so malformed input surfaces as a *ValidationError.
type IngestRequest struct {
	FileName string
	MimeType string
	Data     []byte

	Metadata                string
	SelectedColumns         string
	SelectedSheets          string
	SelectedColumnsPerSheet string
}

// IngestService turns uploads into persisted datasets.
type IngestService struct {
	datasets *DatasetStore
	files    Files
	limiter  *IngestLimiter
	validate *validator.Validate
}

// NewIngestService returns an IngestService. A nil limiter admits every
// request.
func NewIngestService(datasets *DatasetStore, files Files, limiter *IngestLimiter) *IngestService {
	return &IngestService{
		datasets: datasets,
		files:    files,
		limiter:  limiter,
		validate: newValidator(),
	}
}

// Limiter returns the limiter guarding Ingest, or nil.
func (s *IngestService) Limiter() *IngestLimiter { return s.limiter }

// Ingest parses the upload, applies the selection, stores the original file
// and persists the dataset with its rows. Files that are not spreadsheets
// are stored with no columns and no rows.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (store.Dataset, error) {
	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return store.Dataset{}, err
		}
		defer s.limiter.Release()
	}

	logger := logging.WithFields(ctx, "ingest_id", uuid.NewString(), "file", req.FileName)
	ctx = logging.WithLogger(ctx, logger)

	meta, sel, err := s.decodeForm(req)
	if err != nil {
		return store.Dataset{}, err
	}

	ext := workbook.NormalizeExt(filepath.Ext(req.FileName))
	selection := Selection{UnionColumns: []string{}, Rows: []workbook.Row{}}
	if workbook.IsTabular(ext) {
		sheets, err := workbook.Parse(req.Data, ext)
		if err != nil {
			return store.Dataset{}, err
		}
		selection = Select(sheets, sel)
		logger.Debug("workbook parsed",
			"sheets", len(sheets),
			"columns", len(selection.UnionColumns),
			"rows", len(selection.Rows),
		)
	}

	ref, err := s.files.Save(req.FileName, bytes.NewReader(req.Data))
	if err != nil {
		return store.Dataset{}, fmt.Errorf("store upload: %w", err)
	}

	asset := Asset{
		Name:     req.FileName,
		Size:     int64(len(req.Data)),
		FilePath: ref,
		MimeType: detectMime(req.MimeType, req.Data),
		Metadata: meta,
	}

	d, err := s.datasets.CreateWithRows(ctx, asset, selection.UnionColumns, selection.Rows)
	if err != nil {
		if rmErr := s.files.Remove(ref); rmErr != nil {
			logger.Warn("remove upload after failed ingest", "path", ref, "error", rmErr)
		}
		return store.Dataset{}, err
	}

	logger.Info("dataset ingested",
		"dataset_id", d.ID,
		"columns", len(d.Metadata.Columns),
		"rows", d.Metadata.TotalRows,
	)
	audit(ctx, AuditEvent{
		Action:       ActionIngest,
		DatasetID:    d.ID,
		DatasetName:  d.Name,
		RowsAffected: d.Metadata.TotalRows,
		Version:      d.Version,
	})
	return d, nil
}

func (s *IngestService) decodeForm(req IngestRequest) (IngestMetadata, SelectionRequest, error) {
	var (
		meta IngestMetadata
		sel  SelectionRequest
	)

	if strings.TrimSpace(req.Metadata) == "" {
		return meta, sel, invalid("metadata", "metadata is required")
	}
	if err := json.Unmarshal([]byte(req.Metadata), &meta); err != nil {
		return meta, sel, invalid("json", "metadata: %v", err)
	}
	if err := check(s.validate, meta); err != nil {
		return meta, sel, err
	}

	fields := []struct {
		name string
		raw  string
		dst  any
	}{
		{"selectedColumns", req.SelectedColumns, &sel.Columns},
		{"selectedSheets", req.SelectedSheets, &sel.Sheets},
		{"selectedColumnsPerSheet", req.SelectedColumnsPerSheet, &sel.ColumnsPerSheet},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return meta, sel, invalid("json", "%s: %v", f.name, err)
		}
	}

	return meta, sel, nil
}

// detectMime keeps the client's content type unless it is missing or generic.
func detectMime(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
