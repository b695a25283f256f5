package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/insightdesk/internal/core"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

// maxMemory is the multipart size kept in memory before spilling to disk.
const maxMemory = 32 << 20

// upload is the parsed multipart request of preview and ingest.
type upload struct {
	name   string
	mime   string
	data   []byte
	fields map[string]string
}

// readUpload parses the multipart form and reads the "file" part.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	if s.cfg.Upload.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return upload{}, mbe
		}
		return upload{}, &core.ValidationError{Field: "file", Message: "request is not a multipart upload"}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, &core.ValidationError{Field: "file", Message: "file is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return upload{}, err
	}

	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	return upload{
		name:   header.Filename,
		mime:   header.Header.Get("Content-Type"),
		data:   data,
		fields: fields,
	}, nil
}

// sheetFields lays out a sheet set the way the frontend expects: the flat
// columns, rows and totalRows when there is a single table, and sheets
// whenever the result came from a parsed workbook.
func sheetFields(set core.SheetSet) map[string]any {
	out := make(map[string]any, 5)
	if sh := set.Single; sh != nil {
		cols, rows := sh.Columns, sh.Rows
		if cols == nil {
			cols = []string{}
		}
		if rows == nil {
			rows = []workbook.Row{}
		}
		out["columns"] = cols
		out["rows"] = rows
		out["totalRows"] = sh.TotalRows
	}
	if set.Sheets != nil {
		out["sheets"] = set.Sheets
	}
	return out
}

// parseIntParam reads a non-negative integer query parameter, falling back
// to defaultVal when it is missing or malformed.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

// withUploadTimeout bounds ingest and save work by the configured upload
// timeout.
func (s *Server) withUploadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Upload.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Upload.Timeout)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}

	set, err := s.deps.Coordinator.Preview(up.data, filepath.Ext(up.name))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, sheetFields(set))
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}

	ctx, cancel := s.withUploadTimeout(clientContext(r))
	defer cancel()

	d, err := s.deps.Ingest.Ingest(ctx, core.IngestRequest{
		FileName:                up.name,
		MimeType:                up.mime,
		Data:                    up.data,
		Metadata:                up.fields["metadata"],
		SelectedColumns:         up.fields["selectedColumns"],
		SelectedSheets:          up.fields["selectedSheets"],
		SelectedColumnsPerSheet: up.fields["selectedColumnsPerSheet"],
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"success": true, "dataset": d})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.deps.Datasets.ListAll(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"success": true, "datasets": datasets})
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Datasets.DeleteCascade(clientContext(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"success": true})
}

func (s *Server) handleGetRows(w http.ResponseWriter, r *http.Request) {
	limits := s.deps.Datasets.Limits()
	skip := parseIntParam(r, "skip", 0)
	limit := parseIntParam(r, "limit", limits.Default)

	view, err := s.deps.Coordinator.ViewRows(r.Context(), chi.URLParam(r, "id"), skip, limit)
	if err != nil {
		fail(w, r, err)
		return
	}

	out := sheetFields(view.SheetSet)
	out["success"] = true
	out["source"] = view.Source
	out["version"] = view.Version
	writeJSON(w, r, out)
}

func (s *Server) handleSaveRows(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Upload.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	}

	var payload core.EditPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(w, r, mbe)
			return
		}
		fail(w, r, &core.ValidationError{Field: "json", Message: err.Error()})
		return
	}

	ctx, cancel := s.withUploadTimeout(clientContext(r))
	defer cancel()

	d, err := s.deps.Coordinator.SaveEditedRows(ctx, chi.URLParam(r, "id"), payload)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"success": true, "version": d.Version})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Coordinator.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"success": true, "source": p.Source, "sheets": p.Sheets})
}
