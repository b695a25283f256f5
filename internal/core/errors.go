package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/insightdesk/internal/store"
	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

var (
	// ErrUnreadableWorkbook is returned when an upload with a spreadsheet
	// extension cannot be decoded.
	ErrUnreadableWorkbook = workbook.ErrUnreadableWorkbook

	// ErrNotFound is returned when a dataset id does not resolve.
	ErrNotFound = store.ErrNotFound

	// ErrConflict is returned when a save names a dataset version that is no
	// longer current.
	ErrConflict = errors.New("dataset was modified by another save")

	// ErrTooManyIngests is returned when all ingest slots are occupied and
	// the wait timeout expires. Clients should retry after a short delay.
	ErrTooManyIngests = errors.New("too many concurrent ingests, please try again later")
)

// ValidationError reports a request the caller must correct and resubmit.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError reports a failed persistence call. Batch is the zero-based
// index of the failed insert batch, or -1 when the operation is not batched.
type StorageError struct {
	Op    string
	Batch int
	Err   error
}

func (e *StorageError) Error() string {
	if e.Batch >= 0 {
		return fmt.Sprintf("storage: %s (batch %d): %v", e.Op, e.Batch, e.Err)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err unless it already carries a classification that
// callers act on.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.As(err, &se) {
		return err
	}
	if errors.Is(err, store.ErrVersionMismatch) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return &StorageError{Op: op, Batch: -1, Err: err}
}

// FileOrphanWarning describes a backing file left on disk after its dataset
// was deleted. It is logged, never returned to callers.
type FileOrphanWarning struct {
	DatasetID string
	Path      string
	Err       error
}

func (w *FileOrphanWarning) Error() string {
	return fmt.Sprintf("orphaned file %s of dataset %s: %v", w.Path, w.DatasetID, w.Err)
}

func (w *FileOrphanWarning) Unwrap() error { return w.Err }

// StatusCode maps an error to the HTTP status it should be reported with.
func StatusCode(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnreadableWorkbook), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTooManyIngests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
