// # Error Codes Reference
//
// User-facing messages carry a code that users can quote to support.
//
// # Workbook Errors (WB001-WB099)
//
//	WB001 - Unreadable workbook: the file is not a valid .xlsx/.xls/.csv
//	        Action: Re-save the file from Excel and upload it again
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing metadata: metadata form field absent
//	VAL002 - Malformed JSON in a form field or request body
//	VAL003 - Required field is empty (tableName, subPractice, fileType)
//	VAL004 - No file was uploaded
//	VAL005 - Any other invalid request
//
// # Dataset Errors (DS001-DS099)
//
//	DS001 - Dataset not found
//	DS002 - Dataset changed since it was loaded (version conflict)
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Row batch could not be written
//	DB002 - Unable to connect to database ("connection refused")
//	DB003 - Connection interrupted ("connection reset")
//	DB004 - Database busy ("deadlock")
//	DB005 - Any other storage failure
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large ("request body too large", "file too large")
//	FILE002 - Upload could not be stored on disk
//
// # Ingest Errors (UPL001-UPL099)
//
//	UPL001 - System busy: too many ingests in progress
//	UPL002 - Request cancelled ("context canceled")
//	UPL003 - Request timed out ("context deadline exceeded")
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application
// logs for the technical error; it is logged with the request id.
//
// Typed errors are classified first. Plain errors fall back to
// case-insensitive substring patterns where the first match wins.
package core

import (
	"context"
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnreadable = UserMessage{
		Message: "Invalid or corrupted Excel file. Please upload a valid .xlsx/.xls/.csv.",
		Action:  "Re-save the file from Excel and upload it again",
		Code:    "WB001",
	}
	msgNotFound = UserMessage{
		Message: "Dataset not found",
		Action:  "Refresh the list; the dataset may have been deleted",
		Code:    "DS001",
	}
	msgConflict = UserMessage{
		Message: "This dataset was changed by someone else",
		Action:  "Reload the rows and apply your edits again",
		Code:    "DS002",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}
	msgBatch = UserMessage{
		Message: "Some rows could not be saved",
		Action:  "Reload the dataset to see what was stored, then try again",
		Code:    "DB001",
	}
	msgStorage = UserMessage{
		Message: "The database could not complete the request",
		Action:  "Please try again in a few moments",
		Code:    "DB005",
	}
)

// validationMessages maps a ValidationError field to its message. Fields
// not listed use VAL005 with the error's own text.
var validationMessages = map[string]UserMessage{
	"metadata": {
		Message: "Metadata is required",
		Action:  "Fill in the dataset details and submit again",
		Code:    "VAL001",
	},
	"json": {
		Message: "Request contains malformed JSON",
		Action:  "Reload the page and submit again",
		Code:    "VAL002",
	},
	"file": {
		Message: "No file uploaded",
		Action:  "Please select a file to upload",
		Code:    "VAL004",
	},
}

var requiredMetadata = map[string]bool{
	"tableName":   true,
	"subPractice": true,
	"fileType":    true,
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the workbook into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the workbook into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "store upload",
		msg: UserMessage{
			Message: "The uploaded file could not be stored",
			Action:  "Please try again or contact support",
			Code:    "FILE002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(&StorageError{Op: "insert rows", Batch: 2, Err: err})
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		ve *ValidationError
		se *StorageError
	)
	switch {
	case errors.Is(err, ErrUnreadableWorkbook):
		return msgUnreadable
	case errors.As(err, &ve):
		if msg, ok := validationMessages[ve.Field]; ok {
			return msg
		}
		if requiredMetadata[ve.Field] {
			return UserMessage{
				Message: capitalize(ve.Message),
				Action:  "Fill in every required field",
				Code:    "VAL003",
			}
		}
		return UserMessage{
			Message: capitalize(ve.Message),
			Action:  "Correct the request and submit again",
			Code:    "VAL005",
		}
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrConflict):
		return msgConflict
	case errors.Is(err, ErrTooManyIngests):
		return msgBusy
	case errors.Is(err, context.Canceled):
		return UserMessage{Message: "Request was cancelled", Action: "Please try again", Code: "UPL002"}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{Message: "Request timed out", Action: "Try a smaller file or try again later", Code: "UPL003"}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.As(err, &se) {
		if se.Batch >= 0 {
			return msgBatch
		}
		return msgStorage
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
