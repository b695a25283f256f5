package core

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/insightdesk/internal/logging"
)

// AuditAction names a mutation of persisted datasets.
type AuditAction string

const (
	ActionIngest      AuditAction = "ingest"
	ActionReplaceRows AuditAction = "replace_rows"
	ActionDelete      AuditAction = "delete"
)

// AuditSeverity ranks audit events for alerting.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEvent is one audited mutation.
type AuditEvent struct {
	Action       AuditAction
	DatasetID    string
	DatasetName  string
	RowsAffected int
	Version      int
}

// determineSeverity returns the severity for an action. Actions that
// destroy previously stored rows rank high.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionReplaceRows, ActionDelete:
		return SeverityHigh
	case ActionIngest:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// audit writes ev as a structured "audit" record.
func audit(ctx context.Context, ev AuditEvent) {
	attrs := []any{
		"action", string(ev.Action),
		"severity", string(determineSeverity(ev.Action)),
		"dataset_id", ev.DatasetID,
		"rows_affected", ev.RowsAffected,
	}
	if ev.DatasetName != "" {
		attrs = append(attrs, "dataset_name", ev.DatasetName)
	}
	if ev.Version > 0 {
		attrs = append(attrs, "version", ev.Version)
	}
	if ip := clientIP(ctx); ip != "" {
		attrs = append(attrs, "ip", ip)
	}
	if ua := clientUserAgent(ctx); ua != "" {
		attrs = append(attrs, "user_agent", ua)
	}
	logging.FromContext(ctx).LogAttrs(ctx, slog.LevelInfo, "audit", slog.Group("audit", attrs...))
}
