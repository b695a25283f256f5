// Package admin provides maintenance operations over stored datasets.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/insightdesk/internal/store"
)

// ResetTimeout is the maximum duration for a reset.
const ResetTimeout = 30 * time.Second

// Datasets is the part of core.DatasetStore a reset needs.
type Datasets interface {
	ListAll(ctx context.Context) ([]store.Dataset, error)
	DeleteCascade(ctx context.Context, id string) error
}

type resetFn func(ctx context.Context) error

// ResetAll deletes every dataset together with its rows and backing file.
// It stops at the first failure and returns how many datasets were removed.
// This is a destructive operation.
func ResetAll(ctx context.Context, ds Datasets) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	list, err := ds.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list datasets: %w", err)
	}

	resets := make([]resetFn, 0, len(list))
	for _, d := range list {
		id, name := d.ID, d.Name
		resets = append(resets, func(ctx context.Context) error {
			if err := ds.DeleteCascade(ctx, id); err != nil {
				return fmt.Errorf("reset dataset %s (%s): %w", id, name, err)
			}
			return nil
		})
	}

	n, err := runResets(ctx, resets)
	slog.Info("datasets reset", "removed", n, "total", len(list))
	return n, err
}

func runResets(ctx context.Context, resets []resetFn) (int, error) {
	for i, reset := range resets {
		if err := reset(ctx); err != nil {
			return i, err
		}
	}
	return len(resets), nil
}
