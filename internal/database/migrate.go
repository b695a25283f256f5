package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed sql/schema/*.sql
var schemaFS embed.FS

// Migrate applies every schema file in name order. Statements are written
// to be idempotent so Migrate runs on every start.
func Migrate(ctx context.Context, db DBTX) error {
	names, err := fs.Glob(schemaFS, "sql/schema/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(stmt)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
