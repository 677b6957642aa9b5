// Package migrations holds the SQL schema of the payroll ledger.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/database"
)

//go:embed *.sql
var files embed.FS

// Apply runs every migration file in name order. Files are idempotent.
func Apply(ctx context.Context, db *database.DB) error {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}
