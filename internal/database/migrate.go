package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.surql
var migrationFS embed.FS

// Migrations returns the embedded schema files in apply order
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".surql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(migrationFS, "migrations/"+name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		out = append(out, string(content))
	}
	return out, nil
}

// Migrate applies every embedded schema file. All statements are
// IF NOT EXISTS so running it on each start is safe.
func Migrate(ctx context.Context, db Database) error {
	migs, err := Migrations()
	if err != nil {
		return err
	}
	for i, mig := range migs {
		if err := db.Execute(ctx, mig, nil); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
