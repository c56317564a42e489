package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationFiles lists the migrations in dir for direction, in the order
// they must run. A positive maxVersion drops files whose numeric prefix is
// greater.
func MigrationFiles(dir string, direction Direction, maxVersion int) ([]string, error) {
	if direction != Up && direction != Down {
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fmt.Sprintf(".%s.sql", direction)) {
			continue
		}
		if maxVersion > 0 {
			var version int
			if _, err := fmt.Sscanf(name, "%d_", &version); err == nil && version > maxVersion {
				continue
			}
		}
		files = append(files, name)
	}

	sort.Strings(files)
	if direction == Down {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}
	return files, nil
}

// Migrate executes the migration files from MigrationFiles and returns the
// names it ran.
func Migrate(ctx context.Context, db *sql.DB, dir string, direction Direction, maxVersion int) ([]string, error) {
	files, err := MigrationFiles(dir, direction, maxVersion)
	if err != nil {
		return nil, err
	}

	for i, filename := range files {
		content, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return files[:i], fmt.Errorf("read migration file %s: %w", filename, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return files[:i], fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}
	return files, nil
}
