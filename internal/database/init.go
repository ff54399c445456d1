package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-features/internal/config"
)

// Initialize connects to the database for the configured environment and
// verifies that every dataset table exists in the public schema.
func Initialize(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*DB, error) {
	dbCfg, err := cfg.Database(logger)
	if err != nil {
		return nil, err
	}

	db, err := NewDB(ctx, dbCfg)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cfg.Dataset.Tables))
	for i, t := range cfg.Dataset.Tables {
		names[i] = t.Name
	}
	missing, err := db.MissingTables(ctx, names)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(missing) > 0 {
		db.Close()
		return nil, fmt.Errorf("dataset tables not found: %s", strings.Join(missing, ", "))
	}

	return db, nil
}

// MissingTables returns the names that have no matching table
func (db *DB) MissingTables(ctx context.Context, names []string) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ANY($1)",
		names)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(names))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var missing []string
	for _, name := range names {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
