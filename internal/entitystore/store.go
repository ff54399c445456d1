// Package entitystore supplies the relational entity tables (races,
// participants, ...) the feature builder consumes.
package entitystore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/yourusername/race-features/internal/frame"
)

// Errors
var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrTableNotFound     = errors.New("table not found")
)

// PrimaryKey is the column renamed to a table-scoped identifier on fetch
const PrimaryKey = "id"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store fetches one table with the requested columns. Implementations rename
// the primary key column to KeyName(table) before returning.
type Store interface {
	Fetch(ctx context.Context, table string, columns []string) (*frame.Table, error)
}

// KeyName returns the table-scoped name of a table's primary key: the table
// name with its trailing character dropped, plus "_id" (races -> race_id).
func KeyName(table string) string {
	if table == "" {
		return PrimaryKey
	}
	return table[:len(table)-1] + "_id"
}

func validateIdentifiers(table string, columns []string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: no columns requested from %s", ErrInvalidIdentifier, table)
	}
	for _, c := range columns {
		if !identifierPattern.MatchString(c) {
			return fmt.Errorf("%w: column %q", ErrInvalidIdentifier, c)
		}
	}
	return nil
}

func renamePrimaryKey(table string, t *frame.Table) (*frame.Table, error) {
	if !t.Has(PrimaryKey) {
		return t, nil
	}
	return t.Rename(map[string]string{PrimaryKey: KeyName(table)})
}
