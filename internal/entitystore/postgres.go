package entitystore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/yourusername/race-features/internal/frame"
)

const undefinedTable = "42P01"

// Querier is the subset of the connection pool the store needs
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
}

// PostgresStore reads entity tables with plain SELECT statements
type PostgresStore struct {
	db Querier
}

// NewPostgresStore creates a store backed by db
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Fetch implements Store
func (s *PostgresStore) Fetch(ctx context.Context, table string, columns []string) (*frame.Table, error) {
	if err := validateIdentifiers(table, columns); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, selectQuery(table, columns))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	t, err := scanTable(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return renamePrimaryKey(table, t)
}

func selectQuery(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), pgx.Identifier{table}.Sanitize())
}

// kindForOID maps a Postgres column type to a column kind
func kindForOID(oid uint32) (frame.Kind, error) {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID, pgtype.BoolOID:
		return frame.Float, nil
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID, pgtype.UUIDOID:
		return frame.String, nil
	case pgtype.DateOID, pgtype.TimestampOID, pgtype.TimestamptzOID:
		return frame.Time, nil
	default:
		return 0, fmt.Errorf("unsupported column type oid %d", oid)
	}
}

func scanTable(rows pgx.Rows) (*frame.Table, error) {
	fields := rows.FieldDescriptions()
	cols := make([]*frame.Column, len(fields))
	for i, f := range fields {
		kind, err := kindForOID(f.DataTypeOID)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		cols[i] = &frame.Column{Name: f.Name, Kind: kind}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if err := appendValue(cols[i], v); err != nil {
				return nil, fmt.Errorf("column %s: %w", cols[i].Name, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frame.New(cols...)
}

func appendValue(col *frame.Column, v interface{}) error {
	switch col.Kind {
	case frame.Float:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		col.Floats = append(col.Floats, f)
	case frame.String:
		s, err := toString(v)
		if err != nil {
			return err
		}
		col.Strings = append(col.Strings, s)
	case frame.Time:
		switch t := v.(type) {
		case nil:
			col.Times = append(col.Times, time.Time{})
		case time.Time:
			col.Times = append(col.Times, t)
		default:
			return fmt.Errorf("unexpected %T for time column", v)
		}
	}
	return nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return math.NaN(), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil {
			return 0, err
		}
		if !f.Valid {
			return math.NaN(), nil
		}
		return f.Float64, nil
	default:
		return 0, fmt.Errorf("unexpected %T for numeric column", v)
	}
}

func toString(v interface{}) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case [16]byte:
		return uuid.UUID(s).String(), nil
	default:
		return "", fmt.Errorf("unexpected %T for text column", v)
	}
}
