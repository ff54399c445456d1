package entitystore

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-features/internal/database"
)

func TestPostgresStoreFetch(t *testing.T) {
	db := database.SetupTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, db.Exec(ctx, `CREATE TABLE IF NOT EXISTS entitystore_test_races (
		id uuid PRIMARY KEY,
		date date NOT NULL,
		distance numeric,
		n_participants integer,
		is_valid boolean,
		name text
	)`))
	t.Cleanup(func() {
		_ = db.Exec(context.Background(), "DROP TABLE IF EXISTS entitystore_test_races")
	})
	require.NoError(t, db.Exec(ctx, `INSERT INTO entitystore_test_races VALUES
		('6f1c1b52-4b4e-4a36-9d7c-2b1f0f3c8a01', '2020-01-01', 1200.5, 10, true, 'Derby'),
		('6f1c1b52-4b4e-4a36-9d7c-2b1f0f3c8a02', '2020-01-02', NULL, NULL, false, NULL)`))

	store := NewPostgresStore(db)
	tbl, err := store.Fetch(ctx, "entitystore_test_races",
		[]string{"id", "date", "distance", "n_participants", "is_valid", "name"})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "entitystore_test_race_id", tbl.Names()[0])

	ids, err := tbl.Strings("entitystore_test_race_id")
	require.NoError(t, err)
	assert.Equal(t, "6f1c1b52-4b4e-4a36-9d7c-2b1f0f3c8a01", ids[0])

	distance, err := tbl.Floats("distance")
	require.NoError(t, err)
	assert.Equal(t, 1200.5, distance[0])
	assert.True(t, math.IsNaN(distance[1]))

	valid, _ := tbl.Floats("is_valid")
	assert.Equal(t, []float64{1, 0}, valid)

	_, err = store.Fetch(ctx, "entitystore_no_such_table", []string{"id"})
	assert.ErrorIs(t, err, ErrTableNotFound)
}
