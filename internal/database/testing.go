package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDSNEnv names the variable holding the integration test database DSN
const TestDSNEnv = "RACE_FEATURES_TEST_DATABASE_URL"

// SetupTestDB connects to the integration database, skipping the test when
// no DSN is configured. The pool is closed when the test finishes.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv(TestDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping database test", TestDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDBFromDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	t.Cleanup(db.Close)

	return db
}
