package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/race-features/internal/config"
	"github.com/yourusername/race-features/internal/entitystore"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, loadEnvFile(""))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RACE_FEATURES_TEST_ENV_VALUE=from-file\n"), 0o600))
	t.Setenv("RACE_FEATURES_TEST_ENV_VALUE", "")
	os.Unsetenv("RACE_FEATURES_TEST_ENV_VALUE")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("RACE_FEATURES_TEST_ENV_VALUE"))
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
	assert.Equal(t, "abc", shortHash("abc"))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"build", "train", "results", "schedule", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestOpenStoreCSVSource(t *testing.T) {
	previous := cfg
	t.Cleanup(func() { cfg = previous })

	cfg = &config.Config{Dataset: config.DatasetConfig{Source: "csv", CSVDir: t.TempDir()}}
	store, db, err := openStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.IsType(t, &entitystore.CSVStore{}, store)

	cfg.Dataset.CacheTTLSeconds = 60
	store, _, err = openStore(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &entitystore.CachedStore{}, store)
}
