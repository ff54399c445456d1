package entitystore

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/race-features/internal/config"
	"github.com/yourusername/race-features/internal/frame"
	"github.com/yourusername/race-features/internal/logger"
)

// Dataset maps table names to fetched tables
type Dataset map[string]*frame.Table

// LoadDataset fetches every configured table from store in order
func LoadDataset(ctx context.Context, store Store, tables []config.TableConfig, log *logger.PipelineLogger) (Dataset, error) {
	log.Info("Querying data:")
	ds := make(Dataset, len(tables))
	for _, tc := range tables {
		start := time.Now()
		t, err := store.Fetch(ctx, tc.Name, tc.Columns)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		ds[tc.Name] = t
		log.LogFetch(tc.Name, t.NumRows(), time.Since(start))
	}
	return ds, nil
}
