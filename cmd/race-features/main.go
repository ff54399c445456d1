package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-features/internal/config"
	"github.com/yourusername/race-features/internal/database"
	"github.com/yourusername/race-features/internal/entitystore"
	"github.com/yourusername/race-features/internal/logger"
	"github.com/yourusername/race-features/internal/metrics"
	"github.com/yourusername/race-features/internal/training"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	envFile    string
	cfg        *config.Config
	appLog     *logrus.Logger
	pipeLog    *logger.PipelineLogger
	runID      string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before the configuration")
	rootCmd.AddCommand(buildCmd, trainCmd, resultsCmd, scheduleCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "race-features",
	Short: "Build race features and train placing classifiers",
	Long: `Builds point-in-time features from race and participant tables,
splits them in time, and trains and scores classifiers that predict
whether a runner places.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		if err := loadConfigWithSecrets(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
		runID = uuid.NewString()
		pipeLog = logger.NewPipelineLogger(appLog).WithRun(runID)
		metrics.InitRegistry()
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadConfigWithSecrets(ctx context.Context) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, loaded, region, secretName, logrus.StandardLogger()); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateEnvironment(loaded); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// openStore returns the configured entity store, cached when
// dataset.cache_ttl_seconds is set. db is nil for the csv source; otherwise
// the caller closes it.
func openStore(ctx context.Context) (entitystore.Store, *database.DB, error) {
	var store entitystore.Store
	var db *database.DB
	switch cfg.Dataset.Source {
	case "csv":
		store = entitystore.NewCSVStore(cfg.Dataset.CSVDir)
	default:
		var err error
		db, err = database.Initialize(ctx, cfg, appLog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		store = entitystore.NewPostgresStore(db)
	}
	if ttl := cfg.Dataset.CacheTTLSeconds; ttl > 0 {
		store = entitystore.NewCachedStore(store, time.Duration(ttl)*time.Second)
	}
	return store, db, nil
}

func newRunner(ctx context.Context) (*training.Runner, func(), error) {
	store, db, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if db != nil {
			db.Close()
		}
	}
	return training.NewRunner(cfg, store, pipeLog), closeDB, nil
}

// finish records the command outcome and pushes metrics when configured
func finish(command string, err error) error {
	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.RecordRun(command, status)
	pushMetrics()
	return err
}

// pushMetrics sends the registry to the pushgateway when one is configured
func pushMetrics() {
	if !cfg.Metrics.Enabled || cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, runID); err != nil {
		appLog.WithError(err).Warn("Failed to push metrics")
	}
}
