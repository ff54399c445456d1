// Package config provides configuration management for the race-features pipeline.
package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultEnvironment is used when the requested environment has no database entry
const DefaultEnvironment = "development"

const dateLayout = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	App       AppConfig                 `mapstructure:"app" validate:"required"`
	Databases map[string]DatabaseConfig `mapstructure:"databases" validate:"required,min=1,dive"`
	Dataset   DatasetConfig             `mapstructure:"dataset" validate:"required"`
	Features  FeaturesConfig            `mapstructure:"features" validate:"required"`
	Transform TransformConfig           `mapstructure:"transform" validate:"required"`
	Split     SplitConfig               `mapstructure:"split" validate:"required"`
	Model     ModelConfig               `mapstructure:"model" validate:"required"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Schedule  ScheduleConfig            `mapstructure:"schedule"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// DatasetConfig lists the entity tables and the columns queried from each.
// Source selects PostgreSQL or a directory of CSV files.
type DatasetConfig struct {
	Source          string        `mapstructure:"source" validate:"required,oneof=postgres csv"`
	CSVDir          string        `mapstructure:"csv_dir"`
	Tables          []TableConfig `mapstructure:"tables" validate:"required,min=1,dive"`
	CacheTTLSeconds int           `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// TableConfig names one entity table
type TableConfig struct {
	Name    string   `mapstructure:"name" validate:"required"`
	Columns []string `mapstructure:"columns" validate:"required,min=1"`
}

// Bound is an inclusive-lower, exclusive-upper range for a numeric column
type Bound struct {
	Low  float64 `mapstructure:"low"`
	High float64 `mapstructure:"high"`
}

// FeaturesConfig configures the feature builder and the temporal aggregator
type FeaturesConfig struct {
	LeftTable      string           `mapstructure:"left_table" validate:"required"`
	RightTable     string           `mapstructure:"right_table" validate:"required"`
	JoinKey        string           `mapstructure:"join_key" validate:"required"`
	JoinSuffixes   []string         `mapstructure:"join_suffixes" validate:"omitempty,len=2"`
	FlagColumn     string           `mapstructure:"flag_column" validate:"required"`
	Bounds         map[string]Bound `mapstructure:"bounds"`
	RankColumn     string           `mapstructure:"rank_column" validate:"required"`
	DateColumn     string           `mapstructure:"date_column" validate:"required"`
	Roles          []string         `mapstructure:"roles" validate:"required,min=1"`
	LastNWindow    int              `mapstructure:"last_n_window" validate:"required,gt=0"`
	Workers        int              `mapstructure:"workers" validate:"gte=0"`
	ForceRecompute bool             `mapstructure:"force_recompute"`
}

// TransformConfig configures normalization, value transforms and encoding
type TransformConfig struct {
	CategoryColumn  string            `mapstructure:"category_column" validate:"required"`
	ExcludedColumns []string          `mapstructure:"excluded_columns" validate:"required,min=1"`
	Transforms      map[string]string `mapstructure:"transforms" validate:"dive,transform"`
	Encoder         EncoderConfig     `mapstructure:"encoder"`
}

// EncoderConfig configures the supervised identifier encoder
type EncoderConfig struct {
	Type       string   `mapstructure:"type" validate:"omitempty,encoder"`
	Columns    []string `mapstructure:"columns"`
	MinSamples int      `mapstructure:"min_samples" validate:"gte=0"`
	Smoothing  float64  `mapstructure:"smoothing" validate:"gte=0"`
}

// SplitConfig configures the temporal train/test split
type SplitConfig struct {
	TestDate         string `mapstructure:"test_date" validate:"required,datetime"`
	TestDurationDays int    `mapstructure:"test_duration_days" validate:"required,gt=0"`
}

// ModelConfig configures the classifier and its result log
type ModelConfig struct {
	Type       string                   `mapstructure:"type" validate:"required,classifier"`
	Params     map[string]interface{}   `mapstructure:"params"`
	Grid       map[string][]interface{} `mapstructure:"grid"`
	ResultsDir string                   `mapstructure:"results_dir" validate:"required"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job"`
}

// ScheduleConfig configures periodic retraining
type ScheduleConfig struct {
	Retrain string `mapstructure:"retrain"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Database returns the credentials for the configured environment. An
// environment without an entry logs a warning and falls back to
// DefaultEnvironment rather than failing.
func (c *Config) Database(logger logrus.FieldLogger) (DatabaseConfig, error) {
	env := c.App.Environment
	if db, ok := c.Databases[env]; ok {
		return db, nil
	}
	if logger != nil {
		logger.Warnf("Invalid environment %s. Defaulting to %s.", env, DefaultEnvironment)
	}
	db, ok := c.Databases[DefaultEnvironment]
	if !ok {
		return DatabaseConfig{}, fmt.Errorf("no database configured for %q or %q", env, DefaultEnvironment)
	}
	return db, nil
}

// DSN returns a PostgreSQL DSN string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
}

// Cutoff parses the split cutoff date
func (s SplitConfig) Cutoff() (time.Time, error) {
	t, err := time.Parse(dateLayout, s.TestDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid test_date: %w", err)
	}
	return t, nil
}

// Suffixes returns the join suffixes, defaulting to the table names
func (f FeaturesConfig) Suffixes() [2]string {
	if len(f.JoinSuffixes) == 2 {
		return [2]string{f.JoinSuffixes[0], f.JoinSuffixes[1]}
	}
	return [2]string{"_" + f.LeftTable, "_" + f.RightTable}
}
