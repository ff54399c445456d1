package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Names accepted by the custom validation tags. Kept here so the config layer
// does not import the packages that implement them.
var (
	classifierTypes = map[string]bool{
		"GaussianNB":             true,
		"LogisticRegression":     true,
		"RandomForestClassifier": true,
	}
	transformNames = map[string]bool{
		"fill_zero": true,
		"log":       true,
		"log1p":     true,
		"sqrt":      true,
	}
	encoderTypes = map[string]bool{
		"target": true,
		"woe":    true,
		"none":   true,
	}
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("loglevel", validateLogLevel)
	v.RegisterValidation("datetime", validateDateTime)
	v.RegisterValidation("classifier", validateClassifier)
	v.RegisterValidation("transform", validateTransform)
	v.RegisterValidation("encoder", validateEncoder)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateDateTime(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

func validateClassifier(fl validator.FieldLevel) bool {
	return classifierTypes[fl.Field().String()]
}

func validateTransform(fl validator.FieldLevel) bool {
	return transformNames[fl.Field().String()]
}

func validateEncoder(fl validator.FieldLevel) bool {
	return encoderTypes[fl.Field().String()]
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if _, ok := cfg.Databases[DefaultEnvironment]; !ok {
		return fmt.Errorf("databases must define a %q entry to fall back to", DefaultEnvironment)
	}

	if cfg.IsProduction() {
		if db, ok := cfg.Databases["production"]; ok && db.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	if cfg.Dataset.Source == "csv" && cfg.Dataset.CSVDir == "" {
		return fmt.Errorf("dataset.csv_dir is required when dataset.source is csv")
	}

	tables := make(map[string]bool, len(cfg.Dataset.Tables))
	for _, t := range cfg.Dataset.Tables {
		tables[t.Name] = true
	}
	for _, name := range []string{cfg.Features.LeftTable, cfg.Features.RightTable} {
		if !tables[name] {
			return fmt.Errorf("features table %q is not listed in dataset.tables", name)
		}
	}

	for column, b := range cfg.Features.Bounds {
		if b.Low >= b.High {
			return fmt.Errorf("bound for %s: low (%v) must be below high (%v)", column, b.Low, b.High)
		}
	}

	enc := cfg.Transform.Encoder
	if enc.Type != "" && enc.Type != "none" && len(enc.Columns) == 0 {
		return fmt.Errorf("encoder %q requires at least one column", enc.Type)
	}

	if !contains(cfg.Transform.ExcludedColumns, "target") {
		return fmt.Errorf("transform.excluded_columns must contain target")
	}

	for key := range cfg.Model.Grid {
		if len(cfg.Model.Grid[key]) == 0 {
			return fmt.Errorf("model.grid.%s has no values", key)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.PushgatewayURL != "" && cfg.Metrics.Job == "" {
		return fmt.Errorf("metrics.job is required when pushing to a gateway")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max", "len":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "datetime":
			fmt.Fprintf(&b, "- Field '%s' must be a date in YYYY-MM-DD format, got '%v'\n", field, value)
		case "classifier":
			fmt.Fprintf(&b, "- Field '%s' must be one of: GaussianNB, LogisticRegression, RandomForestClassifier\n", field)
		case "transform":
			fmt.Fprintf(&b, "- Field '%s' has unknown transform '%v'\n", field, value)
		case "encoder":
			fmt.Fprintf(&b, "- Field '%s' must be one of: target, woe, none\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		db, ok := cfg.Databases["production"]
		if !ok {
			return fmt.Errorf("production environment requires a production database entry")
		}
		if db.Password == "" {
			return fmt.Errorf("production database password is empty; set it in the environment or secrets manager")
		}
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
