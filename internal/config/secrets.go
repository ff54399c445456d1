package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/sirupsen/logrus"
)

var errNoSecretData = errors.New("no secret data found in AWS Secrets Manager")

// SecretsOverlay is the JSON document stored in AWS Secrets Manager.
// Empty fields leave the file configuration untouched.
type SecretsOverlay struct {
	DatabaseUser     string `json:"database_user"`
	DatabasePassword string `json:"database_password"`
	DatabaseHost     string `json:"database_host"`
}

func fetchSecretsFromAWS(ctx context.Context, region string, secretName string) (*SecretsOverlay, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret from AWS Secrets Manager: %w", err)
	}

	return parseSecretData(result)
}

func parseSecretData(result *secretsmanager.GetSecretValueOutput) (*SecretsOverlay, error) {
	var secrets SecretsOverlay
	switch {
	case result.SecretString != nil:
		if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
			return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
		}
	case result.SecretBinary != nil:
		if err := json.Unmarshal(result.SecretBinary, &secrets); err != nil {
			return nil, fmt.Errorf("failed to parse secret binary: %w", err)
		}
	default:
		return nil, errNoSecretData
	}
	return &secrets, nil
}

// overlaySecretsOnConfig applies secrets to the database entry the current
// environment resolves to, following the same fallback as Config.Database.
func overlaySecretsOnConfig(cfg *Config, secrets *SecretsOverlay, logger logrus.FieldLogger) {
	env := cfg.App.Environment
	if _, ok := cfg.Databases[env]; !ok {
		env = DefaultEnvironment
	}
	db, ok := cfg.Databases[env]
	if !ok {
		if logger != nil {
			logger.Warnf("No database entry for %s, secrets not applied", env)
		}
		return
	}

	if secrets.DatabaseUser != "" {
		db.User = secrets.DatabaseUser
	}
	if secrets.DatabasePassword != "" {
		db.Password = secrets.DatabasePassword
	}
	if secrets.DatabaseHost != "" {
		db.Host = secrets.DatabaseHost
	}
	cfg.Databases[env] = db
}

// LoadSecretsFromAWS retrieves secrets from AWS Secrets Manager and overlays them onto the configuration
func LoadSecretsFromAWS(ctx context.Context, cfg *Config, region string, secretName string, logger logrus.FieldLogger) error {
	secrets, err := fetchSecretsFromAWS(ctx, region, secretName)
	if err != nil {
		return err
	}

	overlaySecretsOnConfig(cfg, secrets, logger)
	return nil
}
