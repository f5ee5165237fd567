// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Supported store drivers.
const (
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
// TOKEN_SYMMETRIC_KEY is required only with REQUIRE_AUTH; without it the server
// signs access tokens with a random per-process key.
type Config struct {
	StoreDriver         string        `mapstructure:"STORE_DRIVER"`
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	DynamoDBEndpoint    string        `mapstructure:"DYNAMODB_ENDPOINT"`
	DynamoDBRegion      string        `mapstructure:"DYNAMODB_REGION"`
	AccountsTable       string        `mapstructure:"ACCOUNTS_TABLE"`
	TransfersTable      string        `mapstructure:"TRANSFERS_TABLE"`
	IsOffline           bool          `mapstructure:"IS_OFFLINE"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	RequireAuth         bool          `mapstructure:"REQUIRE_AUTH"`
	DefaultBalance      string        `mapstructure:"DEFAULT_BALANCE"`
	CreditRetryInterval time.Duration `mapstructure:"CREDIT_RETRY_INTERVAL"`
	CreditMaxRetries    uint64        `mapstructure:"CREDIT_MAX_RETRIES"`
	LedgerRetryInterval time.Duration `mapstructure:"LEDGER_RETRY_INTERVAL"`
	LedgerMaxRetries    uint64        `mapstructure:"LEDGER_MAX_RETRIES"`
	SettleTimeout       time.Duration `mapstructure:"SETTLE_TIMEOUT"`
	Environment         string        `mapstructure:"GO_ENV"`
}

var defaults = map[string]any{
	"STORE_DRIVER":          StoreMemory,
	"DB_DRIVER":             "postgres",
	"DB_SOURCE":             "",
	"DYNAMODB_ENDPOINT":     "",
	"DYNAMODB_REGION":       "us-east-1",
	"ACCOUNTS_TABLE":        "accounts",
	"TRANSFERS_TABLE":       "transfers",
	"IS_OFFLINE":            false,
	"SERVER_ADDRESS":        "0.0.0.0:8080",
	"TOKEN_TYPE":            "paseto",
	"TOKEN_SYMMETRIC_KEY":   "",
	"ACCESS_TOKEN_DURATION": 15 * time.Minute,
	"REQUIRE_AUTH":          false,
	"DEFAULT_BALANCE":       "500",
	"CREDIT_RETRY_INTERVAL": time.Second,
	"CREDIT_MAX_RETRIES":    30,
	"LEDGER_RETRY_INTERVAL": time.Second,
	"LEDGER_MAX_RETRIES":    10,
	"SETTLE_TIMEOUT":        2 * time.Minute,
	"GO_ENV":                "production",
}

// Load reads configuration from the app.env file in path and environment variables.
//
// A missing file is not an error, defaults and environment are used instead.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}
