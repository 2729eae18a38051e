package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=tickerpulse
//	POSTGRES_SSLMODE=disable
//	ALPHAVANTAGE_API_KEY=xxxx
//	SP500_WIKI_URL=https://en.wikipedia.org/wiki/List_of_S%26P_500_companies
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings
	Provider ProviderConfig // market-data provider settings
	Universe UniverseConfig // symbol universe settings
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// PostgresConfig defines connection details for PostgreSQL. URL is the
// computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// ProviderConfig configures the market-data API client, including the retry
// policy injected into it. Retry internals never leak past the provider.
type ProviderConfig struct {
	APIKey         string
	BaseURL        string
	MaxRetries     int
	BackoffSeconds int
}

// UniverseConfig configures where the ticker universe comes from: the
// Wikipedia constituents page for the scraped source, or a fixed list for the
// static one.
type UniverseConfig struct {
	WikiURL string
	Symbols []string
}

// AppConfig is the globally accessible configuration instance, populated once
// via LoadConfig(). Services read from it instead of consulting the
// environment directly; the engine and reconciler never touch it at all.
var AppConfig Config

// LoadConfig initializes the global AppConfig.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "tickerpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("ALPHAVANTAGE_API_KEY", "")
	viper.SetDefault("ALPHAVANTAGE_URL", "https://www.alphavantage.co/query")
	viper.SetDefault("PROVIDER_MAX_RETRIES", 3)
	viper.SetDefault("PROVIDER_BACKOFF_SECONDS", 1)

	viper.SetDefault("SP500_WIKI_URL", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies")
	viper.SetDefault("DEFAULT_SYMBOLS", "AAPL,MSFT,GOOGL,AMZN,NVDA,TSLA,META,BRK.B,JPM,V")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Provider: ProviderConfig{
			APIKey:         viper.GetString("ALPHAVANTAGE_API_KEY"),
			BaseURL:        viper.GetString("ALPHAVANTAGE_URL"),
			MaxRetries:     viper.GetInt("PROVIDER_MAX_RETRIES"),
			BackoffSeconds: viper.GetInt("PROVIDER_BACKOFF_SECONDS"),
		},
		Universe: UniverseConfig{
			WikiURL: viper.GetString("SP500_WIKI_URL"),
			Symbols: SplitSymbols(viper.GetString("DEFAULT_SYMBOLS")),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// SplitSymbols turns a comma-separated list into trimmed, upper-cased tickers.
func SplitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// validateConfig ensures required variables are present and terminates the
// application if they are missing. The provider API key is deliberately not
// required here: api mode never needs it, and batch modes fail with a clear
// per-request error when it is absent.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Universe.WikiURL == "" {
		missing = append(missing, "SP500_WIKI_URL")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
