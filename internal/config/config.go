// Package config defines the explicit run configuration for the loaders.
// A Config is built in main (flags with environment fallbacks) and passed
// into the pipeline entry points; nothing in this package is global.
package config

import (
	"fmt"
	"net/url"
	"os"
)

// DefaultBatchSize is the row batch size for the streaming quality loader.
const DefaultBatchSize = 1000

// DB holds the connection settings for the destination Postgres database.
type DB struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// DSN renders the settings as a pgx connection URL. User and password are
// URL-escaped so credentials with reserved characters survive.
func (d DB) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%s", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// Config is the full configuration for one loader run.
type Config struct {
	DB        DB
	BatchSize int

	// InitSchema creates the tables before loading when true.
	InitSchema bool

	// MetricsBackend selects the metrics sink: "pushgateway" or "none".
	MetricsBackend string
	PushgatewayURL string
}

// FromEnv returns a Config populated from DB_* environment variables with
// usable defaults. Flag values layered on top by main take precedence.
func FromEnv() Config {
	return Config{
		DB: DB{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     envOr("DB_PORT", "5432"),
			Name:     envOr("DB_NAME", "postgres"),
			User:     envOr("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		BatchSize:      DefaultBatchSize,
		MetricsBackend: envOr("METRICS_BACKEND", "none"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
