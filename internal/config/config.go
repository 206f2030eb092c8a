// Package config loads process configuration from .env files and
// GQLTOOLS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Prefix is the environment variable prefix, e.g. GQLTOOLS_ADDR.
const Prefix = "GQLTOOLS"

// Config holds settings shared by the CLI commands. Flags override these.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	Schemas         []string      `envconfig:"SCHEMA"`
	Mocks           string        `envconfig:"MOCKS"`
	Introspection   bool          `envconfig:"INTROSPECTION" default:"true"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"10s"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	QueryCacheSize  int           `envconfig:"QUERY_CACHE_SIZE" default:"1000"`
	MaxConcurrency  int           `envconfig:"MAX_CONCURRENCY" default:"0"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS"`
	MetadataHeaders []string      `envconfig:"METADATA_HEADERS"`
	Pretty          bool          `envconfig:"PRETTY"`
	OTLPEndpoint    string        `envconfig:"OTLP_ENDPOINT"`
	ServiceName     string        `envconfig:"SERVICE_NAME" default:"gqltools"`
}

// LoadEnv loads variables from .env files found in the working directory.
// Missing files are skipped.
func LoadEnv(logger logrus.FieldLogger, files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			logger.WithError(err).Warnf("Failed to load %s", file)
			continue
		}
		loaded = append(loaded, file)
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
	} else {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

// Load decodes the GQLTOOLS_* environment variables.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}
