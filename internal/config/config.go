// Package config loads runtime settings from an optional YAML file, a .env
// file and GOALS_-prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	CORSOrigin  string `mapstructure:"cors_origin"`
	MaxBodySize int64  `mapstructure:"max_body_size"`
}

type StoreConfig struct {
	Backend          string `mapstructure:"backend"`
	SQLitePath       string `mapstructure:"sqlite_path"`
	FirestoreProject string `mapstructure:"firestore_project"`
}

type AuthConfig struct {
	Secret        string `mapstructure:"secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

type BigQueryConfig struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
}

type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type JobsConfig struct {
	Workers int `mapstructure:"workers"`
	Buffer  int `mapstructure:"buffer"`
}

type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Auth      AuthConfig      `mapstructure:"auth"`
	BigQuery  BigQueryConfig  `mapstructure:"bigquery"`
	GCS       GCSConfig       `mapstructure:"gcs"`
	Notion    NotionConfig    `mapstructure:"notion"`
	Log       LogConfig       `mapstructure:"log"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	TimeZone  string          `mapstructure:"timezone"`
}

var defaults = map[string]interface{}{
	"server.port":          8080,
	"server.cors_origin":   "*",
	"server.max_body_size": 10 << 20,

	"store.backend":           BackendSQLite,
	"store.sqlite_path":       "goaltracker.db",
	"store.firestore_project": "",

	"auth.secret":          "",
	"auth.token_ttl_hours": 24,

	"bigquery.project": "",
	"bigquery.dataset": "goaltracker",

	"gcs.bucket": "",

	"notion.token":       "",
	"notion.database_id": "",

	"log.level":  "info",
	"log.pretty": true,

	"jobs.workers": 1,
	"jobs.buffer":  100,

	"rate_limit.per_second": 5.0,
	"rate_limit.burst":      20,

	"timezone": "Local",
}

// Load reads configuration. path names a YAML file; when empty, config.yaml
// in the working directory is used if present. A .env file in the working
// directory is loaded into the environment first, without overriding
// variables that are already set.
//
// Environment variables use the GOALS_ prefix with dots replaced by
// underscores, e.g. GOALS_STORE_BACKEND=firestore.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: read .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("GOALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("Load: read config: %w", err)
			}
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &c, nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendFirestore:
		if c.Store.FirestoreProject == "" {
			return fmt.Errorf("store.firestore_project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	if c.Jobs.Workers < 1 {
		return fmt.Errorf("jobs.workers must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// TokenTTL is the lifetime of issued API tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}
