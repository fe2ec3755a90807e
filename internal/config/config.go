package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	Logging   LoggingConfig
	Graph     GraphConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Artifacts ArtifactsConfig
	Training  TrainingConfig
	Generator GeneratorConfig
	Ingest    IngestConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"5000"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"SERVER_ALLOWED_ORIGINS" envDefault:"http://127.0.0.1:5000" envSeparator:","`
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `env:"LOG_LEVEL" envDefault:"info"`
	Format        string `env:"LOG_FORMAT" envDefault:"text"` // text|json
	IncludeCaller bool   `env:"LOG_INCLUDE_CALLER"`
}

// GraphConfig describes connectivity to the Neo4j sink. An empty URI disables it.
type GraphConfig struct {
	URI            string `env:"GRAPH_URI"`
	Database       string `env:"GRAPH_DATABASE"`
	Username       string `env:"GRAPH_USERNAME"`
	Password       string `env:"GRAPH_PASSWORD"`
	MaxConnections int    `env:"GRAPH_MAX_CONNECTIONS" envDefault:"10"`
}

// PostgresConfig describes the relational sink. An empty DSN disables it.
type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

// KafkaConfig describes the alert stream. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_ALERT_TOPIC" envDefault:"suspicious-transactions"`
}

// ArtifactsConfig locates the model store.
type ArtifactsConfig struct {
	Path string `env:"ARTIFACTS_PATH" envDefault:"models.db"`
}

// TrainingConfig carries trainer settings.
type TrainingConfig struct {
	Dataset      string  `env:"TRAIN_DATASET" envDefault:"transactions_dataset.csv"`
	TestFraction float64 `env:"TRAIN_TEST_FRACTION" envDefault:"0.2"`
	SplitSeed    int64   `env:"TRAIN_SPLIT_SEED" envDefault:"42"`
	Trees        int     `env:"TRAIN_TREES" envDefault:"100"`
	MaxDepth     int     `env:"TRAIN_MAX_DEPTH" envDefault:"10"`
	ForestSeed   int64   `env:"TRAIN_FOREST_SEED" envDefault:"42"`
	Workers      int     `env:"TRAIN_WORKERS"`
}

// GeneratorConfig carries synthesizer settings.
type GeneratorConfig struct {
	Transactions    int     `env:"GEN_TRANSACTIONS" envDefault:"1000"`
	Users           int     `env:"GEN_USERS" envDefault:"100"`
	SuspiciousRatio float64 `env:"GEN_SUSPICIOUS_RATIO" envDefault:"0.1"`
	Seed            int64   `env:"GEN_SEED" envDefault:"42"`
	OutputDir       string  `env:"GEN_OUTPUT_DIR" envDefault:"."`
}

// IngestConfig sizes the ingestion worker pool.
type IngestConfig struct {
	Workers int `env:"INGEST_WORKERS" envDefault:"8"`
}

// DotenvPath returns the dotenv file named by TXFLAG_ENV_FILE, or ".env".
func DotenvPath() string {
	if path := os.Getenv("TXFLAG_ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}

// LoadDotenv loads variables from path into the process environment without
// overriding values that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return pkgerrors.Wrapf(err, "load %s", path)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	var cfg Config
	sections := []struct {
		name string
		dst  any
	}{
		{"http", &cfg.HTTP},
		{"logging", &cfg.Logging},
		{"graph", &cfg.Graph},
		{"postgres", &cfg.Postgres},
		{"kafka", &cfg.Kafka},
		{"artifacts", &cfg.Artifacts},
		{"training", &cfg.Training},
		{"generator", &cfg.Generator},
		{"ingest", &cfg.Ingest},
	}
	for _, s := range sections {
		if err := env.Parse(s.dst); err != nil {
			return Config{}, pkgerrors.Wrapf(err, "parse %s config", s.name)
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.HTTP.AllowedOrigins = trimAll(cfg.HTTP.AllowedOrigins)
	cfg.Kafka.Brokers = trimAll(cfg.Kafka.Brokers)
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.HTTP.Port)
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("test fraction %v must be in (0, 1)", c.Training.TestFraction)
	}
	if c.Generator.SuspiciousRatio < 0 || c.Generator.SuspiciousRatio > 1 {
		return fmt.Errorf("suspicious ratio %v must be in [0, 1]", c.Generator.SuspiciousRatio)
	}
	if c.Generator.Users < 2 {
		return fmt.Errorf("at least 2 users are required, got %d", c.Generator.Users)
	}
	return nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
