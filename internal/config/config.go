package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	ordersSchema = "orders"
)

// Config is shared by the orders service, the history worker and the
// migrate command. Keys are the lower-cased environment variable names, both
// in the environment and in the optional YAML file.
type Config struct {
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
	Port           string `koanf:"port"`

	OrderStore    string `koanf:"order_store"`
	PostgresURL   string `koanf:"postgres_url"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	MigrationsPath string `koanf:"migrations_path"`

	CatalogURL         string        `koanf:"catalog_url"`
	CatalogTimeout     time.Duration `koanf:"catalog_timeout"`
	CatalogConcurrency int           `koanf:"catalog_concurrency"`

	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroupID string   `koanf:"kafka_group_id"`

	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`

	OTLPEndpoint string `koanf:"otel_exporter_otlp_endpoint"`
}

func defaults(service string) Config {
	return Config{
		ServiceName:        service,
		ServiceVersion:     "dev",
		Port:               "8083",
		OrderStore:         StorePostgres,
		MongoDatabase:      "kiosk",
		MigrationsPath:     "file://migrations",
		CatalogURL:         "http://localhost:8082",
		CatalogTimeout:     3 * time.Second,
		CatalogConcurrency: 4,
		KafkaTopic:         "order.events",
		KafkaGroupID:       "order-history-worker",
		LogLevel:           "info",
	}
}

// Load layers defaults, the YAML file named by CONFIG_FILE and the
// environment, in that order. A .env file in the working directory is
// loaded into the environment first when present.
func Load(service string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Empty variables are skipped so they do not erase defaults.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := defaults(service)
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.KafkaBrokers = splitBrokers(cfg.KafkaBrokers)
	return cfg, nil
}

// splitBrokers trims entries and drops empty ones, so "a, b," and a YAML
// list end up the same.
func splitBrokers(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, broker := range strings.Split(entry, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				out = append(out, broker)
			}
		}
	}
	return out
}

// Validate checks what the orders service needs to start.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port required")
	}

	switch c.OrderStore {
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("postgres_url required when order_store is %s", StorePostgres)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("mongo_uri required when order_store is %s", StoreMongo)
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("mongo_database required")
		}
	default:
		return fmt.Errorf("order_store must be %s or %s, got %q", StorePostgres, StoreMongo, c.OrderStore)
	}

	if c.CatalogURL == "" {
		return fmt.Errorf("catalog_url required")
	}
	if c.CatalogTimeout <= 0 {
		return fmt.Errorf("catalog_timeout must be positive")
	}
	if c.CatalogConcurrency <= 0 {
		return fmt.Errorf("catalog_concurrency must be positive")
	}

	return nil
}

// KafkaEnabled reports whether order events are published.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// PostgresDSN is PostgresURL with search_path pinned to the orders schema on
// every pooled connection.
func (c Config) PostgresDSN() (string, error) {
	u, err := url.Parse(c.PostgresURL)
	if err != nil {
		return "", fmt.Errorf("parse postgres_url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("postgres_url must be a postgres:// URL")
	}

	q := u.Query()
	if q.Get("search_path") == "" {
		q.Set("search_path", ordersSchema)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
