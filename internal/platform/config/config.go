package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	mstrings "marina/pkg/platform/strings"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendDatastore = "datastore"
	BackendPostgres  = "postgres"
	BackendRedis     = "redis"
)

// Identity modes selectable with IDENTITY_MODE.
const (
	IdentityGoogle = "google"
	IdentityLocal  = "local"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string        `yaml:"addr"`
	Environment string        `yaml:"environment"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`

	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Identity IdentityConfig `yaml:"identity"`
	Audit    AuditConfig    `yaml:"audit"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// StoreConfig selects and configures the entity store backend.
type StoreConfig struct {
	Backend            string `yaml:"backend"`
	DatastoreProjectID string `yaml:"datastore_project_id"`
	DatabaseURL        string `yaml:"database_url"`
}

// RedisConfig configures the Redis entity store backend.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// IdentityConfig configures bearer-token verification and the login flow.
type IdentityConfig struct {
	Mode         string `yaml:"mode"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// LocalSigningKey signs and verifies HS256 tokens in local mode.
	LocalSigningKey string `yaml:"local_signing_key"`
}

// AuditConfig enables the Kafka audit sink when brokers are set.
type AuditConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// TracingConfig enables OTLP trace export when an endpoint is set.
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "prod" || s.Environment == "production"
}

// Default returns the development defaults.
func Default() Server {
	return Server{
		Addr:        ":8080",
		Environment: "dev",
		Timeout:     30 * time.Second,
		Store:       StoreConfig{Backend: BackendMemory},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Identity: IdentityConfig{
			Mode: IdentityLocal,
			// Use a default for development - must be overridden in production
			LocalSigningKey: "dev-secret-key-change-in-production",
		},
		Audit:   AuditConfig{KafkaTopic: "marina.audit"},
		Tracing: TracingConfig{ServiceName: "marina"},
	}
}

// Load reads an optional YAML file over the defaults, then applies the
// environment on top so deployments can override single values.
func Load(path string) (Server, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Server{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// Validate rejects combinations the server cannot start with.
func (s Server) Validate() error {
	switch s.Store.Backend {
	case BackendMemory:
	case BackendDatastore:
		if s.Store.DatastoreProjectID == "" {
			return fmt.Errorf("store backend %q requires DATASTORE_PROJECT_ID", s.Store.Backend)
		}
	case BackendPostgres:
		if s.Store.DatabaseURL == "" {
			return fmt.Errorf("store backend %q requires DATABASE_URL", s.Store.Backend)
		}
	case BackendRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("store backend %q requires REDIS_URL", s.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", s.Store.Backend)
	}

	switch s.Identity.Mode {
	case IdentityGoogle:
		if s.Identity.ClientID == "" {
			return fmt.Errorf("identity mode %q requires GOOGLE_CLIENT_ID", s.Identity.Mode)
		}
	case IdentityLocal:
		if s.IsProduction() {
			return fmt.Errorf("identity mode %q is not allowed in production", s.Identity.Mode)
		}
	default:
		return fmt.Errorf("unknown identity mode %q", s.Identity.Mode)
	}
	return nil
}

func applyEnv(cfg *Server) {
	setString(&cfg.Addr, "MARINA_ADDR")
	setString(&cfg.Environment, "MARINA_ENV")
	setString(&cfg.BaseURL, "MARINA_BASE_URL")
	setDuration(&cfg.Timeout, "MARINA_REQUEST_TIMEOUT")

	setString(&cfg.Store.Backend, "STORE_BACKEND")
	setString(&cfg.Store.DatastoreProjectID, "DATASTORE_PROJECT_ID")
	setString(&cfg.Store.DatabaseURL, "DATABASE_URL")

	setString(&cfg.Redis.URL, "REDIS_URL")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MinIdleConns, "REDIS_MIN_IDLE_CONNS")
	setDuration(&cfg.Redis.DialTimeout, "REDIS_DIAL_TIMEOUT")
	setDuration(&cfg.Redis.ReadTimeout, "REDIS_READ_TIMEOUT")
	setDuration(&cfg.Redis.WriteTimeout, "REDIS_WRITE_TIMEOUT")

	setString(&cfg.Identity.Mode, "IDENTITY_MODE")
	setString(&cfg.Identity.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Identity.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Identity.LocalSigningKey, "LOCAL_SIGNING_KEY")

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.Audit.KafkaBrokers = mstrings.SplitList(v)
	}
	setString(&cfg.Audit.KafkaTopic, "KAFKA_AUDIT_TOPIC")

	setString(&cfg.Tracing.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Tracing.ServiceName, "OTEL_SERVICE_NAME")
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
