package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Engine       EngineConfig
	Cache        CacheConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// Store drivers.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// StoreConfig selects where collections are persisted.
type StoreConfig struct {
	Driver string
	Dir    string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN               string
	ApplicationName   string
	ConnectTimeoutSec int
	MaxConns          int32
	MinConns          int32
	RunMigrations     bool
	MigrationsDir     string
	ConnMaxIdleSec    int32
	ConnMaxLifeSec    int32
}

// RedisConfig holds Redis connection values. An empty Addr disables the snapshot mirror.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Format      string
	Service     string
	Env         string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	// Clients is parsed from AUTH_CLIENTS as "id:role:bcrypt-hash" entries separated by ";".
	Clients []ClientCredential
}

// ClientCredential is an API client allowed to exchange its key for a token.
type ClientCredential struct {
	ID      string
	Role    string
	KeyHash string
}

// NotificationConfig holds transport settings.
type NotificationConfig struct {
	EmailFrom             string
	WebhookURL            string
	WebhookTimeoutSeconds int
	InboxLimit            int
}

// EngineConfig tunes SLA and workflow evaluation.
type EngineConfig struct {
	SLAConfigFile           string
	RulesFile               string
	WatchRules              bool
	Roster                  []string
	EscalationContact       string
	SLACheckIntervalSeconds int
}

// CacheConfig sizes the aggregate cache.
type CacheConfig struct {
	MaxSize              int
	DefaultTTLSeconds    int
	StatsTTLSeconds      int
	SweepIntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	clients, err := parseClients(os.Getenv("AUTH_CLIENTS"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_CLIENTS: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "case-sla-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", StoreFile),
			Dir:    getEnv("STORE_DIR", "data"),
		},
		Postgres: PostgresConfig{
			DSN:               os.Getenv("POSTGRES_DSN"),
			ApplicationName:   getEnv("APP_NAME", "case-sla-service"),
			ConnectTimeoutSec: getEnvAsInt("POSTGRES_CONNECT_TIMEOUT_SECONDS", 5),
			MaxConns:          maxConns,
			MinConns:          minConns,
			RunMigrations:     runMigrations,
			MigrationsDir:     getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:    connMaxIdle,
			ConnMaxLifeSec:    connMaxLife,
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "case-sla:"),
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			Service: getEnv("APP_NAME", "case-sla-service"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			Clients:               clients,
		},
		Notification: NotificationConfig{
			EmailFrom:             getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
			InboxLimit:            getEnvAsInt("NOTIFY_INBOX_LIMIT", 100),
		},
		Engine: EngineConfig{
			SLAConfigFile:           os.Getenv("ENGINE_SLA_CONFIG_FILE"),
			RulesFile:               os.Getenv("ENGINE_RULES_FILE"),
			WatchRules:              getEnvAsBool("ENGINE_WATCH_RULES", true),
			Roster:                  getEnvAsList("ENGINE_ROSTER", nil),
			EscalationContact:       getEnv("ENGINE_ESCALATION_CONTACT", "duty-manager@example.com"),
			SLACheckIntervalSeconds: getEnvAsInt("ENGINE_SLA_CHECK_INTERVAL_SECONDS", 300),
		},
		Cache: CacheConfig{
			MaxSize:              getEnvAsInt("CACHE_MAX_SIZE", 1000),
			DefaultTTLSeconds:    getEnvAsInt("CACHE_DEFAULT_TTL_SECONDS", 300),
			StatsTTLSeconds:      getEnvAsInt("CACHE_STATS_TTL_SECONDS", 60),
			SweepIntervalSeconds: getEnvAsInt("CACHE_SWEEP_INTERVAL_SECONDS", 60),
		},
	}

	cfg.Logger.Env = cfg.App.Env
	cfg.Logger.Development = cfg.App.Env == "development"

	switch cfg.Store.Driver {
	case StoreFile, StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver == StorePostgres && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("STORE_DRIVER=postgres requires POSTGRES_DSN")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SLACheckInterval is the period of the SLA monitor.
func (e EngineConfig) SLACheckInterval() time.Duration {
	return seconds(e.SLACheckIntervalSeconds)
}

// DefaultTTL is the TTL used when a caller passes none.
func (c CacheConfig) DefaultTTL() time.Duration { return seconds(c.DefaultTTLSeconds) }

// StatsTTL is how long case statistics stay cached.
func (c CacheConfig) StatsTTL() time.Duration { return seconds(c.StatsTTLSeconds) }

// SweepInterval is the period of the expiry sweeper.
func (c CacheConfig) SweepInterval() time.Duration { return seconds(c.SweepIntervalSeconds) }

// WebhookTimeout bounds one webhook call.
func (n NotificationConfig) WebhookTimeout() time.Duration {
	return seconds(n.WebhookTimeoutSeconds)
}

func seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

func parseClients(raw string) ([]ClientCredential, error) {
	var out []ClientCredential
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		// bcrypt hashes contain "$" but never ":", so a 3-way split is safe.
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("entry %q: want id:role:hash", entry)
		}
		out = append(out, ClientCredential{ID: parts[0], Role: parts[1], KeyHash: parts[2]})
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
