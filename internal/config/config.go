package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendForest = "forest"
	BackendRules  = "rules"
)

// Config holds the service settings. Zero numeric values take the default;
// a negative max_connections or retention_days turns the limit or the pruning
// off.
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	ModelDir       string        `yaml:"model_dir"`
	Backend        string        `yaml:"backend"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	MaxConnections int           `yaml:"max_connections"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	LogLevel       string        `yaml:"log_level"`

	// Empty disables token checks on /predict.
	JWTSecret string `yaml:"jwt_secret"`

	// Audit log. Empty driver disables it.
	AuditDriver   string `yaml:"audit_driver"`
	SQLitePath    string `yaml:"sqlite_path"`
	RetentionDays int    `yaml:"retention_days"`
	PruneSchedule string `yaml:"prune_schedule"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
}

// Load reads the optional YAML file at path, applies env overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Path returns the config file named by ADAPTIVE_CONFIG, if any.
func Path() string {
	return os.Getenv("ADAPTIVE_CONFIG")
}

func applyEnv(cfg *Config) error {
	setString(&cfg.ListenAddr, "ADAPTIVE_LISTEN_ADDR")
	setString(&cfg.ModelDir, "ADAPTIVE_MODEL_DIR")
	setString(&cfg.Backend, "ADAPTIVE_BACKEND")
	setString(&cfg.LogLevel, "ADAPTIVE_LOG_LEVEL")
	setString(&cfg.JWTSecret, "ADAPTIVE_JWT_SECRET")
	setString(&cfg.AuditDriver, "ADAPTIVE_AUDIT_DRIVER")
	setString(&cfg.SQLitePath, "ADAPTIVE_SQLITE_PATH")
	setString(&cfg.PruneSchedule, "ADAPTIVE_PRUNE_SCHEDULE")

	if v := os.Getenv("ADAPTIVE_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	var errs []error
	errs = append(errs,
		setInt(&cfg.MaxConnections, "ADAPTIVE_MAX_CONNECTIONS"),
		setInt(&cfg.RetentionDays, "ADAPTIVE_RETENTION_DAYS"),
		setDuration(&cfg.ReadTimeout, "ADAPTIVE_READ_TIMEOUT"),
		setDuration(&cfg.WriteTimeout, "ADAPTIVE_WRITE_TIMEOUT"),
	)

	// Postgres settings keep their plain names.
	setString(&cfg.DBHost, "DB_HOST")
	setString(&cfg.DBUser, "DB_USER")
	setString(&cfg.DBPassword, "DB_PASSWORD")
	setString(&cfg.DBName, "DB_NAME")
	errs = append(errs, setInt(&cfg.DBPort, "DB_PORT"))

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ModelDir == "" {
		cfg.ModelDir = "./models"
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendForest
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 256
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "./data/audit.db"
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 30
	}
	if cfg.PruneSchedule == "" {
		cfg.PruneSchedule = "0 3 * * *"
	}
	if cfg.DBPort == 0 {
		cfg.DBPort = 5432 // fallback
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendForest, BackendRules:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendForest, BackendRules, c.Backend)
	}
	switch c.AuditDriver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("audit_driver must be postgres, sqlite or empty, got %q", c.AuditDriver)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.AuditDriver == "postgres" && c.DBHost == "" {
		return errors.New("db_host is required for the postgres audit log")
	}
	return nil
}

// Retention is the audit log retention window, zero when pruning is off.
func (c *Config) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// AuditDSN is the data source for the configured audit driver.
func (c *Config) AuditDSN() string {
	if c.AuditDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.ConnString()
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
