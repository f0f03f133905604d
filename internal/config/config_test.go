package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "./models", cfg.ModelDir)
	assert.Equal(t, BackendForest, cfg.Backend)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 256, cfg.MaxConnections)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AuditDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9000"
backend: rules
cors_origins: ["https://app.example.com"]
read_timeout: 3s
log_level: debug
audit_driver: sqlite
sqlite_path: /tmp/audit.db
retention_days: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, BackendRules, cfg.Backend)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "/tmp/audit.db", cfg.AuditDSN())
	assert.Equal(t, 7*24*time.Hour, cfg.Retention())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: rules\nmax_connections: 10\n")
	t.Setenv("ADAPTIVE_BACKEND", "forest")
	t.Setenv("ADAPTIVE_MAX_CONNECTIONS", "64")
	t.Setenv("ADAPTIVE_CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ADAPTIVE_AUDIT_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "adaptive")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendForest, cfg.Backend)
	assert.Equal(t, 64, cfg.MaxConnections)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t,
		"host=db port=6543 user=app password=secret dbname=adaptive sslmode=disable",
		cfg.AuditDSN())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{name: "bad backend", yaml: "backend: neural\n", want: "backend must be"},
		{name: "bad driver", yaml: "audit_driver: mysql\n", want: "audit_driver"},
		{name: "bad log level", yaml: "log_level: loud\n", want: "log_level"},
		{name: "negative timeout", yaml: "read_timeout: -1s\n", want: "timeouts"},
		{name: "postgres without host", yaml: "audit_driver: postgres\n", want: "db_host"},
		{name: "bad yaml", yaml: "backend: [\n", want: "parse config yaml"},
		{name: "bad int env", env: map[string]string{"DB_PORT": "abc"}, want: "DB_PORT"},
		{name: "bad duration env", env: map[string]string{"ADAPTIVE_READ_TIMEOUT": "soon"}, want: "ADAPTIVE_READ_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_NegativeDisables(t *testing.T) {
	cfg, err := Load(writeConfig(t, "max_connections: -1\nretention_days: -1\n"))
	require.NoError(t, err)

	assert.Equal(t, -1, cfg.MaxConnections)
	assert.Equal(t, -1, cfg.RetentionDays)
	assert.Zero(t, cfg.Retention())

	// Zero from the environment means the default.
	t.Setenv("ADAPTIVE_RETENTION_DAYS", "0")
	cfg, err = Load(writeConfig(t, "retention_days: -1\n"))
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}
