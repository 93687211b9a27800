package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reign/internal/remote"
)

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reign")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("WORKER_INTERVAL", "2s")
	t.Setenv("REVISION_KEEP", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ADMIN_EMAILS", "Root@Example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 2*time.Second, cfg.WorkerInterval)
	assert.Equal(t, 50, cfg.RevisionKeep)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsAdminEmail(" root@example.COM"))
	assert.False(t, cfg.IsAdminEmail("user@example.com"))
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reign")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REVISION_KEEP", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadClientDefaults(t *testing.T) {
	t.Setenv("REIGN_ORIGIN", "")
	t.Setenv("REIGN_API_URL", "")
	dir := t.TempDir()
	t.Setenv("REIGN_DATA_DIR", dir)

	c, err := LoadClient("")
	require.NoError(t, err)
	assert.Equal(t, remote.DevBaseURL, c.BaseURL())
	assert.Equal(t, 2*time.Second, c.SyncDebounce)
	assert.Equal(t, filepath.Join(dir, "reign.db"), c.DataPath())
	assert.Equal(t, 5<<20, c.StorageQuota)
}

func TestLoadClientFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reign.yaml")
	require.NoError(t, os.WriteFile(path, []byte("origin: https://reign.example.com\nsync_debounce: 5s\nlog:\n  level: debug\n"), 0o600))
	t.Setenv("REIGN_API_URL", "")
	t.Setenv("REIGN_ORIGIN", "")
	t.Setenv("REIGN_REQUEST_TIMEOUT", "3s")

	c, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "https://reign.example.com/api", c.BaseURL())
	assert.Equal(t, 5*time.Second, c.SyncDebounce)
	assert.Equal(t, 3*time.Second, c.RequestTimeout)
	assert.Equal(t, "debug", c.Log.Level)

	t.Setenv("REIGN_API_URL", "http://10.0.0.2:3000/api/")
	c, err = LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:3000/api", c.BaseURL())
}

func TestLoadClientMissingExplicitFile(t *testing.T) {
	_, err := LoadClient(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
