package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "SESSION_COOKIE_NAME", "SESSION_TTL", "LOGIN_PATH", "DEFAULT_LANDING_PATH", "PROTECTED_PATHS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "cgm_session", cfg.SessionCookieName)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/dashboard", cfg.DefaultLandingPath)
	assert.Equal(t, DefaultProtectedPaths, cfg.ProtectedPaths)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("PROTECTED_PATHS", " /a , ,/b/:path* ")
	t.Setenv("LOGIN_RATE_LIMIT_RPS", "not-a-number")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"/a", "/b/:path*"}, cfg.ProtectedPaths)
	assert.Equal(t, float64(1), cfg.LoginRateLimitRPS)
}

func TestDefaultsNotShared(t *testing.T) {
	t.Setenv("PROTECTED_PATHS", "")
	cfg := Load()
	cfg.ProtectedPaths[0] = "/mutated"
	assert.Equal(t, "/dashboard", DefaultProtectedPaths[0])
}

func TestParseAccessFile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		file, err := ParseAccessFile([]byte(`
protected_paths:
  - /dashboard
  - /clientes/:path*
policies:
  usuarios: [Superusuario]
  pagos: [Superusuario, Jefe Financiero]
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"/dashboard", "/clientes/:path*"}, file.ProtectedPaths)
		assert.Equal(t, []string{"Superusuario", "Jefe Financiero"}, file.Policies["pagos"])

		cfg := Config{ProtectedPaths: []string{"/old"}}
		file.Apply(&cfg)
		assert.Equal(t, []string{"/dashboard", "/clientes/:path*"}, cfg.ProtectedPaths)
	})

	t.Run("relative path", func(t *testing.T) {
		_, err := ParseAccessFile([]byte("protected_paths: [dashboard]"))
		assert.True(t, errors.Is(err, ErrInvalidAccessFile))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseAccessFile([]byte("policies: [unterminated"))
		assert.True(t, errors.Is(err, ErrInvalidAccessFile))
	})
}

func TestLoadAccessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policies:\n  reportes: [Coordinador Regional]\n"), 0o600))

	file, err := LoadAccessFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Coordinador Regional"}, file.Policies["reportes"])

	_, err = LoadAccessFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
