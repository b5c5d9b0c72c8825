package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgm/internal/auth"
	"cgm/internal/config"
	"cgm/internal/policy"
)

func writeAccessFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "access.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPoliciesDefault(t *testing.T) {
	cfg := config.Config{ProtectedPaths: []string{"/dashboard"}}
	table, err := LoadPolicies(&cfg)
	require.NoError(t, err)
	assert.Equal(t, policy.Default().Operations(), table.Operations())
	assert.Equal(t, []string{"/dashboard"}, cfg.ProtectedPaths)
}

func TestLoadPoliciesFromAccessFile(t *testing.T) {
	cfg := config.Config{
		ProtectedPaths: []string{"/dashboard"},
		AccessFile: writeAccessFile(t, `
protected_paths:
  - /dashboard
  - /siniestros
policies:
  pagos: [Superusuario]
  siniestros: [Coordinador Regional]
`),
	}

	table, err := LoadPolicies(&cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"/dashboard", "/siniestros"}, cfg.ProtectedPaths)

	roles, ok := table.Allowed(policy.OpPagos)
	require.True(t, ok)
	assert.Equal(t, []auth.Role{auth.RoleSuperusuario}, roles)

	roles, ok = table.Allowed("siniestros")
	require.True(t, ok)
	assert.Equal(t, []auth.Role{auth.RoleCoordinadorRegional}, roles)
}

func TestLoadPoliciesRejectsUnknownRole(t *testing.T) {
	cfg := config.Config{AccessFile: writeAccessFile(t, "policies:\n  pagos: [Tesorero]\n")}
	_, err := LoadPolicies(&cfg)
	assert.ErrorIs(t, err, policy.ErrUnknownRole)
}

func TestLoadPoliciesMissingFile(t *testing.T) {
	cfg := config.Config{AccessFile: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := LoadPolicies(&cfg)
	assert.Error(t, err)
}

func TestNewApplicationRequiresDatabase(t *testing.T) {
	_, err := NewApplication(context.Background(), config.Config{}, nil)
	assert.Error(t, err)
}
