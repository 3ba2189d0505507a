package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frotagov/fuel-ledger/config"
)

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("FUELLEDGER_JWT_SECRET", "s")
	t.Setenv("FUELLEDGER_ADMIN_PASS", "pw")

	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "fuel-ledger.db", c.Database.Path)
	assert.Equal(t, "admin", c.Auth.AdminUsername)
	assert.Equal(t, 12*time.Hour, c.Auth.TokenTTL)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
database:
  path: "/var/lib/fuel-ledger.db"
auth:
  jwt_secret: "from-file"
  admin_password: "file-pw"
  token_ttl: 1h
`), 0o600))

	t.Setenv("FUELLEDGER_DB", "/tmp/override.db")

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Server.Addr, "file overrides default")
	assert.Equal(t, "/tmp/override.db", c.Database.Path, "env overrides file")
	assert.Equal(t, "from-file", c.Auth.JWTSecret)
	assert.Equal(t, time.Hour, c.Auth.TokenTTL)
}

func TestLoad_RequiresSecretAndAdminPassword(t *testing.T) {
	t.Setenv("FUELLEDGER_JWT_SECRET", "")
	t.Setenv("FUELLEDGER_ADMIN_PASS", "")

	_, err := config.Load("")
	assert.Error(t, err)

	t.Setenv("FUELLEDGER_JWT_SECRET", "s")
	_, err = config.Load("")
	assert.Error(t, err, "admin password still missing")
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	t.Setenv("FUELLEDGER_JWT_SECRET", "s")
	t.Setenv("FUELLEDGER_ADMIN_PASS", "pw")

	c, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Addr)
}
