package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/ordercast-server/internal/config"
	"github.com/vovakirdan/ordercast-server/internal/core"
	"github.com/vovakirdan/ordercast-server/internal/log"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Database.Path = filepath.Join(t.TempDir(), "ordercast.db")
	return cfg
}

func TestNewBootstrapsSuperAdmin(t *testing.T) {
	cfg := testConfig(t)
	cfg.BootstrapAdmin = config.BootstrapAdminConfig{Username: "root", Password: "password123"}

	a, err := New(context.Background(), &cfg, log.Nop())
	require.NoError(t, err)
	defer a.cleanup()

	user, err := a.store.GetUserByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.True(t, user.SuperAdmin)
	assert.Empty(t, user.StoreIDs)
}

func TestNewInstallsProcessWideHub(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), &cfg, log.Nop())
	require.NoError(t, err)

	active, err := core.Active()
	require.NoError(t, err)
	assert.Same(t, a.hub, active)

	_, err = New(context.Background(), &cfg, log.Nop())
	assert.ErrorIs(t, err, core.ErrAlreadyInitialized)

	a.cleanup()
	_, err = core.Active()
	assert.ErrorIs(t, err, core.ErrUninitialized)
}
