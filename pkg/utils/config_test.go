package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 0.18, cfg.Pricing.TaxRate)
	assert.Equal(t, "INR", cfg.Pricing.Currency)
	assert.Equal(t, int64(25), cfg.Pricing.RefundMinPercent)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.StaleAfter)
	assert.Equal(t, "dynamodb", cfg.Webhook.InboxDriver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\nTAX_RATE=0.05\nGATEWAY_MOCK=true\n"), 0o600))
	t.Setenv("PORT", "7070")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, 0.05, cfg.Pricing.TaxRate)
	assert.True(t, cfg.Gateway.Mock)
}

func TestValidateCollectsProblems(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("TAX_RATE", "1.5")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "TAX_RATE")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
