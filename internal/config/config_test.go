package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 60*time.Second, cfg.ClearingInterval)
	assert.Equal(t, 30*time.Second, cfg.JanitorInterval)
	assert.Equal(t, 60*time.Second, cfg.MonitorInterval)
	assert.Equal(t, "uniform", cfg.PricingMode)
	assert.Equal(t, 0.001, cfg.FeeRate)
	assert.Equal(t, 1.0, cfg.MinTradeSizeMW)
	assert.Equal(t, 0.8, cfg.EmergencyRatio)
	assert.Equal(t, 0.5, cfg.VolatilityLimit)
	assert.Equal(t, 50.0, cfg.SeedPrice)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load([]string{
		"-pricing-mode", "pay_as_bid",
		"-clearing-interval", "15s",
		"-seed-price", "72.5",
	})
	require.NoError(t, err)

	assert.Equal(t, "pay_as_bid", cfg.PricingMode)
	assert.Equal(t, 15*time.Second, cfg.ClearingInterval)
	assert.Equal(t, 72.5, cfg.SeedPrice)
}

func TestLoadYAMLOverridesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
http_addr: ":9090"
clearing_interval: 10s
janitor_interval: 5s
monitor_interval: 10s
snapshot_interval: 1m
pricing_mode: "pay_as_bid"
fee_rate: 0.002
min_trade_size_mw: 2.5
emergency_ratio: 0.7
volatility_limit: 0.4
seed_price: 65.0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ClearingInterval)
	assert.Equal(t, "pay_as_bid", cfg.PricingMode)
	assert.Equal(t, 0.002, cfg.FeeRate)
	assert.Equal(t, 2.5, cfg.MinTradeSizeMW)
	assert.Equal(t, 65.0, cfg.SeedPrice)
}

func TestValidate(t *testing.T) {
	t.Run("rejects unknown pricing mode", func(t *testing.T) {
		_, err := Load([]string{"-pricing-mode", "vickrey"})
		assert.Error(t, err)
	})

	t.Run("rejects non-positive seed price", func(t *testing.T) {
		_, err := Load([]string{"-seed-price", "0"})
		assert.Error(t, err)
	})

	t.Run("rejects negative fee rate", func(t *testing.T) {
		_, err := Load([]string{"-fee-rate", "-0.1"})
		assert.Error(t, err)
	})
}
