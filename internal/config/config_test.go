package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
market:
  symbols: ["BTCUSDT"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1m", cfg.Market.Interval)
	assert.Equal(t, "https://api.binance.com", cfg.Market.RESTBaseURL)
	assert.Equal(t, 5, cfg.Market.FetchTimeoutSeconds)
	assert.Equal(t, 300, cfg.Market.BackfillLimit)
	assert.Equal(t, 0.1, cfg.Signal.TradeIconStep)
	assert.Equal(t, 1, cfg.Signal.NotifyFrequencyMinutes)
	assert.Equal(t, 4, cfg.Signal.StatsWindowWeeks)
	assert.Equal(t, "BTCUSDT", cfg.Market.Symbol())
}

func TestLoadExplicitZeroSurvivesDefaults(t *testing.T) {
	path := writeConfig(t, `
market:
  symbols: ["ETHUSDT"]
signal:
  trade_icon_step: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	// Explicitly set to zero in the file: defaults must not overwrite it.
	assert.Equal(t, 0.0, cfg.Signal.TradeIconStep)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no symbols", `
market:
  interval: "1m"
`},
		{"bad interval", `
market:
  symbols: ["BTCUSDT"]
  interval: "90x"
`},
		{"telegram without token", `
market:
  symbols: ["BTCUSDT"]
notify:
  telegram:
    enabled: true
`},
		{"inverted notify thresholds", `
market:
  symbols: ["BTCUSDT"]
signal:
  buy_notify_threshold: -0.5
  sell_notify_threshold: 0.5
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestIsValidInterval(t *testing.T) {
	assert.True(t, IsValidInterval("1m"))
	assert.True(t, IsValidInterval("15m"))
	assert.True(t, IsValidInterval("4h"))
	assert.True(t, IsValidInterval("1w"))
	assert.False(t, IsValidInterval(""))
	assert.False(t, IsValidInterval("m"))
	assert.False(t, IsValidInterval("15s"))
	assert.False(t, IsValidInterval("h1"))
}
