package notify

import (
	"strings"
	"testing"
	"time"

	"sigil/internal/ledger"
	"sigil/internal/market"
	"sigil/internal/stats"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Symbol:                 "BTCUSDT",
		BuySignalThreshold:     0.2,
		SellSignalThreshold:    -0.2,
		BuyNotifyThreshold:     0.5,
		SellNotifyThreshold:    -0.5,
		IconStep:               0.1,
		NotifyFrequencyMinutes: 1,
		WindowWeeks:            4,
	}
}

func TestComposeIconScaling(t *testing.T) {
	c := NewComposer(testConfig())
	sig := market.Signal{
		Side:       market.SideBuy,
		ClosePrice: 50123.9,
		CloseTime:  time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		Scores:     []float64{0.75},
	}

	msg, ok := c.Compose(sig)
	require.True(t, ok)
	assert.Equal(t, 6, strings.Count(msg, "🟢"))
	assert.Contains(t, msg, "*BUY: ₿ 50,123 Score: %2B0.75*")
}

func TestComposeSellIcons(t *testing.T) {
	c := NewComposer(testConfig())
	sig := market.Signal{
		Side:       market.SideSell,
		ClosePrice: 48000,
		CloseTime:  time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		Scores:     []float64{-0.55, 0.1},
	}

	msg, ok := c.Compose(sig)
	require.True(t, ok)
	// |-0.55 - (-0.2)| / 0.1 = 3 steps plus the base icon.
	assert.Equal(t, 4, strings.Count(msg, "🔴"))
	assert.Contains(t, msg, "*SELL: ₿ 48,000 Score: -0.55* %2B0.10")
}

func TestComposeDeadBandSuppresses(t *testing.T) {
	c := NewComposer(testConfig())
	at := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)

	_, ok := c.Compose(market.Signal{ClosePrice: 50000, CloseTime: at, Scores: []float64{0.2}})
	assert.False(t, ok)

	// The dead band applies even to sided signals.
	_, ok = c.Compose(market.Signal{Side: market.SideBuy, ClosePrice: 50000, CloseTime: at, Scores: []float64{0.3}})
	assert.False(t, ok)
}

func TestComposeInfoMessage(t *testing.T) {
	cfg := testConfig()
	cfg.NotifyFrequencyMinutes = 5
	c := NewComposer(cfg)

	sig := market.Signal{
		ClosePrice: 50000,
		CloseTime:  time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC),
		Scores:     []float64{0.8},
	}
	msg, ok := c.Compose(sig)
	require.True(t, ok)
	assert.Equal(t, "₿ 50,000 📈%2B0.80 ", msg)

	// Off-frequency minute produces nothing.
	sig.CloseTime = time.Date(2026, 3, 1, 12, 11, 0, 0, time.UTC)
	_, ok = c.Compose(sig)
	assert.False(t, ok)

	// Negative score flips the arrow.
	sig.CloseTime = time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	sig.Scores = []float64{-0.8}
	msg, ok = c.Compose(sig)
	require.True(t, ok)
	assert.Contains(t, msg, "📉-0.80")
}

func TestComposeEthereumGlyph(t *testing.T) {
	cfg := testConfig()
	cfg.Symbol = "ETHUSDT"
	c := NewComposer(cfg)

	msg, ok := c.Compose(market.Signal{
		Side:       market.SideBuy,
		ClosePrice: 3200,
		CloseTime:  time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		Scores:     []float64{0.9},
	})
	require.True(t, ok)
	assert.Contains(t, msg, "Ξ 3,200")
}

func TestComposeTransaction(t *testing.T) {
	c := NewComposer(testConfig())

	sold := ledger.Entry{Status: market.SideSell, Profit: decimal.NewFromFloat(125.5)}
	assert.Equal(t, "⚡💰 *SOLD:  Profit: 2.31% 125.50₮*", c.ComposeTransaction(sold, 2.312))

	bought := ledger.Entry{Status: market.SideBuy, Profit: decimal.NewFromFloat(-40)}
	assert.Equal(t, "⚡💰 *BOUGHT:  Profit: -0.08% -40.00₮*", c.ComposeTransaction(bought, -0.081))
}

func TestComposeStats(t *testing.T) {
	c := NewComposer(testConfig())
	snap := stats.Snapshot{
		ProfitPct: stats.Aggregate{
			Count: 3, Sum: 6.6, Mean: 2.2, Std: 1.1, Min: 1.0, Median: 2.0, Max: 3.6,
		},
	}

	msg := c.ComposeStats(market.SideSell, snap)
	assert.True(t, strings.HasPrefix(msg, "↗ *LONG transactions stats (4 weeks)*\n"))
	assert.Contains(t, msg, "🔸sum=6.60% 🔸count=3\n")
	assert.Contains(t, msg, "🔸mean=2.20% 🔸std=1.10%\n")
	assert.Contains(t, msg, "🔸min=1.00% 🔸median=2.00% 🔸max=3.60%\n")

	msg = c.ComposeStats(market.SideBuy, snap)
	assert.True(t, strings.HasPrefix(msg, "↘ *SHORT transactions stats (4 weeks)*\n"))
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", groupThousands(0))
	assert.Equal(t, "999", groupThousands(999))
	assert.Equal(t, "1,000", groupThousands(1000))
	assert.Equal(t, "50,123", groupThousands(50123))
	assert.Equal(t, "1,234,567", groupThousands(1234567))
	assert.Equal(t, "-12,345", groupThousands(-12345))
}

func TestIconCountZeroStep(t *testing.T) {
	assert.Equal(t, 1, iconCount(0.9, 0.2, 0))
	assert.Equal(t, 6, iconCount(0.75, 0.2, 0.1))
}
