package notify

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sigil/internal/ledger"
	"sigil/internal/market"
	"sigil/internal/stats"
)

// Config is the read-only notification surface.
type Config struct {
	Symbol                 string
	BuySignalThreshold     float64
	SellSignalThreshold    float64
	BuyNotifyThreshold     float64
	SellNotifyThreshold    float64
	IconStep               float64
	NotifyFrequencyMinutes int
	WindowWeeks            int
}

// Composer renders alert text from a signal plus ledger/stats output.
// It never sends anything itself.
type Composer struct {
	cfg Config
}

func NewComposer(cfg Config) *Composer {
	if cfg.NotifyFrequencyMinutes <= 0 {
		cfg.NotifyFrequencyMinutes = 1
	}
	return &Composer{cfg: cfg}
}

// Compose renders the main signal message. The second return value is
// false when nothing should be sent: an off-frequency info tick, or a
// primary score inside the dead band between the notify thresholds.
func (c *Composer) Compose(sig market.Signal) (string, bool) {
	primary := sig.PrimaryScore()
	primaryStr := fmt.Sprintf("%+.2f", primary)
	secondaryStr := ""
	if secondary, ok := sig.SecondaryScore(); ok {
		secondaryStr = fmt.Sprintf("%+.2f", secondary)
	}

	glyph := symbolGlyph(c.cfg.Symbol)
	price := groupThousands(int64(sig.ClosePrice))

	var message string
	switch {
	case sig.Side == market.SideBuy:
		icons := strings.Repeat("🟢", iconCount(primary, c.cfg.BuySignalThreshold, c.cfg.IconStep))
		message = icons + fmt.Sprintf(" *BUY: %s %s Score: %s* %s", glyph, price, primaryStr, secondaryStr)
	case sig.Side == market.SideSell:
		icons := strings.Repeat("🔴", iconCount(primary, c.cfg.SellSignalThreshold, c.cfg.IconStep))
		message = icons + fmt.Sprintf(" *SELL: %s %s Score: %s* %s", glyph, price, primaryStr, secondaryStr)
	case sig.CloseTime.Minute()%c.cfg.NotifyFrequencyMinutes == 0:
		arrow := "📈"
		if primary < 0 {
			arrow = "📉"
		}
		message = fmt.Sprintf("%s %s %s%s %s", glyph, price, arrow, primaryStr, secondaryStr)
	}
	if message == "" {
		return "", false
	}
	if primary < c.cfg.BuyNotifyThreshold && primary > c.cfg.SellNotifyThreshold {
		return "", false
	}
	return escapePlus(message), true
}

// ComposeTransaction renders the executed-transaction summary.
func (c *Composer) ComposeTransaction(e ledger.Entry, profitPct float64) string {
	var head string
	if e.Status == market.SideSell {
		head = "⚡💰 *SOLD: "
	} else {
		head = "⚡💰 *BOUGHT: "
	}
	profit, _ := e.Profit.Float64()
	return head + fmt.Sprintf(" Profit: %.2f%% %.2f₮*", profitPct, profit)
}

// ComposeStats renders the trailing-window stats block for the side
// matching the executed transaction. A SELL closes a long period, a BUY
// closes a short one.
func (c *Composer) ComposeStats(status market.Side, snap stats.Snapshot) string {
	var b strings.Builder
	if status == market.SideSell {
		fmt.Fprintf(&b, "↗ *LONG transactions stats (%d weeks)*\n", c.cfg.WindowWeeks)
	} else {
		fmt.Fprintf(&b, "↘ *SHORT transactions stats (%d weeks)*\n", c.cfg.WindowWeeks)
	}
	pct := snap.ProfitPct
	fmt.Fprintf(&b, "🔸sum=%.2f%% 🔸count=%d\n", pct.Sum, pct.Count)
	fmt.Fprintf(&b, "🔸mean=%.2f%% 🔸std=%.2f%%\n", pct.Mean, pct.Std)
	fmt.Fprintf(&b, "🔸min=%.2f%% 🔸median=%.2f%% 🔸max=%.2f%%\n", pct.Min, pct.Median, pct.Max)
	return b.String()
}

// iconCount scales severity by how far the score sits beyond the signal
// threshold, one icon per step plus a base icon.
func iconCount(score, threshold, step float64) int {
	if step <= 0 {
		return 1
	}
	return int(math.Floor(math.Abs(score-threshold)/step)) + 1
}

func symbolGlyph(symbol string) string {
	switch symbol {
	case "BTCUSDT":
		return "₿"
	case "ETHUSDT":
		return "Ξ"
	default:
		return symbol
	}
}

// escapePlus percent-escapes literal plus signs so the transport renders
// them instead of treating them as spaces.
func escapePlus(s string) string {
	return strings.ReplaceAll(s, "+", "%2B")
}

// groupThousands formats n with comma separators.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
