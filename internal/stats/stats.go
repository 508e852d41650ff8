package stats

import (
	"errors"
	"math"
	"sort"
	"time"

	"sigil/internal/ledger"
	"sigil/internal/market"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData means the window held no usable entries. It is a
// distinct outcome, not a failure; callers omit the stats output.
var ErrInsufficientData = errors.New("stats: insufficient data")

// Aggregate holds descriptive statistics over one series.
type Aggregate struct {
	Count  int
	Sum    float64
	Mean   float64
	Std    float64
	Min    float64
	Median float64
	Max    float64
}

// Snapshot is recomputed on demand and never persisted.
type Snapshot struct {
	Profit    Aggregate
	ProfitPct Aggregate
}

// Compute aggregates entries matching status within [asOf-window, asOf].
// Percentage profit is taken against the immediately preceding ledger row
// of any status, so the first ledger entry never qualifies: it has no
// baseline price.
func Compute(entries []ledger.Entry, status market.Side, window time.Duration, asOf time.Time) (Snapshot, error) {
	from := asOf.Add(-window)

	var profits, pcts []float64
	for i, e := range entries {
		if e.Status != status || i == 0 {
			continue
		}
		if e.Timestamp.Before(from) || e.Timestamp.After(asOf) {
			continue
		}
		prev := entries[i-1].Price
		if prev.IsZero() {
			continue
		}
		profit, _ := e.Profit.Float64()
		pct, _ := e.Profit.Div(prev).Mul(decimal.NewFromInt(100)).Float64()
		profits = append(profits, profit)
		pcts = append(pcts, pct)
	}
	if len(profits) == 0 {
		return Snapshot{}, ErrInsufficientData
	}
	return Snapshot{
		Profit:    aggregate(profits),
		ProfitPct: aggregate(pcts),
	}, nil
}

func aggregate(values []float64) Aggregate {
	n := len(values)
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var std float64
	if n > 1 {
		var sq float64
		for _, v := range values {
			d := v - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(n-1))
	}

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Aggregate{
		Count:  n,
		Sum:    sum,
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Median: median,
		Max:    sorted[n-1],
	}
}
