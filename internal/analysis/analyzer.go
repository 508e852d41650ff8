package analysis

import (
	"errors"
	"time"

	"sigil/internal/market"

	talib "github.com/markcheno/go-talib"
)

// ErrNotEnoughData means the candle series is too short to score.
var ErrNotEnoughData = errors.New("analysis: not enough candles")

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// macdSlow + macdSignal warmup plus a margin of stable values.
	minCandles = 50
)

// Analyzer produces a trade signal from a full-candle series.
type Analyzer interface {
	Analyze(candles []market.Candle) (market.Signal, error)
}

// Momentum scores the series with RSI and MACD histogram, blended into
// a primary score in [-1, 1]. Scores beyond the configured thresholds
// carry a side.
type Momentum struct {
	BuyThreshold  float64
	SellThreshold float64
}

func NewMomentum(buyThreshold, sellThreshold float64) *Momentum {
	return &Momentum{BuyThreshold: buyThreshold, SellThreshold: sellThreshold}
}

func (m *Momentum) Analyze(candles []market.Candle) (market.Signal, error) {
	if len(candles) < minCandles {
		return market.Signal{}, ErrNotEnoughData
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	last := candles[len(candles)-1]

	rsi := talib.Rsi(closes, rsiPeriod)
	_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)

	// RSI 50 is neutral; map [0,100] onto [-1,1].
	rsiScore := (rsi[len(rsi)-1] - 50) / 50

	// Histogram scaled by price so the score is symbol-independent.
	macdScore := 0.0
	if last.Close > 0 {
		macdScore = clamp(hist[len(hist)-1] / last.Close * 1000)
	}

	primary := clamp(0.7*rsiScore + 0.3*macdScore)

	side := market.SideNone
	switch {
	case primary >= m.BuyThreshold:
		side = market.SideBuy
	case primary <= m.SellThreshold:
		side = market.SideSell
	}

	return market.Signal{
		Side:       side,
		ClosePrice: last.Close,
		CloseTime:  time.UnixMilli(last.CloseTime + 1).UTC(),
		Scores:     []float64{primary, macdScore},
	}, nil
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
