package store

import (
	"context"

	"sigil/internal/market"
)

// CandleStore is durable, idempotent storage for OHLCV candles keyed by
// (symbol, open time). Re-storing an existing candle is a no-op overwrite.
type CandleStore interface {
	// Upsert stores the candles and returns how many rows were written.
	Upsert(ctx context.Context, symbol string, candles []market.Candle) (int, error)

	// LastOpenTime returns the newest stored open time for the symbol in
	// milliseconds, or 0 when the symbol has no candles yet.
	LastOpenTime(ctx context.Context, symbol string) (int64, error)

	// Recent returns up to limit candles ordered by open time ascending,
	// ending with the newest stored candle.
	Recent(ctx context.Context, symbol string, limit int) ([]market.Candle, error)

	Count(ctx context.Context, symbol string) (int64, error)
}
