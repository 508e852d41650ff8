package market

import "context"

// SystemStatus mirrors the provider status endpoint: 0 is normal, anything
// else means the provider is degraded (e.g. maintenance).
type SystemStatus struct {
	Status  int    `json:"status"`
	Message string `json:"msg"`
}

func (s SystemStatus) Normal() bool { return s.Status == 0 }

type Source interface {
	// FetchKlines returns up to limit candles for the symbol ending at
	// endTime (milliseconds since epoch). The last candle may be the
	// still-open interval; excluding it is the caller's responsibility.
	FetchKlines(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]Candle, error)

	SystemStatus(ctx context.Context) (SystemStatus, error)

	Close() error
}
