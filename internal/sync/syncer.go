package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sigil/internal/logger"
	"sigil/internal/market"
	"sigil/internal/store"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyResult marks a fetch that returned no full candles for a symbol.
// Any symbol producing an empty result aborts the whole cycle.
var ErrEmptyResult = errors.New("sync: empty kline result")

// Result reports the outcome of one synchronization cycle.
type Result struct {
	Stored   int
	GapCount int
}

// Syncer pulls missing candles for a set of symbols and persists them.
// Fetches run concurrently under one shared deadline; candles are only
// stored after every symbol has produced a usable batch, so a timeout or
// a bad response leaves the store untouched for this cycle.
type Syncer struct {
	source   market.Source
	store    store.CandleStore
	symbols  []string
	interval time.Duration
	intName  string
	timeout  time.Duration
	backfill int
}

func NewSyncer(source market.Source, candles store.CandleStore, symbols []string, intervalName string, interval, timeout time.Duration, backfill int) *Syncer {
	if backfill <= 0 {
		backfill = 300
	}
	return &Syncer{
		source:   source,
		store:    candles,
		symbols:  symbols,
		interval: interval,
		intName:  intervalName,
		timeout:  timeout,
		backfill: backfill,
	}
}

type symbolBatch struct {
	symbol  string
	candles []market.Candle
	gap     bool
}

// SyncCycle fetches missing candles for every symbol up to boundary, the
// open time of the interval currently forming. Only candles that opened
// strictly before the boundary are full and eligible for storage.
func (s *Syncer) SyncCycle(ctx context.Context, boundary time.Time) (Result, error) {
	boundaryMs := boundary.UTC().UnixMilli()
	intervalMs := s.interval.Milliseconds()
	if intervalMs <= 0 {
		return Result{}, fmt.Errorf("sync: invalid interval %s", s.interval)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var mu sync.Mutex
	batches := make([]symbolBatch, 0, len(s.symbols))

	g, gctx := errgroup.WithContext(fetchCtx)
	for _, symbol := range s.symbols {
		symbol := symbol
		g.Go(func() error {
			batch, err := s.fetchSymbol(gctx, symbol, boundaryMs, intervalMs)
			if err != nil {
				return err
			}
			mu.Lock()
			batches = append(batches, batch)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warnf("sync cycle timed out after %s, nothing stored", s.timeout)
		}
		return Result{}, err
	}

	// Every symbol succeeded, commit the whole cycle.
	sort.Slice(batches, func(i, j int) bool { return batches[i].symbol < batches[j].symbol })
	res := Result{}
	for _, b := range batches {
		n, err := s.store.Upsert(ctx, b.symbol, b.candles)
		if err != nil {
			return res, fmt.Errorf("sync: store %s: %w", b.symbol, err)
		}
		res.Stored += n
		if b.gap {
			res.GapCount++
		}
	}
	return res, nil
}

func (s *Syncer) fetchSymbol(ctx context.Context, symbol string, boundaryMs, intervalMs int64) (symbolBatch, error) {
	last, err := s.store.LastOpenTime(ctx, symbol)
	if err != nil {
		return symbolBatch{}, fmt.Errorf("sync: last open time %s: %w", symbol, err)
	}

	limit := s.backfill
	if last > 0 {
		missing := (boundaryMs - last) / intervalMs
		if missing < 0 {
			missing = 0
		}
		// One extra row covers the currently-open interval the server
		// includes at the tail of the response.
		limit = int(missing) + 1
	}

	raw, err := s.source.FetchKlines(ctx, symbol, s.intName, limit, boundaryMs+intervalMs-1)
	if err != nil {
		return symbolBatch{}, fmt.Errorf("sync: fetch %s: %w", symbol, err)
	}

	full := raw[:0:0]
	for _, c := range raw {
		if c.OpenTime < boundaryMs {
			full = append(full, c)
		}
	}
	if len(full) == 0 {
		return symbolBatch{}, fmt.Errorf("%w: %s", ErrEmptyResult, symbol)
	}

	batch := symbolBatch{symbol: symbol, candles: full}
	lastFull := full[len(full)-1].OpenTime
	if lastFull != boundaryMs-intervalMs {
		batch.gap = true
		logger.Warnf("kline gap for %s: last full candle opened at %d, expected %d", symbol, lastFull, boundaryMs-intervalMs)
	}
	return batch, nil
}
