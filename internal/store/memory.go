package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"sigil/internal/market"
)

// MemoryCandleStore keeps candle series in sharded in-memory maps. It backs
// tests and dry runs; production uses the gormstore sqlite implementation.
type MemoryCandleStore struct {
	shards []candleShard
}

type candleShard struct {
	mu   sync.RWMutex
	data map[string][]market.Candle
}

const defaultShardCount = 32

func NewMemoryCandleStore() *MemoryCandleStore {
	out := &MemoryCandleStore{
		shards: make([]candleShard, defaultShardCount),
	}
	for i := range out.shards {
		out.shards[i] = candleShard{data: make(map[string][]market.Candle)}
	}
	return out
}

func (s *MemoryCandleStore) shardFor(symbol string) *candleShard {
	idx := hashKey(symbol) % uint32(len(s.shards))
	return &s.shards[idx]
}

func (s *MemoryCandleStore) Upsert(ctx context.Context, symbol string, candles []market.Candle) (int, error) {
	if symbol == "" {
		return 0, errors.New("symbol cannot be empty")
	}
	if len(candles) == 0 {
		return 0, nil
	}
	sh := s.shardFor(symbol)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur := sh.data[symbol]
	for _, candle := range candles {
		i := sort.Search(len(cur), func(i int) bool {
			return cur[i].OpenTime >= candle.OpenTime
		})
		if i < len(cur) && cur[i].OpenTime == candle.OpenTime {
			cur[i] = candle
			continue
		}
		cur = append(cur, market.Candle{})
		copy(cur[i+1:], cur[i:])
		cur[i] = candle
	}
	sh.data[symbol] = cur
	return len(candles), nil
}

func (s *MemoryCandleStore) LastOpenTime(ctx context.Context, symbol string) (int64, error) {
	sh := s.shardFor(symbol)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	cur := sh.data[symbol]
	if len(cur) == 0 {
		return 0, nil
	}
	return cur[len(cur)-1].OpenTime, nil
}

func (s *MemoryCandleStore) Recent(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		return nil, nil
	}
	sh := s.shardFor(symbol)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	cur := sh.data[symbol]
	if len(cur) == 0 {
		return nil, nil
	}
	if limit > len(cur) {
		limit = len(cur)
	}
	out := make([]market.Candle, limit)
	copy(out, cur[len(cur)-limit:])
	return out, nil
}

func (s *MemoryCandleStore) Count(ctx context.Context, symbol string) (int64, error) {
	sh := s.shardFor(symbol)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return int64(len(sh.data[symbol])), nil
}

func hashKey(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	var h uint32 = offset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
