package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigil/internal/market"
	sigilstore "sigil/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// CandleModel is the persisted candle row. The composite primary key
// (symbol, open_time) carries the uniqueness invariant.
type CandleModel struct {
	Symbol    string  `gorm:"column:symbol;primaryKey"`
	OpenTime  int64   `gorm:"column:open_time;primaryKey"`
	CloseTime int64   `gorm:"column:close_time"`
	Open      float64 `gorm:"column:open"`
	High      float64 `gorm:"column:high"`
	Low       float64 `gorm:"column:low"`
	Close     float64 `gorm:"column:close"`
	Volume    float64 `gorm:"column:volume"`
	Trades    int64   `gorm:"column:trades"`
}

func (CandleModel) TableName() string { return "candles" }

// Store implements store.CandleStore on Gorm + SQLite.
type Store struct {
	db *gorm.DB
}

var _ sigilstore.CandleStore = (*Store)(nil)

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: candle db path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&CandleModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads, low lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Upsert(ctx context.Context, symbol string, candles []market.Candle) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store not initialized")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol cannot be empty")
	}
	if len(candles) == 0 {
		return 0, nil
	}
	models := make([]CandleModel, 0, len(candles))
	for _, c := range candles {
		models = append(models, CandleModel{
			Symbol:    symbol,
			OpenTime:  c.OpenTime,
			CloseTime: c.CloseTime,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			Trades:    c.Trades,
		})
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "open_time"}},
			DoUpdates: clause.AssignmentColumns([]string{"close_time", "open", "high", "low", "close", "volume", "trades"}),
		}).
		Create(&models).Error
	if err != nil {
		return 0, err
	}
	return len(models), nil
}

func (s *Store) LastOpenTime(ctx context.Context, symbol string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store not initialized")
	}
	var last *int64
	err := s.db.WithContext(ctx).
		Model(&CandleModel{}).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		Select("MAX(open_time)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	return *last, nil
}

func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		return nil, nil
	}
	var models []CandleModel
	err := s.db.WithContext(ctx).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		Order("open_time DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, len(models))
	for i, m := range models {
		// Reverse: rows arrive newest-first, callers expect ascending.
		out[len(models)-1-i] = market.Candle{
			OpenTime:  m.OpenTime,
			CloseTime: m.CloseTime,
			Open:      m.Open,
			High:      m.High,
			Low:       m.Low,
			Close:     m.Close,
			Volume:    m.Volume,
			Trades:    m.Trades,
		}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, symbol string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store not initialized")
	}
	var n int64
	err := s.db.WithContext(ctx).
		Model(&CandleModel{}).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		Count(&n).Error
	return n, err
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
