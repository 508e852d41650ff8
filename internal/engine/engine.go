package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"sigil/internal/analysis"
	"sigil/internal/ledger"
	"sigil/internal/logger"
	"sigil/internal/market"
	"sigil/internal/notify"
	"sigil/internal/stats"
	"sigil/internal/store"
	syncer "sigil/internal/sync"
	"sigil/internal/visual"

	"github.com/google/uuid"
)

// CycleSyncer pulls missing candles up to the cycle boundary.
type CycleSyncer interface {
	SyncCycle(ctx context.Context, boundary time.Time) (syncer.Result, error)
}

// HealthChecker gates the cycle on provider availability.
type HealthChecker interface {
	Check(ctx context.Context) (bool, string)
}

// SignalLedger is the transaction log the engine appends to.
type SignalLedger interface {
	RecordSignal(sig market.Signal) (*ledger.Entry, error)
	Entries() []ledger.Entry
	LastProfitPercent() float64
}

// Notifier is the outbound delivery channel. Nil disables delivery.
type Notifier interface {
	SendText(text string) error
	SendPhoto(image []byte, caption string) error
}

// ChartRenderer produces the overview PNG. Nil disables charts.
type ChartRenderer func(ctx context.Context, in visual.Input) ([]byte, error)

type Config struct {
	Symbol        string
	Interval      time.Duration
	AnalysisDepth int
	WindowWeeks   int
	ChartEnabled  bool
}

// State is a snapshot of the engine for observability endpoints.
type State struct {
	LastCycleAt    time.Time `json:"last_cycle_at"`
	LastBoundary   time.Time `json:"last_boundary"`
	LastError      string    `json:"last_error,omitempty"`
	Degraded       bool      `json:"degraded"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
	CyclesRun      int64     `json:"cycles_run"`
	CyclesSkipped  int64     `json:"cycles_skipped"`
	StoredTotal    int64     `json:"stored_total"`
	LastSide       string    `json:"last_side,omitempty"`
	LastScore      float64   `json:"last_score"`
}

// Engine drives one synchronization cycle: health check, kline sync,
// analysis, notification, ledger append, stats, and the hourly chart.
// Cycles are mutually exclusive; a tick arriving while the previous
// cycle is still running is skipped, not queued.
type Engine struct {
	cfg      Config
	monitor  HealthChecker
	syncer   CycleSyncer
	candles  store.CandleStore
	analyzer analysis.Analyzer
	composer *notify.Composer
	ledger   SignalLedger
	notifier Notifier
	render   ChartRenderer

	nowFn func() time.Time

	runMu sync.Mutex

	stateMu sync.RWMutex
	state   State
}

func New(cfg Config, monitor HealthChecker, cycleSyncer CycleSyncer, candles store.CandleStore, analyzer analysis.Analyzer, composer *notify.Composer, signalLedger SignalLedger, n Notifier, render ChartRenderer) *Engine {
	if cfg.AnalysisDepth <= 0 {
		cfg.AnalysisDepth = 300
	}
	return &Engine{
		cfg:      cfg,
		monitor:  monitor,
		syncer:   cycleSyncer,
		candles:  candles,
		analyzer: analyzer,
		composer: composer,
		ledger:   signalLedger,
		notifier: n,
		render:   render,
		nowFn:    time.Now,
	}
}

// RunCycle executes one full cycle. Every failure path degrades to
// skipping the rest of this cycle; the process never stops here.
func (e *Engine) RunCycle(ctx context.Context) {
	if !e.runMu.TryLock() {
		logger.Warnf("cycle still running, skipping this tick")
		e.updateState(func(s *State) { s.CyclesSkipped++ })
		return
	}
	defer e.runMu.Unlock()

	traceID := uuid.NewString()[:8]
	now := e.nowFn().UTC()
	boundary := now.Truncate(e.cfg.Interval)

	e.updateState(func(s *State) {
		s.LastCycleAt = now
		s.LastBoundary = boundary
		s.LastError = ""
		s.CyclesRun++
	})

	ok, reason := e.monitor.Check(ctx)
	e.updateState(func(s *State) {
		s.Degraded = !ok
		s.DegradedReason = reason
	})
	if !ok {
		logger.Warnf("[%s] provider unhealthy, cycle skipped: %s", traceID, reason)
		return
	}

	res, err := e.syncer.SyncCycle(ctx, boundary)
	if err != nil {
		logger.Errorf("[%s] sync failed: %v", traceID, err)
		e.updateState(func(s *State) { s.LastError = err.Error() })
		return
	}
	e.updateState(func(s *State) { s.StoredTotal += int64(res.Stored) })
	logger.Infof("[%s] sync ok: stored=%d gaps=%d boundary=%s", traceID, res.Stored, res.GapCount, boundary.Format(time.RFC3339))

	recent, err := e.candles.Recent(ctx, e.cfg.Symbol, e.cfg.AnalysisDepth)
	if err != nil {
		logger.Errorf("[%s] load candles failed: %v", traceID, err)
		e.updateState(func(s *State) { s.LastError = err.Error() })
		return
	}

	sig, err := e.analyzer.Analyze(recent)
	if err != nil {
		if errors.Is(err, analysis.ErrNotEnoughData) {
			logger.Infof("[%s] analysis skipped: %v", traceID, err)
		} else {
			logger.Errorf("[%s] analysis failed: %v", traceID, err)
			e.updateState(func(s *State) { s.LastError = err.Error() })
		}
		return
	}
	e.updateState(func(s *State) {
		s.LastSide = string(sig.Side)
		s.LastScore = sig.PrimaryScore()
	})
	logger.Infof("[%s] signal side=%q score=%.4f close=%.2f", traceID, sig.Side, sig.PrimaryScore(), sig.ClosePrice)

	e.notifyCycle(ctx, traceID, sig, recent)
}

// notifyCycle handles the three independent messages plus the hourly
// chart. A transaction is only attempted when the main message passed
// the dead band and frequency filters.
func (e *Engine) notifyCycle(ctx context.Context, traceID string, sig market.Signal, recent []market.Candle) {
	message, ok := e.composer.Compose(sig)
	if ok {
		e.sendText(traceID, message)

		entry, err := e.ledger.RecordSignal(sig)
		if err != nil {
			logger.Errorf("[%s] ledger append failed, transaction not committed: %v", traceID, err)
			e.updateState(func(s *State) { s.LastError = err.Error() })
		} else if entry != nil {
			logger.Infof("[%s] transaction %s price=%s profit=%s", traceID, entry.Status, entry.Price.StringFixed(2), entry.Profit.StringFixed(2))
			e.sendText(traceID, e.composer.ComposeTransaction(*entry, e.ledger.LastProfitPercent()))

			window := time.Duration(e.cfg.WindowWeeks) * 7 * 24 * time.Hour
			snap, err := stats.Compute(e.ledger.Entries(), entry.Status, window, sig.CloseTime)
			if errors.Is(err, stats.ErrInsufficientData) {
				logger.Infof("[%s] stats omitted: insufficient data", traceID)
			} else if err == nil {
				e.sendText(traceID, e.composer.ComposeStats(entry.Status, snap))
			}
		}
	}

	if e.cfg.ChartEnabled && e.render != nil && e.notifier != nil && sig.CloseTime.Minute() == 0 {
		png, err := e.render(ctx, visual.Input{
			Symbol:  e.cfg.Symbol,
			Candles: recent,
			Entries: e.ledger.Entries(),
		})
		if err != nil {
			logger.Errorf("[%s] chart render failed: %v", traceID, err)
			return
		}
		if err := e.notifier.SendPhoto(png, ""); err != nil {
			logger.Errorf("[%s] chart delivery failed: %v", traceID, err)
		}
	}
}

func (e *Engine) sendText(traceID, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendText(text); err != nil {
		logger.Errorf("[%s] notification delivery failed: %v", traceID, err)
	}
}

// Status returns a copy of the engine state.
func (e *Engine) Status() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) updateState(fn func(*State)) {
	e.stateMu.Lock()
	fn(&e.state)
	e.stateMu.Unlock()
}
