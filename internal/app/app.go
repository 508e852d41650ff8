package app

import (
	"context"
	"fmt"
	"time"

	"sigil/internal/analysis"
	"sigil/internal/config"
	"sigil/internal/engine"
	gwbinance "sigil/internal/gateway/binance"
	"sigil/internal/gateway/notifier"
	"sigil/internal/health"
	"sigil/internal/ledger"
	"sigil/internal/logger"
	"sigil/internal/notify"
	"sigil/internal/scheduler"
	"sigil/internal/store/gormstore"
	syncer "sigil/internal/sync"
	httpapi "sigil/internal/transport/http"
	"sigil/internal/visual"

	"golang.org/x/sync/errgroup"
)

// cycleOffset delays each run slightly past the candle close so the
// exchange has published the finished candle before we fetch it.
const cycleOffset = 2 * time.Second

// App owns application-level orchestration: build dependencies from
// config, then run the HTTP server and the aligned cycle loop.
type App struct {
	cfg      *config.Config
	interval time.Duration

	source  *gwbinance.Source
	candles *gormstore.Store
	ledger  *ledger.Ledger
	engine  *engine.Engine
	httpSrv *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	interval, ok := scheduler.ParseIntervalDuration(cfg.Market.Interval)
	if !ok {
		return nil, fmt.Errorf("invalid interval %q", cfg.Market.Interval)
	}
	fetchTimeout := time.Duration(cfg.Market.FetchTimeoutSeconds) * time.Second

	source, err := gwbinance.New(gwbinance.Config{
		RESTBaseURL:  cfg.Market.RESTBaseURL,
		HTTPTimeout:  fetchTimeout + 5*time.Second,
		ProxyEnabled: cfg.Market.Proxy.Enabled,
		RESTProxyURL: cfg.Market.Proxy.RESTURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init market source: %w", err)
	}

	candles, err := gormstore.New(cfg.Store.CandleDB)
	if err != nil {
		return nil, fmt.Errorf("init candle store: %w", err)
	}

	led, err := ledger.Open(cfg.Store.TransactionsPath)
	if err != nil {
		return nil, fmt.Errorf("open transaction ledger: %w", err)
	}

	monitor := health.NewMonitor(source)
	cycleSyncer := syncer.NewSyncer(
		source, candles,
		cfg.Market.Symbols, cfg.Market.Interval,
		interval, fetchTimeout, cfg.Market.BackfillLimit,
	)
	analyzer := analysis.NewMomentum(cfg.Signal.BuySignalThreshold, cfg.Signal.SellSignalThreshold)
	composer := notify.NewComposer(notify.Config{
		Symbol:                 cfg.Market.Symbol(),
		BuySignalThreshold:     cfg.Signal.BuySignalThreshold,
		SellSignalThreshold:    cfg.Signal.SellSignalThreshold,
		BuyNotifyThreshold:     cfg.Signal.BuyNotifyThreshold,
		SellNotifyThreshold:    cfg.Signal.SellNotifyThreshold,
		IconStep:               cfg.Signal.TradeIconStep,
		NotifyFrequencyMinutes: cfg.Signal.NotifyFrequencyMinutes,
		WindowWeeks:            cfg.Signal.StatsWindowWeeks,
	})

	var outbound engine.Notifier
	chartEnabled := false
	if cfg.Notify.Telegram.Enabled {
		outbound = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		chartEnabled = cfg.Notify.Telegram.ChartEnabled
	} else {
		logger.Warnf("telegram disabled, notifications will not be delivered")
	}

	var render engine.ChartRenderer
	if chartEnabled {
		render = visual.RenderOverview
	}

	eng := engine.New(engine.Config{
		Symbol:        cfg.Market.Symbol(),
		Interval:      interval,
		AnalysisDepth: cfg.Signal.AnalysisDepth,
		WindowWeeks:   cfg.Signal.StatsWindowWeeks,
		ChartEnabled:  chartEnabled,
	}, monitor, cycleSyncer, candles, analyzer, composer, led, outbound, render)

	httpSrv, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:        cfg.App.HTTPAddr,
		Engine:      eng,
		Ledger:      led,
		WindowWeeks: cfg.Signal.StatsWindowWeeks,
	})
	if err != nil {
		return nil, fmt.Errorf("init http server: %w", err)
	}

	return &App{
		cfg:      cfg,
		interval: interval,
		source:   source,
		candles:  candles,
		ledger:   led,
		engine:   eng,
		httpSrv:  httpSrv,
	}, nil
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	logger.Infof("sigil started: symbol=%s interval=%s http=%s",
		a.cfg.Market.Symbol(), a.cfg.Market.Interval, a.httpSrv.Addr())

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, a.interval, cycleOffset)
		sched.Start(func() { a.engine.RunCycle(ctx) })
		return nil
	})

	return group.Wait()
}

func (a *App) close() {
	if err := a.ledger.Close(); err != nil {
		logger.Warnf("close ledger: %v", err)
	}
	if err := a.candles.Close(); err != nil {
		logger.Warnf("close candle store: %v", err)
	}
	_ = a.source.Close()
}
