package config

import "strings"

const (
	defaultAppEnv        = "dev"
	defaultAppLogLevel   = "info"
	defaultAppHTTPAddr   = ":9985"
	defaultInterval      = "1m"
	defaultRESTBaseURL   = "https://api.binance.com"
	defaultFetchTimeout  = 5
	defaultBackfillLimit = 300
	defaultCandleDB      = "data/candles.db"
	defaultTransactions  = "data/transactions.txt"
	defaultIconStep      = 0.1
	defaultNotifyFreq    = 1
	defaultWindowWeeks   = 4
	defaultAnalysisDepth = 300
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Signal.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.interval", &m.Interval, defaultInterval),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultRESTBaseURL),
		fieldDefault{
			key:   "market.fetch_timeout_seconds",
			need:  func() bool { return m.FetchTimeoutSeconds <= 0 },
			apply: func() { m.FetchTimeoutSeconds = defaultFetchTimeout },
		},
		fieldDefault{
			key:   "market.backfill_limit",
			need:  func() bool { return m.BackfillLimit <= 0 },
			apply: func() { m.BackfillLimit = defaultBackfillLimit },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.candle_db", &s.CandleDB, defaultCandleDB),
		stringFieldDefault("store.transactions_path", &s.TransactionsPath, defaultTransactions),
	)
}

func (s *SignalConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "signal.trade_icon_step",
			need:  func() bool { return s.TradeIconStep == 0 },
			apply: func() { s.TradeIconStep = defaultIconStep },
		},
		fieldDefault{
			key:   "signal.notify_frequency_minutes",
			need:  func() bool { return s.NotifyFrequencyMinutes <= 0 },
			apply: func() { s.NotifyFrequencyMinutes = defaultNotifyFreq },
		},
		fieldDefault{
			key:   "signal.stats_window_weeks",
			need:  func() bool { return s.StatsWindowWeeks <= 0 },
			apply: func() { s.StatsWindowWeeks = defaultWindowWeeks },
		},
		fieldDefault{
			key:   "signal.analysis_depth",
			need:  func() bool { return s.AnalysisDepth <= 0 },
			apply: func() { s.AnalysisDepth = defaultAnalysisDepth },
		},
	)
}

func applyFieldDefaults(keys keySet, defaults ...fieldDefault) {
	for _, def := range defaults {
		if keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
