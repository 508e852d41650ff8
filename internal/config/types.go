package config

import "strings"

// Config is the top-level configuration carrier for sigil.
type Config struct {
	App    AppConfig    `toml:"app"`
	Market MarketConfig `toml:"market"`
	Store  StoreConfig  `toml:"store"`
	Signal SignalConfig `toml:"signal"`
	Notify NotifyConfig `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

type MarketConfig struct {
	Symbols             []string    `toml:"symbols"`
	Interval            string      `toml:"interval"`
	RESTBaseURL         string      `toml:"rest_base_url"`
	FetchTimeoutSeconds int         `toml:"fetch_timeout_seconds"`
	BackfillLimit       int         `toml:"backfill_limit"`
	Proxy               ProxyConfig `toml:"proxy"`
}

// Symbol returns the primary symbol: analysis and notifications operate on
// the first configured symbol, additional symbols are synced only.
func (m MarketConfig) Symbol() string {
	if len(m.Symbols) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(m.Symbols[0]))
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	RESTURL string `toml:"rest_url"`
}

type StoreConfig struct {
	CandleDB         string `toml:"candle_db"`
	TransactionsPath string `toml:"transactions_path"`
}

// SignalConfig enumerates every recognized signal/notification option with
// explicit defaults applied at load time.
type SignalConfig struct {
	BuySignalThreshold     float64 `toml:"buy_signal_threshold"`
	SellSignalThreshold    float64 `toml:"sell_signal_threshold"`
	BuyNotifyThreshold     float64 `toml:"buy_notify_threshold"`
	SellNotifyThreshold    float64 `toml:"sell_notify_threshold"`
	TradeIconStep          float64 `toml:"trade_icon_step"`
	NotifyFrequencyMinutes int     `toml:"notify_frequency_minutes"`
	StatsWindowWeeks       int     `toml:"stats_window_weeks"`
	AnalysisDepth          int     `toml:"analysis_depth"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled      bool   `toml:"enabled"`
	BotToken     string `toml:"bot_token"`
	ChatID       string `toml:"chat_id"`
	ChartEnabled bool   `toml:"chart_enabled"`
}

// keySet tracks which field paths were explicitly set in the config file,
// so defaults never clobber an intentional zero value.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
