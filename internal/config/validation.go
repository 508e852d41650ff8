package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Signal.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if len(m.Symbols) == 0 {
		return fmt.Errorf("market.symbols requires at least one symbol")
	}
	for _, sym := range m.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("market.symbols contains an empty symbol")
		}
	}
	if !IsValidInterval(m.Interval) {
		return fmt.Errorf("market.interval is not a valid interval: %q", m.Interval)
	}
	if strings.TrimSpace(m.RESTBaseURL) == "" {
		return fmt.Errorf("market.rest_base_url cannot be empty")
	}
	if m.Proxy.Enabled && strings.TrimSpace(m.Proxy.RESTURL) == "" {
		return fmt.Errorf("market.proxy enabled but no rest_url configured")
	}
	return nil
}

func (s *SignalConfig) validate() error {
	if s.BuyNotifyThreshold < s.SellNotifyThreshold {
		return fmt.Errorf("signal.buy_notify_threshold must be >= signal.sell_notify_threshold")
	}
	if s.TradeIconStep < 0 {
		return fmt.Errorf("signal.trade_icon_step must be >= 0")
	}
	if s.NotifyFrequencyMinutes <= 0 {
		return fmt.Errorf("signal.notify_frequency_minutes must be > 0")
	}
	if s.StatsWindowWeeks <= 0 {
		return fmt.Errorf("signal.stats_window_weeks must be > 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

// IsValidInterval checks the "<digits><m|h|d|w>" shape, e.g. "1m", "4h".
func IsValidInterval(s string) bool {
	if len(s) < 2 {
		return false
	}
	suf := s[len(s)-1]
	if suf != 'm' && suf != 'h' && suf != 'd' && suf != 'w' {
		return false
	}
	for i := 0; i < len(s)-1; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
