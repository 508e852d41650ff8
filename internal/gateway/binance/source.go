package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sigil/internal/market"

	binancesdk "github.com/adshao/go-binance/v2"
	"github.com/tidwall/gjson"
)

const maxKlineLimit = 1000

// Source implements market.Source on the go-binance spot SDK. The system
// status endpoint is not wrapped by the SDK, so it is queried directly.
type Source struct {
	cfg        Config
	client     *binancesdk.Client
	httpClient *http.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := binancesdk.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{
		cfg:        final,
		client:     client,
		httpClient: httpClient,
	}, nil
}

func (s *Source) FetchKlines(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 1
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	svc := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
	if endTime > 0 {
		svc = svc.EndTime(endTime)
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}

// SystemStatus queries /sapi/v1/system/status: {"status":0,"msg":"normal"}.
// 0 means normal, 1 means system maintenance.
func (s *Source) SystemStatus(ctx context.Context) (market.SystemStatus, error) {
	endpoint := strings.TrimRight(s.cfg.RESTBaseURL, "/") + "/sapi/v1/system/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return market.SystemStatus{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return market.SystemStatus{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return market.SystemStatus{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return market.SystemStatus{}, fmt.Errorf("system status http %d", resp.StatusCode)
	}
	return parseSystemStatus(body)
}

func parseSystemStatus(body []byte) (market.SystemStatus, error) {
	if !gjson.ValidBytes(body) {
		return market.SystemStatus{}, fmt.Errorf("system status: invalid json")
	}
	doc := gjson.ParseBytes(body)
	status := doc.Get("status")
	if !status.Exists() {
		return market.SystemStatus{}, fmt.Errorf("system status: missing status field")
	}
	return market.SystemStatus{
		Status:  int(status.Int()),
		Message: doc.Get("msg").String(),
	}, nil
}

func (s *Source) Close() error { return nil }

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
