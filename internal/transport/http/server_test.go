package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"sigil/internal/engine"
	"sigil/internal/ledger"
	"sigil/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *ledger.Ledger) {
	t.Helper()
	led, err := ledger.Open(filepath.Join(t.TempDir(), "transactions.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = led.Close() })

	eng := engine.New(engine.Config{Symbol: "BTCUSDT", Interval: time.Minute}, nil, nil, nil, nil, nil, led, nil, nil)
	srv, err := NewServer(ServerConfig{Addr: ":0", Engine: eng, Ledger: led, WindowWeeks: 4})
	require.NoError(t, err)
	return srv, led
}

func record(t *testing.T, led *ledger.Ledger, side market.Side, price float64, at time.Time) {
	t.Helper()
	e, err := led.RecordSignal(market.Signal{Side: side, ClosePrice: price, CloseTime: at})
	require.NoError(t, err)
	require.NotNil(t, e)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var st engine.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Zero(t, st.CyclesRun)
}

func TestTransactionsEndpoint(t *testing.T) {
	srv, led := newTestServer(t)
	now := time.Now().UTC().Truncate(time.Second)
	record(t, led, market.SideBuy, 100, now.Add(-2*time.Minute))
	record(t, led, market.SideSell, 110, now.Add(-time.Minute))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count        int `json:"count"`
		Transactions []struct {
			Price  string `json:"price"`
			Status string `json:"status"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "100.00", body.Transactions[0].Price)
	assert.Equal(t, "SELL", body.Transactions[1].Status)
}

func TestStatsEndpoint(t *testing.T) {
	srv, led := newTestServer(t)
	now := time.Now().UTC()
	record(t, led, market.SideBuy, 100, now.Add(-2*time.Minute))
	record(t, led, market.SideSell, 110, now.Add(-time.Minute))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?side=SELL", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Side   string `json:"side"`
		Profit struct {
			Count int     `json:"Count"`
			Mean  float64 `json:"Mean"`
		} `json:"profit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SELL", body.Side)
	assert.Equal(t, 1, body.Profit.Count)
	assert.Equal(t, 10.0, body.Profit.Mean)
}

func TestStatsEndpointInsufficientData(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"insufficient_data":true`)
}

func TestStatsEndpointRejectsBadSide(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?side=HODL", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
