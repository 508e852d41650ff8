package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"sigil/internal/ledger"
	"sigil/internal/market"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"

	chartWidthPx  = 1600
	chartHeightPx = 700

	hourMs = int64(time.Hour / time.Millisecond)

	// Two weeks of hourly buckets.
	overviewHours = 2 * 7 * 24
)

// Input is the data behind one overview image: the stored candle series
// plus the transactions to mark on it.
type Input struct {
	Symbol  string
	Candles []market.Candle
	Entries []ledger.Entry
}

// RenderOverview resamples the series to hourly buckets, draws a kline
// chart with buy/sell markers and renders it to PNG in headless Chrome.
func RenderOverview(ctx context.Context, in Input) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, err
	}
	if in.Symbol == "" {
		return nil, fmt.Errorf("symbol required for overview render")
	}
	hourly := resampleHourly(in.Candles)
	if len(hourly) == 0 {
		return nil, fmt.Errorf("no candles to render for %s", in.Symbol)
	}
	if len(hourly) > overviewHours {
		hourly = hourly[len(hourly)-overviewHours:]
	}

	html, err := buildOverviewHTML(in.Symbol, hourly, in.Entries)
	if err != nil {
		return nil, err
	}
	return renderHTMLToPNG(ctx, html, chartWidthPx, chartHeightPx)
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable probes for a usable headless browser once per
// process. Rendering is skipped entirely when none is installed.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// resampleHourly folds ascending candles into hourly OHLCV buckets.
func resampleHourly(candles []market.Candle) []market.Candle {
	var out []market.Candle
	for _, c := range candles {
		bucket := c.OpenTime - c.OpenTime%hourMs
		if n := len(out); n > 0 && out[n-1].OpenTime == bucket {
			cur := &out[n-1]
			if c.High > cur.High {
				cur.High = c.High
			}
			if c.Low < cur.Low {
				cur.Low = c.Low
			}
			cur.Close = c.Close
			cur.CloseTime = c.CloseTime
			cur.Volume += c.Volume
			cur.Trades += c.Trades
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  bucket,
			CloseTime: c.CloseTime,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			Trades:    c.Trades,
		})
	}
	return out
}

func buildOverviewHTML(symbol string, hourly []market.Candle, entries []ledger.Entry) ([]byte, error) {
	minPrice, maxPrice := priceBounds(hourly)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      strings.ToUpper(symbol),
			Left:       "left",
			Top:        "10",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 4),
			Max:       round(maxPrice+padding, 4),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	xAxis := make([]string, len(hourly))
	data := make([]opts.KlineData, len(hourly))
	for i, c := range hourly {
		xAxis[i] = time.UnixMilli(c.OpenTime).UTC().Format("01-02 15:04")
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data)

	buys, sells := markerSeries(hourly, entries)
	markers := charts.NewScatter()
	markers.SetXAxis(xAxis)
	markers.AddSeries("BUY", buys,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBull}),
	)
	markers.AddSeries("SELL", sells,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBear}),
	)
	kline.Overlap(markers)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(kline)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// markerSeries aligns transactions to hourly buckets. Buys sit below the
// bucket close, sells above, so overlapping marks stay readable.
func markerSeries(hourly []market.Candle, entries []ledger.Entry) (buys, sells []opts.ScatterData) {
	buckets := make(map[int64]int, len(hourly))
	for i, c := range hourly {
		buckets[c.OpenTime] = i
	}
	buys = make([]opts.ScatterData, len(hourly))
	sells = make([]opts.ScatterData, len(hourly))
	for i := range hourly {
		buys[i] = opts.ScatterData{Value: nil}
		sells[i] = opts.ScatterData{Value: nil}
	}
	for _, e := range entries {
		ms := e.Timestamp.UnixMilli()
		idx, ok := buckets[ms-ms%hourMs]
		if !ok {
			continue
		}
		price, _ := e.Price.Float64()
		offset := hourly[idx].Close * 0.002
		if e.Status == market.SideBuy {
			buys[idx] = opts.ScatterData{Value: round(price-offset, 4), Symbol: "triangle", SymbolSize: 12}
		} else {
			sells[idx] = opts.ScatterData{Value: round(price+offset, 4), Symbol: "triangle", SymbolSize: 12, SymbolRotate: 180}
		}
	}
	return buys, sells
}

func priceBounds(candles []market.Candle) (minVal, maxVal float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	minVal = candles[0].Low
	maxVal = candles[0].High
	for _, c := range candles {
		if c.Low < minVal {
			minVal = c.Low
		}
		if c.High > maxVal {
			maxVal = c.High
		}
	}
	return minVal, maxVal
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
