package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sigil/internal/market"

	"github.com/shopspring/decimal"
)

// Entry is one executed leg. Statuses strictly alternate in ledger order:
// a BUY is only ever followed by a SELL and vice versa.
type Entry struct {
	Timestamp time.Time
	Price     decimal.Decimal
	Profit    decimal.Decimal
	Status    market.Side
}

// Ledger is an append-only transaction log persisted as CSV lines of
// `timestamp,price,profit,status`, floats with two decimal digits.
// Single writer; entries are never mutated or truncated.
type Ledger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	entries []Entry
}

// Open loads any existing ledger file and opens it for appending.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger: create dir: %w", err)
		}
	}

	entries, err := replay(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	return &Ledger{path: path, file: f, entries: entries}, nil
}

func replay(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		e, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("ledger: line %d: %w", line, err)
		}
		if n := len(entries); n > 0 && entries[n-1].Status == e.Status {
			return nil, fmt.Errorf("ledger: line %d: consecutive %s entries", line, e.Status)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ledger: read: %w", err)
	}
	return entries, nil
}

func parseLine(text string) (Entry, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 4 {
		return Entry{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Entry{}, fmt.Errorf("bad timestamp %q: %w", parts[0], err)
	}
	price, err := decimal.NewFromString(parts[1])
	if err != nil {
		return Entry{}, fmt.Errorf("bad price %q: %w", parts[1], err)
	}
	profit, err := decimal.NewFromString(parts[2])
	if err != nil {
		return Entry{}, fmt.Errorf("bad profit %q: %w", parts[2], err)
	}
	status := market.Side(parts[3])
	if status != market.SideBuy && status != market.SideSell {
		return Entry{}, fmt.Errorf("bad status %q", parts[3])
	}
	return Entry{Timestamp: ts.UTC(), Price: price, Profit: profit, Status: status}, nil
}

// RecordSignal applies the alternation rule. A transaction is created only
// when the signal carries a side different from the last entry's status;
// everything else is a no-op. The entry is durably appended before it is
// committed in memory, so an append failure means not executed.
func (l *Ledger) RecordSignal(sig market.Signal) (*Entry, error) {
	if sig.Side != market.SideBuy && sig.Side != market.SideSell {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var prev *Entry
	if n := len(l.entries); n > 0 {
		prev = &l.entries[n-1]
		if prev.Status == sig.Side {
			return nil, nil
		}
	}

	price := decimal.NewFromFloat(sig.ClosePrice)
	profit := decimal.Zero
	if prev != nil {
		if sig.Side == market.SideBuy {
			// Closing a short: gain when price fell since the sell.
			profit = prev.Price.Sub(price)
		} else {
			profit = price.Sub(prev.Price)
		}
	}

	e := Entry{
		Timestamp: sig.CloseTime.UTC(),
		Price:     price,
		Profit:    profit,
		Status:    sig.Side,
	}
	if err := l.append(e); err != nil {
		return nil, err
	}
	l.entries = append(l.entries, e)
	return &e, nil
}

func (l *Ledger) append(e Entry) error {
	line := fmt.Sprintf("%s,%s,%s,%s\n",
		e.Timestamp.Format(time.RFC3339),
		e.Price.StringFixed(2),
		e.Profit.StringFixed(2),
		e.Status,
	)
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("ledger: sync: %w", err)
	}
	return nil
}

// Last returns the most recent entry, if any.
func (l *Ledger) Last() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Entries returns a copy of the full ledger in append order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LastProfitPercent is the last entry's profit relative to the entry
// before it, in percent. Zero when fewer than two entries exist.
func (l *Ledger) LastProfitPercent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if n < 2 {
		return 0
	}
	prev := l.entries[n-2].Price
	if prev.IsZero() {
		return 0
	}
	pct := l.entries[n-1].Profit.Div(prev).Mul(decimal.NewFromInt(100))
	f, _ := pct.Float64()
	return f
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
