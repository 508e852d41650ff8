package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sigil/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.txt")
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, path
}

func signal(side market.Side, price float64, at time.Time) market.Signal {
	return market.Signal{Side: side, ClosePrice: price, CloseTime: at}
}

func TestRecordSignalAlternation(t *testing.T) {
	l, _ := openTestLedger(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e, err := l.RecordSignal(signal(market.SideBuy, 100, now))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.Profit.IsZero(), "first entry has no predecessor")

	// Same side again is a no-op.
	e, err = l.RecordSignal(signal(market.SideBuy, 120, now.Add(time.Minute)))
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = l.RecordSignal(signal(market.SideSell, 110, now.Add(2*time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "10", e.Profit.String())

	e, err = l.RecordSignal(signal(market.SideBuy, 105, now.Add(3*time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "5", e.Profit.String())

	entries := l.Entries()
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.NotEqual(t, entries[i-1].Status, entries[i].Status)
	}
}

func TestRecordSignalNoSideIsNoop(t *testing.T) {
	l, _ := openTestLedger(t)

	e, err := l.RecordSignal(signal(market.SideNone, 100, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Empty(t, l.Entries())
}

func TestPersistedFormat(t *testing.T) {
	l, path := openTestLedger(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := l.RecordSignal(signal(market.SideBuy, 100.456, at))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z,100.46,0.00,BUY\n", string(data))
}

func TestReplayRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.txt")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.RecordSignal(signal(market.SideBuy, 100, at))
	require.NoError(t, err)
	_, err = l.RecordSignal(signal(market.SideSell, 110, at.Add(time.Minute)))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries := reopened.Entries()
	require.Len(t, entries, 2)
	last, ok := reopened.Last()
	require.True(t, ok)
	assert.Equal(t, market.SideSell, last.Status)

	// Alternation continues from the replayed tail.
	e, err := reopened.RecordSignal(signal(market.SideSell, 120, at.Add(2*time.Minute)))
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = reopened.RecordSignal(signal(market.SideBuy, 105, at.Add(3*time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "5", e.Profit.String())
}

func TestReplayRejectsBrokenAlternation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.txt")
	content := "2026-03-01T12:00:00Z,100.00,0.00,BUY\n2026-03-01T12:01:00Z,110.00,10.00,BUY\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestLastProfitPercent(t *testing.T) {
	l, _ := openTestLedger(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Zero(t, l.LastProfitPercent())

	_, err := l.RecordSignal(signal(market.SideBuy, 200, at))
	require.NoError(t, err)
	assert.Zero(t, l.LastProfitPercent())

	_, err = l.RecordSignal(signal(market.SideSell, 210, at.Add(time.Minute)))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, l.LastProfitPercent(), 1e-9)
}
