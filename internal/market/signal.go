package market

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideNone Side = ""
)

// Signal is the output of the external analysis engine, consumed read-only.
// Scores[0] is the primary trade score; Scores[1], when present, is the
// secondary score shown alongside it in notifications.
type Signal struct {
	Side       Side      `json:"side"`
	ClosePrice float64   `json:"close_price"`
	CloseTime  time.Time `json:"close_time"`
	Scores     []float64 `json:"scores"`
}

func (s Signal) PrimaryScore() float64 {
	if len(s.Scores) == 0 {
		return 0
	}
	return s.Scores[0]
}

func (s Signal) SecondaryScore() (float64, bool) {
	if len(s.Scores) < 2 {
		return 0, false
	}
	return s.Scores[1], true
}
