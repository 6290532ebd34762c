package quote

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized shape returned by resolution, live or synthetic.
// Price-like fields are rounded to two decimals before a quote is final.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreviousClose float64 `json:"previousClose"`
	Volume        int64   `json:"volume"`
	Timestamp     Day     `json:"timestamp"`
}

// Rounded returns a copy with all price-like fields rounded to two decimals.
// Rounding an already rounded quote is a no-op.
func (q Quote) Rounded() Quote {
	q.Price = Round2(q.Price)
	q.Change = Round2(q.Change)
	q.ChangePercent = Round2(q.ChangePercent)
	q.Open = Round2(q.Open)
	q.High = Round2(q.High)
	q.Low = Round2(q.Low)
	q.PreviousClose = Round2(q.PreviousClose)
	return q
}

// Point is one entry of a historical series.
type Point struct {
	Timestamp Day     `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume,omitempty"`
}

// Series is a historical price series, ascending by day.
type Series []Point

// Sort orders the series ascending by timestamp in place.
func (s Series) Sort() {
	sort.Slice(s, func(i, j int) bool { return s[i].Timestamp.Before(s[j].Timestamp.Time) })
}

// Index is a market index snapshot.
type Index struct {
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// NormalizeSymbol upper-cases and trims an instrument symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Day is a calendar date with no time-of-day component, kept in UTC.
type Day struct {
	time.Time
}

const dayLayout = "2006-01-02"

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) Day {
	u := t.UTC()
	return Day{time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Today is the current UTC calendar day.
func Today() Day { return DayOf(time.Now()) }

func (d Day) String() string { return d.Format(dayLayout) }

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dayLayout) + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Day{}
		return nil
	}
	t, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse day %q: %w", s, err)
	}
	*d = Day{t}
	return nil
}
