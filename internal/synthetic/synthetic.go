// Package synthetic generates plausible placeholder market data. It is the
// terminal fallback of the resolver chain and must never fail: when every
// live provider is down the dashboard still renders internally consistent
// numbers anchored at a per-symbol baseline price.
package synthetic

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"stockdash/internal/quote"
)

// baselines anchors synthetic prices near real-world levels.
var baselines = map[string]float64{
	"AAPL":  201.08,
	"GOOGL": 163.50,
	"MSFT":  428.70,
	"TSLA":  251.52,
	"AMZN":  186.25,
	"NVDA":  125.98,
	"META":  514.72,
	"NFLX":  682.45,
	"SPY":   550.23,
	"QQQ":   485.67,
	"DIA":   410.85,
	"IWM":   220.45,
}

// DefaultBaseline anchors symbols absent from the baseline table.
const DefaultBaseline = 150.00

// volumeClass scales cosmetic volume for the most liquid names.
var volumeClass = map[string]float64{
	"AAPL": 100,
	"TSLA": 80,
}

const defaultVolumeClass = 50

// indexBaselines anchors the tracked market indices.
var indexBaselines = map[string]float64{
	"S&P 500":      4500,
	"NASDAQ":       14000,
	"Dow Jones":    35000,
	"Russell 2000": 2000,
}

// IndexNames lists the tracked indices in display order.
var IndexNames = []string{"S&P 500", "NASDAQ", "Dow Jones", "Russell 2000"}

// Baseline returns the anchor price for a symbol.
func Baseline(symbol string) float64 {
	if b, ok := baselines[quote.NormalizeSymbol(symbol)]; ok {
		return b
	}
	return DefaultBaseline
}

// Generator produces synthetic quotes, series and index snapshots.
// The random source is injectable so tests can seed it; a Generator is
// safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// New returns a generator seeded from the wall clock.
func New() *Generator {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a generator drawing from src.
func NewWithSource(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src), now: time.Now}
}

func (g *Generator) float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

// Quote builds a synthetic quote for symbol. The constructive invariant is
// high >= max(price, baseline) and low <= min(price, baseline).
func (g *Generator) Quote(symbol string) quote.Quote {
	symbol = quote.NormalizeSymbol(symbol)
	base := Baseline(symbol)

	// daily move within +-3%
	changePct := (g.float64() - 0.5) * 6
	change := base * changePct / 100
	price := base + change

	// intraday range of 1-3% around the day's extremes
	volatility := g.float64()*2 + 1
	high := math.Max(price, base) + g.float64()*volatility/100*base
	low := math.Min(price, base) - g.float64()*volatility/100*base
	if low < 0 {
		low = 0
	}

	// open within +-2% of the previous close
	open := base + (g.float64()-0.5)*0.02*base

	class := volumeClass[symbol]
	if class == 0 {
		class = defaultVolumeClass
	}
	volume := int64((g.float64()*50 + 10) * class * 1_000_000)

	return quote.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Open:          open,
		High:          high,
		Low:           low,
		PreviousClose: base,
		Volume:        volume,
		Timestamp:     quote.DayOf(g.now()),
	}.Rounded()
}

// History builds one point per calendar day in the window, ascending and
// ending today. Prices perturb the baseline by up to +-10% and never fall
// below 90% of it.
func (g *Generator) History(symbol string, rng quote.Range) quote.Series {
	base := Baseline(symbol)
	days := rng.Days()
	out := make(quote.Series, 0, days+1)
	today := quote.DayOf(g.now())
	for i := days; i >= 0; i-- {
		price := base + (g.float64()-0.5)*base*0.1
		if floor := base * 0.9; price < floor {
			price = floor
		}
		out = append(out, quote.Point{
			Timestamp: quote.DayOf(today.AddDate(0, 0, -i)),
			Price:     quote.Round2(price),
			Volume:    int64(g.float64() * 10_000_000),
		})
	}
	return out
}

// Index builds a synthetic snapshot for a tracked index name. Unknown names
// anchor at 1000.
func (g *Generator) Index(name string) quote.Index {
	base, ok := indexBaselines[name]
	if !ok {
		base = 1000
	}
	change := (g.float64() - 0.5) * base * 0.02
	return quote.Index{
		Name:          name,
		Value:         quote.Round2(base + change),
		Change:        quote.Round2(change),
		ChangePercent: quote.Round2(change / base * 100),
	}
}

// Indices builds snapshots for all tracked indices.
func (g *Generator) Indices() []quote.Index {
	out := make([]quote.Index, 0, len(IndexNames))
	for _, name := range IndexNames {
		out = append(out, g.Index(name))
	}
	return out
}
