// Package store holds the dashboard's mutable view state: the watchlist,
// the portfolio, and user settings. Each container has an explicit mutation
// API and is lifecycled independently of the resolver; resolver output is
// passed in, never coupled.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"stockdash/internal/quote"
)

// Store bundles the three state containers with optional JSON persistence.
type Store struct {
	Watchlist *Watchlist
	Portfolio *Portfolio
	Settings  *Settings
}

// New returns a store with the default watchlist and settings.
func New() *Store {
	return &Store{
		Watchlist: NewWatchlist("AAPL", "GOOGL", "MSFT", "TSLA"),
		Portfolio: &Portfolio{},
		Settings:  NewSettings(),
	}
}

type snapshot struct {
	Watchlist []string     `json:"watchlist"`
	Portfolio []Position   `json:"portfolio"`
	Settings  UserSettings `json:"settings"`
}

// Load reads a persisted store from path. A missing file yields defaults.
func Load(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read store: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return s, fmt.Errorf("parse store: %w", err)
	}
	if len(snap.Watchlist) > 0 {
		s.Watchlist = NewWatchlist(snap.Watchlist...)
	}
	s.Portfolio = &Portfolio{positions: snap.Portfolio}
	if snap.Settings.RefreshIntervalSec > 0 {
		s.Settings.Update(snap.Settings)
	}
	return s, nil
}

// Save writes the store to path.
func (s *Store) Save(path string) error {
	if path == "" {
		return nil
	}
	snap := snapshot{
		Watchlist: s.Watchlist.Symbols(),
		Portfolio: s.Portfolio.Positions(),
		Settings:  s.Settings.Get(),
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Watchlist is an ordered, deduplicated set of symbols.
type Watchlist struct {
	mu      sync.RWMutex
	symbols []string
}

func NewWatchlist(symbols ...string) *Watchlist {
	w := &Watchlist{}
	for _, s := range symbols {
		w.Add(s)
	}
	return w
}

// Add appends a symbol; returns false if it was already present.
func (w *Watchlist) Add(symbol string) bool {
	symbol = quote.NormalizeSymbol(symbol)
	if symbol == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.symbols {
		if s == symbol {
			return false
		}
	}
	w.symbols = append(w.symbols, symbol)
	return true
}

// Remove drops a symbol; returns false if it was not present.
func (w *Watchlist) Remove(symbol string) bool {
	symbol = quote.NormalizeSymbol(symbol)
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.symbols {
		if s == symbol {
			w.symbols = append(w.symbols[:i], w.symbols[i+1:]...)
			return true
		}
	}
	return false
}

// Symbols returns a copy of the list in insertion order.
func (w *Watchlist) Symbols() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out
}

// Position is one portfolio lot.
type Position struct {
	Symbol  string  `json:"symbol"`
	Shares  float64 `json:"shares"`
	AvgCost float64 `json:"avgCost"`
}

// Holding is a position valued at a current price.
type Holding struct {
	Position
	CurrentPrice    float64 `json:"currentPrice"`
	MarketValue     float64 `json:"totalValue"`
	GainLoss        float64 `json:"gainLoss"`
	GainLossPercent float64 `json:"gainLossPercent"`
}

// Valuation is the portfolio marked to market.
type Valuation struct {
	Holdings         []Holding `json:"holdings"`
	TotalValue       float64   `json:"totalValue"`
	TotalCost        float64   `json:"totalCost"`
	TotalGain        float64   `json:"totalGain"`
	TotalGainPercent float64   `json:"totalGainPercent"`
}

// Portfolio is the set of held positions, one per symbol.
type Portfolio struct {
	mu        sync.RWMutex
	positions []Position
}

// Add inserts a position, replacing any existing lot for the same symbol.
func (p *Portfolio) Add(pos Position) {
	pos.Symbol = quote.NormalizeSymbol(pos.Symbol)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.positions {
		if cur.Symbol == pos.Symbol {
			p.positions[i] = pos
			return
		}
	}
	p.positions = append(p.positions, pos)
}

// Remove drops the position for symbol; returns false if absent.
func (p *Portfolio) Remove(symbol string) bool {
	symbol = quote.NormalizeSymbol(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.positions {
		if cur.Symbol == symbol {
			p.positions = append(p.positions[:i], p.positions[i+1:]...)
			return true
		}
	}
	return false
}

// Update adjusts shares and average cost for symbol; returns false if absent.
func (p *Portfolio) Update(symbol string, shares, avgCost float64) bool {
	symbol = quote.NormalizeSymbol(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.positions {
		if cur.Symbol == symbol {
			p.positions[i].Shares = shares
			p.positions[i].AvgCost = avgCost
			return true
		}
	}
	return false
}

// Positions returns a copy of all positions.
func (p *Portfolio) Positions() []Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Position, len(p.positions))
	copy(out, p.positions)
	return out
}

// Symbols returns the held symbols in position order.
func (p *Portfolio) Symbols() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos.Symbol)
	}
	return out
}

// Valuation marks the portfolio to the given prices. Symbols without a
// price are valued at cost.
func (p *Portfolio) Valuation(prices map[string]float64) Valuation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := Valuation{Holdings: make([]Holding, 0, len(p.positions))}
	for _, pos := range p.positions {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			price = pos.AvgCost
		}
		h := Holding{
			Position:     pos,
			CurrentPrice: price,
			MarketValue:  quote.Round2(price * pos.Shares),
			GainLoss:     quote.Round2((price - pos.AvgCost) * pos.Shares),
		}
		if cost := pos.AvgCost * pos.Shares; cost > 0 {
			h.GainLossPercent = quote.Round2(h.GainLoss / cost * 100)
		}
		v.Holdings = append(v.Holdings, h)
		v.TotalValue += h.MarketValue
		v.TotalCost += pos.AvgCost * pos.Shares
		v.TotalGain += h.GainLoss
	}
	v.TotalValue = quote.Round2(v.TotalValue)
	v.TotalCost = quote.Round2(v.TotalCost)
	v.TotalGain = quote.Round2(v.TotalGain)
	if v.TotalCost > 0 {
		v.TotalGainPercent = quote.Round2(v.TotalGain / v.TotalCost * 100)
	}
	return v
}

// UserSettings drive how often callers refresh quotes. Scheduling is a
// caller concern; nothing here triggers resolution on its own.
type UserSettings struct {
	FavoriteSymbols    []string    `json:"favoriteSymbols"`
	RefreshIntervalSec int         `json:"refreshIntervalSec"`
	AutoRefresh        bool        `json:"autoRefresh"`
	ChartRange         quote.Range `json:"chartRange"`
	Theme              string      `json:"theme"`
}

type Settings struct {
	mu sync.RWMutex
	s  UserSettings
}

func NewSettings() *Settings {
	return &Settings{s: UserSettings{
		FavoriteSymbols:    []string{"AAPL", "GOOGL", "MSFT"},
		RefreshIntervalSec: 5,
		AutoRefresh:        true,
		ChartRange:         quote.Range1Mo,
		Theme:              "light",
	}}
}

func (s *Settings) Get() UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.s
	out.FavoriteSymbols = append([]string(nil), s.s.FavoriteSymbols...)
	return out
}

// Update replaces the settings wholesale, keeping prior values for unset
// fields.
func (s *Settings) Update(next UserSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next.FavoriteSymbols != nil {
		s.s.FavoriteSymbols = next.FavoriteSymbols
	}
	if next.RefreshIntervalSec > 0 {
		s.s.RefreshIntervalSec = next.RefreshIntervalSec
	}
	if next.ChartRange != "" {
		s.s.ChartRange = next.ChartRange
	}
	if next.Theme != "" {
		s.s.Theme = next.Theme
	}
	s.s.AutoRefresh = next.AutoRefresh
}
