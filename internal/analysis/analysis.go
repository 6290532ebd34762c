// Package analysis is the LLM-backed sentiment collaborator. It consumes a
// resolved quote and produces a natural-language judgment with a confidence
// score, degrading to canned text when the model API is unconfigured or
// unreachable, the same chain-then-fallback shape as quote resolution.
package analysis

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"stockdash/internal/quote"
)

const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Analysis is a sentiment judgment for one symbol.
type Analysis struct {
	Symbol     string    `json:"symbol"`
	Text       string    `json:"analysis"`
	Sentiment  string    `json:"sentiment"`
	Confidence int       `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type Analyzer struct {
	cfg    Config
	client *resty.Client

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func New(cfg Config) *Analyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-sonnet-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("anthropic-version", "2023-06-01")
	return &Analyzer{
		cfg:    cfg,
		client: client,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnalyzeQuote produces a sentiment judgment for q. It never fails: without
// an API key, or on any transport or parse error, it returns canned text.
func (a *Analyzer) AnalyzeQuote(ctx context.Context, q quote.Quote) Analysis {
	if a.cfg.APIKey == "" {
		return a.canned(q)
	}
	text, err := a.complete(ctx, quotePrompt(q), a.cfg.MaxTokens)
	if err != nil || strings.TrimSpace(text) == "" {
		return a.canned(q)
	}
	return Analysis{
		Symbol:     q.Symbol,
		Text:       text,
		Sentiment:  extractSentiment(text),
		Confidence: extractConfidence(text),
		Timestamp:  a.now(),
	}
}

// MarketSentiment summarizes the tracked indices in one paragraph, canned
// when the model is unavailable.
func (a *Analyzer) MarketSentiment(ctx context.Context, indices []quote.Index) string {
	if a.cfg.APIKey == "" {
		return cannedMarketSentiment(indices)
	}
	text, err := a.complete(ctx, marketPrompt(indices), 500)
	if err != nil || strings.TrimSpace(text) == "" {
		return cannedMarketSentiment(indices)
	}
	return text
}

func (a *Analyzer) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var out messagesResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("X-API-Key", a.cfg.APIKey).
		SetBody(messagesRequest{
			Model:     a.cfg.Model,
			MaxTokens: maxTokens,
			Messages:  []message{{Role: "user", Content: prompt}},
		}).
		SetResult(&out).
		Post("/v1/messages")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("analysis: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("analysis: empty completion")
	}
	return out.Content[0].Text, nil
}

func quotePrompt(q quote.Quote) string {
	return fmt.Sprintf(`Analyze this stock and reply in under 120 words.

Symbol: %s
Price: $%.2f
Change: %+.2f (%+.2f%%)
Volume: %d
High: $%.2f
Low: $%.2f

Cover the current trend, support/resistance, the short-term outlook, key
risks, and end with a one-word verdict: buy, hold, or sell.`,
		q.Symbol, q.Price, q.Change, q.ChangePercent, q.Volume, q.High, q.Low)
}

func marketPrompt(indices []quote.Index) string {
	lines := make([]string, 0, len(indices))
	for _, idx := range indices {
		lines = append(lines, fmt.Sprintf("%s: %.2f (%+.2f)", idx.Name, idx.Value, idx.Change))
	}
	return fmt.Sprintf(`Today's index levels:
%s

Summarize overall market mood and investor risk appetite in under 60 words.`,
		strings.Join(lines, "\n"))
}

// sentiment keyword buckets scored against the completion text.
var (
	bullishWords = []string{"buy", "bullish", "upside", "strong", "positive", "momentum", "uptrend"}
	bearishWords = []string{"sell", "bearish", "downside", "weak", "negative", "caution", "downtrend"}
)

func extractSentiment(text string) string {
	lower := strings.ToLower(text)
	var bulls, bears int
	for _, w := range bullishWords {
		if strings.Contains(lower, w) {
			bulls++
		}
	}
	for _, w := range bearishWords {
		if strings.Contains(lower, w) {
			bears++
		}
	}
	switch {
	case bulls > bears:
		return SentimentBullish
	case bears > bulls:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

func extractConfidence(text string) int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "certain") || strings.Contains(lower, "strong"):
		return 90
	case strings.Contains(lower, "likely") || strings.Contains(lower, "recommend"):
		return 80
	case strings.Contains(lower, "expect") || strings.Contains(lower, "outlook"):
		return 70
	case strings.Contains(lower, "caution") || strings.Contains(lower, "uncertain"):
		return 50
	}
	return 65
}

var cannedTexts = map[string]string{
	SentimentBullish: "%s is showing strength. Momentum at $%.2f remains constructive and technical signals lean positive.",
	SentimentBearish: "%s is under pressure. Selling around $%.2f suggests a short-term pullback is likely.",
	SentimentNeutral: "%s is range-bound. The price near $%.2f lacks clear direction; more observation is needed before acting.",
}

func (a *Analyzer) canned(q quote.Quote) Analysis {
	a.mu.Lock()
	sentiment := []string{SentimentBullish, SentimentBearish, SentimentNeutral}[a.rnd.Intn(3)]
	confidence := a.rnd.Intn(31) + 60
	a.mu.Unlock()
	return Analysis{
		Symbol:     q.Symbol,
		Text:       fmt.Sprintf(cannedTexts[sentiment], q.Symbol, q.Price),
		Sentiment:  sentiment,
		Confidence: confidence,
		Timestamp:  a.now(),
	}
}

func cannedMarketSentiment(indices []quote.Index) string {
	if len(indices) == 0 {
		return "No index data is available right now."
	}
	var positive int
	for _, idx := range indices {
		if idx.Change > 0 {
			positive++
		}
	}
	ratio := float64(positive) / float64(len(indices))
	switch {
	case ratio > 0.7:
		return "Markets are broadly higher. Most major indices are advancing and risk appetite is improving."
	case ratio < 0.3:
		return "Markets are broadly lower. Declines across the major indices point to a cautious, risk-off mood."
	default:
		return "Markets are mixed. Some indices are up while others slip, with no clear direction yet."
	}
}
