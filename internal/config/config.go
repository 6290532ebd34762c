package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Resolver struct {
	// Order lists provider names tried first to last. Reordering the chain
	// is a configuration change, not a code change.
	Order             []string `json:"order"`
	AttemptTimeoutSec int      `json:"attempt_timeout_sec"`
}

type Yahoo struct {
	Enabled         bool   `json:"enabled"`
	Endpoint        string `json:"endpoint"`
	UserAgent       string `json:"user_agent"`
	CacheTTLSeconds int    `json:"cache_ttl_sec"`
	CacheMaxItems   int    `json:"cache_max_items"`
}

type Finnhub struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	Endpoint             string `json:"endpoint"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
	CacheTTLSeconds      int    `json:"cache_ttl_sec"`
	CacheMaxItems        int    `json:"cache_max_items"`
}

type AlphaVantage struct {
	Enabled              bool   `json:"enabled"`
	APIKey               string `json:"api_key"`
	Endpoint             string `json:"endpoint"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
	CacheTTLSeconds      int    `json:"cache_ttl_sec"`
	CacheMaxItems        int    `json:"cache_max_items"`
}

type Analysis struct {
	APIKey    string `json:"api_key"`
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

type Store struct {
	Path string `json:"path"`
}

type Config struct {
	Server       Server       `json:"server"`
	Resolver     Resolver     `json:"resolver"`
	Yahoo        Yahoo        `json:"yahoo"`
	Finnhub      Finnhub      `json:"finnhub"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	Analysis     Analysis     `json:"analysis"`
	Store        Store        `json:"store"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 15},
		Resolver: Resolver{
			Order:             []string{"yahoo", "finnhub", "alphavantage"},
			AttemptTimeoutSec: 10,
		},
		Yahoo: Yahoo{
			Enabled:         true,
			Endpoint:        "https://query1.finance.yahoo.com",
			CacheTTLSeconds: 15,
			CacheMaxItems:   1000,
		},
		Finnhub: Finnhub{
			Enabled:              true,
			Endpoint:             "https://finnhub.io/api/v1",
			MaxRequestsPerMinute: 60,
			Burst:                10,
			CacheTTLSeconds:      15,
			CacheMaxItems:        1000,
		},
		AlphaVantage: AlphaVantage{
			Enabled:              true,
			Endpoint:             "https://www.alphavantage.co",
			MaxRequestsPerMinute: 5,
			Burst:                1,
			CacheTTLSeconds:      60,
			CacheMaxItems:        1000,
		},
		Analysis: Analysis{
			Endpoint:  "https://api.anthropic.com",
			Model:     "claude-3-5-sonnet-latest",
			MaxTokens: 1000,
		},
		Store: Store{Path: "stockdash.json"},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. A .env file and environment variables
// override select fields for secrecy.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := envInt("REQUEST_TIMEOUT_SEC"); v > 0 {
		cfg.Server.RequestTimeoutSec = v
	}
	if v := os.Getenv("RESOLVER_ORDER"); v != "" {
		cfg.Resolver.Order = splitCSV(v)
	}
	if v := envInt("ATTEMPT_TIMEOUT_SEC"); v > 0 {
		cfg.Resolver.AttemptTimeoutSec = v
	}
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	if v, ok := envBool("YAHOO_ENABLED"); ok {
		cfg.Yahoo.Enabled = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Finnhub.APIKey = v
	}
	if v := os.Getenv("FINNHUB_ENDPOINT"); v != "" {
		cfg.Finnhub.Endpoint = v
	}
	if v, ok := envBool("FINNHUB_ENABLED"); ok {
		cfg.Finnhub.Enabled = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_ENDPOINT"); v != "" {
		cfg.AlphaVantage.Endpoint = v
	}
	if v, ok := envBool("ALPHAVANTAGE_ENABLED"); ok {
		cfg.AlphaVantage.Enabled = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Analysis.APIKey = v
	}
	if v := os.Getenv("ANALYSIS_MODEL"); v != "" {
		cfg.Analysis.Model = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	var x int
	_, _ = fmt.Sscanf(v, "%d", &x)
	return x
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
