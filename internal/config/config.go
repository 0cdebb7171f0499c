package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Reddit API
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	RedditRateLimit    int
	FetchTimeout       time.Duration

	// Search defaults
	SearchLimit        int
	SearchTimeFilter   string
	MinScore           int
	RelevanceThreshold float64
	MaxComments        int
	MinContentLength   int
	PostPause          time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.RedditClientID = os.Getenv("REDDIT_CLIENT_ID")
	if cfg.RedditClientID == "" {
		missing = append(missing, "REDDIT_CLIENT_ID")
	}

	cfg.RedditClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	if cfg.RedditClientSecret == "" {
		missing = append(missing, "REDDIT_CLIENT_SECRET")
	}

	cfg.RedditUserAgent = os.Getenv("REDDIT_USER_AGENT")
	if cfg.RedditUserAgent == "" {
		missing = append(missing, "REDDIT_USER_AGENT")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RedditRateLimit = getEnvInt("REDDIT_RATE_LIMIT", 60)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.SearchLimit = getEnvInt("SEARCH_LIMIT", 25)
	cfg.SearchTimeFilter = getEnvString("SEARCH_TIME_FILTER", "all")
	cfg.MinScore = getEnvInt("MIN_SCORE", 0)
	cfg.RelevanceThreshold = getEnvFloat("RELEVANCE_THRESHOLD", 0.3)
	cfg.MaxComments = getEnvInt("MAX_COMMENTS", 5)
	cfg.MinContentLength = getEnvInt("MIN_CONTENT_LENGTH", 50)
	cfg.PostPause = getEnvDuration("POST_PAUSE", 100*time.Millisecond)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
