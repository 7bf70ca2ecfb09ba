package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production
	HTTP HTTPConfig

	// Database (optional, ranking snapshots only)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	SEC   SECConfig
	Yahoo YahooConfig
	News  NewsConfig

	// Scoring
	Scoring ScoringConfig

	// Notes / reports
	Notes   NotesConfig
	Present PresentConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// HTTPConfig holds API server timeouts
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // ranking fans out to upstream APIs
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// SECConfig holds SEC EDGAR configuration
type SECConfig struct {
	UserAgent      string
	TickersURL     string
	SubmissionsURL string // format string, %s = 10-digit CIK
	ArchivesURL    string
	RateLimit      int // requests per second
}

// YahooConfig holds Yahoo Finance endpoints
type YahooConfig struct {
	ChartURL        string // format string, %s = ticker
	QuoteSummaryURL string // format string, %s = ticker
}

// NewsConfig holds news search configuration
type NewsConfig struct {
	RSSURL string
}

// ScoringConfig holds factor-ranking settings
type ScoringConfig struct {
	Weights             string // "growth=0.25,profitability=0.25,..."
	SectorNeutral       bool
	SectorFactorWeights string // JSON: {"Technology": {"growth": 0.4}}
	EventWeightsPath    string
	EventFilingsLimit   int
	DipWeight           float64
	UseDipBonus         bool
	ProfilePath         string
	Watchlist           []string
	WatchlistSchedule   string
}

// NotesConfig holds note/report output locations
type NotesConfig struct {
	VaultPath     string
	ProcessedPath string
}

// PresentConfig holds presentation defaults
type PresentConfig struct {
	NewsMax     int
	FilingsMax  int
	HistoryDays int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		HTTP: HTTPConfig{
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", "2m"),
			IdleTimeout:     getEnvAsDuration("API_IDLE_TIMEOUT", "1m"),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", "30s"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		SEC: SECConfig{
			UserAgent:      getEnv("SEC_EDGAR_USER_AGENT", "contact@example.com factorlens"),
			TickersURL:     getEnv("SEC_TICKERS_URL", "https://www.sec.gov/files/company_tickers.json"),
			SubmissionsURL: getEnv("SEC_SUBMISSIONS_URL", "https://data.sec.gov/submissions/CIK%s.json"),
			ArchivesURL:    getEnv("SEC_ARCHIVES_URL", "https://www.sec.gov/Archives/edgar/data"),
			RateLimit:      getEnvAsInt("SEC_RATE_LIMIT", 8),
		},

		Yahoo: YahooConfig{
			ChartURL:        getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart/%s"),
			QuoteSummaryURL: getEnv("YAHOO_QUOTE_SUMMARY_URL", "https://query2.finance.yahoo.com/v10/finance/quoteSummary/%s"),
		},

		News: NewsConfig{
			RSSURL: getEnv("NEWS_RSS_URL", "https://news.google.com/rss/search"),
		},

		Scoring: ScoringConfig{
			Weights:             getEnv("SCORE_WEIGHTS", "growth=0.25,profitability=0.25,valuation=0.25,quality=0.25"),
			SectorNeutral:       getEnvAsBool("SCORE_SECTOR_NEUTRAL", false),
			SectorFactorWeights: getEnv("SECTOR_FACTOR_WEIGHTS", ""),
			EventWeightsPath:    getEnv("EVENT_WEIGHTS_PATH", filepath.Join("data", "event_weights.json")),
			EventFilingsLimit:   getEnvAsInt("EVENT_FILINGS_LIMIT", 10),
			DipWeight:           getEnvAsFloat("SCORE_DIP_WEIGHT", 0.12),
			UseDipBonus:         getEnvAsBool("SCORE_USE_DIP_BONUS", true),
			ProfilePath:         getEnv("SCORE_PROFILE_PATH", ""),
			Watchlist:           getEnvAsList("WATCHLIST", nil),
			WatchlistSchedule:   getEnv("WATCHLIST_SCHEDULE", "0 30 16 * * 1-5"),
		},

		Notes: NotesConfig{
			VaultPath:     getEnv("OBSIDIAN_VAULT_PATH", "./obsidian_vault"),
			ProcessedPath: getEnv("PROCESSED_PATH", filepath.Join("data", "processed")),
		},

		Present: PresentConfig{
			NewsMax:     getEnvAsInt("PRESENT_NEWS_MAX", 7),
			FilingsMax:  getEnvAsInt("PRESENT_FILINGS_MAX", 7),
			HistoryDays: getEnvAsInt("PRESENT_HISTORY_DAYS", 60),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scoring.DipWeight < 0 {
		return fmt.Errorf("SCORE_DIP_WEIGHT must be >= 0, got %v", c.Scoring.DipWeight)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool accepts strconv.ParseBool forms plus yes/no
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch valueStr {
	case "":
		return defaultValue
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
