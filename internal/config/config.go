package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"SectorSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	DataDir      string `yaml:"data_dir" env:"DATA_DIR, overwrite"`
	UniversePath string `yaml:"universe_path" env:"UNIVERSE_PATH, overwrite"`
	ZeroDate     string `yaml:"zero_date" env:"ZERO_DATE, overwrite"`
	Proxy        string `yaml:"proxy" env:"HTTPS_PROXY, overwrite"`

	Providers struct {
		FMP struct {
			APIKey    string  `yaml:"api_key" env:"FMP_API_KEY, overwrite"`
			BaseURL   string  `yaml:"base_url" env:"FMP_BASE_URL, overwrite"`
			RateLimit float64 `yaml:"rate_limit"`
		} `yaml:"fmp"`
		Yahoo struct {
			Disabled  bool    `yaml:"disabled" env:"YAHOO_DISABLED, overwrite"`
			BaseURL   string  `yaml:"base_url"`
			RateLimit float64 `yaml:"rate_limit"`
		} `yaml:"yahoo"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxRetries  *int          `yaml:"max_retries"`
		RetryDelay  time.Duration `yaml:"retry_delay"`
		SymbolDelay time.Duration `yaml:"symbol_delay" env:"SYMBOL_DELAY, overwrite"`
	} `yaml:"providers"`

	News struct {
		APIKey       string        `yaml:"api_key" env:"NEWS_API_KEY, overwrite"`
		NewsAPIURL   string        `yaml:"newsapi_url"`
		SearchURL    string        `yaml:"search_url"`
		QueryDelay   time.Duration `yaml:"query_delay"`
		SectorWindow time.Duration `yaml:"sector_window"`
		HealthWindow time.Duration `yaml:"health_window"`
	} `yaml:"news"`

	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN, overwrite"`
		ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID, overwrite"`
	} `yaml:"telegram"`

	Schedule struct {
		Timezone     string            `yaml:"timezone" env:"SCHEDULE_TZ, overwrite"`
		DailyCron    string            `yaml:"daily_cron" env:"CRON_DAILY, overwrite"`
		IntradayCron map[string]string `yaml:"intraday_cron"`
		RepairCron   string            `yaml:"repair_cron"`
		ValidateCron string            `yaml:"validate_cron"`
		NewsCron     string            `yaml:"news_cron"`
	} `yaml:"schedule"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH, overwrite"`
	} `yaml:"database"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL, overwrite"`
		Format string `yaml:"format" env:"LOG_FORMAT, overwrite"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR, overwrite"`
	} `yaml:"server"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.ZeroDate == "" {
		c.ZeroDate = "2026-02-03"
	}
	if c.Providers.FMP.RateLimit == 0 {
		c.Providers.FMP.RateLimit = 5
	}
	if c.Providers.Yahoo.RateLimit == 0 {
		c.Providers.Yahoo.RateLimit = 2
	}
	if c.Providers.Timeout == 0 {
		c.Providers.Timeout = 30 * time.Second
	}
	if c.Providers.MaxRetries == nil {
		n := 2
		c.Providers.MaxRetries = &n
	}
	if c.Providers.RetryDelay == 0 {
		c.Providers.RetryDelay = 2 * time.Second
	}
	if c.Providers.SymbolDelay == 0 {
		c.Providers.SymbolDelay = 250 * time.Millisecond
	}
	if c.News.APIKey == "" {
		c.News.APIKey = os.Getenv("NEWSAPI_KEY")
	}
	if c.News.NewsAPIURL == "" {
		c.News.NewsAPIURL = "https://newsapi.org/v2/everything"
	}
	if c.News.SearchURL == "" {
		c.News.SearchURL = "https://html.duckduckgo.com/html/"
	}
	if c.News.QueryDelay == 0 {
		c.News.QueryDelay = time.Second
	}
	if c.News.SectorWindow == 0 {
		c.News.SectorWindow = 30 * 24 * time.Hour
	}
	if c.News.HealthWindow == 0 {
		c.News.HealthWindow = 90 * 24 * time.Hour
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 18 * * 1-5"
	}
	if c.Schedule.IntradayCron == nil {
		c.Schedule.IntradayCron = map[string]string{
			"11am": "0 0 11 * * 1-5",
			"noon": "0 0 12 * * 1-5",
		}
	}
	if c.Schedule.RepairCron == "" {
		c.Schedule.RepairCron = "0 30 6 * * 2-6"
	}
	if c.Schedule.ValidateCron == "" {
		c.Schedule.ValidateCron = "0 0 7 * * 2-6"
	}
	if c.Schedule.NewsCron == "" {
		c.Schedule.NewsCron = "0 0 8 * * 1"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/sector_sentinel.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3001"
	}
}

// Validate checks that all required fields are well formed. Provider keys are
// optional here; a missing key disables that provider.
func (c *Config) Validate() error {
	if _, err := model.ParseDate(c.ZeroDate); err != nil {
		return fmt.Errorf("zero_date %q: %w", c.ZeroDate, err)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if *c.Providers.MaxRetries < 0 {
		return fmt.Errorf("providers.max_retries must not be negative")
	}
	if c.Providers.RetryDelay < 0 || c.Providers.SymbolDelay < 0 {
		return fmt.Errorf("provider delays must not be negative")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// ZeroTime is the parsed zero date. Call Validate first.
func (c *Config) ZeroTime() time.Time {
	t, _ := model.ParseDate(c.ZeroDate)
	return t
}

// TelegramEnabled reports whether alerts can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
