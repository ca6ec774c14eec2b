package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the narrator service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Narration NarrationConfig `mapstructure:"narration"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig selects and configures the text generation backend
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // openai, gemini
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	OpenAI       OpenAIConfig  `mapstructure:"openai"`
	Gemini       GeminiConfig  `mapstructure:"gemini"`
}

// OpenAIConfig contains OpenAI-compatible chat completion settings.
// APIKey may be empty; it is resolved from OPENAI_API_KEY on first use.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// GeminiConfig contains Google Gemini settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be openai or gemini, got %q", l.Provider)
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be > 0")
	}
	if l.Retries < 0 {
		return fmt.Errorf("llm.retries cannot be negative")
	}
	return nil
}

// SourcesConfig configures the source collector
type SourcesConfig struct {
	Name           string        `mapstructure:"name"`
	UserAgent      string        `mapstructure:"user_agent"`
	Renderer       string        `mapstructure:"renderer"` // http, chromedp
	ArticleTimeout time.Duration `mapstructure:"article_timeout"`
	ListingTimeout time.Duration `mapstructure:"listing_timeout"`
	MaxChars       int           `mapstructure:"max_chars"`
	Feeds          []FeedConfig  `mapstructure:"feeds"`
}

// FeedConfig is one headline feed
type FeedConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Category string `mapstructure:"category"`
}

func (s SourcesConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("sources.name required")
	}
	switch s.Renderer {
	case "http", "chromedp":
	default:
		return fmt.Errorf("sources.renderer must be http or chromedp, got %q", s.Renderer)
	}
	for i, f := range s.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			return fmt.Errorf("sources.feeds[%d].url required", i)
		}
	}
	return nil
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	Backend string      `mapstructure:"backend"` // file, redis
	File    FileConfig  `mapstructure:"file"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// FileConfig contains file storage settings
type FileConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Prefix   string        `mapstructure:"prefix"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

func (s StorageConfig) Validate() error {
	switch s.Backend {
	case "file":
		if strings.TrimSpace(s.File.DataDir) == "" {
			return fmt.Errorf("storage.file.data_dir required")
		}
		return nil
	case "redis":
		return s.Redis.Validate()
	default:
		return fmt.Errorf("storage.backend must be file or redis, got %q", s.Backend)
	}
}

// CacheConfig controls cache lifetimes
type CacheConfig struct {
	ListingMaxAge    time.Duration `mapstructure:"listing_max_age"`
	NarrationHorizon time.Duration `mapstructure:"narration_horizon"`
}

func (c CacheConfig) Validate() error {
	if c.ListingMaxAge <= 0 {
		return fmt.Errorf("cache.listing_max_age must be > 0")
	}
	if c.NarrationHorizon <= 0 {
		return fmt.Errorf("cache.narration_horizon must be > 0")
	}
	return nil
}

// NarrationConfig shapes the narration pipeline prompts
type NarrationConfig struct {
	Style        string `mapstructure:"style"`
	ContentChars int    `mapstructure:"content_chars"`
}

// SchedulerConfig controls background jobs
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ListingCron string `mapstructure:"listing_cron"`
	CleanupCron string `mapstructure:"cleanup_cron"`
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":10001")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.retries", 0)
	v.SetDefault("llm.retry_backoff", 500*time.Millisecond)
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.temperature", 0.7)
	v.SetDefault("llm.openai.max_tokens", 1500)
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")

	v.SetDefault("sources.name", "bbc")
	v.SetDefault("sources.user_agent", "NarratorBot/1.0 (+contact@example.com)")
	v.SetDefault("sources.renderer", "http")
	v.SetDefault("sources.article_timeout", 15*time.Second)
	v.SetDefault("sources.listing_timeout", 10*time.Second)
	v.SetDefault("sources.max_chars", 20000)
	v.SetDefault("sources.feeds", []map[string]string{
		{"name": "world", "url": "https://feeds.bbci.co.uk/news/world/rss.xml", "category": "world"},
		{"name": "technology", "url": "https://feeds.bbci.co.uk/news/technology/rss.xml", "category": "technology"},
		{"name": "science", "url": "https://feeds.bbci.co.uk/news/science_and_environment/rss.xml", "category": "science"},
	})

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.file.data_dir", "./data")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("storage.redis.prefix", "narrator:")

	v.SetDefault("cache.listing_max_age", 24*time.Hour)
	v.SetDefault("cache.narration_horizon", 30*24*time.Hour)

	v.SetDefault("narration.style", "a warm village storyteller speaking to listeners gathered around a fire")
	v.SetDefault("narration.content_chars", 6000)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.listing_cron", "0 */3 * * *")
	v.SetDefault("scheduler.cleanup_cron", "@daily")

	v.SetDefault("telemetry.enabled", true)
}

// LoadConfig loads config from file, environment and defaults.
// An empty path searches the usual locations; a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("NARRATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return nil
}
