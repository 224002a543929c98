// Package config collects every environment-derived setting once at startup.
// Credentials are not checked here: the accessors report a missing value when
// a tool first needs it.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
)

const (
	DefaultTavilyBaseURL = "https://api.tavily.com"
	DefaultLLMBaseURL    = "https://api.deepseek.com"
	DefaultLLMModel      = "deepseek-chat"
	DefaultHTTPAddr      = ":3000"
	DefaultNavTimeout    = 30 * time.Second
	DefaultHTTPTimeout   = 30 * time.Second
)

// Config is read-only after FromEnv returns.
type Config struct {
	TavilyAPIKey  string
	TavilyBaseURL string

	WordPressURL      string
	WordPressUser     string
	WordPressPassword string

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	ChromePath  string
	NavTimeout  time.Duration
	HTTPTimeout time.Duration

	HTTPAddr string
	APIToken string

	LogLevel  string
	LogFormat string
	LogDir    string

	OTLPEndpoint string
}

// Tavily holds the search backend settings.
type Tavily struct {
	APIKey  string
	BaseURL string
}

// WordPress holds the CMS backend settings.
type WordPress struct {
	URL      string
	User     string
	Password string
}

// LLM holds the chat-completion backend settings.
type LLM struct {
	APIKey  string
	BaseURL string
	Model   string
}

// FromEnv builds a Config from the process environment.
func FromEnv() Config {
	return Config{
		TavilyAPIKey:      env("TAVILY_API_KEY"),
		TavilyBaseURL:     envOr("TAVILY_BASE_URL", DefaultTavilyBaseURL),
		WordPressURL:      env("WORDPRESS_URL"),
		WordPressUser:     env("WORDPRESS_USER"),
		WordPressPassword: env("WORDPRESS_APP_PASSWORD"),
		LLMAPIKey:         env("DEEPSEEK_API_KEY"),
		LLMBaseURL:        envOr("DEEPSEEK_BASE_URL", DefaultLLMBaseURL),
		LLMModel:          envOr("DEEPSEEK_MODEL", DefaultLLMModel),
		ChromePath:        env("GEO_CHROME_PATH"),
		NavTimeout:        envDuration("GEO_NAV_TIMEOUT", DefaultNavTimeout),
		HTTPTimeout:       envDuration("GEO_HTTP_TIMEOUT", DefaultHTTPTimeout),
		HTTPAddr:          envOr("GEO_HTTP_ADDR", DefaultHTTPAddr),
		APIToken:          env("GEO_API_TOKEN"),
		LogLevel:          envOr("GEO_LOG_LEVEL", "info"),
		LogFormat:         envOr("GEO_LOG_FORMAT", "text"),
		LogDir:            env("GEO_LOG_DIR"),
		OTLPEndpoint:      env("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// Tavily returns the search settings or a ConfigError naming the missing key.
func (c Config) Tavily() (Tavily, error) {
	if c.TavilyAPIKey == "" {
		return Tavily{}, &toolerr.ConfigError{Key: "TAVILY_API_KEY"}
	}
	return Tavily{APIKey: c.TavilyAPIKey, BaseURL: trimBase(c.TavilyBaseURL, DefaultTavilyBaseURL)}, nil
}

// WordPress returns the CMS settings or a ConfigError naming the first missing key.
func (c Config) WordPress() (WordPress, error) {
	switch {
	case c.WordPressURL == "":
		return WordPress{}, &toolerr.ConfigError{Key: "WORDPRESS_URL"}
	case c.WordPressUser == "":
		return WordPress{}, &toolerr.ConfigError{Key: "WORDPRESS_USER"}
	case c.WordPressPassword == "":
		return WordPress{}, &toolerr.ConfigError{Key: "WORDPRESS_APP_PASSWORD"}
	}
	return WordPress{
		URL:      strings.TrimRight(c.WordPressURL, "/"),
		User:     c.WordPressUser,
		Password: c.WordPressPassword,
	}, nil
}

// HasWordPress reports whether all CMS credentials are present.
func (c Config) HasWordPress() bool {
	_, err := c.WordPress()
	return err == nil
}

// LLM returns the model settings or a ConfigError.
func (c Config) LLM() (LLM, error) {
	if c.LLMAPIKey == "" {
		return LLM{}, &toolerr.ConfigError{Key: "DEEPSEEK_API_KEY"}
	}
	model := c.LLMModel
	if model == "" {
		model = DefaultLLMModel
	}
	return LLM{APIKey: c.LLMAPIKey, BaseURL: trimBase(c.LLMBaseURL, DefaultLLMBaseURL), Model: model}, nil
}

func trimBase(v, fallback string) string {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return fallback
	}
	return v
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, fallback string) string {
	if v := env(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := env(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
