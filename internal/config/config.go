// Package config handles application configuration using Viper.
// Settings merge in priority order: defaults, then an optional YAML file,
// then environment variables with the AI_ prefix (AI_LLM_PROVIDER,
// AI_LLM_ANTHROPIC_API_KEY, AI_NEWS_API_KEY, ...).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	LLM       LLMConfig       `mapstructure:"llm"`
	News      NewsConfig      `mapstructure:"news"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LLMConfig selects the backend and holds one credential block per provider.
// Provider is read once at startup and the selection is immutable for the
// process lifetime — there is no hot-swap.
type LLMConfig struct {
	// Provider is one of: anthropic, openai, grok, groq.
	// An unrecognized value does not prevent startup — the service boots with
	// a stub backend and reports degraded health.
	Provider  string         `mapstructure:"provider"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Grok      ProviderConfig `mapstructure:"grok"`
	Groq      ProviderConfig `mapstructure:"groq"`
}

// ProviderConfig is the per-backend credential and model pair. FastModel is
// used for cheap single-turn calls (classification, titles) by backends that
// distinguish tiers; backends with a single model leave it empty.
type ProviderConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	FastModel string `mapstructure:"fast_model"`
}

type NewsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8081)
	v.SetDefault("storage.database_path", "./storage/ai-service.db")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("llm.provider", "anthropic")
	// Empty defaults register the secret keys with viper — Unmarshal only
	// reads environment values for keys it already knows about.
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.fast_model", "gpt-4o-mini")
	v.SetDefault("llm.grok.api_key", "")
	v.SetDefault("llm.grok.base_url", "https://api.x.ai/v1")
	v.SetDefault("llm.grok.model", "grok-beta")
	v.SetDefault("llm.groq.api_key", "")
	v.SetDefault("llm.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.groq.fast_model", "llama-3.1-8b-instant")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.base_url", "https://newsapi.org/v2")
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// A missing config file is fine — defaults plus env cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("AI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:8081".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
