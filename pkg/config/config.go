package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/atlastlabs/yatra/pkg/translate"
)

// Config stores all configuration of the application. Values are read by
// viper from an optional config file and YATRA_-prefixed environment
// variables, with environment taking precedence.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Translation TranslationConfig `mapstructure:"translation"`
	Language    LanguageConfig    `mapstructure:"language"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Agent       AgentConfig       `mapstructure:"agent"`
	Store       StoreConfig       `mapstructure:"store"`
	Session     SessionConfig     `mapstructure:"session"`
}

// ServerConfig stores HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// EndpointConfig describes one translation endpoint. Slice order defines
// failover priority.
type EndpointConfig struct {
	Name      string `mapstructure:"name"`
	URL       string `mapstructure:"url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	Detect    bool   `mapstructure:"detect"`
}

// TranslationConfig stores the provider pool settings.
type TranslationConfig struct {
	Endpoints []EndpointConfig `mapstructure:"endpoints"`
}

// LanguageConfig stores the supported language set.
type LanguageConfig struct {
	Supported []string `mapstructure:"supported"`
}

// GeminiConfig stores completion provider settings. The model identifier is
// explicit and injected; nothing probes a model registry at runtime.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// AgentConfig stores orchestrator settings.
type AgentConfig struct {
	// Mode is "canonical" (always reply in English) or "localized".
	Mode string `mapstructure:"mode"`
	// Window is the conversation memory size in turns.
	Window int `mapstructure:"window"`
	// Persona overrides the prompt preamble when set.
	Persona string `mapstructure:"persona"`
}

// StoreConfig stores persistence settings.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SessionConfig stores session sharding settings.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// Load reads configuration from the optional file at path plus the
// environment. A missing Gemini API key is a fatal configuration error:
// there is no degraded mode without credentials for the completion provider.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("language.supported", []string{"en", "hi", "mr", "ta", "te", "bn", "gu", "kn"})
	// Every key needs a default, even an empty one: viper's Unmarshal only
	// consults the environment for keys it already knows about.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("agent.mode", "localized")
	v.SetDefault("agent.window", 12)
	v.SetDefault("agent.persona", "")
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", "data/yatra.db")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.prune_interval", 30*time.Second)

	v.SetEnvPrefix("YATRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini.api_key is required (set YATRA_GEMINI_API_KEY)")
	}
	if cfg.Agent.Mode != "canonical" && cfg.Agent.Mode != "localized" {
		return nil, fmt.Errorf("agent.mode must be canonical or localized, got %q", cfg.Agent.Mode)
	}

	return &cfg, nil
}

// Endpoints converts the configured endpoint list into translate.Endpoint
// values, falling back to the public defaults when none are configured.
func (c *Config) Endpoints() []translate.Endpoint {
	if len(c.Translation.Endpoints) == 0 {
		return translate.DefaultEndpoints()
	}

	out := make([]translate.Endpoint, 0, len(c.Translation.Endpoints))
	for _, ep := range c.Translation.Endpoints {
		out = append(out, translate.Endpoint{
			Name:    ep.Name,
			URL:     ep.URL,
			Timeout: time.Duration(ep.TimeoutMs) * time.Millisecond,
			Detect:  ep.Detect,
		})
	}
	return out
}
