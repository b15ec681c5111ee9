package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the process configuration for the server and bot binaries.
// Values come from an optional YAML file, overridden by environment
// variables; everything is read-only after Load.
type Config struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	Model           string `yaml:"openai_model"`
	VerifierModel   string `yaml:"openai_verifier_model"`
	ReasoningEffort string `yaml:"reasoning_effort"`
	DefaultAgent    string `yaml:"default_agent"`

	// DatabaseURL enables the Postgres consult log and bot history store when
	// set; both binaries fall back to stateless / in-memory operation without it.
	DatabaseURL   string `yaml:"database_url"`
	NotifyChannel string `yaml:"notify_channel"`

	ListenAddr    string `yaml:"listen_addr"`
	TelegramToken string `yaml:"telegram_token"`
	LogLevel      string `yaml:"log_level"`
}

// Load reads the YAML file at path (skipped when path is empty or the file is
// absent) and then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("invalid config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	overrideString(&c.Model, "OPENAI_MODEL")
	overrideString(&c.VerifierModel, "OPENAI_VERIFIER_MODEL")
	overrideString(&c.ReasoningEffort, "REASONING_EFFORT")
	overrideString(&c.DefaultAgent, "DEFAULT_AGENT")
	overrideString(&c.DatabaseURL, "DATABASE_URL")
	overrideString(&c.NotifyChannel, "NOTIFY_CHANNEL")
	overrideString(&c.ListenAddr, "LISTEN_ADDR")
	overrideString(&c.TelegramToken, "TELEGRAM_BOT_TOKEN")
	overrideString(&c.LogLevel, "LOG_LEVEL")
	if c.ListenAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			c.ListenAddr = ":" + port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4.1-mini"
	}
	if c.VerifierModel == "" {
		c.VerifierModel = c.Model
	}
	if c.DefaultAgent == "" {
		c.DefaultAgent = "dermatologist"
	}
	if c.NotifyChannel == "" {
		c.NotifyChannel = "consults"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the preconditions shared by both binaries. The provider
// credential is required before any pipeline is constructed.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("missing openai_api_key (OPENAI_API_KEY)")
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
