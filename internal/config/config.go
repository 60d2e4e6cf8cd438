// Package config loads and defaults the derivation engine's configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"deriveengine/internal/logging"
)

// Config holds all derivation engine configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Store     StoreConfig     `yaml:"store"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Engine    EngineConfig    `yaml:"engine"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "derive",
		Version: "0.1.0",

		Store: StoreConfig{
			DatabasePath: "data/derive.db",
		},

		LLM: LLMConfig{
			Provider: "genai",
			Model:    "gemini-2.5-flash",
			BaseURL:  "",
			Timeout:  "120s",
		},

		Embedding: EmbeddingConfig{
			Enabled:        false,
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
		},

		Engine: EngineConfig{
			ContextWindowLimitChars: 400000,
			SCCMaxIterations:        10,
			SCCSeedPolicy:           "empty",
		},

		HTTP: HTTPConfig{
			Timeout:      "60s",
			MaxBodyBytes: 2 << 20,
			UserAgent:    "Mozilla/5.0 (compatible; deriveengine/1.0)",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("Config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("Failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("Config loaded: llm_provider=%s store=%s", cfg.LLM.Provider, cfg.Store.DatabasePath)

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides, in the
// priority order a deployment is most likely to set them.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "genai"
		}
	}
	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.Embedding.GenAIAPIKey = key
	}
	if path := os.Getenv("DERIVE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
	}
	if model := os.Getenv("OLLAMA_EMBEDDING_MODEL"); model != "" {
		c.Embedding.OllamaModel = model
	}
}

// GetLLMTimeout returns the LLM collaborator timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetHTTPTimeout returns the fetch_url_content collaborator timeout.
func (c *Config) GetHTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.HTTP.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Validate returns an error describing any structurally invalid settings.
func (c *Config) Validate() error {
	if c.Engine.SCCMaxIterations <= 0 {
		return fmt.Errorf("engine.scc_max_iterations must be positive, got %d", c.Engine.SCCMaxIterations)
	}
	if c.Engine.SCCSeedPolicy != "empty" && c.Engine.SCCSeedPolicy != "last_cache" {
		return fmt.Errorf("engine.scc_seed_policy must be \"empty\" or \"last_cache\", got %q", c.Engine.SCCSeedPolicy)
	}
	if c.Engine.ContextWindowLimitChars <= 0 {
		return fmt.Errorf("engine.context_window_limit_chars must be positive, got %d", c.Engine.ContextWindowLimitChars)
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path must not be empty")
	}
	return nil
}
