package topicquiz

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure of the YAML configuration file
type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// OpenAIConfig configures the question service client
type OpenAIConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	TranscriptDir string `yaml:"transcript_dir"` // empty disables transcripts
}

// FetchConfig controls the question fetcher
type FetchConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"` // 0 disables the per-attempt bound
	Review         bool          `yaml:"review"`          // second model call that vets each set
}

// ServerConfig controls the web front end
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	SessionSecret string        `yaml:"session_secret"` // empty generates a random key per process
	SessionIdle   time.Duration `yaml:"session_idle"`
}

// StorageConfig locates the sqlite journal
type StorageConfig struct {
	DBPath string `yaml:"db_path"` // empty disables the journal
}

// DefaultConfig returns a Config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Fetch: FetchConfig{
			AttemptTimeout: DefaultAttemptTimeout,
		},
		Server: ServerConfig{
			Addr:        ":8180",
			SessionIdle: 2 * time.Hour,
		},
		Storage: StorageConfig{
			DBPath: "./quiz.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ReadConfig reads path over the defaults. An empty path yields the defaults.
// Environment overrides are applied afterwards.
func ReadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides settings from OPENAI_API_KEY, PORT and SESSION_SECRET
func (c *Config) ApplyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Server.SessionSecret = v
	}
}

// Validate checks settings every command depends on. The API key is checked
// separately by RequireAPIKey since journal-only commands never use it.
func (c *Config) Validate() error {
	if c.Fetch.AttemptTimeout < 0 {
		return fmt.Errorf("fetch.attempt_timeout must not be negative, got %s", c.Fetch.AttemptTimeout)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey reports a missing OpenAI key
func (c *Config) RequireAPIKey() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OpenAI API key is required: set openai.api_key or OPENAI_API_KEY")
	}
	return nil
}

// WriteConfig writes cfg as YAML to path
func WriteConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
