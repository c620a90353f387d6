package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// AIConfig carries everything needed to talk to the OpenAI-compatible
// analysis endpoint. Populated from the environment so the key never lives
// in the config file.
type AIConfig struct {
	APIKey      string  `envconfig:"OPENAI_API_KEY"`
	Endpoint    string  `envconfig:"AI_API_ENDPOINT" default:"https://api.openai.com/v1/chat/completions"`
	Model       string  `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	Temperature float32 `envconfig:"AI_TEMPERATURE" default:"0.3"`
}

// Config holds all pipeline settings.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Collect struct {
		WindowHours  int `yaml:"window_hours"`
		MaxRetries   int `yaml:"max_retries"`
		RetryDelayMS int `yaml:"retry_delay_ms"`
	} `yaml:"collect"`
	Analysis struct {
		MaxPerRun    int `yaml:"max_per_run"`
		BatchSize    int `yaml:"batch_size"`
		BatchDelayMS int `yaml:"batch_delay_ms"`
	} `yaml:"analysis"`
	Summary struct {
		IndexDelayMS int `yaml:"index_delay_ms"`
	} `yaml:"summary"`
	AI AIConfig `yaml:"-"`
}

// Validate checks the operational knobs. The AI key is checked separately
// by RequireAI, since collect-only runs do not need it.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir cannot be empty")
	}
	if c.Collect.WindowHours <= 0 {
		return fmt.Errorf("collect.window_hours must be positive, got %d", c.Collect.WindowHours)
	}
	if c.Analysis.MaxPerRun <= 0 {
		return fmt.Errorf("analysis.max_per_run must be positive, got %d", c.Analysis.MaxPerRun)
	}
	if c.Analysis.BatchSize <= 0 {
		return fmt.Errorf("analysis.batch_size must be positive, got %d", c.Analysis.BatchSize)
	}
	return nil
}

// RequireAI fails fast when the analyzer credentials are absent, instead of
// deferring the failure to the first API call.
func (c *Config) RequireAI() error {
	if c.AI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}
	if c.AI.Endpoint == "" {
		return errors.New("AI endpoint cannot be empty")
	}
	if c.AI.Model == "" {
		return errors.New("AI model cannot be empty")
	}
	return nil
}

// Load reads the YAML config file if present, applies defaults, and pulls
// AI credentials from the environment. A missing file is not an error; the
// defaults describe a working local setup.
func Load(path string) (*Config, error) {
	c := defaultConfig()

	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyDefaults(c)

	if err := envconfig.Process("", &c.AI); err != nil {
		return nil, fmt.Errorf("load AI config from env: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return c, nil
}

func defaultConfig() *Config {
	c := &Config{DataDir: "data"}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Collect.WindowHours == 0 {
		c.Collect.WindowHours = 48
	}
	if c.Collect.MaxRetries == 0 {
		c.Collect.MaxRetries = 3
	}
	if c.Collect.RetryDelayMS == 0 {
		c.Collect.RetryDelayMS = 1000
	}
	if c.Analysis.MaxPerRun == 0 {
		c.Analysis.MaxPerRun = 50
	}
	if c.Analysis.BatchSize == 0 {
		c.Analysis.BatchSize = 10
	}
	if c.Analysis.BatchDelayMS == 0 {
		c.Analysis.BatchDelayMS = 2000
	}
	if c.Summary.IndexDelayMS == 0 {
		c.Summary.IndexDelayMS = 2000
	}
}
