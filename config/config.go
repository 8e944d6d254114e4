package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
	} `yaml:"gemini"`

	Cron struct {
		Secret string `yaml:"secret"`
	} `yaml:"cron"`

	Debate struct {
		DefaultTotalRounds   int `yaml:"defaultTotalRounds"`
		RoundDurationMinutes int `yaml:"roundDurationMinutes"`
		WaitingTTLHours      int `yaml:"waitingTTLHours"`
		AiMinDelaySeconds    int `yaml:"aiMinDelaySeconds"`
		PanelSize            int `yaml:"panelSize"`
		JudgeTimeoutSeconds  int `yaml:"judgeTimeoutSeconds"`
	} `yaml:"debate"`
}

// LoadConfig reads the configuration file and fills in defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Debate.DefaultTotalRounds <= 0 {
		c.Debate.DefaultTotalRounds = 3
	}
	if c.Debate.RoundDurationMinutes <= 0 {
		c.Debate.RoundDurationMinutes = 24 * 60
	}
	if c.Debate.WaitingTTLHours <= 0 {
		c.Debate.WaitingTTLHours = 7 * 24
	}
	if c.Debate.AiMinDelaySeconds <= 0 {
		c.Debate.AiMinDelaySeconds = 60
	}
	if c.Debate.PanelSize <= 0 {
		c.Debate.PanelSize = 3
	}
	if c.Debate.JudgeTimeoutSeconds <= 0 {
		c.Debate.JudgeTimeoutSeconds = 45
	}
}

// RoundDuration returns the configured round length for new debates
func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.Debate.RoundDurationMinutes) * time.Minute
}

// WaitingTTL returns how long an unaccepted challenge may sit before cancellation
func (c *Config) WaitingTTL() time.Duration {
	return time.Duration(c.Debate.WaitingTTLHours) * time.Hour
}

// AiMinDelay returns the minimum pause before an AI participant answers
func (c *Config) AiMinDelay() time.Duration {
	return time.Duration(c.Debate.AiMinDelaySeconds) * time.Second
}

// JudgeTimeout returns the per-judge invocation timeout
func (c *Config) JudgeTimeout() time.Duration {
	return time.Duration(c.Debate.JudgeTimeoutSeconds) * time.Second
}
