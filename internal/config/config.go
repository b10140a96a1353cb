package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		ImageDir string `yaml:"image_dir"`
	} `yaml:"storage"`
	Classifier struct {
		URL            string `yaml:"url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"classifier"`
	Notifier struct {
		URL     string `yaml:"url"`
		Token   string `yaml:"token"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"notifier"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Pipeline struct {
		Workers   int `yaml:"workers"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"pipeline"`
	Alerts struct {
		WarningThreshold  int `yaml:"warning_threshold"`
		CriticalThreshold int `yaml:"critical_threshold"`
	} `yaml:"alerts"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int64  `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if config.Pipeline.Workers <= 0 {
		config.Pipeline.Workers = 4
	}
	if config.Pipeline.QueueSize <= 0 {
		config.Pipeline.QueueSize = 64
	}
	if config.Classifier.TimeoutSeconds <= 0 {
		config.Classifier.TimeoutSeconds = 30
	}
	if config.Auth.TokenTTLMinutes <= 0 {
		config.Auth.TokenTTLMinutes = 60
	}

	return config, nil
}

// ClassifierTimeout returns the classifier call timeout as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// TokenTTL returns the JWT lifetime for dashboard sessions.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}
