package appconf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// JSONConfig is the on-disk configuration. The same field names are used for
// JSON and YAML files.
type JSONConfig struct {
	Port          int      `json:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
	Env           string   `json:"env" yaml:"env" validate:"omitempty,oneof=development test production"`
	ApiKeys       []string `json:"api-keys" yaml:"api-keys" validate:"dive,required"`
	ExemptApiKeys []string `json:"exempt-api-keys" yaml:"exempt-api-keys" validate:"dive,required"`
	RateLimit     int      `json:"rate-limit" yaml:"rate-limit" validate:"omitempty,min=1"`
	Verbose       bool     `json:"verbose" yaml:"verbose"`
	LogFormat     string   `json:"log-format" yaml:"log-format" validate:"omitempty,oneof=json text"`
	LogFile       string   `json:"log-file" yaml:"log-file"`

	// Feed settings.
	DataPath       string `json:"data-path" yaml:"data-path" validate:"required"`
	DBPath         string `json:"db-path" yaml:"db-path"`
	PeriodsFile    string `json:"periods-file" yaml:"periods-file"`
	Timezone       string `json:"timezone" yaml:"timezone" validate:"omitempty,timezone"`
	ReloadInterval string `json:"reload-interval" yaml:"reload-interval"`
}

// FeedConfigData carries the feed settings out of the file without tying
// this package to the feed package.
type FeedConfigData struct {
	DataPath       string
	DBPath         string
	PeriodsFile    string
	Timezone       string
	ReloadInterval string
	Env            Environment
	Verbose        bool
}

// LoadFromFile reads a JSON or YAML config file (chosen by extension) and
// validates it.
func LoadFromFile(path string) (*JSONConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg JSONConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks the struct tags.
func (c *JSONConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *JSONConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 4000
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.RateLimit == 0 {
		c.RateLimit = 100
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.ApiKeys == nil {
		c.ApiKeys = []string{}
	}
}

func (c *JSONConfig) ToAppConfig() Config {
	return Config{
		Port:          c.Port,
		Env:           EnvFlagToEnvironment(c.Env),
		ApiKeys:       c.ApiKeys,
		ExemptApiKeys: c.ExemptApiKeys,
		RateLimit:     c.RateLimit,
		Verbose:       c.Verbose,
		LogFormat:     c.LogFormat,
		LogFile:       c.LogFile,
	}
}

func (c *JSONConfig) ToFeedConfigData() FeedConfigData {
	return FeedConfigData{
		DataPath:       c.DataPath,
		DBPath:         c.DBPath,
		PeriodsFile:    c.PeriodsFile,
		Timezone:       c.Timezone,
		ReloadInterval: c.ReloadInterval,
		Env:            EnvFlagToEnvironment(c.Env),
		Verbose:        c.Verbose,
	}
}
