// Package config loads the dailybrief YAML configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Feeds      []Feed     `yaml:"feeds"`
	LLM        LLM        `yaml:"llm"`
	Processing Processing `yaml:"processing"`
	Output     Output     `yaml:"output"`
	Logging    Logging    `yaml:"logging"`
}

type Feed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
}

type LLM struct {
	// Provider is deepseek, openai or anthropic. Empty means auto-detect
	// from the API keys present in the environment.
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	BaseURL           string `yaml:"base_url"`
	MaxTokens         int    `yaml:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type Processing struct {
	Concurrency    int     `yaml:"concurrency"`
	DedupThreshold float64 `yaml:"dedup_threshold"`
	CacheThreshold float64 `yaml:"cache_threshold"`
	CacheMaxSize   int     `yaml:"cache_max_size"`
	PredictionTopN int     `yaml:"prediction_top_n"`
}

type Output struct {
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConfigDir returns the XDG config directory for dailybrief.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "dailybrief")
}

// DataDir returns the XDG data directory for dailybrief.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "dailybrief")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > $XDG_CONFIG_HOME/dailybrief/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'dailybrief init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		LLM: LLM{
			MaxTokens:         4096,
			RequestsPerMinute: 30,
		},
		Processing: Processing{
			Concurrency:    5,
			DedupThreshold: 0.85,
			CacheThreshold: 0.6,
			CacheMaxSize:   1000,
			PredictionTopN: 20,
		},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetOutputDir returns where rendered briefings are written.
func (c *Config) GetOutputDir() string {
	if c.Output.OutputDir != "" {
		return c.Output.OutputDir
	}
	return filepath.Join(c.GetDataDir(), "briefings")
}

// CachePath returns the classification cache file location.
func (c *Config) CachePath() string {
	return filepath.Join(c.GetDataDir(), "classification_cache.json")
}
