/*
Package config manages the TOML config and the credential store of ghostwrite.

The config file lives in the per-user config directory (see utils.PathResolver) and is created with defaults on first
run. A file that fails to parse is recovered section by section; fields that fail validation are reset to their
defaults. The API key never lives in config.toml, see Store.
*/
package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"

	"github.com/fsoft72/ghostwrite/internal/utils"
	"github.com/fsoft72/ghostwrite/pkg/suggest"
)

const (
	ConfigFileName      = "config.toml"
	CredentialsFileName = "credentials.toml"
)

// Config holds the entire config structure
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Suggest  SuggestConfig  `toml:"suggest"`
	Server   ServerConfig   `toml:"server"`
	CLI      CliConfig      `toml:"cli"`
}

// ProviderConfig holds completion endpoint options.
type ProviderConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	Timeout     int     `toml:"timeout"` // seconds
}

// SuggestConfig holds suggestion lifecycle options.
type SuggestConfig struct {
	Delay        float64 `toml:"delay"` // seconds
	SystemPrompt string  `toml:"system_prompt"`
	Context      string  `toml:"context"`
	CacheEntries int     `toml:"cache_entries"` // 0 disables the completion cache
}

// ServerConfig has server related options.
type ServerConfig struct {
	MinPrefix int    `toml:"min_prefix"`
	QueueSize int    `toml:"queue_size"`
	WSAddr    string `toml:"ws_addr"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	GhostColor string `toml:"ghost_color"`
	ShowStatus bool   `toml:"show_status"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Endpoint:    suggest.DefaultAPIEndpoint,
			Model:       suggest.DefaultModelName,
			MaxTokens:   150,
			Temperature: 0.7,
			Timeout:     int(suggest.DefaultRequestTimeout / time.Second),
		},
		Suggest: SuggestConfig{
			Delay:        suggest.DefaultSuggestionDelay,
			SystemPrompt: suggest.DefaultSystemPrompt,
			CacheEntries: 0,
		},
		Server: ServerConfig{
			MinPrefix: 1,
			QueueSize: 64,
			WSAddr:    ":8080",
		},
		CLI: CliConfig{
			GhostColor: "8",
			ShowStatus: true,
		},
	}
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	return defaultPath(ConfigFileName)
}

// GetDefaultCredentialsPath returns the default path for credentials.toml
func GetDefaultCredentialsPath() (string, error) {
	return defaultPath(CredentialsFileName)
}

func defaultPath(name string) (string, error) {
	pr, err := utils.NewPathResolver()
	if err != nil {
		log.Errorf("Failed to init path resolver: %v", err)
		return "", err
	}
	return pr.GetConfigPath(name)
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/ghostwrite/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. Invalid values are reset to their defaults and logged.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		if !utils.FileExists(configPath) {
			return nil, err
		}
		config = tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		log.Warnf("Config %s has invalid values, defaults used instead: %v", configPath, err)
	}
	return config, nil
}

// tryPartialParse keeps every section that can still be read from a broken file.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "provider"); ok {
		extractProviderConfig(section, &config.Provider)
	}
	if section, ok := utils.ExtractSection(tempConfig, "suggest"); ok {
		extractSuggestConfig(section, &config.Suggest)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config
}

func extractProviderConfig(data map[string]any, p *ProviderConfig) {
	if val, ok := utils.ExtractString(data, "endpoint"); ok {
		p.Endpoint = val
	}
	if val, ok := utils.ExtractString(data, "model"); ok {
		p.Model = val
	}
	if val, ok := utils.ExtractInt64(data, "max_tokens"); ok {
		p.MaxTokens = val
	}
	if val, ok := utils.ExtractFloat64(data, "temperature"); ok {
		p.Temperature = val
	}
	if val, ok := utils.ExtractInt64(data, "timeout"); ok {
		p.Timeout = val
	}
}

func extractSuggestConfig(data map[string]any, s *SuggestConfig) {
	if val, ok := utils.ExtractFloat64(data, "delay"); ok {
		s.Delay = val
	}
	if val, ok := utils.ExtractString(data, "system_prompt"); ok {
		s.SystemPrompt = val
	}
	if val, ok := utils.ExtractString(data, "context"); ok {
		s.Context = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_entries"); ok {
		s.CacheEntries = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "queue_size"); ok {
		server.QueueSize = val
	}
	if val, ok := utils.ExtractString(data, "ws_addr"); ok {
		server.WSAddr = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractString(data, "ghost_color"); ok {
		cli.GhostColor = val
	}
	if val, ok := utils.ExtractBool(data, "show_status"); ok {
		cli.ShowStatus = val
	}
}

// Validate resets every invalid field to its default and reports all of them at once.
// A nil error means nothing was changed.
func (c *Config) Validate() error {
	def := DefaultConfig()
	var result *multierror.Error

	if u, err := url.Parse(c.Provider.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("provider.endpoint %q is not an absolute URL", c.Provider.Endpoint))
		c.Provider.Endpoint = def.Provider.Endpoint
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		result = multierror.Append(result, fmt.Errorf("provider.model is empty"))
		c.Provider.Model = def.Provider.Model
	}
	if c.Provider.MaxTokens <= 0 {
		result = multierror.Append(result, fmt.Errorf("provider.max_tokens must be positive, got %d", c.Provider.MaxTokens))
		c.Provider.MaxTokens = def.Provider.MaxTokens
	}
	if math.IsNaN(c.Provider.Temperature) || c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		result = multierror.Append(result, fmt.Errorf("provider.temperature must be within [0, 2], got %v", c.Provider.Temperature))
		c.Provider.Temperature = def.Provider.Temperature
	}
	if c.Provider.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("provider.timeout must be positive, got %d", c.Provider.Timeout))
		c.Provider.Timeout = def.Provider.Timeout
	}
	if math.IsNaN(c.Suggest.Delay) || c.Suggest.Delay < suggest.MinSuggestionDelay {
		result = multierror.Append(result, fmt.Errorf("suggest.delay must be at least %v, got %v", suggest.MinSuggestionDelay, c.Suggest.Delay))
		c.Suggest.Delay = suggest.ClampDelay(c.Suggest.Delay)
	}
	if c.Suggest.CacheEntries < 0 {
		result = multierror.Append(result, fmt.Errorf("suggest.cache_entries must not be negative, got %d", c.Suggest.CacheEntries))
		c.Suggest.CacheEntries = def.Suggest.CacheEntries
	}
	if c.Server.MinPrefix < 0 {
		result = multierror.Append(result, fmt.Errorf("server.min_prefix must not be negative, got %d", c.Server.MinPrefix))
		c.Server.MinPrefix = def.Server.MinPrefix
	}
	if c.Server.QueueSize < 1 {
		result = multierror.Append(result, fmt.Errorf("server.queue_size must be positive, got %d", c.Server.QueueSize))
		c.Server.QueueSize = def.Server.QueueSize
	}
	return result.ErrorOrNil()
}

// Settings resolves the suggestion settings for a controller.
func (c *Config) Settings(apiKey string) suggest.Settings {
	return suggest.Settings{
		APIKey:          apiKey,
		SuggestionDelay: suggest.ClampDelay(c.Suggest.Delay),
		SystemPrompt:    c.Suggest.SystemPrompt,
		APIEndpoint:     c.Provider.Endpoint,
		ModelName:       c.Provider.Model,
		Context:         c.Suggest.Context,
	}
}

// RequestTimeout returns the provider timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Provider.Timeout) * time.Second
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update applies the non-nil suggestion options and saves to file. The API key is
// not part of the config file and is ignored here, see SaveAPIKey.
func (c *Config) Update(configPath string, o suggest.Options) error {
	if o.SuggestionDelay != nil {
		c.Suggest.Delay = suggest.ClampDelay(*o.SuggestionDelay)
	}
	if o.SystemPrompt != nil {
		c.Suggest.SystemPrompt = *o.SystemPrompt
	}
	if o.Context != nil {
		c.Suggest.Context = *o.Context
	}
	if o.APIEndpoint != nil {
		c.Provider.Endpoint = *o.APIEndpoint
	}
	if o.ModelName != nil {
		c.Provider.Model = *o.ModelName
	}
	if configPath == "" {
		return nil
	}
	return SaveConfig(c, configPath)
}
