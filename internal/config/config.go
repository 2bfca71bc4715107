// Package config loads citation-mcp settings from a YAML file, CITATION_MCP_*
// environment variables and the plain OPENAI_API_KEY / ZOTERO_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Epistemic-Technology/citation-mcp/internal/documents"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

const (
	// FileName is the config file base name searched in "." and
	// ~/.config/citation-mcp.
	FileName  = "citation-mcp"
	EnvPrefix = "CITATION_MCP"
)

type Config struct {
	OpenAI       OpenAIConfig `mapstructure:"openai"`
	Zotero       ZoteroConfig `mapstructure:"zotero"`
	Export       ExportConfig `mapstructure:"export"`
	Log          LogConfig    `mapstructure:"log"`
	DefaultStyle string       `mapstructure:"default_style"`
}

type OpenAIConfig struct {
	APIKey          string `mapstructure:"api_key"`
	Model           string `mapstructure:"model"`
	BaseURL         string `mapstructure:"base_url"`
	MaxWorkers      int    `mapstructure:"max_workers"`
	TokensPerMinute int    `mapstructure:"tokens_per_minute"`
}

type ZoteroConfig struct {
	APIKey    string `mapstructure:"api_key"`
	LibraryID string `mapstructure:"library_id"`
}

type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	PageSize  string `mapstructure:"page_size"`
}

type LogConfig struct {
	Output   string `mapstructure:"output"`
	Level    string `mapstructure:"level"`
	FilePath string `mapstructure:"file_path"`
}

var defaults = map[string]any{
	"openai.model":             "gpt-5-mini",
	"openai.base_url":          "",
	"openai.api_key":           "",
	"openai.max_workers":       5,
	"openai.tokens_per_minute": 1800000,
	"zotero.api_key":           "",
	"zotero.library_id":        "",
	"export.output_dir":        ".",
	"export.page_size":         "A4",
	"log.output":               "",
	"log.level":                "",
	"log.file_path":            "",
	"default_style":            string(styles.APA),
}

// fallbackEnv lists unprefixed variables honoured for compatibility with
// other Epistemic Technology tools.
var fallbackEnv = map[string]string{
	"openai.api_key":    "OPENAI_API_KEY",
	"zotero.api_key":    "ZOTERO_API_KEY",
	"zotero.library_id": "ZOTERO_LIBRARY_ID",
	"log.output":        "LOG_OUTPUT",
	"log.level":         "LOG_LEVEL",
	"log.file_path":     "LOG_FILE_PATH",
}

// Setup configures v with defaults, search paths and environment bindings.
// An empty configFile searches the default locations.
func Setup(v *viper.Viper, configFile string) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range fallbackEnv {
		// the prefixed name still wins over the plain one
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}

// Load reads the config file when there is one and decodes v into a
// validated Config. A missing file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", v.ConfigFileUsed(), err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New is Setup followed by Load on a fresh viper instance.
func New(configFile string) (*Config, error) {
	v := viper.New()
	Setup(v, configFile)
	return Load(v)
}

func (c *Config) Validate() error {
	style, err := styles.Parse(c.DefaultStyle)
	if err != nil {
		return fmt.Errorf("default_style: %w", err)
	}
	c.DefaultStyle = string(style)

	if c.OpenAI.MaxWorkers < 1 {
		return fmt.Errorf("openai.max_workers must be at least 1, got %d", c.OpenAI.MaxWorkers)
	}
	if c.OpenAI.TokensPerMinute < 1 {
		return fmt.Errorf("openai.tokens_per_minute must be positive, got %d", c.OpenAI.TokensPerMinute)
	}
	switch strings.ToLower(c.Export.PageSize) {
	case "a4", "letter":
	default:
		return fmt.Errorf("export.page_size must be A4 or Letter, got %q", c.Export.PageSize)
	}
	return nil
}

// Style returns the validated default style.
func (c *Config) Style() styles.Style {
	return styles.Style(c.DefaultStyle)
}

// ZoteroCredentials adapts the Zotero section for the documents package.
func (c *Config) ZoteroCredentials() documents.ZoteroCredentials {
	return documents.ZoteroCredentials{APIKey: c.Zotero.APIKey, LibraryID: c.Zotero.LibraryID}
}

// LoggerConfig adapts the log section for the logger package.
func (c *Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{Output: c.Log.Output, Level: c.Log.Level, FilePath: c.Log.FilePath}
}
