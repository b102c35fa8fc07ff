package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/subosito/gotenv"
)

const appName = "bmadchat"

// DefaultModel is used when the config names no model and as the pricing
// fallback for unknown models.
const DefaultModel = "gpt-4-turbo-preview"

// Config holds all bmadchat configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Appearance AppearanceConfig `toml:"appearance"`
	Logging    LoggingConfig    `toml:"logging"`
	Pricing    PricingOverrides `toml:"pricing"`
}

// GeneralConfig holds the agent catalog and export settings.
type GeneralConfig struct {
	BmadPath     string   `toml:"bmad_path"`
	EnabledPacks []string `toml:"enabled_packs"`
	ExportDir    string   `toml:"export_dir"`
	AutoSave     bool     `toml:"auto_save"`
}

// OpenAIConfig holds the live completion backend settings.
type OpenAIConfig struct {
	Enabled        bool       `toml:"enabled"`
	APIKey         string     `toml:"api_key,omitempty"`
	BaseURL        string     `toml:"base_url,omitempty"`
	Model          string     `toml:"model"`
	MaxTokens      int        `toml:"max_tokens"`
	Temperature    float64    `toml:"temperature"`
	StreamResponse bool       `toml:"stream_response"`
	ShowCosts      bool       `toml:"show_costs"`
	MaxRetries     int        `toml:"max_retries"`
	CostLimit      *CostLimit `toml:"cost_limit,omitempty"`
}

// CostLimit caps spending in dollars. A nil field means unlimited.
type CostLimit struct {
	PerConversation *float64 `toml:"per_conversation,omitempty"`
	Daily           *float64 `toml:"daily,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// PricingOverrides allows user-defined pricing for specific models.
type PricingOverrides struct {
	Overrides map[string]ModelPricingOverride `toml:"overrides,omitempty"`
}

// ModelPricingOverride holds per-model pricing overrides, per 1K tokens.
type ModelPricingOverride struct {
	InputPer1K  *float64 `toml:"input_per_1k,omitempty"`
	OutputPer1K *float64 `toml:"output_per_1k,omitempty"`
}

// Suggested limits offered by the setup wizard. They are not applied unless
// saved in the config file.
const (
	SuggestedPerConversationLimit = 1.00
	SuggestedDailyLimit           = 10.00
)

// DefaultConfig returns the default configuration. It sets no cost limits,
// so a file without [openai.cost_limit] is unlimited.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			BmadPath:     "../BMAD-METHOD",
			EnabledPacks: []string{"creative-writing"},
			ExportDir:    "./exports",
			AutoSave:     true,
		},
		OpenAI: OpenAIConfig{
			Model:          DefaultModel,
			MaxTokens:      2000,
			Temperature:    0.7,
			StreamResponse: true,
			ShowCosts:      true,
			MaxRetries:     2,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir holds the usage journal.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir holds the log file.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// JournalPath returns the usage journal location.
func JournalPath() string {
	return filepath.Join(DataDir(), "usage.jsonl")
}

// LogPath returns the log file location, honoring the config override.
func LogPath(cfg Config) string {
	if cfg.Logging.File != "" {
		return cfg.Logging.File
	}
	return filepath.Join(StateDir(), appName+".log")
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() error {
	err := gotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads the config file at path, returning defaults if it doesn't exist.
// An empty path means ConfigPath().
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to path. An empty path means ConfigPath().
func Save(path string, cfg Config) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists at path (or the default path).
func Exists(path string) bool {
	if path == "" {
		path = ConfigPath()
	}
	_, err := os.Stat(path)
	return err == nil
}

// GetOpenAIKey returns the API key from env vars or config, in that order.
func GetOpenAIKey(cfg Config) string {
	for _, name := range []string{"BMADCHAT_OPENAI_API_KEY", "OPENAI_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return cfg.OpenAI.APIKey
}

// MaskKey hides all but the edges of an API key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// Validate reports the first configuration problem that would stop a chat.
func (c Config) Validate() error {
	if strings.TrimSpace(c.General.BmadPath) == "" {
		return errors.New("bmad_path is not set")
	}
	if len(c.General.EnabledPacks) == 0 {
		return errors.New("no packs enabled")
	}
	if !c.OpenAI.Enabled {
		return nil
	}
	if GetOpenAIKey(c) == "" {
		return errors.New(`OpenAI API key not configured; run "bmadchat setup" or set OPENAI_API_KEY`)
	}
	if c.OpenAI.MaxTokens < 100 || c.OpenAI.MaxTokens > 4000 {
		return fmt.Errorf("max_tokens %d out of range 100..4000", c.OpenAI.MaxTokens)
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range 0..2", c.OpenAI.Temperature)
	}
	if l := c.OpenAI.CostLimit; l != nil {
		if l.PerConversation != nil && *l.PerConversation < 0 {
			return errors.New("cost_limit.per_conversation is negative")
		}
		if l.Daily != nil && *l.Daily < 0 {
			return errors.New("cost_limit.daily is negative")
		}
	}
	return nil
}

// Limits returns the cost limits that apply, or nil when the live backend
// is disabled.
func (c Config) Limits() *CostLimit {
	if !c.OpenAI.Enabled {
		return nil
	}
	return c.OpenAI.CostLimit
}
