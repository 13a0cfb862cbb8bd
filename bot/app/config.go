package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/gptbot/bot/media"
	"github.com/m3rciful/gptbot/bot/openai"
	coreconfig "github.com/m3rciful/gptbot/core/config"
	coredatabase "github.com/m3rciful/gptbot/core/database"
)

// Config is the full bot configuration: the core sections plus the
// generation, storage and engine settings.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	OpenAI   openai.Config       `yaml:"openai"`
	Media    media.Config        `yaml:"media"`
	Engine   EngineConfig        `yaml:"engine"`
	Locales  LocalesConfig       `yaml:"locales"`
	Database coredatabase.Config `yaml:"database"`
	// HelpURL is linked from the main menu.
	HelpURL string `yaml:"help_url" envconfig:"HELP_URL"`
}

// EngineConfig tunes the conversation engine.
type EngineConfig struct {
	// StepTimeoutSeconds bounds one flow step; 0 disables the bound.
	StepTimeoutSeconds int `yaml:"step_timeout_seconds" envconfig:"ENGINE_STEP_TIMEOUT_SECONDS"`
}

// StepTimeout returns the configured bound as a duration.
func (e EngineConfig) StepTimeout() time.Duration {
	if e.StepTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(e.StepTimeoutSeconds) * time.Second
}

// LocalesConfig selects the fallback locale.
type LocalesConfig struct {
	Default string `yaml:"default" envconfig:"LOCALE_DEFAULT"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads path, applies .env and environment overrides and
// validates every section.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := cfg.OpenAI.Normalize(); err != nil {
		return err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return err
	}
	if cfg.Engine.StepTimeoutSeconds < 0 {
		return fmt.Errorf("engine.step_timeout_seconds must be >= 0")
	}
	cfg.Locales.Default = strings.ToLower(strings.TrimSpace(cfg.Locales.Default))
	if cfg.Locales.Default == "" {
		cfg.Locales.Default = "en"
	}
	if strings.TrimSpace(cfg.Media.Dir) == "" {
		cfg.Media.Dir = media.DefaultDir
	}
	return nil
}
