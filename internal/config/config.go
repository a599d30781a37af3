// Package config provides Viper-based configuration loading for the storylet engine tools.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// EngineConfig holds trigger evaluation settings.
type EngineConfig struct {
	// VisibleStatuses lists the deployment statuses included in the active set.
	VisibleStatuses []string `mapstructure:"visible_statuses"`
	// TimePolicy selects how time triggers compare against the world clock:
	// "at_least" or "exact".
	TimePolicy string `mapstructure:"time_policy"`
}

// LayoutConfig holds hierarchical layout settings.
type LayoutConfig struct {
	// LevelPolicy is "longest_path" or "breadth_first".
	LevelPolicy string `mapstructure:"level_policy"`
	// CanvasWidth is the width each level is centered within.
	CanvasWidth float64 `mapstructure:"canvas_width"`
	// HorizontalSpacing is the distance between sibling nodes on one level.
	HorizontalSpacing float64 `mapstructure:"horizontal_spacing"`
	// VerticalSpacing is the distance between consecutive levels.
	VerticalSpacing float64 `mapstructure:"vertical_spacing"`
	// TopMargin offsets level 0 from the top of the canvas.
	TopMargin float64 `mapstructure:"top_margin"`
}

// ContentConfig locates storylet content.
type ContentConfig struct {
	// Dir is the directory of storylet YAML files.
	Dir string `mapstructure:"dir"`
	// Strict enables JSON-schema checking of each content document.
	Strict bool `mapstructure:"strict"`
	// ClueFile optionally names a YAML file of clue outcomes.
	ClueFile string `mapstructure:"clue_file"`
	// MinigameFile optionally names a YAML file of dice checks used to
	// resolve minigames during playtests.
	MinigameFile string `mapstructure:"minigame_file"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	Content ContentConfig `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLayout(c.Layout); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if len(e.VisibleStatuses) == 0 {
		errs = append(errs, "engine.visible_statuses must not be empty")
	}
	validStatuses := map[string]bool{"dev": true, "stage": true, "live": true}
	for _, s := range e.VisibleStatuses {
		if !validStatuses[s] {
			errs = append(errs, fmt.Sprintf("engine.visible_statuses entries must be one of [dev, stage, live], got %q", s))
		}
	}
	validPolicies := map[string]bool{"at_least": true, "exact": true}
	if !validPolicies[e.TimePolicy] {
		errs = append(errs, fmt.Sprintf("engine.time_policy must be one of [at_least, exact], got %q", e.TimePolicy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLayout(l LayoutConfig) error {
	var errs []string
	validPolicies := map[string]bool{"longest_path": true, "breadth_first": true}
	if !validPolicies[l.LevelPolicy] {
		errs = append(errs, fmt.Sprintf("layout.level_policy must be one of [longest_path, breadth_first], got %q", l.LevelPolicy))
	}
	if l.CanvasWidth <= 0 {
		errs = append(errs, fmt.Sprintf("layout.canvas_width must be > 0, got %g", l.CanvasWidth))
	}
	if l.HorizontalSpacing <= 0 {
		errs = append(errs, fmt.Sprintf("layout.horizontal_spacing must be > 0, got %g", l.HorizontalSpacing))
	}
	if l.VerticalSpacing <= 0 {
		errs = append(errs, fmt.Sprintf("layout.vertical_spacing must be > 0, got %g", l.VerticalSpacing))
	}
	if l.TopMargin < 0 {
		errs = append(errs, "layout.top_margin must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	if c.Dir == "" {
		return errors.New("content.dir must not be empty")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with STORYWEAVE_ prefix
	v.SetEnvPrefix("STORYWEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance populated only with default values.
//
// Postcondition: LoadFromViper(Defaults()) succeeds.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.visible_statuses", []string{"live"})
	v.SetDefault("engine.time_policy", "at_least")

	v.SetDefault("layout.level_policy", "longest_path")
	v.SetDefault("layout.canvas_width", 1200)
	v.SetDefault("layout.horizontal_spacing", 220)
	v.SetDefault("layout.vertical_spacing", 150)
	v.SetDefault("layout.top_margin", 50)

	v.SetDefault("content.dir", "content/storylets")
	v.SetDefault("content.strict", false)
	v.SetDefault("content.clue_file", "")
	v.SetDefault("content.minigame_file", "")
}
