// Package config holds the run-level configuration for stashsweep.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EmptyClosetMode controls the closet pre-pass run before the first plan.
type EmptyClosetMode string

const (
	EmptyClosetNever              EmptyClosetMode = "never"
	EmptyClosetBeforeStorageEmpty EmptyClosetMode = "before_storage_empty"
	EmptyClosetAlways             EmptyClosetMode = "always"
)

// MallPricingMode selects how listing prices are chosen.
type MallPricingMode string

const (
	MallPricingAuto MallPricingMode = "auto"
	MallPricingMax  MallPricingMode = "max"
)

// Config holds the run configuration.
type Config struct {
	// SimulateOnly suppresses every mutating call while still reporting profit.
	SimulateOnly bool `yaml:"simulate_only"`
	// Stocking raises keep floors to honour stocking rules and restocks at the end of a run.
	Stocking bool `yaml:"stocking"`
	// EmptyClosetMode governs the closet pre-pass.
	EmptyClosetMode EmptyClosetMode `yaml:"empty_closet_mode"`

	// MallPricingMode is auto (track recent prices) or max (list at the ceiling).
	MallPricingMode MallPricingMode `yaml:"mall_pricing_mode"`
	// MallMultiName is the secondary account that lists items on the main account's behalf.
	MallMultiName string `yaml:"mall_multi_name"`
	// CanUseMallMulti sends MALL items to MallMultiName instead of listing them directly.
	CanUseMallMulti bool `yaml:"can_use_mall_multi"`
	// MallMultiMessage is the message attached to transfers to the mall multi.
	MallMultiMessage string `yaml:"mall_multi_message"`
	// MallDangerously lists uncategorized items in the mall without asking.
	MallDangerously bool `yaml:"mall_dangerously"`
	// FreshPriceAge is the oldest historical price still preferred over a live search.
	FreshPriceAge time.Duration `yaml:"fresh_price_age"`

	// DataFile is the cleanup rules file.
	DataFile string `yaml:"data_file"`
	// StockFile is the stocking rules file. A missing file means no stocking rules.
	StockFile string `yaml:"stock_file"`

	// PulverizeBot receives items to reduce when the character cannot do it.
	PulverizeBot string `yaml:"pulverize_bot"`
	// ConfirmTimeout bounds timed confirmation prompts.
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	// ShowReplanDiff prints a diff of the plan each time it is rebuilt.
	ShowReplanDiff bool `yaml:"show_replan_diff"`

	// DBPath is the SQLite database for runs, audit records and simulated game state.
	DBPath string `yaml:"db_path"`
	// JournalPath, when set, is a directory receiving a zstd JSONL journal per run.
	JournalPath string `yaml:"journal_path"`
	// GameClient is an external client executable. Empty uses the simulated game state kept in DBPath.
	GameClient string `yaml:"game_client"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".stashsweep")
	return &Config{
		Stocking:         true,
		EmptyClosetMode:  EmptyClosetNever,
		MallPricingMode:  MallPricingAuto,
		MallMultiMessage: "Mall multi",
		FreshPriceAge:    24 * time.Hour,
		DataFile:         filepath.Join(base, "cleanup.txt"),
		StockFile:        filepath.Join(base, "stock.txt"),
		PulverizeBot:     "smashbot",
		ConfirmTimeout:   15 * time.Second,
		DBPath:           filepath.Join(base, "stashsweep.db"),
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.EmptyClosetMode {
	case EmptyClosetNever, EmptyClosetBeforeStorageEmpty, EmptyClosetAlways:
	default:
		return fmt.Errorf("invalid empty_closet_mode %q, must be: never, before_storage_empty, or always", c.EmptyClosetMode)
	}
	switch c.MallPricingMode {
	case MallPricingAuto, MallPricingMax:
	default:
		return fmt.Errorf("invalid mall_pricing_mode %q, must be: auto or max", c.MallPricingMode)
	}
	if c.DataFile == "" {
		return fmt.Errorf("data_file is required")
	}
	if c.ConfirmTimeout < 0 {
		return fmt.Errorf("confirm_timeout must not be negative")
	}
	if c.FreshPriceAge < 0 {
		return fmt.Errorf("fresh_price_age must not be negative")
	}
	return nil
}

// Keys lists the option names accepted by Set, sorted.
func Keys() []string {
	keys := []string{
		"simulate_only", "stocking", "empty_closet_mode", "mall_pricing_mode",
		"mall_multi_name", "can_use_mall_multi", "mall_multi_message", "mall_dangerously",
		"fresh_price_age", "data_file", "stock_file", "pulverize_bot", "confirm_timeout",
		"show_replan_diff", "journal_path", "game_client",
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a single option from its string form.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "simulate_only":
		c.SimulateOnly, err = strconv.ParseBool(value)
	case "stocking":
		c.Stocking, err = strconv.ParseBool(value)
	case "empty_closet_mode":
		c.EmptyClosetMode = EmptyClosetMode(value)
	case "mall_pricing_mode":
		c.MallPricingMode = MallPricingMode(value)
	case "mall_multi_name":
		c.MallMultiName = value
	case "can_use_mall_multi":
		c.CanUseMallMulti, err = strconv.ParseBool(value)
	case "mall_multi_message":
		c.MallMultiMessage = value
	case "mall_dangerously":
		c.MallDangerously, err = strconv.ParseBool(value)
	case "fresh_price_age":
		c.FreshPriceAge, err = time.ParseDuration(value)
	case "data_file":
		c.DataFile = value
	case "stock_file":
		c.StockFile = value
	case "pulverize_bot":
		c.PulverizeBot = value
	case "confirm_timeout":
		c.ConfirmTimeout, err = time.ParseDuration(value)
	case "show_replan_diff":
		c.ShowReplanDiff, err = strconv.ParseBool(value)
	case "journal_path":
		c.JournalPath = value
	case "game_client":
		c.GameClient = value
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	if err != nil {
		return fmt.Errorf("option %s: %w", key, err)
	}
	return nil
}

// ApplyPrefs overlays named values stored outside the YAML file.
func (c *Config) ApplyPrefs(prefs map[string]string) error {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Set(k, prefs[k]); err != nil {
			return err
		}
	}
	return c.Validate()
}
