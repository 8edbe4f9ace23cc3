package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath points at a settings file outside the search paths
	EnvConfigPath = "ESPN_LEAGUE_CONFIG"
	EnvESPNS2     = "ESPN_S2"
	EnvSWID       = "ESPN_SWID"
)

// LeagueSettings represents the configuration for a specific league
type LeagueSettings struct {
	Name         string  `yaml:"name" json:"name"`
	Description  string  `yaml:"description" json:"description"`
	Year         int     `yaml:"year" json:"year" validate:"omitempty,min=2000,max=2100"`
	TieRule      string  `yaml:"tie_rule" json:"tie_rule" validate:"omitempty,oneof=TOTAL_POINTS_SCORED H2H_RECORD"`
	CoinFlipSeed *uint64 `yaml:"coin_flip_seed" json:"coin_flip_seed,omitempty"`
	ESPNS2       string  `yaml:"espn_s2" json:"espn_s2,omitempty"`
	SWID         string  `yaml:"swid" json:"swid,omitempty"`
	Notes        string  `yaml:"notes" json:"notes,omitempty"`
}

// ClientSettings tunes the ESPN API client. Zero values keep the client defaults.
type ClientSettings struct {
	TimeoutSeconds        int     `yaml:"timeout_seconds" json:"timeout_seconds" validate:"min=0,max=300"`
	MaxRetries            int     `yaml:"max_retries" json:"max_retries" validate:"min=0,max=10"`
	RequestsPerSecond     float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"min=0,max=100"`
	BreakerTimeoutSeconds int     `yaml:"breaker_timeout_seconds" json:"breaker_timeout_seconds" validate:"min=0"`
}

// LeagueConfig represents the entire league configuration file
type LeagueConfig struct {
	Instructions    string                    `yaml:"_instructions,omitempty" json:"_instructions,omitempty"`
	Leagues         map[string]LeagueSettings `yaml:"leagues" json:"leagues" validate:"dive"`
	DefaultSettings LeagueSettings            `yaml:"default_settings" json:"default_settings"`
	Client          ClientSettings            `yaml:"client" json:"client"`

	// Source is the file the configuration was read from, empty for built-in defaults
	Source string `yaml:"-" json:"-"`
}

var configPaths = []string{
	"configs/league_settings.yaml",
	"configs/league_settings.yml",
	"configs/league_settings.json",
	"../configs/league_settings.yaml",
	"../configs/league_settings.json",
	"../../configs/league_settings.yaml",
	"../../configs/league_settings.json",
}

// DefaultConfig returns the configuration used when no settings file exists
func DefaultConfig() *LeagueConfig {
	return &LeagueConfig{
		Leagues: make(map[string]LeagueSettings),
		DefaultSettings: LeagueSettings{
			Name:        "Default League",
			Description: "League using the tie rule configured on ESPN",
		},
	}
}

// LoadLeagueSettings loads league configuration from ESPN_LEAGUE_CONFIG or the first settings
// file found on the search paths, then applies credential overrides from the environment
func LoadLeagueSettings() (*LeagueConfig, error) {
	var cfg *LeagueConfig

	if path := os.Getenv(EnvConfigPath); path != "" {
		loaded, err := LoadLeagueSettingsFrom(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		for _, path := range configPaths {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			loaded, err := LoadLeagueSettingsFrom(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
			break
		}
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadLeagueSettingsFrom reads and validates a YAML or JSON settings file
func LoadLeagueSettingsFrom(path string) (*LeagueConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read league settings %s: %w", path, err)
	}

	var cfg LeagueConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse league settings from %s: %w", path, err)
	}
	if cfg.Leagues == nil {
		cfg.Leagues = make(map[string]LeagueSettings)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid league settings in %s: %w", path, err)
	}
	cfg.Source = path
	return &cfg, nil
}

// Validate checks field constraints on every league entry and the client block
func (c *LeagueConfig) Validate() error {
	return validator.New().Struct(c)
}

func (c *LeagueConfig) applyEnv() {
	if s2 := os.Getenv(EnvESPNS2); s2 != "" {
		c.DefaultSettings.ESPNS2 = s2
	}
	if swid := os.Getenv(EnvSWID); swid != "" {
		c.DefaultSettings.SWID = swid
	}
}

// GetLeagueSettings returns settings for a specific league ID. Fields the league leaves
// empty are taken from the default settings.
func (c *LeagueConfig) GetLeagueSettings(leagueID string) LeagueSettings {
	settings, exists := c.Leagues[leagueID]
	if !exists {
		return c.DefaultSettings
	}

	d := c.DefaultSettings
	if settings.Year == 0 {
		settings.Year = d.Year
	}
	if settings.TieRule == "" {
		settings.TieRule = d.TieRule
	}
	if settings.CoinFlipSeed == nil {
		settings.CoinFlipSeed = d.CoinFlipSeed
	}
	if settings.ESPNS2 == "" && settings.SWID == "" {
		settings.ESPNS2 = d.ESPNS2
		settings.SWID = d.SWID
	}
	return settings
}

// HasTieRuleOverride reports whether the league's tie rule is set locally instead of on ESPN
func (c *LeagueConfig) HasTieRuleOverride(leagueID string) bool {
	return c.GetLeagueSettings(leagueID).TieRule != ""
}
