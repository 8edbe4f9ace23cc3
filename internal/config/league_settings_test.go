package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
leagues:
  "123456":
    name: "Work League"
    year: 2024
    tie_rule: H2H_RECORD
    coin_flip_seed: 42
  "789":
    name: "Private League"
    espn_s2: "league-s2"
    swid: "{LEAGUE}"
default_settings:
  name: "Default League"
  year: 2023
  espn_s2: "default-s2"
  swid: "{DEFAULT}"
client:
  timeout_seconds: 15
  max_retries: 3
  requests_per_second: 2.5
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLeagueSettingsFrom_YAML(t *testing.T) {
	cfg, err := LoadLeagueSettingsFrom(writeFile(t, "league_settings.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Len(t, cfg.Leagues, 2)
	assert.Equal(t, 15, cfg.Client.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
	assert.InDelta(t, 2.5, cfg.Client.RequestsPerSecond, 1e-9)

	work := cfg.GetLeagueSettings("123456")
	assert.Equal(t, "Work League", work.Name)
	assert.Equal(t, "H2H_RECORD", work.TieRule)
	require.NotNil(t, work.CoinFlipSeed)
	assert.Equal(t, uint64(42), *work.CoinFlipSeed)
	assert.Equal(t, "default-s2", work.ESPNS2, "league without cookies inherits the defaults")
	assert.True(t, cfg.HasTieRuleOverride("123456"))

	private := cfg.GetLeagueSettings("789")
	assert.Equal(t, "league-s2", private.ESPNS2)
	assert.Equal(t, "{LEAGUE}", private.SWID)
	assert.Equal(t, 2023, private.Year)
	assert.False(t, cfg.HasTieRuleOverride("789"))

	unknown := cfg.GetLeagueSettings("1")
	assert.Equal(t, "Default League", unknown.Name)
}

func TestLoadLeagueSettingsFrom_JSON(t *testing.T) {
	path := writeFile(t, "league_settings.json", `{
		"leagues": {"1": {"name": "Json League", "tie_rule": "TOTAL_POINTS_SCORED"}},
		"default_settings": {"name": "Default"}
	}`)

	cfg, err := LoadLeagueSettingsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "Json League", cfg.GetLeagueSettings("1").Name)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadLeagueSettingsFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "unknown tie rule",
			file:    "bad.yaml",
			content: "leagues:\n  \"1\":\n    tie_rule: MOST_WINS\n",
		},
		{
			name:    "default year out of range",
			file:    "bad.yaml",
			content: "default_settings:\n  year: 1850\n",
		},
		{
			name:    "negative retries",
			file:    "bad.yaml",
			content: "client:\n  max_retries: -1\n",
		},
		{
			name:    "malformed json",
			file:    "bad.json",
			content: "{not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLeagueSettingsFrom(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadLeagueSettingsFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadLeagueSettings_EnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, writeFile(t, "league_settings.yaml", sampleYAML))
	t.Setenv(EnvESPNS2, "env-s2")
	t.Setenv(EnvSWID, "{ENV}")

	cfg, err := LoadLeagueSettings()
	require.NoError(t, err)
	assert.Equal(t, "env-s2", cfg.DefaultSettings.ESPNS2)
	assert.Equal(t, "{ENV}", cfg.DefaultSettings.SWID)
	assert.Equal(t, "league-s2", cfg.GetLeagueSettings("789").ESPNS2)
}

func TestLoadLeagueSettings_DefaultsWhenMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvESPNS2, "")
	t.Setenv(EnvSWID, "")

	cfg, err := LoadLeagueSettings()
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Empty(t, cfg.Leagues)
	assert.Equal(t, "Default League", cfg.DefaultSettings.Name)
}

func TestLoadLeagueSettings_SearchPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "league_settings.yaml"), []byte(sampleYAML), 0o600))
	t.Chdir(dir)
	t.Setenv(EnvConfigPath, "")

	cfg, err := LoadLeagueSettings()
	require.NoError(t, err)
	assert.Equal(t, "configs/league_settings.yaml", cfg.Source)
	assert.Equal(t, "Work League", cfg.GetLeagueSettings("123456").Name)
}
