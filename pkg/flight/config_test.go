package flight

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 12, cfg.AgentCount)
	assert.InDelta(t, 1.0/60, cfg.TimeStep(), 1e-12)
	assert.True(t, cfg.IsPrimary(0))
	assert.False(t, cfg.IsPrimary(11))
}

func TestValidate(t *testing.T) {
	examples := []struct {
		Name   string
		Mutate func(c *Config)
	}{
		{"Should reject too few agents", func(c *Config) { c.AgentCount = 7 }},
		{"Should reject too many agents", func(c *Config) { c.AgentCount = 17 }},
		{"Should reject inverted heights", func(c *Config) { c.MinHeight, c.MaxHeight = 20, 5 }},
		{"Should reject equal heights", func(c *Config) { c.MinHeight, c.MaxHeight = 10, 10 }},
		{"Should reject primary band outside flight band", func(c *Config) { c.PrimaryHeightBand = [2]float64{2, 10} }},
		{"Should reject inverted primary band", func(c *Config) { c.PrimaryHeightBand = [2]float64{9, 6} }},
		{"Should reject negative primary index", func(c *Config) { c.PrimaryTrackingIndices = []int{-1} }},
		{"Should reject unknown strategy", func(c *Config) { c.Strategy = "swarmy" }},
		{"Should reject NaN min height", func(c *Config) { c.MinHeight = math.NaN() }},
		{"Should reject NaN max height", func(c *Config) { c.MaxHeight = math.NaN() }},
		{"Should reject infinite max height", func(c *Config) { c.MaxHeight = math.Inf(1) }},
		{"Should reject NaN radius", func(c *Config) { c.MaxDistanceFromCenter = math.NaN() }},
		{"Should reject infinite radius", func(c *Config) { c.MaxDistanceFromCenter = math.Inf(1) }},
	}

	for _, ex := range examples {
		t.Run(ex.Name, func(t *testing.T) {
			cfg := DefaultConfig()
			ex.Mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, "fleet.json", `{"agentCount": 8, "maxHeight": 18, "strategy": "zonal"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.AgentCount)
	assert.Equal(t, 18.0, cfg.MaxHeight)
	assert.Equal(t, StrategyZonal, cfg.Strategy)
	// untouched keys keep their defaults
	assert.Equal(t, 40.0, cfg.MaxDistanceFromCenter)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, "fleet.toml", `
agentCount = 16
repulsionRadius = 10.0
primaryTrackingIndices = [0, 1, 2]
primaryHeightBand = [6.0, 9.0]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.AgentCount)
	assert.Equal(t, 10.0, cfg.RepulsionRadius)
	assert.Equal(t, []int{0, 1, 2}, cfg.PrimaryTrackingIndices)
	assert.Equal(t, [2]float64{6, 9}, cfg.PrimaryHeightBand)
}

func TestLoadConfig_SchemaRejects(t *testing.T) {
	tests := map[string]string{
		"agent count":   `{"agentCount": 32}`,
		"unknown key":   `{"agentCounts": 12}`,
		"wrong type":    `{"minHeight": "low"}`,
		"bad strategy":  `{"strategy": "chaos"}`,
		"short band":    `{"primaryHeightBand": [5]}`,
		"zero distance": `{"maxDistanceFromCenter": 0}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "bad.json", doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_CrossFieldRejects(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "bad.json", `{"minHeight": 12, "maxHeight": 11}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "broken.json", `{"agentCount": `))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "fleet.yaml", `agentCount: 12`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
