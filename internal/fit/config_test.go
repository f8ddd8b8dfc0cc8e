package fit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"negative iterations", func(c *Config) { c.Iterations = -1 }, "Iterations"},
		{"negative min", func(c *Config) { c.MinSize = -2 }, "MinSize"},
		{"max equals min", func(c *Config) { c.MinSize, c.MaxSize = 5, 5 }, "MaxSize"},
		{"no shapes", func(c *Config) { c.Shapes = nil }, "Shapes"},
		{"unknown shape", func(c *Config) { c.Shapes = []Shape{Shape(9)} }, "Shapes"},
		{"zero adapt rate", func(c *Config) { c.Adaptive, c.AdaptRate = true, 0 }, "AdaptRate"},
		{"coeff of one", func(c *Config) { c.Adaptive, c.AdaptCoeff = true, 1 }, "AdaptCoeff"},
		{"zero rate ignored when not adaptive", func(c *Config) { c.AdaptRate = 0 }, ""},
		{"zero animation interval", func(c *Config) { c.Animate, c.AnimationInterval = true, 0 }, "AnimationInterval"},
		{"negative blur", func(c *Config) { c.Blur, c.BlurAmount = true, -1 }, "BlurAmount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigJSON(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shapes = []Shape{Rectangle, Line}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"shapes":["rectangle","line"]`)

	var decoded Config
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cfg, decoded)
}
