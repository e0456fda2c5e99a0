package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashtest-analyzer/models"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	cfg, err := LoadConfig(writeYAML(t, `
speed:
  min_prominence: 20
frames:
  camera_rate: { policy: defaultable, default: 500 }
batch:
  workers: 8
`))
	require.NoError(t, err)
	assert.Equal(t, 20.0, cfg.Speed.MinProminence)
	assert.Equal(t, 22.25, cfg.Speed.ResampleFactor, "untouched keys keep their defaults")
	assert.Equal(t, models.ParamSpec{Policy: models.PolicyDefaultable, Default: 500}, cfg.Frames.CameraRate)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "batch", cfg.Batch.SessionPrefix)
}

func TestLoadConfig_Errors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        "speed: [",
		"keyword count":   "recording:\n  keywords: [Speed, Long]\n",
		"factor":          "speed:\n  resample_factor: 0\n",
		"unknown policy":  "bias:\n  start: { policy: maybe, default: 7 }\n",
		"no extensions":   "batch:\n  extensions: []\n",
		"header position": "recording:\n  data_header_row: 5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeYAML(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "config", "analysis.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLogLevel("debug"))
	assert.Equal(t, WARN, ParseLogLevel(" WARN "))
	assert.Equal(t, INFO, ParseLogLevel("chatty"))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 2, Millis(0.0015))
	assert.Equal(t, -2, Millis(-0.0015))
	assert.Equal(t, 160, Millis(0.160124))
	assert.Equal(t, 0, Millis(0))
}
