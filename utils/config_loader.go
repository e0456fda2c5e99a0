package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crashtest-analyzer/models"
)

// ─── Recording layout ───────────────────────────────────────────────────

// CellRef addresses one cell of the header block (0-based file row and column).
type CellRef struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

// RecordingConfig declares the fixed layout of a data-acquisition export.
type RecordingConfig struct {
	PrefixRows    int      `yaml:"prefix_rows"`
	MinColumns    int      `yaml:"min_columns"`
	TestID        CellRef  `yaml:"test_id"`
	SampleRate    CellRef  `yaml:"sample_rate"`
	ChannelRow    int      `yaml:"channel_row"`
	HeaderRows    int      `yaml:"header_rows"`
	DataHeaderRow int      `yaml:"data_header_row"`
	Keywords      []string `yaml:"keywords"` // one per role, in matching order
}

// ─── Pipelines ──────────────────────────────────────────────────────────

type SpeedConfig struct {
	WindowSamples     int     `yaml:"window_samples"`
	ResampleFactor    float64 `yaml:"resample_factor"`
	ReferenceLevel    float64 `yaml:"reference_level"`
	MinProminence     float64 `yaml:"min_prominence"`
	ExpectedPeaks     int     `yaml:"expected_peaks"`
	PlotLeadSeconds   float64 `yaml:"plot_lead_seconds"`
	PlotMarginSeconds float64 `yaml:"plot_margin_seconds"`
}

type BiasConfig struct {
	Start          models.ParamSpec `yaml:"start"`
	End            models.ParamSpec `yaml:"end"`
	MinTime        float64          `yaml:"min_time"`
	MaxTime        float64          `yaml:"max_time"`
	OutputSuffix   string           `yaml:"output_suffix"`
	FloatPrecision int              `yaml:"float_precision"`
}

type FrameColumns struct {
	Roll  string `yaml:"roll"`
	Pitch string `yaml:"pitch"`
	Yaw   string `yaml:"yaw"`
	ASI   string `yaml:"asi"`
}

type FramesConfig struct {
	SkipRows               []int        `yaml:"skip_rows"`
	MaxRows                int          `yaml:"max_rows"`
	SmoothingWindowSeconds float64      `yaml:"smoothing_window_seconds"`
	PreRollFrames          int          `yaml:"preroll_frames"`
	AccelMargin            float64      `yaml:"accel_margin"`
	AngleMargin            float64      `yaml:"angle_margin"`
	XPadSeconds            float64      `yaml:"x_pad_seconds"`
	OutputSubdir           string       `yaml:"output_subdir"`
	Workers                int          `yaml:"workers"`
	PanelWidth             int          `yaml:"panel_width"`
	PanelHeight            int          `yaml:"panel_height"`
	TitleFontSize          float64      `yaml:"title_font_size"`
	Columns                FrameColumns `yaml:"columns"`

	OIV               models.ParamSpec `yaml:"oiv"`
	FinalTime         models.ParamSpec `yaml:"final_time"`
	FinalTimeExtended models.ParamSpec `yaml:"final_time_extended"`
	CameraRate        models.ParamSpec `yaml:"camera_rate"`
}

type RenderConfig struct {
	PanelWidth  int     `yaml:"panel_width"`
	PanelHeight int     `yaml:"panel_height"`
	DPI         float64 `yaml:"dpi"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// BatchConfig controls multi-file speed/bias runs. Each run gets its own
// session directory holding a summary CSV.
type BatchConfig struct {
	SessionPrefix   string   `yaml:"session_prefix"`
	Workers         int      `yaml:"workers"`
	FlushIntervalMs int      `yaml:"flush_interval_ms"`
	BufferSizeKB    int      `yaml:"buffer_size_kb"`
	Extensions      []string `yaml:"extensions"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	BaseDir string `yaml:"base_dir"`
}

// Config is the top-level structure for analysis.yaml.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Recording RecordingConfig `yaml:"recording"`
	Speed     SpeedConfig     `yaml:"speed"`
	Bias      BiasConfig      `yaml:"bias"`
	Frames    FramesConfig    `yaml:"frames"`
	Render    RenderConfig    `yaml:"render"`
	Batch     BatchConfig     `yaml:"batch"`
	Server    ServerConfig    `yaml:"server"`
}

// DefaultConfig returns the built-in configuration for the standard
// 7-channel export.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Recording: RecordingConfig{
			PrefixRows:    50,
			MinColumns:    7,
			TestID:        CellRef{Row: 3, Col: 1},
			SampleRate:    CellRef{Row: 5, Col: 1},
			ChannelRow:    9,
			HeaderRows:    22,
			DataHeaderRow: 22,
			Keywords:      []string{"Speed", "Long", "Lat", "Vert", "Roll", "Pitch", "Yaw"},
		},
		Speed: SpeedConfig{
			WindowSamples:     16750,
			ResampleFactor:    22.25,
			ReferenceLevel:    -100,
			MinProminence:     35,
			ExpectedPeaks:     4,
			PlotLeadSeconds:   0.001,
			PlotMarginSeconds: 0.002,
		},
		Bias: BiasConfig{
			Start:          models.ParamSpec{Policy: models.PolicyDefaultable, Default: models.DefaultBiasStart},
			End:            models.ParamSpec{Policy: models.PolicyDefaultable, Default: models.DefaultBiasEnd},
			MinTime:        0,
			MaxTime:        10,
			OutputSuffix:   "_OFFSET",
			FloatPrecision: -1,
		},
		Frames: FramesConfig{
			SkipRows:               []int{0, 1, 2, 4},
			MaxRows:                60000,
			SmoothingWindowSeconds: 0.010,
			PreRollFrames:          10,
			AccelMargin:            2,
			AngleMargin:            1,
			XPadSeconds:            0.005,
			OutputSubdir:           "generated_images",
			Workers:                4,
			PanelWidth:             1200,
			PanelHeight:            320,
			TitleFontSize:          16,
			Columns: FrameColumns{
				Roll:  "Roll Angle",
				Pitch: "Pitch Angle",
				Yaw:   "Yaw Angle",
				ASI:   "ASI",
			},
			OIV:               models.ParamSpec{Policy: models.PolicyRequired, Default: 0.160124},
			FinalTime:         models.ParamSpec{Policy: models.PolicyRequired, Default: 0.01},
			FinalTimeExtended: models.ParamSpec{Policy: models.PolicyRequired, Default: 0.5},
			CameraRate:        models.ParamSpec{Policy: models.PolicyRequired, Default: 1000},
		},
		Render: RenderConfig{PanelWidth: 1000, PanelHeight: 360, DPI: 92},
		Batch: BatchConfig{
			SessionPrefix:   "batch",
			Workers:         2,
			FlushIntervalMs: 500,
			BufferSizeKB:    64,
			Extensions:      []string{".csv", ".txt"},
		},
		Server: ServerConfig{Addr: ":8080", BaseDir: "static/files"},
	}
}

// ─── Loaders ────────────────────────────────────────────────────────────

// LoadConfig reads analysis.yaml over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipelines cannot run with.
func (c *Config) Validate() error {
	r := c.Recording
	if len(r.Keywords) != models.NumRoles {
		return fmt.Errorf("recording.keywords: want %d entries, got %d", models.NumRoles, len(r.Keywords))
	}
	if r.PrefixRows <= r.ChannelRow || r.PrefixRows <= r.TestID.Row || r.PrefixRows <= r.SampleRate.Row {
		return fmt.Errorf("recording.prefix_rows (%d) must cover the named header cells", r.PrefixRows)
	}
	if r.DataHeaderRow < r.HeaderRows-1 {
		return fmt.Errorf("recording.data_header_row (%d) lies inside the header block", r.DataHeaderRow)
	}
	if c.Speed.ResampleFactor <= 0 {
		return fmt.Errorf("speed.resample_factor must be positive")
	}
	if c.Speed.WindowSamples < 2 {
		return fmt.Errorf("speed.window_samples must be at least 2")
	}
	if c.Frames.PreRollFrames < 0 {
		return fmt.Errorf("frames.preroll_frames must not be negative")
	}
	if c.Frames.MaxRows <= 0 {
		return fmt.Errorf("frames.max_rows must be positive")
	}
	if len(c.Batch.Extensions) == 0 {
		return fmt.Errorf("batch.extensions must name at least one file extension")
	}
	for name, p := range map[string]models.ParamSpec{
		"bias.start": c.Bias.Start, "bias.end": c.Bias.End,
		"frames.oiv": c.Frames.OIV, "frames.final_time": c.Frames.FinalTime,
		"frames.final_time_extended": c.Frames.FinalTimeExtended, "frames.camera_rate": c.Frames.CameraRate,
	} {
		if p.Policy != models.PolicyDefaultable && p.Policy != models.PolicyRequired {
			return fmt.Errorf("%s.policy: unknown policy %q", name, p.Policy)
		}
	}
	return nil
}
