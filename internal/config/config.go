package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/san-kum/sigbits/internal/bitfield"
	"github.com/san-kum/sigbits/internal/dataset"
	"github.com/san-kum/sigbits/internal/plot"
	"github.com/san-kum/sigbits/internal/sampler"
	"github.com/san-kum/sigbits/internal/significance"
	"gopkg.in/yaml.v3"
)

const (
	DefaultResolution = 0.1
	DefaultDuration   = 0.1
	DefaultFormat     = "float"
	DefaultPlotName   = "output.png"
)

// ErrPlotTooNarrow rejects plots narrower than the bit diagram drawn under
// them.
var ErrPlotTooNarrow = errors.New("config: plot narrower than the bit diagram")

type Config struct {
	Input      string          `yaml:"input"`
	PlotDir    string          `yaml:"plot_dir"`
	PlotName   string          `yaml:"plot_name"`
	FrameDir   string          `yaml:"frame_dir"`
	Output     string          `yaml:"output"`
	Format     string          `yaml:"format"`
	Resolution float64         `yaml:"resolution"`
	Duration   float64         `yaml:"duration"`
	Workers    int             `yaml:"workers"`
	Catalog    string          `yaml:"catalog"`
	Plot       PlotConfig      `yaml:"plot"`
	Estimator  EstimatorConfig `yaml:"estimator"`
	Generate   GenerateConfig  `yaml:"generate"`
	Log        LogConfig       `yaml:"log"`
}

type PlotConfig struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Title   string  `yaml:"title"`
	XMin    float64 `yaml:"x_min"`
	XMax    float64 `yaml:"x_max"`
	YMin    float64 `yaml:"y_min"`
	YMax    float64 `yaml:"y_max"`
	Cutoff  float64 `yaml:"cutoff"`
	Opacity float64 `yaml:"opacity"`
}

type EstimatorConfig struct {
	Method      string  `yaml:"method"`
	Error       string  `yaml:"error"`
	Probability float64 `yaml:"probability"`
	Confidence  float64 `yaml:"confidence"`
}

type GenerateConfig struct {
	Points    int     `yaml:"points"`
	Samples   int     `yaml:"samples"`
	ZMin      float64 `yaml:"z_min"`
	ZMax      float64 `yaml:"z_max"`
	Precision int     `yaml:"precision"`
	Seed      int64   `yaml:"seed"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	po := plot.DefaultOptions()
	est := significance.Default()
	gen := sampler.DefaultConfig()

	return &Config{
		Input:      "output",
		PlotDir:    "output_images",
		PlotName:   DefaultPlotName,
		FrameDir:   "frames",
		Output:     "animation.gif",
		Format:     DefaultFormat,
		Resolution: DefaultResolution,
		Duration:   DefaultDuration,
		Plot: PlotConfig{
			Width:   po.Width,
			Height:  po.Height,
			Title:   po.Title,
			XMin:    po.XMin,
			XMax:    po.XMax,
			YMin:    po.YMin,
			YMax:    po.YMax,
			Cutoff:  po.Cutoff,
			Opacity: po.Opacity,
		},
		Estimator: EstimatorConfig{
			Method:      string(est.Method),
			Error:       string(est.Error),
			Probability: est.Probability,
			Confidence:  est.Confidence,
		},
		Generate: GenerateConfig{
			Points:    gen.Points,
			Samples:   gen.Samples,
			ZMin:      gen.ZMin,
			ZMax:      gen.ZMax,
			Precision: gen.Precision,
			Seed:      gen.Seed,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base; keys absent from the file keep the
// values of base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings that would fail later stages, before any work
// starts.
func (c *Config) Validate() error {
	if err := dataset.ValidateResolution(c.Resolution); err != nil {
		return err
	}
	f, err := bitfield.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot size must be positive, got %dx%d", c.Plot.Width, c.Plot.Height)
	}
	if c.Plot.Width < bitfield.MinWidth(f) {
		return fmt.Errorf("%w: plot width %d is below %d for %s", ErrPlotTooNarrow, c.Plot.Width, bitfield.MinWidth(f), f.Name)
	}
	if c.Plot.XMax <= c.Plot.XMin || c.Plot.YMax <= c.Plot.YMin {
		return fmt.Errorf("plot ranges must be increasing")
	}
	if c.PlotName == "" {
		return fmt.Errorf("plot name must not be empty")
	}
	return c.EstimatorSettings().Validate()
}

func (c *Config) BitFormat() bitfield.Format {
	f, err := bitfield.ParseFormat(c.Format)
	if err != nil {
		return bitfield.Float
	}
	return f
}

func (c *Config) FrameDuration() time.Duration {
	return time.Duration(c.Duration * float64(time.Second))
}

func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func (c *Config) PlotOptions() plot.Options {
	opts := plot.DefaultOptions()
	opts.Width = c.Plot.Width
	opts.Height = c.Plot.Height
	opts.Title = c.Plot.Title
	opts.XMin, opts.XMax = c.Plot.XMin, c.Plot.XMax
	opts.YMin, opts.YMax = c.Plot.YMin, c.Plot.YMax
	opts.Cutoff = c.Plot.Cutoff
	opts.Opacity = c.Plot.Opacity
	return opts
}

func (c *Config) EstimatorSettings() significance.Estimator {
	return significance.Estimator{
		Method:      significance.Method(c.Estimator.Method),
		Error:       significance.ErrorMode(c.Estimator.Error),
		Probability: c.Estimator.Probability,
		Confidence:  c.Estimator.Confidence,
	}
}

func (c *Config) SamplerConfig() sampler.Config {
	return sampler.Config{
		Points:    c.Generate.Points,
		Samples:   c.Generate.Samples,
		ZMin:      c.Generate.ZMin,
		ZMax:      c.Generate.ZMax,
		Precision: c.Generate.Precision,
		Seed:      c.Generate.Seed,
	}
}
