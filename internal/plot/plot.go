// Package plot is the scatter-plot backend: it renders the cumulative
// observations for one threshold on fixed axes.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/sigbits/internal/dataset"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	ErrNoPoints    = errors.New("plot: no observations below threshold")
	ErrUnsupported = errors.New("plot: unsupported image extension")
)

type Options struct {
	Width   int
	Height  int
	Title   string
	XMin    float64
	XMax    float64
	YMin    float64
	YMax    float64
	Opacity float64
	DotSize float64
	// Cutoff additionally bounds the plotted z range. Zero or negative
	// disables it.
	Cutoff float64
}

func DefaultOptions() Options {
	return Options{
		Width:   1200,
		Height:  800,
		Title:   "T(z)",
		XMin:    0,
		XMax:    1,
		YMin:    -3.5,
		YMax:    3.5,
		Opacity: 0.5,
		DotSize: 4,
		Cutoff:  1,
	}
}

var dotColor = drawing.ColorFromHex("636efa")

// Render draws every observation with z <= threshold (and <= Cutoff).
func Render(obs []dataset.Observation, threshold float64, opts Options) (image.Image, error) {
	limit := threshold
	if opts.Cutoff > 0 {
		limit = math.Min(limit, opts.Cutoff)
	}

	xs := make([]float64, 0, len(obs))
	ys := make([]float64, 0, len(obs))
	for _, o := range obs {
		if o.Z <= limit {
			xs = append(xs, o.Z)
			ys = append(ys, o.Y)
		}
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: z <= %g", ErrNoPoints, limit)
	}

	alpha := uint8(math.Round(math.Max(0, math.Min(1, opts.Opacity)) * 255))

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:  "z",
			Range: &chart.ContinuousRange{Min: opts.XMin, Max: opts.XMax},
		},
		YAxis: chart.YAxis{
			Name:  "y",
			Range: &chart.ContinuousRange{Min: opts.YMin, Max: opts.YMax},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "T(z)",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    opts.DotSize,
					DotColor:    dotColor.WithAlpha(alpha),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	return img, nil
}

// Save encodes img by the extension of path.
func Save(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch ext {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 92})
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load decodes a png, jpeg or gif image.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
