// Package frame stacks a scatter plot, its caption strips and the precision
// bit diagram into one animation frame.
//
// A [Context] carries everything needed to draw text. It holds only the
// parsed font, which is immutable; each call builds its own face, so one
// Context can serve any number of goroutines.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"

	"github.com/san-kum/sigbits/internal/bitfield"
	"github.com/san-kum/sigbits/internal/plot"
	"github.com/san-kum/sigbits/internal/threshold"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var ErrMissingStats = errors.New("frame: missing stats file")

type Context struct {
	font *opentype.Font

	StripHeight int
	FontSize    float64
	PadX        int
	PadY        int
	Background  color.Color
	Foreground  color.Color
}

func NewContext() (*Context, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Context{
		font:        f,
		StripHeight: 50,
		FontSize:    25,
		PadX:        10 + 4*15,
		PadY:        10,
		Background:  color.White,
		Foreground:  color.Black,
	}, nil
}

// Captions returns the text strips for a record, top to bottom.
func Captions(r threshold.Record) []string {
	return []string{
		fmt.Sprintf("z = %.7f", r.Z),
		fmt.Sprintf("T(z) = %.7f ± %.3e", r.Mean, r.Std),
		fmt.Sprintf("Significant digits: %4.2f", r.SignificantDigits),
		fmt.Sprintf("Significant bits:   %4.2f", r.SignificantBits),
	}
}

// TextStrip renders one line of text on a full-width strip.
func (c *Context) TextStrip(text string, width int) (*image.NRGBA, error) {
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    c.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	img := image.NewNRGBA(image.Rect(0, 0, width, c.StripHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.Background), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c.Foreground),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(c.PadX), Y: fixed.I(c.PadY) + face.Metrics().Ascent},
	}
	d.DrawString(text)
	return img, nil
}

// Compose stacks plot, the caption strips of r and diagram, left-aligned.
// The diagram is drawn through its own alpha so only the cells cover the
// white background.
func (c *Context) Compose(plotImg image.Image, r threshold.Record, diagram image.Image) (*image.NRGBA, error) {
	width := plotImg.Bounds().Dx()

	parts := []image.Image{plotImg}
	for _, text := range Captions(r) {
		strip, err := c.TextStrip(text, width)
		if err != nil {
			return nil, err
		}
		parts = append(parts, strip)
	}
	parts = append(parts, diagram)

	height := 0
	for _, p := range parts {
		height += p.Bounds().Dy()
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(c.Background), image.Point{}, draw.Src)

	y := 0
	last := len(parts) - 1
	for i, p := range parts {
		b := p.Bounds()
		dst := image.Rect(0, y, b.Dx(), y+b.Dy())
		op := draw.Src
		if i == last {
			op = draw.Over
		}
		draw.Draw(out, dst, p, b.Min, op)
		y += b.Dy()
	}
	return out, nil
}

// ComposeRecord renders the diagram for r at the plot width and composes
// the frame.
func (c *Context) ComposeRecord(plotImg image.Image, r threshold.Record, f bitfield.Format) (*image.NRGBA, error) {
	diagram := bitfield.Render(r.SignificantBits, plotImg.Bounds().Dx(), f)
	return c.Compose(plotImg, r, diagram)
}

// ComposeFile loads a persisted plot image and its stats file and composes
// the frame. A missing stats file is an error, never a blank frame.
func (c *Context) ComposeFile(plotPath, statsPath string, f bitfield.Format) (*image.NRGBA, error) {
	rec, err := threshold.LoadRecord(statsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingStats, statsPath)
		}
		return nil, err
	}
	img, err := plot.Load(plotPath)
	if err != nil {
		return nil, err
	}
	return c.ComposeRecord(img, rec, f)
}
