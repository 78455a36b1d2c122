package frame

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/sigbits/internal/bitfield"
	"github.com/san-kum/sigbits/internal/plot"
	"github.com/san-kum/sigbits/internal/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

var rec = threshold.Record{
	Z:                 0.4375,
	Mean:              -0.123456789,
	Std:               0.0000123,
	SignificantBits:   12.5,
	SignificantDigits: 12.5 * math.Log10(2),
}

func TestCaptions(t *testing.T) {
	got := Captions(rec)
	want := []string{
		"z = 0.4375000",
		"T(z) = -0.1234568 ± 1.230e-05",
		"Significant digits: 3.76",
		"Significant bits:   12.50",
	}
	assert.Equal(t, want, got)
}

func TestComposeGeometry(t *testing.T) {
	ctx, err := NewContext()
	require.NoError(t, err)

	plotImg := solid(400, 300, color.RGBA{G: 200, A: 255})
	diagram := bitfield.Render(rec.SignificantBits, 400, bitfield.Float)

	out, err := ctx.Compose(plotImg, rec, diagram)
	require.NoError(t, err)

	wantHeight := 300 + 4*ctx.StripHeight + bitfield.Height
	assert.Equal(t, 400, out.Bounds().Dx())
	assert.Equal(t, wantHeight, out.Bounds().Dy())

	// plot on top
	assert.Equal(t, color.NRGBA{G: 200, A: 255}, out.NRGBAAt(10, 10))

	// strips are white with dark text somewhere in them
	stripTop := 300
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(399, stripTop+1))
	assert.True(t, hasDarkPixel(out, image.Rect(0, stripTop, 400, stripTop+ctx.StripHeight)))

	// diagram margin composited over white, cells opaque where confident
	diagTop := 300 + 4*ctx.StripHeight
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(0, diagTop))
	x0, x1 := bitfield.Bounds(1+8+2, bitfield.Float.Width(), 400)
	c := out.NRGBAAt((x0+x1)/2, diagTop+bitfield.Height/2)
	assert.Equal(t, bitfield.ConfidentColor, c)
}

func hasDarkPixel(img *image.NRGBA, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c := img.NRGBAAt(x, y); c.R < 64 && c.G < 64 && c.B < 64 {
				return true
			}
		}
	}
	return false
}

func TestComposeConcurrent(t *testing.T) {
	ctx, err := NewContext()
	require.NoError(t, err)
	plotImg := solid(200, 100, color.White)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(bits float64) {
			r := rec
			r.SignificantBits = bits
			_, err := ctx.ComposeRecord(plotImg, r, bitfield.Double)
			errs <- err
		}(float64(i) * 6.5)
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestComposeFile(t *testing.T) {
	ctx, err := NewContext()
	require.NoError(t, err)

	dir := t.TempDir()
	plotPath := filepath.Join(dir, "0_output.png")
	require.NoError(t, plot.Save(plotPath, solid(320, 240, color.White)))

	_, err = ctx.ComposeFile(plotPath, threshold.StatsPathFor(plotPath), bitfield.Float)
	assert.True(t, errors.Is(err, ErrMissingStats), "got %v", err)

	require.NoError(t, threshold.SaveRecord(threshold.StatsPathFor(plotPath), rec))
	out, err := ctx.ComposeFile(plotPath, threshold.StatsPathFor(plotPath), bitfield.Float)
	require.NoError(t, err)
	assert.Equal(t, 320, out.Bounds().Dx())

	require.NoError(t, os.Remove(plotPath))
	_, err = ctx.ComposeFile(plotPath, threshold.StatsPathFor(plotPath), bitfield.Float)
	assert.Error(t, err)
}
