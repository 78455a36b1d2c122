// Package bitfield draws the IEEE-754 layout of a float with its mantissa
// shaded by how many bits are statistically significant.
package bitfield

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

var ErrUnknownFormat = errors.New("bitfield: unknown format (want float or double)")

type Format struct {
	Name         string
	SignBits     int
	ExponentBits int
	MantissaBits int
}

var (
	Float  = Format{Name: "float", SignBits: 1, ExponentBits: 8, MantissaBits: 23}
	Double = Format{Name: "double", SignBits: 1, ExponentBits: 11, MantissaBits: 52}
)

func ParseFormat(name string) (Format, error) {
	switch name {
	case "float", "single", "binary32":
		return Float, nil
	case "double", "binary64":
		return Double, nil
	}
	return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

func (f Format) Width() int {
	return f.SignBits + f.ExponentBits + f.MantissaBits
}

type Kind int

const (
	Sign Kind = iota
	Exponent
	Confident
	Noise
)

func (k Kind) String() string {
	switch k {
	case Sign:
		return "sign"
	case Exponent:
		return "exponent"
	case Confident:
		return "confident"
	case Noise:
		return "noise"
	}
	return "unknown"
}

var (
	SignColor      = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	ExponentColor  = color.NRGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	ConfidentColor = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	NoiseColor     = color.NRGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
	BorderColor    = color.NRGBA{A: 0xff}
)

type Cell struct {
	Kind    Kind
	Opacity float64
}

func (c Cell) Fill() color.NRGBA {
	var base color.NRGBA
	switch c.Kind {
	case Sign:
		base = SignColor
	case Exponent:
		base = ExponentColor
	case Confident:
		base = ConfidentColor
	default:
		base = NoiseColor
	}
	base.A = uint8(math.Round(c.Opacity * 255))
	return base
}

// Layout assigns a kind and opacity to every bit, sign first. With
// k = floor(bits), mantissa bits below k are confident, bit k is confident at
// opacity frac(bits)/2 + 0.5 and the rest are noise. Negative (or NaN) bits
// give an all-noise mantissa; bits >= MantissaBits an all-confident one.
func Layout(bits float64, f Format) []Cell {
	cells := make([]Cell, 0, f.Width())
	for i := 0; i < f.SignBits; i++ {
		cells = append(cells, Cell{Kind: Sign, Opacity: 0.5})
	}
	for i := 0; i < f.ExponentBits; i++ {
		cells = append(cells, Cell{Kind: Exponent, Opacity: 0.5})
	}

	k, partial := -1, 0.0
	switch {
	case math.IsNaN(bits) || bits < 0:
		k = -1
	case bits >= float64(f.MantissaBits):
		k = f.MantissaBits
	default:
		whole := math.Floor(bits)
		k = int(whole)
		partial = (bits-whole)/2 + 0.5
	}

	for i := 0; i < f.MantissaBits; i++ {
		switch {
		case i < k:
			cells = append(cells, Cell{Kind: Confident, Opacity: 1})
		case i == k:
			cells = append(cells, Cell{Kind: Confident, Opacity: partial})
		default:
			cells = append(cells, Cell{Kind: Noise, Opacity: 1})
		}
	}
	return cells
}

const (
	Height = 60
	margin = 10
)

// Bounds returns the pixel span of cell i when n cells share width.
func Bounds(i, n, width int) (x0, x1 int) {
	inner := float64(width - 2*margin)
	if inner < float64(n) {
		inner = float64(n)
	}
	w := inner / float64(n)
	x0 = margin + int(math.Round(float64(i)*w))
	x1 = margin + int(math.Round(float64(i+1)*w))
	return x0, x1
}

// MinWidth is the narrowest diagram that gives every cell at least one pixel.
// Render widens narrower requests to this size.
func MinWidth(f Format) int {
	return f.Width() + 2*margin
}

// Render draws the diagram at the given width. Pixels outside the cells are
// transparent so the image can be composited with itself as the mask.
func Render(bits float64, width int, f Format) *image.NRGBA {
	cells := Layout(bits, f)
	if width < MinWidth(f) {
		width = MinWidth(f)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, Height))
	top, bottom := margin, Height-margin

	for i, c := range cells {
		x0, x1 := Bounds(i, len(cells), width)
		rect := image.Rect(x0, top, x1, bottom)
		draw.Draw(img, rect, image.NewUniform(c.Fill()), image.Point{}, draw.Src)
		strokeRect(img, rect, BorderColor)
	}
	return img
}

func strokeRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetNRGBA(x, r.Min.Y, c)
		img.SetNRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetNRGBA(r.Min.X, y, c)
		img.SetNRGBA(r.Max.X-1, y, c)
	}
}
