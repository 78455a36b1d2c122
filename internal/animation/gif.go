// Package animation encodes an ordered frame sequence as a looping GIF.
package animation

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/san-kum/sigbits/internal/plot"
)

var ErrNoFrames = errors.New("animation: no frames")

// Delay converts a frame duration to GIF delay units (1/100 s), at least 1.
func Delay(d time.Duration) int {
	cs := int(math.Round(d.Seconds() * 100))
	if cs < 1 {
		cs = 1
	}
	return cs
}

// Paletted quantizes img to the Plan9 palette with Floyd-Steinberg dithering.
func Paletted(img image.Image) *image.Paletted {
	b := img.Bounds()
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, b.Min)
	return p
}

// Encode writes frames in order, each shown for d, looping forever.
func Encode(w io.Writer, frames []image.Image, d time.Duration) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	delay := Delay(d)
	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(frames)),
		Delay:     make([]int, 0, len(frames)),
		LoopCount: 0,
	}
	for _, f := range frames {
		out.Image = append(out.Image, Paletted(f))
		out.Delay = append(out.Delay, delay)
	}
	return gif.EncodeAll(w, out)
}

// EncodeFiles loads every frame, in the given order, before encoding.
func EncodeFiles(path string, frames []string, d time.Duration) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	images := make([]image.Image, 0, len(frames))
	for _, name := range frames {
		img, err := plot.Load(name)
		if err != nil {
			return fmt.Errorf("load frame: %w", err)
		}
		images = append(images, img)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, images, d); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// OutputName appends ".gif" when name lacks it.
func OutputName(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".gif") {
		return name
	}
	return name + ".gif"
}
