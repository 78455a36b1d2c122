package bitfield

import (
	"errors"
	"math"
	"testing"
)

func mantissa(cells []Cell, f Format) []Cell {
	return cells[f.SignBits+f.ExponentBits:]
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name  string
		want  Format
		isErr bool
	}{
		{"float", Float, false},
		{"double", Double, false},
		{"half", Format{}, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if tt.isErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("%s: expected ErrUnknownFormat, got %v", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%s: got %+v, %v", tt.name, got, err)
		}
	}
	if Float.Width() != 32 || Double.Width() != 64 {
		t.Error("unexpected format widths")
	}
}

func TestLayoutFixedFields(t *testing.T) {
	cells := Layout(10, Double)
	if len(cells) != 64 {
		t.Fatalf("expected 64 cells, got %d", len(cells))
	}
	if cells[0].Kind != Sign || cells[0].Opacity != 0.5 {
		t.Errorf("unexpected sign cell %+v", cells[0])
	}
	for i := 1; i <= 11; i++ {
		if cells[i].Kind != Exponent || cells[i].Opacity != 0.5 {
			t.Errorf("cell %d: unexpected exponent cell %+v", i, cells[i])
		}
	}
}

func TestLayoutBitAccounting(t *testing.T) {
	for _, f := range []Format{Float, Double} {
		for b := 0.0; b <= float64(f.MantissaBits); b += 0.37 {
			m := mantissa(Layout(b, f), f)
			k := int(math.Floor(b))

			for i, c := range m {
				switch {
				case i < k:
					if c.Kind != Confident || c.Opacity != 1 {
						t.Fatalf("%s b=%v bit %d: expected full confident, got %+v", f.Name, b, i, c)
					}
				case i == k:
					want := (b-math.Floor(b))/2 + 0.5
					if c.Kind != Confident || c.Opacity != want {
						t.Fatalf("%s b=%v bit %d: expected partial %v, got %+v", f.Name, b, i, want, c)
					}
					if c.Opacity < 0.5 || c.Opacity >= 1 {
						t.Fatalf("%s b=%v: boundary opacity %v out of [0.5, 1)", f.Name, b, c.Opacity)
					}
				default:
					if c.Kind != Noise || c.Opacity != 1 {
						t.Fatalf("%s b=%v bit %d: expected noise, got %+v", f.Name, b, i, c)
					}
				}
			}
		}
	}
}

func TestLayoutIntegerBits(t *testing.T) {
	m := mantissa(Layout(5, Float), Float)
	if m[4].Opacity != 1 || m[5].Opacity != 0.5 || m[5].Kind != Confident || m[6].Kind != Noise {
		t.Errorf("unexpected cells around boundary: %+v %+v %+v", m[4], m[5], m[6])
	}
}

func TestLayoutClamping(t *testing.T) {
	tests := []struct {
		name string
		bits float64
		want Kind
	}{
		{"negative", -3.2, Noise},
		{"nan", math.NaN(), Noise},
		{"exactly max", 23, Confident},
		{"above max", 40.5, Confident},
		{"infinite", math.Inf(1), Confident},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, c := range mantissa(Layout(tt.bits, Float), Float) {
				if c.Kind != tt.want || c.Opacity != 1 {
					t.Fatalf("bit %d: expected %v at full opacity, got %+v", i, tt.want, c)
				}
			}
		})
	}
}

func TestRenderGeometry(t *testing.T) {
	img := Render(12.5, 1200, Float)
	if img.Bounds().Dx() != 1200 || img.Bounds().Dy() != Height {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}

	if a := img.NRGBAAt(0, 0).A; a != 0 {
		t.Errorf("expected transparent margin, got alpha %d", a)
	}

	cellColor := func(i int) (r, g, b, a uint8) {
		x0, x1 := Bounds(i, Float.Width(), 1200)
		c := img.NRGBAAt((x0+x1)/2, Height/2)
		return c.R, c.G, c.B, c.A
	}

	if r, g, b, a := cellColor(1 + 8 + 3); r != ConfidentColor.R || g != ConfidentColor.G || b != ConfidentColor.B || a != 255 {
		t.Errorf("mantissa bit 3 should be confident, got %d %d %d %d", r, g, b, a)
	}
	if _, _, _, a := cellColor(1 + 8 + 12); a != uint8(math.Round(0.75*255)) {
		t.Errorf("boundary bit alpha %d, want %d", a, uint8(math.Round(0.75*255)))
	}
	if r, g, b, _ := cellColor(1 + 8 + 20); r != NoiseColor.R || g != NoiseColor.G || b != NoiseColor.B {
		t.Errorf("mantissa bit 20 should be noise, got %d %d %d", r, g, b)
	}
	if _, _, _, a := cellColor(3); a != 128 {
		t.Errorf("exponent alpha %d, want 128", a)
	}
}

func TestRenderNarrowWidth(t *testing.T) {
	img := Render(3, 10, Double)
	if img.Bounds().Dx() != MinWidth(Double) {
		t.Errorf("narrow render should widen to %d, got %d", MinWidth(Double), img.Bounds().Dx())
	}
	if got := Render(3, MinWidth(Float), Float).Bounds().Dx(); got != MinWidth(Float) {
		t.Errorf("render at minimum width changed size to %d", got)
	}
}

func TestMinWidth(t *testing.T) {
	if MinWidth(Float) != 52 || MinWidth(Double) != 84 {
		t.Errorf("unexpected minimum widths %d, %d", MinWidth(Float), MinWidth(Double))
	}
}
