package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/sigbits/internal/bitfield"
)

// BitFieldToSVG renders the bit diagram for bits as an SVG document of the
// given width, using the same cell geometry as the raster diagram.
func BitFieldToSVG(bits float64, width int, f bitfield.Format) string {
	cells := bitfield.Layout(bits, f)
	if width < len(cells) {
		width = len(cells)
	}
	height := bitfield.Height

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<g stroke="#000000" stroke-width="1">
`, width, height, width, height))

	top := 10
	cellHeight := height - 2*top

	for i, c := range cells {
		x0, x1 := bitfield.Bounds(i, len(cells), width)
		fill := c.Fill()
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="#%02x%02x%02x" fill-opacity="%.3f" data-kind="%s"/>
`, x0, top, x1-x0, cellHeight, fill.R, fill.G, fill.B, c.Opacity, c.Kind))
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
