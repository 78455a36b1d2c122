package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	goodBits = 16
	warnBits = 8
)

func panelStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
}

func headerStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Border)
}

func labelStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func valueStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

// BitsStyle colors a bit count by how much precision is left.
func BitsStyle(t Theme, bits float64) lipgloss.Style {
	switch {
	case bits >= goodBits:
		return lipgloss.NewStyle().Foreground(t.Good)
	case bits >= warnBits:
		return lipgloss.NewStyle().Foreground(t.Warn)
	default:
		return lipgloss.NewStyle().Foreground(t.Bad).Bold(true)
	}
}

// ProgressBar renders a bar filled to percent in [0, 1].
func ProgressBar(t Theme, percent float64, width int) string {
	filled := int(percent * float64(width))
	filled = max(0, min(width, filled))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case percent > 0.8:
		return lipgloss.NewStyle().Foreground(t.Good).Render(bar)
	case percent > 0.4:
		return lipgloss.NewStyle().Foreground(t.Warn).Render(bar)
	}
	return lipgloss.NewStyle().Foreground(t.Primary).Render(bar)
}

// Sparkline renders values as a one-line bar chart of at most width cells.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := max(1, len(values)/width)

	var sb strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(len(chars)-1, idx))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

func Separator(t Theme, width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return labelStyle(t).Render(left + " ◆ " + right)
}
