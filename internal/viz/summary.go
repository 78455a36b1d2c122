package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sigbits/internal/storage"
	"gonum.org/v1/gonum/floats"
)

type Stats struct {
	Count    int
	MinBits  float64
	MaxBits  float64
	MeanBits float64
	// Collapse is the first index with no significant bit left, or -1.
	Collapse int
}

func bitsOf(recs []storage.IndexedRecord) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = r.Record.SignificantBits
	}
	return out
}

func Summarize(recs []storage.IndexedRecord) Stats {
	s := Stats{Count: len(recs), Collapse: -1}
	if len(recs) == 0 {
		return s
	}
	bits := bitsOf(recs)
	s.MinBits = floats.Min(bits)
	s.MaxBits = floats.Max(bits)
	s.MeanBits = floats.Sum(bits) / float64(len(bits))
	for _, r := range recs {
		if r.Record.SignificantBits <= 0 {
			s.Collapse = r.Index
			break
		}
	}
	return s
}

// SummaryTable lays the records out one row per threshold, followed by the
// aggregate statistics.
func SummaryTable(recs []storage.IndexedRecord, t Theme) string {
	var sb strings.Builder

	header := fmt.Sprintf("%5s  %10s  %13s  %10s  %6s  %6s", "idx", "z", "T(z)", "std", "bits", "digits")
	sb.WriteString(headerStyle(t).Render(header))
	sb.WriteString("\n")

	for _, r := range recs {
		rec := r.Record
		row := fmt.Sprintf("%5d  %10.7f  %13.7f  %10.3e  ", r.Index, rec.Z, rec.Mean, rec.Std)
		sb.WriteString(row)
		sb.WriteString(BitsStyle(t, rec.SignificantBits).Render(fmt.Sprintf("%6.2f", rec.SignificantBits)))
		sb.WriteString(fmt.Sprintf("  %6.2f\n", rec.SignificantDigits))
	}

	s := Summarize(recs)
	sb.WriteString(Separator(t, len(header)))
	sb.WriteString("\n")
	sb.WriteString(stat(t, "thresholds", fmt.Sprintf("%d", s.Count)))
	if s.Count > 0 {
		sb.WriteString(stat(t, "bits min/mean/max", fmt.Sprintf("%.2f / %.2f / %.2f", s.MinBits, s.MeanBits, s.MaxBits)))
	}
	if s.Collapse >= 0 {
		sb.WriteString(stat(t, "precision lost at", fmt.Sprintf("index %d", s.Collapse)))
	}

	return panelStyle(t).Render(strings.TrimRight(sb.String(), "\n"))
}

func stat(t Theme, label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle(t).Render(fmt.Sprintf("%-18s", label)),
		valueStyle(t).Render(value),
	) + "\n"
}

// BitsChart plots significant bits against the threshold index.
func BitsChart(recs []storage.IndexedRecord, width, height int) string {
	if len(recs) == 0 {
		return ""
	}
	return asciigraph.Plot(bitsOf(recs),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("significant bits"),
	)
}

// BitsSparkline condenses a run's significant bits into one line.
func BitsSparkline(recs []storage.IndexedRecord, width int) string {
	return Sparkline(bitsOf(recs), width)
}
