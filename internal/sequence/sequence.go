// Package sequence orders artifact names naturally, so that frame_2 sorts
// before frame_10.
package sequence

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Key splits s into alternating text and digit runs. The first run is always
// text (possibly empty), so runs at the same position in two keys have the
// same kind.
func Key(s string) []string {
	runs := make([]string, 0, 4)
	var cur strings.Builder
	digits := false

	for _, r := range s {
		isDigit := r >= '0' && r <= '9'
		if isDigit != digits {
			runs = append(runs, cur.String())
			cur.Reset()
			digits = isDigit
		}
		cur.WriteRune(r)
	}
	runs = append(runs, cur.String())
	return runs
}

// Less reports whether a sorts before b in natural order. Digit runs compare
// numerically and text runs case-insensitively; remaining ties fall back to
// the raw strings so the order is total.
func Less(a, b string) bool {
	if c := compareKeys(Key(a), Key(b)); c != 0 {
		return c < 0
	}
	return a < b
}

func compareKeys(ka, kb []string) int {
	for i := 0; i < len(ka) && i < len(kb); i++ {
		var c int
		if i%2 == 1 {
			c = compareNumeric(ka[i], kb[i])
		} else {
			c = compareText(ka[i], kb[i])
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(ka) < len(kb):
		return -1
	case len(ka) > len(kb):
		return 1
	}
	return 0
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func compareText(a, b string) int {
	return strings.Compare(strings.Map(unicode.ToLower, a), strings.Map(unicode.ToLower, b))
}

// Order returns a naturally sorted copy of ids.
func Order(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Glob returns the files in dir matching pattern in natural order.
func Glob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	return Order(matches), nil
}
