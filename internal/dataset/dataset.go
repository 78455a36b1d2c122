package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidResolution = errors.New("dataset: resolution must be in (0, 1]")
	ErrEmptySelection    = errors.New("dataset: threshold selection is empty")
	ErrMissingColumn     = errors.New("dataset: missing z or y column")
	ErrEmpty             = errors.New("dataset: no observations")
)

type Observation struct {
	Z float64
	Y float64
}

// Dataset is the full observation table. It is read once and never mutated,
// so it can be shared by concurrent threshold tasks.
type Dataset struct {
	obs []Observation
}

func New(obs []Observation) *Dataset {
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	return &Dataset{obs: cp}
}

func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Parse reads a whitespace-delimited table. A first line with non-numeric
// tokens is a header naming the columns; otherwise z and y are columns 0 and 1.
func Parse(r io.Reader) (*Dataset, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	zCol, yCol := 0, 1
	headerSeen := false
	lineNo := 0
	obs := make([]Observation, 0, 1024)

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if !headerSeen && len(obs) == 0 && !numeric(fields) {
			headerSeen = true
			zCol, yCol = -1, -1
			for i, name := range fields {
				switch strings.ToLower(name) {
				case "z":
					zCol = i
				case "y":
					yCol = i
				}
			}
			if zCol < 0 || yCol < 0 {
				return nil, ErrMissingColumn
			}
			continue
		}

		if len(fields) <= zCol || len(fields) <= yCol {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", lineNo, max(zCol, yCol)+1, len(fields))
		}
		z, err := strconv.ParseFloat(fields[zCol], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: z: %w", lineNo, err)
		}
		y, err := strconv.ParseFloat(fields[yCol], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: y: %w", lineNo, err)
		}
		obs = append(obs, Observation{Z: z, Y: y})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, ErrEmpty
	}

	return &Dataset{obs: obs}, nil
}

func numeric(fields []string) bool {
	for _, f := range fields {
		if _, err := strconv.ParseFloat(f, 64); err != nil {
			return false
		}
	}
	return true
}

// Write emits the table in the format Parse reads, with a "z y" header.
func Write(w io.Writer, obs []Observation) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "z y"); err != nil {
		return err
	}
	for _, o := range obs {
		if _, err := fmt.Fprintf(bw, "%.17e %.17e\n", o.Z, o.Y); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (d *Dataset) Len() int { return len(d.obs) }

func (d *Dataset) Observations() []Observation {
	cp := make([]Observation, len(d.obs))
	copy(cp, d.obs)
	return cp
}

// UniqueZ returns the distinct z values in ascending order.
func (d *Dataset) UniqueZ() []float64 {
	zs := make([]float64, len(d.obs))
	for i, o := range d.obs {
		zs[i] = o.Z
	}
	sort.Float64s(zs)

	out := zs[:0]
	for i, z := range zs {
		if i == 0 || z != zs[i-1] {
			out = append(out, z)
		}
	}
	return out
}

// Downsample takes every stride-th value, stride = len/n, and truncates the
// result to n values.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) == 0 {
		return nil
	}
	if n > len(values) {
		n = len(values)
	}
	step := len(values) / n

	out := make([]float64, 0, n)
	for i := 0; i < len(values) && len(out) < n; i += step {
		out = append(out, values[i])
	}
	return out
}

// SelectThresholds returns floor(unique*resolution) thresholds drawn from the
// unique z values, ascending.
func (d *Dataset) SelectThresholds(resolution float64) ([]float64, error) {
	if err := ValidateResolution(resolution); err != nil {
		return nil, err
	}
	unique := d.UniqueZ()
	target := int(float64(len(unique)) * resolution)
	if target == 0 {
		return nil, fmt.Errorf("%w: %d unique z at resolution %g", ErrEmptySelection, len(unique), resolution)
	}
	return Downsample(unique, target), nil
}

func ValidateResolution(resolution float64) error {
	if !(resolution > 0 && resolution <= 1) {
		return fmt.Errorf("%w: got %g", ErrInvalidResolution, resolution)
	}
	return nil
}

// Filter returns the cumulative set of rows with z <= threshold.
func (d *Dataset) Filter(threshold float64) []Observation {
	out := make([]Observation, 0, len(d.obs))
	for _, o := range d.obs {
		if o.Z <= threshold {
			out = append(out, o)
		}
	}
	return out
}

// Boundary returns the rows at the largest z not exceeding threshold.
func (d *Dataset) Boundary(threshold float64) []Observation {
	filtered := d.Filter(threshold)
	if len(filtered) == 0 {
		return nil
	}
	zMax := filtered[0].Z
	for _, o := range filtered[1:] {
		if o.Z > zMax {
			zMax = o.Z
		}
	}

	out := make([]Observation, 0, 16)
	for _, o := range filtered {
		if o.Z == zMax {
			out = append(out, o)
		}
	}
	return out
}

func Ys(obs []Observation) []float64 {
	ys := make([]float64, len(obs))
	for i, o := range obs {
		ys[i] = o.Y
	}
	return ys
}

func Zs(obs []Observation) []float64 {
	zs := make([]float64, len(obs))
	for i, o := range obs {
		zs[i] = o.Z
	}
	return zs
}
