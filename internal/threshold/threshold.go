package threshold

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/sigbits/internal/dataset"
	"github.com/san-kum/sigbits/internal/significance"
	"gonum.org/v1/gonum/stat"
)

// Record is the per-threshold statistic over the boundary slice.
type Record struct {
	Z                 float64
	Mean              float64
	Std               float64
	SignificantBits   float64
	SignificantDigits float64
}

// Compute filters ds to z <= threshold and summarises y over the rows at the
// largest remaining z.
func Compute(ds *dataset.Dataset, threshold float64, est significance.Estimator) (Record, error) {
	boundary := ds.Boundary(threshold)
	if len(boundary) == 0 {
		return Record{}, ErrEmptyBoundary
	}

	ys := dataset.Ys(boundary)
	mean, std := meanStd(ys)
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(std) || math.IsInf(std, 0) {
		return Record{}, fmt.Errorf("%w: mean=%v std=%v", ErrNonFinite, mean, std)
	}

	sig, err := est.Estimate(ys, mean)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Z:                 boundary[0].Z,
		Mean:              mean,
		Std:               std,
		SignificantBits:   sig.Bits,
		SignificantDigits: sig.Digits,
	}, nil
}

// meanStd returns the mean and the sample (n-1) standard deviation. A single
// value has zero spread.
func meanStd(ys []float64) (float64, float64) {
	if len(ys) == 1 {
		return ys[0], 0
	}
	return stat.MeanStdDev(ys, nil)
}

func WriteRecord(w io.Writer, r Record) error {
	fields := []string{
		formatFloat(r.Z),
		formatFloat(r.Mean),
		formatFloat(r.Std),
		formatFloat(r.SignificantBits),
		formatFloat(r.SignificantDigits),
	}
	_, err := fmt.Fprintln(w, strings.Join(fields, " "))
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func ReadRecord(r io.Reader) (Record, error) {
	sc := bufio.NewScanner(r)
	var line string
	for sc.Scan() {
		line = strings.TrimSpace(sc.Text())
		if line != "" {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return Record{}, err
	}

	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Record{}, fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformedStats, len(fields))
	}

	var vals [5]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: field %d: %v", ErrMalformedStats, i, err)
		}
		vals[i] = v
	}

	return Record{
		Z:                 vals[0],
		Mean:              vals[1],
		Std:               vals[2],
		SignificantBits:   vals[3],
		SignificantDigits: vals[4],
	}, nil
}

func SaveRecord(path string, r Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteRecord(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadRecord(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	rec, err := ReadRecord(f)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
