package threshold

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/sigbits/internal/dataset"
	"github.com/san-kum/sigbits/internal/significance"
)

func testData() *dataset.Dataset {
	return dataset.New([]dataset.Observation{
		{Z: 0.1, Y: 1.0},
		{Z: 0.2, Y: 1.0},
		{Z: 0.2, Y: 1.0},
		{Z: 0.3, Y: 1.25},
		{Z: 0.3, Y: 0.75},
		{Z: 0.3, Y: 1.5},
		{Z: 0.3, Y: 0.5},
		{Z: 0.4, Y: 9.0},
	})
}

func TestComputeBoundarySlice(t *testing.T) {
	rec, err := Compute(testData(), 0.35, significance.Default())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	if rec.Z != 0.3 {
		t.Errorf("expected z 0.3, got %v", rec.Z)
	}
	if rec.Mean != 1.0 {
		t.Errorf("expected mean 1.0, got %v", rec.Mean)
	}
	wantStd := math.Sqrt((0.0625 + 0.0625 + 0.25 + 0.25) / 3)
	if math.Abs(rec.Std-wantStd) > 1e-12 {
		t.Errorf("expected std %v, got %v", wantStd, rec.Std)
	}

	sig, _ := significance.Estimate([]float64{1.25, 0.75, 1.5, 0.5}, 1.0)
	if rec.SignificantBits != sig.Bits {
		t.Errorf("expected bits %v, got %v", sig.Bits, rec.SignificantBits)
	}
	if rec.SignificantDigits != rec.SignificantBits*math.Log10(2) {
		t.Errorf("digits %v do not match bits %v", rec.SignificantDigits, rec.SignificantBits)
	}
}

func TestComputeIdenticalBoundary(t *testing.T) {
	rec, err := Compute(testData(), 0.2, significance.Default())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if rec.Std != 0 {
		t.Errorf("expected zero std, got %v", rec.Std)
	}
	if rec.SignificantBits != significance.MaxBits {
		t.Errorf("expected max bits, got %v", rec.SignificantBits)
	}
}

func TestComputeSingleRow(t *testing.T) {
	rec, err := Compute(testData(), 0.1, significance.Default())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if rec.Mean != 1.0 || rec.Std != 0 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestComputeEmptyBoundary(t *testing.T) {
	_, err := Compute(testData(), 0.0, significance.Default())
	if !errors.Is(err, ErrEmptyBoundary) {
		t.Errorf("expected ErrEmptyBoundary, got %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rec := Record{Z: 0.4375, Mean: -1.0 / 3.0, Std: 1.2e-7, SignificantBits: 17.25, SignificantDigits: 17.25 * math.Log10(2)}

	var buf bytes.Buffer
	if err := WriteRecord(&buf, rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	line := buf.String()
	if strings.Count(line, "\n") != 1 || len(strings.Fields(line)) != 5 {
		t.Errorf("expected one line of five fields, got %q", line)
	}

	got, err := ReadRecord(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != rec {
		t.Errorf("round trip mismatch: %+v != %+v", got, rec)
	}
}

func TestReadRecordMalformed(t *testing.T) {
	for _, in := range []string{"", "1 2 3", "1 2 3 4 x", "1 2 3 4 5 6"} {
		if _, err := ReadRecord(strings.NewReader(in)); !errors.Is(err, ErrMalformedStats) {
			t.Errorf("%q: expected ErrMalformedStats, got %v", in, err)
		}
	}
}

func TestStoreLayout(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(filepath.Join(dir, "plots"), "output.png")
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if got := filepath.Base(st.PlotPath(3)); got != "3_output.png" {
		t.Errorf("unexpected plot name %s", got)
	}
	if got := filepath.Base(st.StatsPath(3)); got != "3_output.png.txt" {
		t.Errorf("unexpected stats name %s", got)
	}

	for _, i := range []int{10, 2, 0} {
		if err := os.WriteFile(st.PlotPath(i), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := st.SaveRecord(i, Record{Z: float64(i)}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	plots, err := st.ListPlots()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(plots) != 3 {
		t.Fatalf("expected 3 plots, got %v", plots)
	}
	for k, want := range []int{0, 2, 10} {
		i, err := Index(plots[k])
		if err != nil || i != want {
			t.Errorf("plot %d: expected index %d, got %d (%v)", k, want, i, err)
		}
	}

	recs, err := st.Records()
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(recs) != 3 || recs[10].Z != 10 {
		t.Errorf("unexpected records %+v", recs)
	}
}

func TestIndexError(t *testing.T) {
	err := error(&IndexError{Index: 4, Threshold: 0.5, Wrapped: ErrEmptyBoundary})
	if !errors.Is(err, ErrEmptyBoundary) {
		t.Error("IndexError should unwrap to its cause")
	}
	var ie *IndexError
	if !errors.As(err, &ie) || ie.Index != 4 {
		t.Error("expected IndexError with index 4")
	}
}

func TestStoreClear(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir, "output.png")
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(st.PlotPath(i), []byte("png"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := st.SaveRecord(i, Record{Z: float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := st.Clear()
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if n != 6 {
		t.Errorf("expected 6 files removed, got %d", n)
	}
	plots, err := st.ListPlots()
	if err != nil {
		t.Fatal(err)
	}
	if len(plots) != 0 {
		t.Errorf("expected no plots left, got %v", plots)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
