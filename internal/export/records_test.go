package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/sigbits/internal/storage"
	"github.com/san-kum/sigbits/internal/threshold"
)

var sampleRecords = []storage.IndexedRecord{
	{Index: 0, Threshold: 0.1, Record: threshold.Record{Z: 0.1, Mean: 1, Std: 0, SignificantBits: 52, SignificantDigits: 15.653559774527022}},
	{Index: 1, Threshold: 0.2, Record: threshold.Record{Z: 0.2, Mean: 0.5, Std: 2.5e-07, SignificantBits: 19.25, SignificantDigits: 5.79}},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "index,threshold,z,mean,std,significant_bits,significant_digits" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != "1,0.2,0.2,0.5,2.5e-07,19.25,5.79" {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	data := NewRunExport(storage.RunMetadata{ID: "abc", Format: "float"}, sampleRecords)

	if err := ExportJSON(path, data); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got RunExport
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Count != 2 || got.Run.ID != "abc" {
		t.Errorf("unexpected export %+v", got)
	}
	if got.Records[1].Record.Std != 2.5e-07 {
		t.Errorf("expected std 2.5e-07, got %g", got.Records[1].Record.Std)
	}
}
