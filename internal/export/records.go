package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/sigbits/internal/storage"
)

type RunExport struct {
	Run     storage.RunMetadata     `json:"run"`
	Count   int                     `json:"count"`
	Records []storage.IndexedRecord `json:"records"`
}

func NewRunExport(meta storage.RunMetadata, recs []storage.IndexedRecord) RunExport {
	return RunExport{Run: meta, Count: len(recs), Records: recs}
}

func WriteJSON(w io.Writer, data RunExport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data RunExport) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

var csvHeader = []string{"index", "threshold", "z", "mean", "std", "significant_bits", "significant_digits"}

func WriteCSV(w io.Writer, recs []storage.IndexedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		rec := r.Record
		row := []string{
			strconv.Itoa(r.Index),
			ff(r.Threshold),
			ff(rec.Z),
			ff(rec.Mean),
			ff(rec.Std),
			ff(rec.SignificantBits),
			ff(rec.SignificantDigits),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportCSV(path string, recs []storage.IndexedRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, recs)
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
