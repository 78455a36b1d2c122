package threshold

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/sigbits/internal/sequence"
)

const statsExt = ".txt"

// Store lays out per-threshold artifacts in one directory: the plot image at
// "<i>_<base>" and its statistics at "<i>_<base>.txt".
type Store struct {
	dir  string
	base string
}

func NewStore(dir, base string) *Store {
	return &Store{dir: dir, base: base}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.dir, 0755)
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) PlotPath(i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_%s", i, s.base))
}

func (s *Store) StatsPath(i int) string {
	return s.PlotPath(i) + statsExt
}

// StatsPathFor returns the companion stats file of a plot image.
func StatsPathFor(plotPath string) string {
	return plotPath + statsExt
}

// Index recovers the sequence index from an artifact path.
func Index(path string) (int, error) {
	name := filepath.Base(path)
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("no index in %q", name)
	}
	return strconv.Atoi(prefix)
}

// ListPlots returns the plot images present in the store in natural order.
func (s *Store) ListPlots() ([]string, error) {
	return sequence.Glob(s.dir, "*_"+s.base)
}

func (s *Store) SaveRecord(i int, r Record) error {
	return SaveRecord(s.StatsPath(i), r)
}

func (s *Store) LoadRecord(i int) (Record, error) {
	return LoadRecord(s.StatsPath(i))
}

// Records loads every stats file in the store, keyed by index.
func (s *Store) Records() (map[int]Record, error) {
	files, err := sequence.Glob(s.dir, "*_"+s.base+statsExt)
	if err != nil {
		return nil, err
	}
	out := make(map[int]Record, len(files))
	for _, p := range files {
		i, err := Index(p)
		if err != nil {
			continue
		}
		rec, err := LoadRecord(p)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// Clear removes every plot image and stats file in the store and reports how
// many files it removed. Other files in the directory are left alone.
func (s *Store) Clear() (int, error) {
	plots, err := s.ListPlots()
	if err != nil {
		return 0, err
	}
	stats, err := sequence.Glob(s.dir, "*_"+s.base+statsExt)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range append(plots, stats...) {
		if err := os.Remove(p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
