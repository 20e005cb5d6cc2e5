// Package store persists the JSON documents the pipeline produces. Every write
// goes to a temp file in the target directory and is renamed into place, so an
// interrupted run never leaves a truncated document behind.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"SectorSentinel/internal/model"
)

// ErrExists is returned when a create-if-absent write finds the document already there.
var ErrExists = errors.New("document already exists")

const (
	baselineFile      = "baseline.json"
	trailingHighFile  = "ltm_high.json"
	sectorNewsFile    = "sector_news.json"
	privateHealthFile = "private_health.json"
)

// Store is a directory of JSON documents.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) DailyPath(date string) string { return filepath.Join(s.Dir, date+".json") }

func (s *Store) IntradayPath(date, label string) string {
	return filepath.Join(s.Dir, date+"-"+label+".json")
}

func (s *Store) BaselinePath() string      { return filepath.Join(s.Dir, baselineFile) }
func (s *Store) TrailingHighPath() string  { return filepath.Join(s.Dir, trailingHighFile) }
func (s *Store) SectorNewsPath() string    { return filepath.Join(s.Dir, sectorNewsFile) }
func (s *Store) PrivateHealthPath() string { return filepath.Join(s.Dir, privateHealthFile) }

// Exists reports whether path is present.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadJSON decodes the document at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSON atomically replaces the document at path.
func WriteJSON(path string, v any) error {
	tmp, err := writeTemp(path, v)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSONIfAbsent atomically creates the document at path, returning
// ErrExists if it is already there. The final step is a hard link, which
// fails instead of replacing an existing file.
func WriteJSONIfAbsent(path string, v any) error {
	if Exists(path) {
		return ErrExists
	}
	tmp, err := writeTemp(path, v)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	err = os.Link(tmp, path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrExist):
		return ErrExists
	}
	// Filesystems without hard links fall back to check-then-rename.
	if Exists(path) {
		return ErrExists
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeTemp(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// DailyDates lists the dates of persisted daily snapshots, oldest first.
// Intraday variants ({date}-{label}.json) are skipped.
func (s *Store) DailyDates() ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var dates []string
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		if _, err := model.ParseDate(name); err != nil {
			continue
		}
		dates = append(dates, name)
	}
	sort.Strings(dates)
	return dates, nil
}

// LoadDaily reads the daily snapshot for date.
func (s *Store) LoadDaily(date string) (*model.DailySnapshot, error) {
	var snap model.DailySnapshot
	if err := ReadJSON(s.DailyPath(date), &snap); err != nil {
		return nil, err
	}
	if snap.Tickers == nil {
		snap.Tickers = make(map[string]model.TickerRecord)
	}
	if snap.Sectors == nil {
		snap.Sectors = make(map[string]model.SectorAggregate)
	}
	return &snap, nil
}

// LoadBaseline reads baseline.json.
func (s *Store) LoadBaseline() (*model.Baseline, error) {
	var b model.Baseline
	if err := ReadJSON(s.BaselinePath(), &b); err != nil {
		return nil, err
	}
	if b.Tickers == nil {
		b.Tickers = make(map[string]model.BaselineEntry)
	}
	return &b, nil
}

// LoadTrailingHigh reads ltm_high.json.
func (s *Store) LoadTrailingHigh() (*model.TrailingHigh, error) {
	var h model.TrailingHigh
	if err := ReadJSON(s.TrailingHighPath(), &h); err != nil {
		return nil, err
	}
	if h.Tickers == nil {
		h.Tickers = make(map[string]model.HighEntry)
	}
	if h.Sectors == nil {
		h.Sectors = make(map[string]model.SectorHigh)
	}
	return &h, nil
}
