// v2
// internal/storage/store.go

// Package storage persists per-river reading histories as whole JSON
// documents. Each river owns one file; appends are read-modify-write with
// oldest-first eviction beyond the history bound. The store is tolerant of
// missing and malformed files: both load as empty (or best-effort
// recovered) state and are never surfaced as fatal errors.
//
// Appends for a single river are not safe for unsynchronized concurrent
// callers; the robot session guarantees a single writer per river
// structurally, so the store does not lock files.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultMaxHistory bounds the number of records kept per river.
const DefaultMaxHistory = 1000

// document is the on-disk shape of one river's durable state.
type document struct {
	Readings   []Record  `json:"readings"`
	TotalWaste float64   `json:"total_waste"`
	LastUpdate time.Time `json:"last_update"`
}

// Store reads and writes per-river JSON documents under a data directory.
type Store struct {
	dir        string
	maxHistory int
	log        *slog.Logger
}

// New creates the data directory if needed and returns a store bound to it.
func New(dir string, maxHistory int, log *slog.Logger) (*Store, error) {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	return &Store{dir: dir, maxHistory: maxHistory, log: log}, nil
}

// Path returns the durable file for a river.
func (s *Store) Path(riverID string) string {
	return filepath.Join(s.dir, "robot_data_"+riverID+".json")
}

// Load returns the history and accumulated waste total for a river.
// Missing files are empty state. A legacy bare-array file is recovered as
// the reading history with the waste total recomputed from embedded
// weights. Unreadable content loads as empty with a warning; load never
// fails the caller.
func (s *Store) Load(riverID string) ([]Record, float64) {
	b, err := os.ReadFile(s.Path(riverID))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("river file unreadable, starting empty", "river", riverID, "err", err)
		}
		return nil, 0
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err == nil {
		return doc.Readings, doc.TotalWaste
	}

	// Legacy shape: a bare array of records with no waste accumulator.
	var legacy []Record
	if err := json.Unmarshal(b, &legacy); err == nil {
		var total float64
		for _, rec := range legacy {
			total += rec.Waste.WeightKg
		}
		s.log.Warn("recovered legacy river file", "river", riverID, "records", len(legacy))
		return legacy, total
	}

	s.log.Warn("river file corrupt, starting empty", "river", riverID)
	return nil, 0
}

// Append merges one record into the river's durable state: re-reads the
// current document, appends, truncates to the newest maxHistory entries,
// adds the record's waste weight to the durable total, and writes the
// whole document back atomically (temp file + rename), so a reader never
// observes a torn file.
//
// Evicted records are dropped from the history but their waste stays in
// the total; the accumulator is additive, never recomputed.
func (s *Store) Append(riverID string, rec Record) error {
	readings, total := s.Load(riverID)

	readings = append(readings, rec)
	if len(readings) > s.maxHistory {
		readings = readings[len(readings)-s.maxHistory:]
	}
	total += rec.Waste.WeightKg

	doc := document{
		Readings:   readings,
		TotalWaste: total,
		LastUpdate: time.Now().UTC(),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal river document: %w", err)
	}

	path := s.Path(riverID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write river document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace river document: %w", err)
	}
	return nil
}

// Reset deletes the river's durable file. A missing file is not an error.
func (s *Store) Reset(riverID string) error {
	err := os.Remove(s.Path(riverID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove river document: %w", err)
	}
	return nil
}
