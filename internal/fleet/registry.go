// v1
// internal/fleet/registry.go

// Package fleet holds the fixed set of robot sessions, keyed by river
// identifier. The key set is built once at startup and never changes at
// runtime; the only mutable piece is the display-name overlay, which is
// persisted separately and affects labels only.
package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/riverbotics/aquafleet/internal/robot"
	"github.com/riverbotics/aquafleet/internal/storage"
)

// ErrRiverNotFound is returned for identifiers outside the configured set.
var ErrRiverNotFound = errors.New("river not found")

// RiverSpec configures one registry entry.
type RiverSpec struct {
	ID          string
	RobotID     string
	DefaultName string
}

// Registry routes commands and queries to the right session.
type Registry struct {
	log      *slog.Logger
	sessions map[string]*robot.Session
	order    []string

	namesPath string
	nmu       sync.RWMutex
	names     map[string]string // riverID -> user-assigned display name
	defaults  map[string]string
}

// SessionFactory builds the session for one river; the registry passes it
// a resolver for the river's current display name.
type SessionFactory func(spec RiverSpec, nameFn func() string) *robot.Session

// NewRegistry builds the fixed fleet from the configured specs, loading
// the display-name overlay from namesPath if present.
func NewRegistry(specs []RiverSpec, namesPath string, factory SessionFactory, log *slog.Logger) (*Registry, error) {
	if len(specs) == 0 {
		return nil, errors.New("no rivers configured")
	}
	r := &Registry{
		log:       log,
		sessions:  make(map[string]*robot.Session, len(specs)),
		namesPath: namesPath,
		names:     make(map[string]string),
		defaults:  make(map[string]string, len(specs)),
	}
	r.loadNames()

	for _, spec := range specs {
		if _, dup := r.sessions[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate river id %q", spec.ID)
		}
		id := spec.ID
		r.defaults[id] = spec.DefaultName
		r.sessions[id] = factory(spec, func() string { return r.DisplayName(id) })
		r.order = append(r.order, id)
	}
	log.Info("fleet registry built", "rivers", len(r.order))
	return r, nil
}

// Session looks up the session for a river.
func (r *Registry) Session(riverID string) (*robot.Session, error) {
	s, ok := r.sessions[riverID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRiverNotFound, riverID)
	}
	return s, nil
}

// Rivers returns the configured river identifiers in startup order.
func (r *Registry) Rivers() []string {
	return append([]string(nil), r.order...)
}

// DisplayName resolves a river's label: user overlay first, then the
// configured default, then the raw identifier.
func (r *Registry) DisplayName(riverID string) string {
	r.nmu.RLock()
	name := r.names[riverID]
	r.nmu.RUnlock()
	if name != "" {
		return name
	}
	if def := r.defaults[riverID]; def != "" {
		return def
	}
	return riverID
}

// Names returns the effective display name per configured river.
func (r *Registry) Names() map[string]string {
	out := make(map[string]string, len(r.order))
	for _, id := range r.order {
		out[id] = r.DisplayName(id)
	}
	return out
}

// Rename assigns a user display name to a river and persists the overlay.
// Renaming never touches a running session beyond the label it reports.
func (r *Registry) Rename(riverID, name string) error {
	if _, ok := r.sessions[riverID]; !ok {
		return fmt.Errorf("%w: %s", ErrRiverNotFound, riverID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("display name must not be empty")
	}
	r.nmu.Lock()
	r.names[riverID] = name
	err := r.saveNamesLocked()
	r.nmu.Unlock()
	if err != nil {
		return err
	}
	r.log.Info("river renamed", "river", riverID, "name", name)
	return nil
}

// History exposes a river's record history for the reporting facade.
func (r *Registry) History(riverID string) ([]storage.Record, error) {
	s, err := r.Session(riverID)
	if err != nil {
		return nil, err
	}
	return s.History(), nil
}

// Shutdown stops every session and waits for their acquisition loops.
func (r *Registry) Shutdown(ctx context.Context) {
	for _, id := range r.order {
		if err := r.sessions[id].Close(ctx); err != nil {
			r.log.Warn("session close timed out", "river", id, "err", err)
		}
	}
}

func (r *Registry) loadNames() {
	if r.namesPath == "" {
		return
	}
	b, err := os.ReadFile(r.namesPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("river names overlay unreadable", "path", r.namesPath, "err", err)
		}
		return
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		r.log.Warn("river names overlay corrupt, ignoring", "path", r.namesPath, "err", err)
		return
	}
	r.names = m
}

func (r *Registry) saveNamesLocked() error {
	if r.namesPath == "" {
		return nil
	}
	b, err := json.Marshal(r.names)
	if err != nil {
		return fmt.Errorf("marshal river names: %w", err)
	}
	tmp := r.namesPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write river names: %w", err)
	}
	if err := os.Rename(tmp, r.namesPath); err != nil {
		return fmt.Errorf("replace river names: %w", err)
	}
	return nil
}
