// v2
// internal/robot/session.go

// Package robot owns the per-river mission state machine: a timed
// acquisition loop running concurrently with the HTTP command surface.
// One Session exists per configured river for the whole process lifetime;
// at most one acquisition goroutine runs per session, guaranteed by the
// atomic check-and-set in Start.
package robot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riverbotics/aquafleet/internal/metrics"
	"github.com/riverbotics/aquafleet/internal/quality"
	"github.com/riverbotics/aquafleet/internal/sensor"
	"github.com/riverbotics/aquafleet/internal/storage"
	"github.com/riverbotics/aquafleet/internal/telemetry"
)

// Mission states.
const (
	StateIdle       = "IDLE"
	StateNavigating = "NAVIGATING"
)

// Command results, surfaced verbatim in HTTP response bodies.
const (
	StartStarted        = "started"
	StartAlreadyRunning = "already_running"
	StopStopped         = "stopped"
	StopNotRunning      = "not_running"
)

// Waste synthesis tunables: 15% chance per tick, uniform category,
// uniform weight in [0.1, 0.5) kg.
const wasteChance = 0.15

var wasteTypes = []string{"plastic_bottle", "plastic_bag", "foam", "organic"}

// Sampler reads the sensor suite once.
type Sampler interface {
	Sample() (sensor.Reading, error)
}

// Assessor scores a reading.
type Assessor interface {
	Assess(sensor.Reading) (quality.Assessment, error)
}

// Config carries the static identity and tunables of one session.
type Config struct {
	RobotID         string
	RiverID         string
	Tick            time.Duration // acquisition cadence, default 1s
	MaxHistory      int
	DefaultDuration time.Duration // used when Start gets no duration
	PublishTimeout  time.Duration // per-cycle telemetry budget
}

// Status is the read-only view returned by the status endpoint.
type Status struct {
	RobotID          string  `json:"robot_id"`
	RiverName        string  `json:"river_name"`
	IsRunning        bool    `json:"is_running"`
	MissionCount     int     `json:"mission_count"`
	State            string  `json:"state"`
	DataPoints       int     `json:"data_points"`
	WasteCollectedKg float64 `json:"waste_collected"`
	WasteItems       int     `json:"waste_items"`
}

// Session is the live state and control surface for one robot. Command
// methods (Start, Stop, Status, Reset) never block on the acquisition
// loop; the in-memory history mirror is written only by that loop, except
// for Reset, which is documented as safe to race against a running
// mission.
type Session struct {
	cfg      Config
	log      *slog.Logger
	store    *storage.Store
	sampler  Sampler
	assessor Assessor
	pub      telemetry.Publisher
	met      *metrics.Registry
	nameFn   func() string // display-name resolver, overlay-aware

	rng *rand.Rand // used only by the acquisition goroutine

	mu           sync.Mutex
	running      bool
	state        string
	missionCount int
	history      []storage.Record
	wasteKg      float64
	done         chan struct{} // closed when the current loop exits
}

// NewSession builds a session and loads any persisted history for its
// river so restarts resume with the durable state.
func NewSession(cfg Config, store *storage.Store, sampler Sampler, assessor Assessor,
	pub telemetry.Publisher, met *metrics.Registry, nameFn func() string, log *slog.Logger) *Session {

	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = storage.DefaultMaxHistory
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 5 * time.Minute
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 500 * time.Millisecond
	}
	if pub == nil {
		pub = telemetry.NopPublisher{}
	}
	if nameFn == nil {
		nameFn = func() string { return cfg.RiverID }
	}

	s := &Session{
		cfg:      cfg,
		log:      log.With("river", cfg.RiverID, "robot", cfg.RobotID),
		store:    store,
		sampler:  sampler,
		assessor: assessor,
		pub:      pub,
		met:      met,
		nameFn:   nameFn,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		state:    StateIdle,
	}
	s.history, s.wasteKg = store.Load(cfg.RiverID)
	s.log.Info("session initialized", "dataPoints", len(s.history), "wasteKg", s.wasteKg)
	return s
}

// Start schedules a mission of the given duration and returns without
// blocking. The running check and flag set happen under one lock
// acquisition, so two concurrent calls yield exactly one "started".
func (s *Session) Start(duration time.Duration) string {
	if duration <= 0 {
		duration = s.cfg.DefaultDuration
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return StartAlreadyRunning
	}
	s.running = true
	s.state = StateNavigating
	s.missionCount++
	missionID := uuid.NewString()
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	if s.met != nil {
		s.met.MissionsStarted.Inc()
		s.met.MissionsByRiver.Inc(s.cfg.RiverID)
	}
	s.log.Info("mission started", "missionId", missionID, "duration", duration)
	go s.runMission(duration, missionID, done)
	return StartStarted
}

// Stop clears the running flag. The acquisition loop observes it at the
// next cycle boundary; the in-flight cycle completes first.
func (s *Session) Stop() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return StopNotRunning
	}
	s.running = false
	s.log.Info("mission stop requested")
	return StopStopped
}

// runMission is the acquisition loop body. Duration expiry and an
// explicit Stop share the same exit path; an acquisition fault is
// fail-stop and leaves the session startable again.
func (s *Session) runMission(duration time.Duration, missionID string, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.state = StateIdle
		s.mu.Unlock()
	}()

	start := time.Now()
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			s.log.Info("mission stopped", "missionId", missionID)
			return
		}
		if time.Since(start) > duration {
			s.log.Info("mission completed", "missionId", missionID)
			return
		}
		if err := s.acquire(missionID); err != nil {
			s.log.Error("acquisition fault, stopping mission", "missionId", missionID, "err", err)
			return
		}
		<-ticker.C
	}
}

// acquire runs one cycle: sample, assess, draw waste, persist, mirror,
// publish. Collaborator errors propagate (fail-stop); a store failure is
// logged and the in-memory mirror still updates so the live view stays
// consistent while the durable copy lags.
func (s *Session) acquire(missionID string) error {
	reading, err := s.sampler.Sample()
	if err != nil {
		return fmt.Errorf("sensor read: %w", err)
	}
	assessment, err := s.assessor.Assess(reading)
	if err != nil {
		return fmt.Errorf("quality assessment: %w", err)
	}
	waste := s.drawWaste()

	s.mu.Lock()
	rec := storage.Record{
		RobotID:   s.cfg.RobotID,
		RiverName: s.nameFn(),
		Timestamp: time.Now().UTC(),
		Mission:   s.missionCount,
		MissionID: missionID,
		State:     s.state,
		Sensors:   reading,
		Quality:   assessment,
		Waste:     waste,
	}
	s.mu.Unlock()

	if err := s.store.Append(s.cfg.RiverID, rec); err != nil {
		s.log.Warn("durable append failed, keeping in-memory copy", "err", err)
	}

	s.mu.Lock()
	s.history = append(s.history, rec)
	if len(s.history) > s.cfg.MaxHistory {
		s.history = s.history[len(s.history)-s.cfg.MaxHistory:]
	}
	if waste.Detected {
		s.wasteKg += waste.WeightKg
	}
	s.mu.Unlock()

	if s.met != nil {
		s.met.RecordsAppended.Inc()
		if waste.Detected {
			s.met.WasteItems.Inc()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PublishTimeout)
	defer cancel()
	if err := s.pub.PublishRecord(ctx, rec); err != nil {
		if s.met != nil {
			s.met.PublishFailures.Inc()
		}
		s.log.Warn("telemetry publish failed", "err", err)
	}
	return nil
}

func (s *Session) drawWaste() storage.WasteEvent {
	if s.rng.Float64() >= wasteChance {
		return storage.WasteEvent{}
	}
	weight := 0.1 + s.rng.Float64()*0.4
	return storage.WasteEvent{
		Detected: true,
		Type:     wasteTypes[s.rng.Intn(len(wasteTypes))],
		WeightKg: math.Round(weight*100) / 100,
	}
}

// Status reports the session's current view. Pure read.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := 0
	for _, rec := range s.history {
		if rec.Waste.Detected {
			items++
		}
	}
	return Status{
		RobotID:          s.cfg.RobotID,
		RiverName:        s.nameFn(),
		IsRunning:        s.running,
		MissionCount:     s.missionCount,
		State:            s.state,
		DataPoints:       len(s.history),
		WasteCollectedKg: math.Round(s.wasteKg*100) / 100,
		WasteItems:       items,
	}
}

// History returns a copy of the in-memory mirror, reloading from the
// store first when the mirror is empty.
func (s *Session) History() []storage.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		if recs, total := s.store.Load(s.cfg.RiverID); len(recs) > 0 {
			s.history, s.wasteKg = recs, total
		}
	}
	out := make([]storage.Record, len(s.history))
	copy(out, s.history)
	return out
}

// Reset clears the in-memory history and waste accumulator and deletes
// the river's durable file. Safe to call while a mission runs: the next
// acquisition cycle appends to the now-empty history.
func (s *Session) Reset() error {
	if err := s.store.Reset(s.cfg.RiverID); err != nil {
		return err
	}
	s.mu.Lock()
	s.history = nil
	s.wasteKg = 0
	s.mu.Unlock()
	s.log.Info("session reset")
	return nil
}

// Close signals any running mission to stop and waits, bounded by ctx,
// for the acquisition goroutine to exit. Used at process shutdown.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
