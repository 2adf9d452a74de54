// v1
// internal/storage/record.go
package storage

import (
	"time"

	"github.com/riverbotics/aquafleet/internal/quality"
	"github.com/riverbotics/aquafleet/internal/sensor"
)

// WasteEvent describes an optional waste pickup attached to one
// acquisition cycle. A zero value means nothing was detected.
type WasteEvent struct {
	Detected bool    `json:"detected"`
	Type     string  `json:"type,omitempty"`
	WeightKg float64 `json:"weight"`
}

// Record is the persisted unit: one sensor sample with its derived
// quality assessment and any waste event, stamped with the mission that
// produced it. Records are immutable once created; the store only ever
// appends them and evicts from the front of the history.
type Record struct {
	RobotID   string             `json:"robot_id"`
	RiverName string             `json:"river_name"`
	Timestamp time.Time          `json:"timestamp"`
	Mission   int                `json:"mission"`
	MissionID string             `json:"mission_id,omitempty"`
	State     string             `json:"state"`
	Sensors   sensor.Reading     `json:"sensor_readings"`
	Quality   quality.Assessment `json:"water_quality"`
	Waste     WasteEvent         `json:"waste"`
}
