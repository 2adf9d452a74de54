// v1
// internal/telemetry/telemetry.go

// Package telemetry publishes acquisition records to an external broker.
// Publishing is fire-and-forget: the acquisition loop logs failures and
// moves on, and nothing downstream acknowledges into the core.
package telemetry

import (
	"context"
	"time"

	"github.com/riverbotics/aquafleet/internal/storage"
)

// Publisher pushes one record per acquisition cycle to a broker.
type Publisher interface {
	PublishRecord(ctx context.Context, rec storage.Record) error
	Close() error
}

// NopPublisher discards everything; used when no sink is configured and
// in tests.
type NopPublisher struct{}

func (NopPublisher) PublishRecord(context.Context, storage.Record) error { return nil }
func (NopPublisher) Close() error                                        { return nil }

// qualityPayload is the broker message for one reading, mirroring the
// dashboard's record layout minus the bulky history fields.
type qualityPayload struct {
	RobotID   string    `json:"robot_id"`
	RiverName string    `json:"river_name"`
	MissionID string    `json:"mission_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Sensors   any       `json:"sensor_data"`
	Quality   any       `json:"quality_prediction"`
}

// wastePayload announces a waste pickup on its own topic.
type wastePayload struct {
	RobotID   string    `json:"robot_id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	WasteType string    `json:"waste_type"`
	WeightKg  float64   `json:"weight_kg"`
	Action    string    `json:"action"`
}

func qualityPayloadFor(rec storage.Record) qualityPayload {
	return qualityPayload{
		RobotID:   rec.RobotID,
		RiverName: rec.RiverName,
		MissionID: rec.MissionID,
		Timestamp: rec.Timestamp,
		Sensors:   rec.Sensors,
		Quality:   rec.Quality,
	}
}

func wastePayloadFor(rec storage.Record) wastePayload {
	return wastePayload{
		RobotID:   rec.RobotID,
		Timestamp: rec.Timestamp,
		Event:     "waste_detected",
		WasteType: rec.Waste.Type,
		WeightKg:  rec.Waste.WeightKg,
		Action:    "collecting",
	}
}
