// v1
// internal/report/report.go

// Package report derives read-only views over a river's history: latest
// slices, rolling averages, the before/after comparison used by exports,
// and the dashboard summary. It never mutates session or durable state.
package report

import (
	"errors"
	"math"
	"time"

	"github.com/riverbotics/aquafleet/internal/storage"
)

// ErrNoData marks the "no readings yet" condition; the API layer maps it
// to an empty-but-valid or 404 body depending on the endpoint.
var ErrNoData = errors.New("no data available")

// DefaultLatestCount is the slice size for the latest-readings endpoint.
const DefaultLatestCount = 20

// Rolling windows used by the two aggregate consumers.
const (
	AverageWindow = 100 // water-quality/average endpoint
	SummaryWindow = 50  // dashboard summary statistics
)

// HistorySource is what the facade needs from the fleet.
type HistorySource interface {
	History(riverID string) ([]storage.Record, error)
	DisplayName(riverID string) string
}

// Facade answers read-only queries against a history source.
type Facade struct {
	src HistorySource
}

// NewFacade wraps a history source.
func NewFacade(src HistorySource) *Facade {
	return &Facade{src: src}
}

// Latest returns the last n records in capture order (fewer if the
// history is shorter) along with the total history length.
func (f *Facade) Latest(riverID string, n int) ([]storage.Record, int, error) {
	if n <= 0 {
		n = DefaultLatestCount
	}
	recs, err := f.src.History(riverID)
	if err != nil {
		return nil, 0, err
	}
	total := len(recs)
	if total > n {
		recs = recs[total-n:]
	}
	return recs, total, nil
}

// Averages holds per-field means over a rolling window, rounded to two
// decimals.
type Averages struct {
	Samples      int     `json:"samples"`
	PH           float64 `json:"pH"`
	Turbidity    float64 `json:"turbidity"`
	Temperature  float64 `json:"temperature"`
	TDS          float64 `json:"TDS"`
	QualityScore float64 `json:"quality_score"`
}

// Average computes per-field means over the most recent window records.
// Returns ErrNoData when the history is empty.
func (f *Facade) Average(riverID string, window int) (Averages, error) {
	if window <= 0 {
		window = AverageWindow
	}
	recs, err := f.src.History(riverID)
	if err != nil {
		return Averages{}, err
	}
	if len(recs) == 0 {
		return Averages{}, ErrNoData
	}
	if len(recs) > window {
		recs = recs[len(recs)-window:]
	}
	var avg Averages
	for _, rec := range recs {
		avg.PH += rec.Sensors.PH
		avg.Turbidity += rec.Sensors.Turbidity
		avg.Temperature += rec.Sensors.Temperature
		avg.TDS += rec.Sensors.TDS
		avg.QualityScore += rec.Quality.Score
	}
	n := float64(len(recs))
	avg.Samples = len(recs)
	avg.PH = round2(avg.PH / n)
	avg.Turbidity = round2(avg.Turbidity / n)
	avg.Temperature = round2(avg.Temperature / n)
	avg.TDS = round2(avg.TDS / n)
	avg.QualityScore = round2(avg.QualityScore / n)
	return avg, nil
}

// Comparison contrasts the first and last record of the stored history.
// Turbidity's delta is computed before-after because a decrease is an
// improvement; all other fields use after-before.
type Comparison struct {
	BeforeAt time.Time `json:"before_at"`
	AfterAt  time.Time `json:"after_at"`

	ScoreBefore float64 `json:"score_before"`
	ScoreAfter  float64 `json:"score_after"`
	ScoreDelta  float64 `json:"score_delta"`

	PHBefore float64 `json:"pH_before"`
	PHAfter  float64 `json:"pH_after"`
	PHDelta  float64 `json:"pH_delta"`

	TurbidityBefore float64 `json:"turbidity_before"`
	TurbidityAfter  float64 `json:"turbidity_after"`
	TurbidityDelta  float64 `json:"turbidity_delta"`

	TemperatureBefore float64 `json:"temperature_before"`
	TemperatureAfter  float64 `json:"temperature_after"`
	TemperatureDelta  float64 `json:"temperature_delta"`

	TDSBefore float64 `json:"TDS_before"`
	TDSAfter  float64 `json:"TDS_after"`
	TDSDelta  float64 `json:"TDS_delta"`
}

// BeforeAfter compares the oldest and newest record.
func (f *Facade) BeforeAfter(riverID string) (Comparison, error) {
	recs, err := f.src.History(riverID)
	if err != nil {
		return Comparison{}, err
	}
	if len(recs) == 0 {
		return Comparison{}, ErrNoData
	}
	first, last := recs[0], recs[len(recs)-1]
	return Comparison{
		BeforeAt: first.Timestamp,
		AfterAt:  last.Timestamp,

		ScoreBefore: first.Quality.Score,
		ScoreAfter:  last.Quality.Score,
		ScoreDelta:  round2(last.Quality.Score - first.Quality.Score),

		PHBefore: first.Sensors.PH,
		PHAfter:  last.Sensors.PH,
		PHDelta:  round2(last.Sensors.PH - first.Sensors.PH),

		TurbidityBefore: first.Sensors.Turbidity,
		TurbidityAfter:  last.Sensors.Turbidity,
		TurbidityDelta:  round2(first.Sensors.Turbidity - last.Sensors.Turbidity),

		TemperatureBefore: first.Sensors.Temperature,
		TemperatureAfter:  last.Sensors.Temperature,
		TemperatureDelta:  round2(last.Sensors.Temperature - first.Sensors.Temperature),

		TDSBefore: first.Sensors.TDS,
		TDSAfter:  last.Sensors.TDS,
		TDSDelta:  round2(last.Sensors.TDS - first.Sensors.TDS),
	}, nil
}

// CurrentReading is the dashboard's snapshot of the newest record.
type CurrentReading struct {
	QualityScore float64 `json:"quality_score"`
	Status       string  `json:"status"`
	PH           float64 `json:"pH"`
	Turbidity    float64 `json:"turbidity"`
	Temperature  float64 `json:"temperature"`
	TDS          float64 `json:"TDS"`
}

// SummaryStats aggregates the recent window for the dashboard.
type SummaryStats struct {
	AverageQualityScore float64 `json:"average_quality_score"`
	TotalReadings       int     `json:"total_readings"`
	RecentReadings      int     `json:"recent_readings"`
	TotalWarnings       int     `json:"total_warnings"`
}

// Summary bundles the current reading with rolling statistics. Current is
// nil when the river has no data; that is not an error.
type Summary struct {
	Current    *CurrentReading `json:"current"`
	Statistics SummaryStats    `json:"statistics"`
}

// Summary builds the dashboard view for one river.
func (f *Facade) Summary(riverID string) (Summary, error) {
	recs, err := f.src.History(riverID)
	if err != nil {
		return Summary{}, err
	}
	if len(recs) == 0 {
		return Summary{}, nil
	}
	latest := recs[len(recs)-1]
	recent := recs
	if len(recent) > SummaryWindow {
		recent = recent[len(recent)-SummaryWindow:]
	}
	var scoreSum float64
	warnings := 0
	for _, rec := range recent {
		scoreSum += rec.Quality.Score
		warnings += len(rec.Quality.Warnings)
	}
	return Summary{
		Current: &CurrentReading{
			QualityScore: latest.Quality.Score,
			Status:       latest.Quality.Status,
			PH:           latest.Sensors.PH,
			Turbidity:    latest.Sensors.Turbidity,
			Temperature:  latest.Sensors.Temperature,
			TDS:          latest.Sensors.TDS,
		},
		Statistics: SummaryStats{
			AverageQualityScore: round2(scoreSum / float64(len(recent))),
			TotalReadings:       len(recs),
			RecentReadings:      len(recent),
			TotalWarnings:       warnings,
		},
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
