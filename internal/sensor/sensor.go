// v1
// internal/sensor/sensor.go
package sensor

import (
	"math"
	"math/rand"
	"time"
)

// Reading is one synthetic sample of the four water-quality probes.
// JSON field names match the persisted record layout consumed by the
// dashboard, so they are not normalized to Go casing.
type Reading struct {
	PH          float64 `json:"pH"`
	Turbidity   float64 `json:"turbidity"`
	Temperature float64 `json:"temperature"`
	TDS         float64 `json:"TDS"`

	CapturedAt time.Time `json:"-"`
}

// Calibration bounds the value ranges drawn per probe.
type Calibration struct {
	PHMin, PHMax               float64
	TurbidityMin, TurbidityMax float64
	TempMin, TempMax           float64
	TDSMin, TDSMax             float64
}

// DefaultCalibration mirrors the reference probe ranges: pH is drawn one
// unit beyond the safe band on either side so out-of-range warnings occur.
func DefaultCalibration() Calibration {
	return Calibration{
		PHMin: 5.5, PHMax: 9.5,
		TurbidityMin: 0, TurbidityMax: 10,
		TempMin: 15, TempMax: 35,
		TDSMin: 50, TDSMax: 1000,
	}
}

// Generator produces synthetic readings. Not safe for concurrent use;
// each robot session owns its own generator.
type Generator struct {
	cal Calibration
	rng *rand.Rand
}

// NewGenerator seeds a generator with the given calibration.
func NewGenerator(cal Calibration, seed int64) *Generator {
	return &Generator{cal: cal, rng: rand.New(rand.NewSource(seed))}
}

// Sample reads all probes once. The error return exists for the session's
// fail-stop contract; synthetic probes never fail.
func (g *Generator) Sample() (Reading, error) {
	return Reading{
		PH:          round2(g.uniform(g.cal.PHMin, g.cal.PHMax)),
		Turbidity:   round2(g.uniform(g.cal.TurbidityMin, g.cal.TurbidityMax)),
		Temperature: round2(g.uniform(g.cal.TempMin, g.cal.TempMax)),
		TDS:         round2(g.uniform(g.cal.TDSMin, g.cal.TDSMax)),
		CapturedAt:  time.Now().UTC(),
	}, nil
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
