// v1
// internal/quality/model.go

// Package quality scores sensor readings with a small deterministic model.
// The model is a least-squares linear fit over a fixed ten-sample training
// set, refit once at construction; it stands in for the reference
// deployment's toy regressor and satisfies the same threshold table.
package quality

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/riverbotics/aquafleet/internal/sensor"
)

// Assessment is the derived water-quality view attached to every record.
type Assessment struct {
	Score    float64  `json:"score"`
	Status   string   `json:"status"`
	Warnings []string `json:"warnings"`
}

const (
	StatusExcellent = "Excellent"
	StatusGood      = "Good"
	StatusFair      = "Fair"
	StatusPoor      = "Poor"
	StatusVeryPoor  = "Very Poor"
)

const numFeatures = 4

// Fixed training set: [pH, turbidity, temperature, TDS] -> score.
var (
	trainX = [][numFeatures]float64{
		{7.0, 2.0, 25, 300},
		{7.5, 1.5, 26, 250},
		{6.8, 3.0, 24, 400},
		{8.0, 4.0, 28, 500},
		{7.2, 2.5, 25, 350},
		{6.5, 5.0, 30, 600},
		{8.2, 1.0, 22, 200},
		{5.5, 8.0, 35, 800},
		{7.8, 2.0, 27, 300},
		{7.1, 3.5, 26, 450},
	}
	trainY = []float64{85, 95, 70, 50, 80, 40, 98, 20, 82, 65}
)

// Model holds the fitted coefficients and the feature scaler moments.
type Model struct {
	means  [numFeatures]float64
	stds   [numFeatures]float64
	coef   [numFeatures + 1]float64 // intercept first
	fitted bool
}

var errNotFitted = errors.New("quality model not fitted")

// NewModel fits the model on the fixed training samples. The fit is
// deterministic, so every process derives identical coefficients.
func NewModel() *Model {
	m := &Model{}
	m.fit()
	return m
}

func (m *Model) fit() {
	n := len(trainX)

	for j := 0; j < numFeatures; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += trainX[i][j]
		}
		m.means[j] = sum / float64(n)
	}
	for j := 0; j < numFeatures; j++ {
		var sq float64
		for i := 0; i < n; i++ {
			d := trainX[i][j] - m.means[j]
			sq += d * d
		}
		m.stds[j] = math.Sqrt(sq / float64(n))
		if m.stds[j] == 0 {
			m.stds[j] = 1
		}
	}

	// Normal equations on [1 | standardized features].
	const p = numFeatures + 1
	var xtx [p][p]float64
	var xty [p]float64
	for i := 0; i < n; i++ {
		var row [p]float64
		row[0] = 1
		for j := 0; j < numFeatures; j++ {
			row[j+1] = (trainX[i][j] - m.means[j]) / m.stds[j]
		}
		for a := 0; a < p; a++ {
			xty[a] += row[a] * trainY[i]
			for b := 0; b < p; b++ {
				xtx[a][b] += row[a] * row[b]
			}
		}
	}

	m.coef = solve(xtx, xty)
	m.fitted = true
}

// solve runs Gaussian elimination with partial pivoting on a dense 5x5
// system. The training design matrix is full rank, so no singular guard
// beyond the pivot check is needed.
func solve(a [numFeatures + 1][numFeatures + 1]float64, b [numFeatures + 1]float64) [numFeatures + 1]float64 {
	const p = numFeatures + 1
	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		if a[col][col] == 0 {
			continue
		}
		for r := col + 1; r < p; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < p; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	var x [numFeatures + 1]float64
	for r := p - 1; r >= 0; r-- {
		x[r] = b[r]
		for c := r + 1; c < p; c++ {
			x[r] -= a[r][c] * x[c]
		}
		if a[r][r] != 0 {
			x[r] /= a[r][r]
		}
	}
	return x
}

// Score predicts the quality score for a reading, clamped to [0,100] and
// rounded to two decimals.
func (m *Model) Score(r sensor.Reading) (float64, error) {
	if !m.fitted {
		return 0, errNotFitted
	}
	features := [numFeatures]float64{r.PH, r.Turbidity, r.Temperature, r.TDS}
	score := m.coef[0]
	for j := 0; j < numFeatures; j++ {
		score += m.coef[j+1] * (features[j] - m.means[j]) / m.stds[j]
	}
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*100) / 100, nil
}

// StatusFor maps a score onto the five-band status label.
func StatusFor(score float64) string {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 70:
		return StatusGood
	case score >= 50:
		return StatusFair
	case score >= 30:
		return StatusPoor
	default:
		return StatusVeryPoor
	}
}

// Assess scores a reading and attaches the status label and the warning
// list. Warning rules fire in a fixed order so persisted records are
// stable across runs.
func (m *Model) Assess(r sensor.Reading) (Assessment, error) {
	score, err := m.Score(r)
	if err != nil {
		return Assessment{}, err
	}
	warnings := []string{}
	if r.PH < 6.5 || r.PH > 8.5 {
		warnings = append(warnings, "pH level is out of safe range (6.5-8.5)")
	}
	if r.Turbidity > 5 {
		warnings = append(warnings, "Turbidity is high (>5 NTU)")
	}
	if r.Temperature > 30 {
		warnings = append(warnings, "Temperature is too high (>30C)")
	}
	if r.TDS > 500 {
		warnings = append(warnings, "TDS level is high (>500 ppm)")
	}
	return Assessment{Score: score, Status: StatusFor(score), Warnings: warnings}, nil
}

// weightsDoc is the on-disk shape for SaveWeights/LoadWeights.
type weightsDoc struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
	Coef  []float64 `json:"coef"`
}

// SaveWeights writes the fitted coefficients and scaler moments as JSON.
func (m *Model) SaveWeights(path string) error {
	if !m.fitted {
		return errNotFitted
	}
	doc := weightsDoc{
		Means: append([]float64(nil), m.means[:]...),
		Stds:  append([]float64(nil), m.stds[:]...),
		Coef:  append([]float64(nil), m.coef[:]...),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	return nil
}

// LoadWeights builds a model from previously saved weights, skipping the
// startup fit.
func LoadWeights(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	var doc weightsDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}
	if len(doc.Means) != numFeatures || len(doc.Stds) != numFeatures || len(doc.Coef) != numFeatures+1 {
		return nil, fmt.Errorf("weights file has wrong dimensions")
	}
	m := &Model{fitted: true}
	copy(m.means[:], doc.Means)
	copy(m.stds[:], doc.Stds)
	copy(m.coef[:], doc.Coef)
	return m, nil
}
