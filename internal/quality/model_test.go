// v1
// internal/quality/model_test.go
package quality

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/riverbotics/aquafleet/internal/sensor"
)

func cleanWater() sensor.Reading {
	return sensor.Reading{PH: 7.2, Turbidity: 1.0, Temperature: 24, TDS: 220}
}

func dirtyWater() sensor.Reading {
	return sensor.Reading{PH: 5.6, Turbidity: 8.5, Temperature: 34, TDS: 850}
}

func TestScoreDeterministic(t *testing.T) {
	a := NewModel()
	b := NewModel()
	r := cleanWater()
	sa, err := a.Score(r)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	sb, _ := b.Score(r)
	if sa != sb {
		t.Fatalf("two fits disagree: %v vs %v", sa, sb)
	}
}

func TestScoreOrderingAndBounds(t *testing.T) {
	m := NewModel()
	good, err := m.Score(cleanWater())
	if err != nil {
		t.Fatalf("score clean: %v", err)
	}
	bad, err := m.Score(dirtyWater())
	if err != nil {
		t.Fatalf("score dirty: %v", err)
	}
	if good <= bad {
		t.Fatalf("clean water scored %v, dirty %v; expected clean > dirty", good, bad)
	}
	for _, s := range []float64{good, bad} {
		if s < 0 || s > 100 {
			t.Fatalf("score %v outside [0,100]", s)
		}
	}
}

func TestScoreClamped(t *testing.T) {
	m := NewModel()
	// Extreme inputs must still land inside the score range.
	s, err := m.Score(sensor.Reading{PH: 14, Turbidity: 100, Temperature: 90, TDS: 5000})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if s < 0 || s > 100 {
		t.Fatalf("score %v outside [0,100]", s)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{95, StatusExcellent},
		{90, StatusExcellent},
		{89.99, StatusGood},
		{70, StatusGood},
		{69.99, StatusFair},
		{50, StatusFair},
		{49.99, StatusPoor},
		{30, StatusPoor},
		{29.99, StatusVeryPoor},
		{0, StatusVeryPoor},
	}
	for _, c := range cases {
		if got := StatusFor(c.score); got != c.want {
			t.Fatalf("StatusFor(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestAssessWarnings(t *testing.T) {
	m := NewModel()

	a, err := m.Assess(cleanWater())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if len(a.Warnings) != 0 {
		t.Fatalf("clean water produced warnings: %v", a.Warnings)
	}
	if a.Warnings == nil {
		t.Fatal("warnings must be an empty slice, not nil")
	}

	a, err = m.Assess(dirtyWater())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if len(a.Warnings) != 4 {
		t.Fatalf("expected all 4 warnings, got %d: %v", len(a.Warnings), a.Warnings)
	}
	if a.Status != StatusFor(a.Score) {
		t.Fatalf("status %q does not match score %v", a.Status, a.Score)
	}
}

func TestAssessSingleWarningRules(t *testing.T) {
	m := NewModel()
	cases := []struct {
		name    string
		reading sensor.Reading
		substr  string
	}{
		{"low pH", sensor.Reading{PH: 6.0, Turbidity: 1, Temperature: 24, TDS: 200}, "pH"},
		{"high turbidity", sensor.Reading{PH: 7.0, Turbidity: 6.5, Temperature: 24, TDS: 200}, "Turbidity"},
		{"high temperature", sensor.Reading{PH: 7.0, Turbidity: 1, Temperature: 31, TDS: 200}, "Temperature"},
		{"high TDS", sensor.Reading{PH: 7.0, Turbidity: 1, Temperature: 24, TDS: 600}, "TDS"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := m.Assess(c.reading)
			if err != nil {
				t.Fatalf("assess: %v", err)
			}
			if len(a.Warnings) != 1 {
				t.Fatalf("expected exactly 1 warning, got %v", a.Warnings)
			}
		})
	}
}

func TestSaveLoadWeightsRoundTrip(t *testing.T) {
	m := NewModel()
	path := filepath.Join(t.TempDir(), "weights.json")
	if err := m.SaveWeights(path); err != nil {
		t.Fatalf("save weights: %v", err)
	}
	loaded, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("load weights: %v", err)
	}
	r := cleanWater()
	want, _ := m.Score(r)
	got, err := loaded.Score(r)
	if err != nil {
		t.Fatalf("score with loaded weights: %v", err)
	}
	if got != want {
		t.Fatalf("loaded model scores %v, original %v", got, want)
	}
}

func TestLoadWeightsRejectsWrongShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	if err := os.WriteFile(path, []byte(`{"means":[1,2],"stds":[1,2],"coef":[1]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWeights(path); err == nil {
		t.Fatal("expected error for truncated weights")
	}
}
