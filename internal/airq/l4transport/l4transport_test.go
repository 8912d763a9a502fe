package l4transport

import (
	"math"
	"testing"

	"github.com/banshee-data/airquality.report/internal/airq/l3field"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestFromDirection(t *testing.T) {
	tests := []struct {
		name   string
		dir    float64
		speed  float64
		wantU  float64
		wantV  float64
		toward float64
	}{
		{"from north", 0, 2, 0, -2, 180},
		{"from east", 90, 2, -2, 0, 270},
		{"from south", 180, 3, 0, 3, 0},
		{"from west", 270, 1, 1, 0, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := FromDirection(tt.dir, tt.speed)
			if !approx(w.U, tt.wantU, 1e-12) || !approx(w.V, tt.wantV, 1e-12) {
				t.Errorf("FromDirection(%v, %v) = %+v, want (%v, %v)", tt.dir, tt.speed, w, tt.wantU, tt.wantV)
			}
			if !approx(w.Speed(), tt.speed, 1e-12) {
				t.Errorf("Speed() = %v, want %v", w.Speed(), tt.speed)
			}
			if d := angleDiff(w.MeteorologicalDirection(), tt.dir); d > 1e-9 {
				t.Errorf("MeteorologicalDirection() = %v, want %v", w.MeteorologicalDirection(), tt.dir)
			}
			if d := angleDiff(w.Bearing(), tt.toward); d > 1e-9 {
				t.Errorf("Bearing() = %v, want %v", w.Bearing(), tt.toward)
			}
		})
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

func TestWind_Calm(t *testing.T) {
	if !(Wind{U: 0.005, V: -0.009}).Calm() {
		t.Error("expected calm")
	}
	if (Wind{U: 0.005, V: 0.02}).Calm() {
		t.Error("expected not calm")
	}
}

func TestMeanWind(t *testing.T) {
	got := MeanWind([]Wind{{U: 1, V: 2}, {U: 3, V: -2}})
	if got != (Wind{U: 2, V: 0}) {
		t.Errorf("MeanWind = %+v", got)
	}
	if MeanWind(nil) != (Wind{}) {
		t.Error("expected zero wind for empty input")
	}
}

func TestClassify(t *testing.T) {
	c, err := NewClassifier(DefaultAlignmentThreshold)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	grad := l3field.Gradient{Bearing: 45, Magnitude: 10}
	// toward-bearing 45 means u = v > 0
	toward := func(bearing float64) Wind {
		r := bearing * math.Pi / 180
		return Wind{U: 3 * math.Sin(r), V: 3 * math.Cos(r)}
	}

	tests := []struct {
		name      string
		wind      Wind
		grad      l3field.Gradient
		wantAlign float64
		want      Indicator
	}{
		{"aligned", toward(45), grad, 1, Accumulating},
		{"opposite", toward(225), grad, -1, Dispersing},
		{"perpendicular", toward(135), grad, 0, Mixing},
		{"calm beats gradient", Wind{U: 0.001, V: 0.001}, grad, 0, Calm},
		{"no gradient", toward(45), l3field.Gradient{}, 0, Mixing},
		{"wraps across north", toward(350), l3field.Gradient{Bearing: 10, Magnitude: 1}, math.Cos(20 * math.Pi / 180), Accumulating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			align, ind := c.Classify(tt.wind, tt.grad)
			if ind != tt.want {
				t.Errorf("indicator = %s, want %s", ind, tt.want)
			}
			if !approx(align, tt.wantAlign, 1e-9) {
				t.Errorf("alignment = %v, want %v", align, tt.wantAlign)
			}
		})
	}
}

func TestNewClassifier_Invalid(t *testing.T) {
	for _, th := range []float64{-0.1, 1.5, math.NaN()} {
		if _, err := NewClassifier(th); err == nil {
			t.Errorf("expected error for threshold %v", th)
		}
	}
}

func TestUpwindness(t *testing.T) {
	lons := []float64{-1, 0, 1}
	lats := []float64{0, 0, 0}

	// wind blowing toward the east: the western sensor is upwind
	got := Upwindness(lons, lats, Wind{U: 5, V: 0})
	want := []float64{1, 0, -1}
	for i := range want {
		if !approx(got[i], want[i], 1e-12) {
			t.Errorf("upwindness[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUpwindness_Relative(t *testing.T) {
	// asymmetric layout: only the extreme sensor reaches magnitude 1
	got := Upwindness([]float64{0, 1, 4}, []float64{0, 0, 0}, Wind{U: 1})
	for _, v := range got {
		if v < -1-1e-12 || v > 1+1e-12 {
			t.Errorf("score %v outside [-1, 1]", v)
		}
	}
	if !approx(got[2], -1, 1e-12) {
		t.Errorf("most downwind sensor = %v, want -1", got[2])
	}
}

func TestUpwindness_Degenerate(t *testing.T) {
	tests := []struct {
		name       string
		lons, lats []float64
		wind       Wind
	}{
		{"calm", []float64{0, 1}, []float64{0, 1}, Wind{}},
		{"single sensor", []float64{3}, []float64{4}, Wind{U: 2}},
		{"coincident", []float64{2, 2, 2}, []float64{1, 1, 1}, Wind{U: 1, V: 1}},
		{"perpendicular spread", []float64{0, 0}, []float64{0, 1}, Wind{U: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, v := range Upwindness(tt.lons, tt.lats, tt.wind) {
				if v != 0 {
					t.Errorf("score[%d] = %v, want 0", i, v)
				}
			}
		})
	}
}
