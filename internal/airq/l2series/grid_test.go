package l2series

import (
	"testing"
	"time"
)

func TestNewTimeGrid(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		start, end time.Time
		wantLen    int
		wantFirst  time.Time
	}{
		{"aligned", base, base.Add(20 * time.Minute), 5, base},
		{"ceil and floor", base.Add(2 * time.Minute), base.Add(23 * time.Minute), 4, base.Add(5 * time.Minute)},
		{"short span inside one interval", base.Add(time.Minute), base.Add(3 * time.Minute), 0, time.Time{}},
		{"single point", base.Add(4 * time.Minute), base.Add(6 * time.Minute), 1, base.Add(5 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewTimeGrid(tt.start, tt.end, DefaultFrameInterval)
			if err != nil {
				t.Fatalf("NewTimeGrid: %v", err)
			}
			if g.Len() != tt.wantLen {
				t.Fatalf("Len() = %d, want %d", g.Len(), tt.wantLen)
			}
			if tt.wantLen > 0 && !g.Times[0].Equal(tt.wantFirst) {
				t.Errorf("first = %s, want %s", g.Times[0], tt.wantFirst)
			}
			for i := 1; i < g.Len(); i++ {
				if g.Times[i].Sub(g.Times[i-1]) != DefaultFrameInterval {
					t.Errorf("spacing at %d = %s", i, g.Times[i].Sub(g.Times[i-1]))
				}
			}
		})
	}
}

func TestNewTimeGrid_Errors(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if _, err := NewTimeGrid(now, now, 0); err == nil {
		t.Error("expected error for zero interval")
	}
	if _, err := NewTimeGrid(now, now.Add(-time.Minute), time.Minute); err == nil {
		t.Error("expected error for reversed bounds")
	}
}

func TestTimeGrid_Seconds(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	g, _ := NewTimeGrid(base, base.Add(10*time.Minute), DefaultFrameInterval)
	s := g.Seconds()
	if s[0] != float64(base.Unix()) || s[2]-s[0] != 600 {
		t.Errorf("unexpected seconds %v", s)
	}
}
