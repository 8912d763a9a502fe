package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestEmptyAnalysisConfig_Defaults(t *testing.T) {
	cfg := EmptyAnalysisConfig()

	if got := cfg.GetFrameInterval(); got != 5*time.Minute {
		t.Errorf("GetFrameInterval() = %s, want 5m", got)
	}
	if got := cfg.GetSmoothingSigmaMinutes(); got != 10 {
		t.Errorf("GetSmoothingSigmaMinutes() = %v, want 10", got)
	}
	if got := cfg.GetFieldResolution(); got != 40 {
		t.Errorf("GetFieldResolution() = %d, want 40", got)
	}
	if got := cfg.GetTrendWindow(); got != 5 {
		t.Errorf("GetTrendWindow() = %d, want 5", got)
	}
	if got := cfg.GetAlignmentThreshold(); got != 0.5 {
		t.Errorf("GetAlignmentThreshold() = %v, want 0.5", got)
	}
	if got := cfg.GetWindSpeedCapFactor(); got != 1.25 {
		t.Errorf("GetWindSpeedCapFactor() = %v, want 1.25", got)
	}
	if got := cfg.GetWorkers(); got != 0 {
		t.Errorf("GetWorkers() = %d, want 0", got)
	}
}

func TestMustLoadDefaultConfig_MatchesAccessorDefaults(t *testing.T) {
	file := MustLoadDefaultConfig()
	empty := EmptyAnalysisConfig()

	if file.GetFrameInterval() != empty.GetFrameInterval() {
		t.Errorf("frame interval: file %s, accessor %s", file.GetFrameInterval(), empty.GetFrameInterval())
	}
	if file.GetSmoothingSigmaMinutes() != empty.GetSmoothingSigmaMinutes() {
		t.Errorf("sigma: file %v, accessor %v", file.GetSmoothingSigmaMinutes(), empty.GetSmoothingSigmaMinutes())
	}
	if file.GetFieldResolution() != empty.GetFieldResolution() {
		t.Errorf("resolution: file %d, accessor %d", file.GetFieldResolution(), empty.GetFieldResolution())
	}
	if file.GetOutlierPercentile() != empty.GetOutlierPercentile() {
		t.Errorf("percentile: file %v, accessor %v", file.GetOutlierPercentile(), empty.GetOutlierPercentile())
	}
	if file.GetSpikeRatioMax() != empty.GetSpikeRatioMax() {
		t.Errorf("spike ratio: file %v, accessor %v", file.GetSpikeRatioMax(), empty.GetSpikeRatioMax())
	}
	if file.GetTrendLabelThreshold() != empty.GetTrendLabelThreshold() {
		t.Errorf("trend label: file %v, accessor %v", file.GetTrendLabelThreshold(), empty.GetTrendLabelThreshold())
	}
}

func TestLoadAnalysisConfig_Partial(t *testing.T) {
	path := writeFile(t, "analysis.json", `{"frame_interval_minutes": 2.5, "trend_window": 7}`)

	cfg, err := LoadAnalysisConfig(path)
	if err != nil {
		t.Fatalf("LoadAnalysisConfig: %v", err)
	}
	if got := cfg.GetFrameInterval(); got != 150*time.Second {
		t.Errorf("GetFrameInterval() = %s, want 2m30s", got)
	}
	if got := cfg.GetTrendWindow(); got != 7 {
		t.Errorf("GetTrendWindow() = %d, want 7", got)
	}
	// unset fields keep their defaults
	if got := cfg.GetFieldResolution(); got != 40 {
		t.Errorf("GetFieldResolution() = %d, want 40", got)
	}
}

func TestLoadAnalysisConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "analysis.yaml", `{}`, "extension"},
		{"bad json", "analysis.json", `{`, "parse"},
		{"negative interval", "analysis.json", `{"frame_interval_minutes": -1}`, "frame_interval_minutes"},
		{"zero sigma", "analysis.json", `{"smoothing_sigma_minutes": 0}`, "smoothing_sigma_minutes"},
		{"tiny resolution", "analysis.json", `{"field_resolution": 1}`, "field_resolution"},
		{"threshold above one", "analysis.json", `{"alignment_threshold": 1.5}`, "alignment_threshold"},
		{"min observations too low", "analysis.json", `{"min_observations": 2}`, "min_observations"},
		{"percentile above 100", "analysis.json", `{"outlier_percentile": 101}`, "outlier_percentile"},
		{"negative workers", "analysis.json", `{"workers": -2}`, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)
			_, err := LoadAnalysisConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadAnalysisConfig_TooLarge(t *testing.T) {
	big := `{"workers": 1` + strings.Repeat(" ", maxConfigFileSize) + `}`
	path := writeFile(t, "big.json", big)
	if _, err := LoadAnalysisConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestLoadAnalysisConfig_Missing(t *testing.T) {
	if _, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := EmptyAnalysisConfig()
	cfg.FieldResolution = ptrInt(20)
	cfg.Workers = ptrInt(2)

	pad := 0.05
	site := &SiteConfig{Name: "harbor", Timezone: "UTC", MapPadding: &pad}
	engine, err := cfg.EngineConfig(site)
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if engine.Resolution != 20 || engine.Workers != 2 {
		t.Errorf("unexpected engine config %+v", engine)
	}
	if engine.MapPadding != 0.05 {
		t.Errorf("MapPadding = %v, want 0.05", engine.MapPadding)
	}
	if engine.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", engine.Location)
	}
	if engine.FrameInterval != 5*time.Minute {
		t.Errorf("FrameInterval = %s, want 5m", engine.FrameInterval)
	}

	if _, err := cfg.EngineConfig(nil); err != nil {
		t.Errorf("EngineConfig(nil): %v", err)
	}
}

func TestCleanOptions(t *testing.T) {
	cfg := EmptyAnalysisConfig()

	opts := cfg.CleanOptions(10)
	if opts.Percentile != 0 || opts.SpikeRatioMax != 0 || opts.SpikeWindow != 5 {
		t.Errorf("expected outlier screening off by default, got %+v", opts)
	}
	if opts.WindSpeedCap != 12.5 {
		t.Errorf("WindSpeedCap = %v, want 12.5", opts.WindSpeedCap)
	}

	if got := cfg.CleanOptions(0).WindSpeedCap; got != 0 {
		t.Errorf("expected no wind cap without a speed max, got %v", got)
	}
}

func TestEffective_FillsEveryField(t *testing.T) {
	eff := EmptyAnalysisConfig().Effective()
	if eff.FrameIntervalMinutes == nil || *eff.FrameIntervalMinutes != 5 {
		t.Errorf("FrameIntervalMinutes = %v", eff.FrameIntervalMinutes)
	}
	if eff.Workers == nil || eff.SpikeWindow == nil || eff.WindSpeedCapFactor == nil {
		t.Error("expected every field to be populated")
	}
	if err := eff.Validate(); err != nil {
		t.Errorf("effective config failed validation: %v", err)
	}
}

func TestCleanOptions_ScreeningOptIn(t *testing.T) {
	p99, ratio := 99.0, 50.0
	cfg := &AnalysisConfig{OutlierPercentile: &p99, SpikeRatioMax: &ratio}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	opts := cfg.CleanOptions(0)
	if opts.Percentile != 99 || opts.SpikeRatioMax != 50 {
		t.Errorf("configured screening not applied: %+v", opts)
	}
}
