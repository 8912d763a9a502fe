package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/airq/l5frames"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// AnalysisConfig holds the tunable analysis parameters. Fields left out of
// the JSON stay nil and the Get* accessors supply defaults, so partial
// files are safe.
type AnalysisConfig struct {
	// Resampling
	FrameIntervalMinutes  *float64 `json:"frame_interval_minutes,omitempty"`
	SmoothingSigmaMinutes *float64 `json:"smoothing_sigma_minutes,omitempty"`
	TrendWindow           *int     `json:"trend_window,omitempty"`
	MinObservations       *int     `json:"min_observations,omitempty"`

	// Spatial field
	FieldResolution *int     `json:"field_resolution,omitempty"`
	RBFSmoothing    *float64 `json:"rbf_smoothing,omitempty"`

	// Transport
	AlignmentThreshold  *float64 `json:"alignment_threshold,omitempty"`
	TrendLabelThreshold *float64 `json:"trend_label_threshold,omitempty"`

	// Cleaning
	OutlierPercentile  *float64 `json:"outlier_percentile,omitempty"`
	SpikeRatioMax      *float64 `json:"spike_ratio_max,omitempty"`
	SpikeWindow        *int     `json:"spike_window,omitempty"`
	WindSpeedCapFactor *float64 `json:"wind_speed_cap_factor,omitempty"`

	Workers *int `json:"workers,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file. The path
// must have a .json extension and the file must be under 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	data, err := readConfigFile(path, ".json")
	if err != nil {
		return nil, err
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories and
// panics if the file cannot be loaded. Intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/airq/pipeline/
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// readConfigFile applies the extension and size checks shared by the
// analysis and site loaders.
func readConfigFile(path string, exts ...string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	allowed := false
	for _, e := range exts {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("config file must have one of %v extensions, got %q", exts, ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

// Validate checks the values that are set.
func (c *AnalysisConfig) Validate() error {
	if c.FrameIntervalMinutes != nil && !(*c.FrameIntervalMinutes > 0) {
		return fmt.Errorf("frame_interval_minutes must be positive, got %v", *c.FrameIntervalMinutes)
	}
	if c.SmoothingSigmaMinutes != nil && (!(*c.SmoothingSigmaMinutes > 0) || math.IsInf(*c.SmoothingSigmaMinutes, 0)) {
		return fmt.Errorf("smoothing_sigma_minutes must be positive, got %v", *c.SmoothingSigmaMinutes)
	}
	if c.TrendWindow != nil && *c.TrendWindow < 1 {
		return fmt.Errorf("trend_window must be at least 1, got %d", *c.TrendWindow)
	}
	if c.MinObservations != nil && *c.MinObservations < l1observations.MinObservationsForSmoothing {
		return fmt.Errorf("min_observations must be at least %d, got %d",
			l1observations.MinObservationsForSmoothing, *c.MinObservations)
	}
	if c.FieldResolution != nil && *c.FieldResolution < 2 {
		return fmt.Errorf("field_resolution must be at least 2, got %d", *c.FieldResolution)
	}
	if c.RBFSmoothing != nil && *c.RBFSmoothing < 0 {
		return fmt.Errorf("rbf_smoothing must be non-negative, got %v", *c.RBFSmoothing)
	}
	if c.AlignmentThreshold != nil && (*c.AlignmentThreshold < 0 || *c.AlignmentThreshold > 1) {
		return fmt.Errorf("alignment_threshold must be between 0 and 1, got %v", *c.AlignmentThreshold)
	}
	if c.TrendLabelThreshold != nil && *c.TrendLabelThreshold < 0 {
		return fmt.Errorf("trend_label_threshold must be non-negative, got %v", *c.TrendLabelThreshold)
	}
	if c.OutlierPercentile != nil && (*c.OutlierPercentile < 0 || *c.OutlierPercentile > 100) {
		return fmt.Errorf("outlier_percentile must be between 0 and 100, got %v", *c.OutlierPercentile)
	}
	if c.SpikeRatioMax != nil && *c.SpikeRatioMax < 0 {
		return fmt.Errorf("spike_ratio_max must be non-negative, got %v", *c.SpikeRatioMax)
	}
	if c.SpikeWindow != nil && *c.SpikeWindow < 1 {
		return fmt.Errorf("spike_window must be at least 1, got %d", *c.SpikeWindow)
	}
	if c.WindSpeedCapFactor != nil && *c.WindSpeedCapFactor < 0 {
		return fmt.Errorf("wind_speed_cap_factor must be non-negative, got %v", *c.WindSpeedCapFactor)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetFrameInterval returns frame_interval_minutes as a duration.
func (c *AnalysisConfig) GetFrameInterval() time.Duration {
	if c.FrameIntervalMinutes == nil {
		return 5 * time.Minute
	}
	return time.Duration(*c.FrameIntervalMinutes * float64(time.Minute))
}

// GetSmoothingSigmaMinutes returns the smoothing_sigma_minutes value or the default.
func (c *AnalysisConfig) GetSmoothingSigmaMinutes() float64 {
	if c.SmoothingSigmaMinutes == nil {
		return 10
	}
	return *c.SmoothingSigmaMinutes
}

// GetTrendWindow returns the trend_window value or the default.
func (c *AnalysisConfig) GetTrendWindow() int {
	if c.TrendWindow == nil {
		return 5
	}
	return *c.TrendWindow
}

// GetMinObservations returns the min_observations value or the default.
func (c *AnalysisConfig) GetMinObservations() int {
	if c.MinObservations == nil {
		return l1observations.MinObservationsForSmoothing
	}
	return *c.MinObservations
}

// GetFieldResolution returns the field_resolution value or the default.
func (c *AnalysisConfig) GetFieldResolution() int {
	if c.FieldResolution == nil {
		return 40
	}
	return *c.FieldResolution
}

// GetRBFSmoothing returns the rbf_smoothing value or the default.
func (c *AnalysisConfig) GetRBFSmoothing() float64 {
	if c.RBFSmoothing == nil {
		return 0.1
	}
	return *c.RBFSmoothing
}

// GetAlignmentThreshold returns the alignment_threshold value or the default.
func (c *AnalysisConfig) GetAlignmentThreshold() float64 {
	if c.AlignmentThreshold == nil {
		return 0.5
	}
	return *c.AlignmentThreshold
}

// GetTrendLabelThreshold returns the trend_label_threshold value or the default.
func (c *AnalysisConfig) GetTrendLabelThreshold() float64 {
	if c.TrendLabelThreshold == nil {
		return 500
	}
	return *c.TrendLabelThreshold
}

// GetOutlierPercentile returns the outlier_percentile value or the default.
// Zero or 100 disables the percentile cap, and zero is the default.
func (c *AnalysisConfig) GetOutlierPercentile() float64 {
	if c.OutlierPercentile == nil {
		return 0
	}
	return *c.OutlierPercentile
}

// GetSpikeRatioMax returns the spike_ratio_max value or the default. Zero
// disables the spike screen, and zero is the default.
func (c *AnalysisConfig) GetSpikeRatioMax() float64 {
	if c.SpikeRatioMax == nil {
		return 0
	}
	return *c.SpikeRatioMax
}

// GetSpikeWindow returns the spike_window value or the default.
func (c *AnalysisConfig) GetSpikeWindow() int {
	if c.SpikeWindow == nil {
		return 5
	}
	return *c.SpikeWindow
}

// GetWindSpeedCapFactor returns the wind_speed_cap_factor value or the default.
func (c *AnalysisConfig) GetWindSpeedCapFactor() float64 {
	if c.WindSpeedCapFactor == nil {
		return 1.25
	}
	return *c.WindSpeedCapFactor
}

// GetWorkers returns the workers value or the default (0, meaning GOMAXPROCS).
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// EngineConfig maps the analysis parameters and the site's map settings
// onto the frame assembler configuration.
func (c *AnalysisConfig) EngineConfig(site *SiteConfig) (l5frames.Config, error) {
	cfg := l5frames.DefaultConfig()
	cfg.FrameInterval = c.GetFrameInterval()
	cfg.SigmaMinutes = c.GetSmoothingSigmaMinutes()
	cfg.Resolution = c.GetFieldResolution()
	cfg.TrendWindow = c.GetTrendWindow()
	cfg.RBFSmoothing = c.GetRBFSmoothing()
	cfg.AlignmentThreshold = c.GetAlignmentThreshold()
	cfg.TrendLabelThreshold = c.GetTrendLabelThreshold()
	cfg.MinObservations = c.GetMinObservations()
	cfg.Workers = c.GetWorkers()

	if site != nil {
		loc, err := site.Location()
		if err != nil {
			return l5frames.Config{}, err
		}
		cfg.Location = loc
		cfg.MapPadding = site.GetMapPadding()
	}
	return cfg, cfg.Validate()
}

// CleanOptions returns the cleaning thresholds. windSpeedMax is the site's
// expected maximum wind speed in m/s; zero disables the wind cap.
func (c *AnalysisConfig) CleanOptions(windSpeedMax float64) l1observations.CleanOptions {
	opts := l1observations.CleanOptions{
		Percentile:    c.GetOutlierPercentile(),
		SpikeRatioMax: c.GetSpikeRatioMax(),
		SpikeWindow:   c.GetSpikeWindow(),
	}
	if windSpeedMax > 0 {
		opts.WindSpeedCap = windSpeedMax * c.GetWindSpeedCapFactor()
	}
	return opts
}

// Effective returns a fully populated copy with every default filled in.
// Analysis runs record it as their parameter set.
func (c *AnalysisConfig) Effective() *AnalysisConfig {
	return &AnalysisConfig{
		FrameIntervalMinutes:  ptrFloat64(c.GetFrameInterval().Minutes()),
		SmoothingSigmaMinutes: ptrFloat64(c.GetSmoothingSigmaMinutes()),
		TrendWindow:           ptrInt(c.GetTrendWindow()),
		MinObservations:       ptrInt(c.GetMinObservations()),
		FieldResolution:       ptrInt(c.GetFieldResolution()),
		RBFSmoothing:          ptrFloat64(c.GetRBFSmoothing()),
		AlignmentThreshold:    ptrFloat64(c.GetAlignmentThreshold()),
		TrendLabelThreshold:   ptrFloat64(c.GetTrendLabelThreshold()),
		OutlierPercentile:     ptrFloat64(c.GetOutlierPercentile()),
		SpikeRatioMax:         ptrFloat64(c.GetSpikeRatioMax()),
		SpikeWindow:           ptrInt(c.GetSpikeWindow()),
		WindSpeedCapFactor:    ptrFloat64(c.GetWindSpeedCapFactor()),
		Workers:               ptrInt(c.GetWorkers()),
	}
}
