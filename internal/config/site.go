package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/airq/l3field"
	"github.com/banshee-data/airquality.report/internal/airq/l5frames"
	"github.com/banshee-data/airquality.report/internal/units"
)

// SiteConfig describes one monitored site: where it is, which sensors and
// pollutants it has, how its input files are laid out and where its wind
// comes from.
type SiteConfig struct {
	Name        string            `json:"name" yaml:"name"`
	DisplayName string            `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Timezone    string            `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Sensors     []SensorConfig    `json:"sensors,omitempty" yaml:"sensors,omitempty"`
	Pollutants  []PollutantConfig `json:"pollutants" yaml:"pollutants"`
	Columns     ColumnMapping     `json:"columns,omitempty" yaml:"columns,omitempty"`
	Wind        WindConfig        `json:"wind,omitempty" yaml:"wind,omitempty"`
	MapPadding  *float64          `json:"map_padding,omitempty" yaml:"map_padding,omitempty"`
	// Extent fixes the map bounds. When nil the bounds follow the sensors.
	Extent *l3field.Extent `json:"extent,omitempty" yaml:"extent,omitempty"`
}

// SensorConfig is a known sensor location. Observations missing
// coordinates take them from here.
type SensorConfig struct {
	ID          string  `json:"id" yaml:"id"`
	DisplayName string  `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Lat         float64 `json:"lat" yaml:"lat"`
	Lon         float64 `json:"lon" yaml:"lon"`
}

// PollutantConfig names one pollution type and the input column holding it.
type PollutantConfig struct {
	Name        string  `json:"name" yaml:"name"`
	Column      string  `json:"column" yaml:"column"`
	DisplayName string  `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Unit        string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	VisMin      float64 `json:"vis_min,omitempty" yaml:"vis_min,omitempty"`
	VisMax      float64 `json:"vis_max,omitempty" yaml:"vis_max,omitempty"`
}

// ColumnMapping overrides input column names. Empty fields fall back to
// the ingest layer's candidate lists.
type ColumnMapping struct {
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	SensorID  string `json:"sensor_id,omitempty" yaml:"sensor_id,omitempty"`
	Lat       string `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon       string `json:"lon,omitempty" yaml:"lon,omitempty"`
	WindDir   string `json:"wind_dir,omitempty" yaml:"wind_dir,omitempty"`
	WindSpeed string `json:"wind_speed,omitempty" yaml:"wind_speed,omitempty"`
}

// WindConfig selects the wind source and describes wind speed units.
type WindConfig struct {
	// Source is "per_sensor" (default) or "station".
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	StationID string `json:"station_id,omitempty" yaml:"station_id,omitempty"`
	// SpeedMax is the expected maximum wind speed in SpeedUnits. Zero
	// disables the cleaning cap.
	SpeedMax   float64 `json:"speed_max,omitempty" yaml:"speed_max,omitempty"`
	SpeedUnits string  `json:"speed_units,omitempty" yaml:"speed_units,omitempty"`
}

// LoadSiteConfig reads a site from a .json, .yaml or .yml file.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	data, err := readConfigFile(path, ".json", ".yaml", ".yml")
	if err != nil {
		return nil, err
	}

	var site SiteConfig
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &site)
	} else {
		err = yaml.Unmarshal(data, &site)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse site config %s: %w", path, err)
	}
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site config %s: %w", path, err)
	}
	return &site, nil
}

// Validate checks the site for internal consistency.
func (s *SiteConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("site name is required")
	}
	if s.Timezone != "" && !units.IsTimezoneValid(s.Timezone) {
		return fmt.Errorf("invalid timezone %q", s.Timezone)
	}
	if len(s.Pollutants) == 0 {
		return fmt.Errorf("site %s has no pollutants", s.Name)
	}
	seen := make(map[string]bool)
	for _, p := range s.Pollutants {
		if p.Name == "" || p.Column == "" {
			return fmt.Errorf("pollutant entries need both name and column")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate pollutant %q", p.Name)
		}
		seen[p.Name] = true
		if p.VisMax != 0 && p.VisMax <= p.VisMin {
			return fmt.Errorf("pollutant %s: vis_max must exceed vis_min", p.Name)
		}
	}
	ids := make(map[string]bool)
	for _, sc := range s.Sensors {
		if sc.ID == "" {
			return fmt.Errorf("sensor entries need an id")
		}
		if ids[sc.ID] {
			return fmt.Errorf("duplicate sensor %q", sc.ID)
		}
		ids[sc.ID] = true
	}
	if err := s.WindSource().Validate(); err != nil {
		return err
	}
	if s.Wind.SpeedUnits != "" && !units.IsValid(s.Wind.SpeedUnits) {
		return fmt.Errorf("invalid wind speed_units %q, must be one of: %s",
			s.Wind.SpeedUnits, units.GetValidUnitsString())
	}
	if s.Wind.SpeedMax < 0 {
		return fmt.Errorf("wind speed_max must be non-negative, got %v", s.Wind.SpeedMax)
	}
	if s.MapPadding != nil && *s.MapPadding < 0 {
		return fmt.Errorf("map_padding must be non-negative, got %v", *s.MapPadding)
	}
	if s.Extent != nil {
		if err := s.Extent.Validate(); err != nil {
			return fmt.Errorf("invalid extent: %w", err)
		}
	}
	return nil
}

// Location returns the site timezone, UTC when unset.
func (s *SiteConfig) Location() (*time.Location, error) {
	return units.LoadSiteLocation(s.Timezone)
}

// WindSource converts the wind settings into the assembler policy.
func (s *SiteConfig) WindSource() l5frames.WindSource {
	policy := l5frames.WindPerSensor
	if s.Wind.Source != "" {
		policy = l5frames.WindPolicy(s.Wind.Source)
	}
	return l5frames.WindSource{Policy: policy, StationID: s.Wind.StationID}
}

// GetMapPadding returns map_padding in degrees or the default.
func (s *SiteConfig) GetMapPadding() float64 {
	if s.MapPadding == nil {
		return l3field.DefaultPadding
	}
	return *s.MapPadding
}

// SpeedUnits returns the configured wind speed units, m/s when unset.
func (s *SiteConfig) SpeedUnits() string {
	if s.Wind.SpeedUnits == "" {
		return units.MPS
	}
	return s.Wind.SpeedUnits
}

// WindSpeedMaxMPS returns the wind speed cap basis in m/s.
func (s *SiteConfig) WindSpeedMaxMPS() (float64, error) {
	return units.ToMPS(s.Wind.SpeedMax, s.SpeedUnits())
}

// Pollutant looks up a pollutant by name.
func (s *SiteConfig) Pollutant(name string) (PollutantConfig, error) {
	for _, p := range s.Pollutants {
		if p.Name == name {
			return p, nil
		}
	}
	return PollutantConfig{}, fmt.Errorf("site %s has no pollutant %q", s.Name, name)
}

// SensorName returns the display name for id, or id itself.
func (s *SiteConfig) SensorName(id string) string {
	for _, sc := range s.Sensors {
		if sc.ID == id && sc.DisplayName != "" {
			return sc.DisplayName
		}
	}
	return id
}

// FillCoordinates sets missing latitude and longitude from the configured
// sensor positions. It returns the number of rows it filled.
func (s *SiteConfig) FillCoordinates(obs []l1observations.Observation) int {
	if len(s.Sensors) == 0 {
		return 0
	}
	pos := make(map[string]SensorConfig, len(s.Sensors))
	for _, sc := range s.Sensors {
		pos[sc.ID] = sc
	}
	filled := 0
	for i := range obs {
		if obs[i].HasCoordinates() {
			continue
		}
		sc, ok := pos[obs[i].SensorID]
		if !ok {
			continue
		}
		obs[i].Lat = sc.Lat
		obs[i].Lon = sc.Lon
		filled++
	}
	return filled
}
