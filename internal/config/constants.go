package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"gopkg.in/yaml.v3"
)

// constantsOverlay is the YAML shape of CONSTANTS_FILE. Absent keys keep the
// built-in value. Pollutants, weather factors, and severity edges are fixed.
type constantsOverlay struct {
	YearMin         *int                         `yaml:"year_min"`
	YearMax         *int                         `yaml:"year_max"`
	PolicyEvents    []domain.PolicyEvent         `yaml:"policy_events"`
	Stations        map[string]domain.Coordinate `yaml:"stations"`
	MapCenter       *domain.Coordinate           `yaml:"map_center"`
	PeakHourStation *string                      `yaml:"peak_hour_station"`
}

// Constants returns the built-in domain constants with the optional YAML
// overlay and PEAK_HOUR_STATION applied, in that order.
func (c *Config) Constants() (domain.Constants, error) {
	constants := domain.DefaultConstants()
	if c.ConstantsFile != "" {
		var err error
		constants, err = LoadConstants(c.ConstantsFile, constants)
		if err != nil {
			return domain.Constants{}, err
		}
	}
	if c.PeakHourStation != "" {
		constants.PeakHourStation = c.PeakHourStation
	}
	return constants, nil
}

// LoadConstants reads a YAML overlay from path and applies it on top of base.
func LoadConstants(path string, base domain.Constants) (domain.Constants, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Constants{}, fmt.Errorf("read constants file: %w", err)
	}

	var overlay constantsOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return domain.Constants{}, fmt.Errorf("parse constants file %s: %w", path, err)
	}

	out := base
	if overlay.YearMin != nil {
		out.YearMin = *overlay.YearMin
	}
	if overlay.YearMax != nil {
		out.YearMax = *overlay.YearMax
	}
	if overlay.PolicyEvents != nil {
		out.PolicyEvents = overlay.PolicyEvents
	}
	if overlay.Stations != nil {
		out.Stations = overlay.Stations
	}
	if overlay.MapCenter != nil {
		out.MapCenter = *overlay.MapCenter
	}
	if overlay.PeakHourStation != nil {
		out.PeakHourStation = *overlay.PeakHourStation
	}

	if out.YearMin > out.YearMax {
		return domain.Constants{}, errors.New("invalid constants file: year_min is after year_max")
	}
	return out, nil
}
