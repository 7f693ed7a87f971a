package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidSelection is returned when a selection names an unknown pollutant
// or weather factor.
var ErrInvalidSelection = errors.New("invalid selection")

// Selection is the user-supplied configuration for one render pass.
type Selection struct {
	Pollutant     Pollutant     `json:"pollutant"`
	YearLow       int           `json:"year_low"`
	YearHigh      int           `json:"year_high"`
	Stations      []string      `json:"stations"`
	WeatherFactor WeatherFactor `json:"weather_factor,omitempty"`
}

// Validate checks the pollutant and the optional weather factor. Year bounds
// and the station set are not validated: an inverted range or an empty set is
// a legal selection that yields an empty view.
func (s Selection) Validate() error {
	if !s.Pollutant.Valid() {
		return fmt.Errorf("%w: unknown pollutant %q", ErrInvalidSelection, s.Pollutant)
	}
	if s.WeatherFactor != "" && !s.WeatherFactor.Valid() {
		return fmt.Errorf("%w: unknown weather factor %q", ErrInvalidSelection, s.WeatherFactor)
	}
	return nil
}

// Filter returns the records of ds whose year lies in [YearLow, YearHigh] and
// whose station is in the selection, preserving order. ds is not modified.
func Filter(ds Dataset, sel Selection) Dataset {
	if sel.YearLow > sel.YearHigh || len(sel.Stations) == 0 {
		return Dataset{Records: []Record{}}
	}

	stations := make(map[string]struct{}, len(sel.Stations))
	for _, s := range sel.Stations {
		stations[s] = struct{}{}
	}

	out := make([]Record, 0)
	for i := range ds.Records {
		r := ds.Records[i]
		if r.Year < sel.YearLow || r.Year > sel.YearHigh {
			continue
		}
		if _, ok := stations[r.Station]; !ok {
			continue
		}
		out = append(out, r)
	}
	return Dataset{Records: out}
}
