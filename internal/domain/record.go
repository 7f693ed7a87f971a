package domain

import (
	"math"
	"time"
)

// Pollutant names one of the six tracked air-quality measures.
type Pollutant string

const (
	PM25 Pollutant = "PM2.5"
	PM10 Pollutant = "PM10"
	SO2  Pollutant = "SO2"
	NO2  Pollutant = "NO2"
	CO   Pollutant = "CO"
	O3   Pollutant = "O3"
)

// Pollutants lists every pollutant in display order.
var Pollutants = []Pollutant{PM25, PM10, SO2, NO2, CO, O3}

// WeatherFactor names one of the five meteorological covariates.
type WeatherFactor string

const (
	TEMP WeatherFactor = "TEMP"
	PRES WeatherFactor = "PRES"
	DEWP WeatherFactor = "DEWP"
	RAIN WeatherFactor = "RAIN"
	WSPM WeatherFactor = "WSPM"
)

// WeatherFactors lists every weather factor in display order.
var WeatherFactors = []WeatherFactor{TEMP, PRES, DEWP, RAIN, WSPM}

// Valid reports whether p is one of the six known pollutants.
func (p Pollutant) Valid() bool {
	for _, known := range Pollutants {
		if p == known {
			return true
		}
	}
	return false
}

// Valid reports whether w is one of the five known weather factors.
func (w WeatherFactor) Valid() bool {
	for _, known := range WeatherFactors {
		if w == known {
			return true
		}
	}
	return false
}

// Record is one hourly observation at one station.
// Nil measurement pointers are missing readings.
type Record struct {
	Station   string    `json:"station"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	Hour      int       `json:"hour"`
	Timestamp time.Time `json:"timestamp"`

	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	SO2  *float64 `json:"so2"`
	NO2  *float64 `json:"no2"`
	CO   *float64 `json:"co"`
	O3   *float64 `json:"o3"`

	TEMP *float64 `json:"temp"`
	PRES *float64 `json:"pres"`
	DEWP *float64 `json:"dewp"`
	RAIN *float64 `json:"rain"`
	WSPM *float64 `json:"wspm"`

	// Set by Enrich.
	Weekday int    `json:"weekday"`
	Season  Season `json:"season,omitempty"`
	Workday bool   `json:"workday"`
}

// Pollutant returns the reading for p and whether it is present.
func (r Record) Pollutant(p Pollutant) (float64, bool) {
	return deref(r.pollutantField(p))
}

// Weather returns the reading for w and whether it is present.
func (r Record) Weather(w WeatherFactor) (float64, bool) {
	return deref(r.weatherField(w))
}

// SetPollutant stores v as the reading for p. Unknown pollutants are ignored.
func (r *Record) SetPollutant(p Pollutant, v *float64) {
	switch p {
	case PM25:
		r.PM25 = v
	case PM10:
		r.PM10 = v
	case SO2:
		r.SO2 = v
	case NO2:
		r.NO2 = v
	case CO:
		r.CO = v
	case O3:
		r.O3 = v
	}
}

// SetWeather stores v as the reading for w. Unknown factors are ignored.
func (r *Record) SetWeather(w WeatherFactor, v *float64) {
	switch w {
	case TEMP:
		r.TEMP = v
	case PRES:
		r.PRES = v
	case DEWP:
		r.DEWP = v
	case RAIN:
		r.RAIN = v
	case WSPM:
		r.WSPM = v
	}
}

func (r Record) pollutantField(p Pollutant) *float64 {
	switch p {
	case PM25:
		return r.PM25
	case PM10:
		return r.PM10
	case SO2:
		return r.SO2
	case NO2:
		return r.NO2
	case CO:
		return r.CO
	case O3:
		return r.O3
	default:
		return nil
	}
}

func (r Record) weatherField(w WeatherFactor) *float64 {
	switch w {
	case TEMP:
		return r.TEMP
	case PRES:
		return r.PRES
	case DEWP:
		return r.DEWP
	case RAIN:
		return r.RAIN
	case WSPM:
		return r.WSPM
	default:
		return nil
	}
}

// deref treats nil and non-finite values as missing.
func deref(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// Dataset is an ordered collection of records. It is treated as immutable
// once loaded; Filter and Enrich return new datasets.
type Dataset struct {
	Records []Record `json:"records"`
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// Stations returns the distinct station labels in first-seen order.
func (d Dataset) Stations() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range d.Records {
		s := d.Records[i].Station
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// LatestTimestamp returns the newest timestamp in the dataset, or false when
// the dataset is empty.
func (d Dataset) LatestTimestamp() (time.Time, bool) {
	var latest time.Time
	found := false
	for i := range d.Records {
		ts := d.Records[i].Timestamp
		if !found || ts.After(latest) {
			latest = ts
			found = true
		}
	}
	return latest, found
}

// Concat appends the records of every dataset in order.
func Concat(parts ...Dataset) Dataset {
	n := 0
	for _, p := range parts {
		n += p.Len()
	}
	out := make([]Record, 0, n)
	for _, p := range parts {
		out = append(out, p.Records...)
	}
	return Dataset{Records: out}
}
