package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// mean returns the arithmetic mean of values, or nil when there are none.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := stat.Mean(values, nil)
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return nil
	}
	return &m
}

// StationAverage is the mean reading of one station. Average is nil when the
// station has no readings in the view.
type StationAverage struct {
	Station string   `json:"station"`
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// StationAverages groups the view by station. When stations is non-empty the
// result lists exactly those stations in that order, so a selected station
// with no matching records appears with a nil average. Otherwise the view's
// own stations are used in first-seen order.
func StationAverages(view Dataset, p Pollutant, stations []string) []StationAverage {
	values := make(map[string][]float64)
	for i := range view.Records {
		r := view.Records[i]
		if v, ok := r.Pollutant(p); ok {
			values[r.Station] = append(values[r.Station], v)
		}
	}

	if len(stations) == 0 {
		stations = view.Stations()
	}

	out := make([]StationAverage, 0, len(stations))
	seen := make(map[string]struct{}, len(stations))
	for _, s := range stations {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, StationAverage{
			Station: s,
			Average: mean(values[s]),
			Count:   len(values[s]),
		})
	}
	return out
}

// MapMarker is one circle on the station map.
type MapMarker struct {
	Station string     `json:"station"`
	Geo     Coordinate `json:"geo"`
	Average float64    `json:"average"`
	Radius  float64    `json:"radius"`
	Popup   string     `json:"popup"`
}

// MapMarkers places every station that has a coordinate and a defined
// non-negative average. Stations with nil averages or without coordinates are
// left off the map. Markers are ordered by station name.
func MapMarkers(averages []StationAverage, coords map[string]Coordinate) []MapMarker {
	out := make([]MapMarker, 0, len(averages))
	for _, a := range averages {
		if a.Average == nil || *a.Average < 0 {
			continue
		}
		geo, ok := coords[a.Station]
		if !ok {
			continue
		}
		out = append(out, MapMarker{
			Station: a.Station,
			Geo:     geo,
			Average: *a.Average,
			Radius:  *a.Average / 10,
			Popup:   fmt.Sprintf("%s: %.2f", a.Station, *a.Average),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Station < out[j].Station })
	return out
}

// HourlyAverage is the mean reading for one hour of day.
type HourlyAverage struct {
	Hour    int      `json:"hour"`
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// HourlyAverages groups the view by hour of day and always returns 24 entries,
// 0 through 23. A non-empty station restricts the grouping to that station.
func HourlyAverages(view Dataset, p Pollutant, station string) []HourlyAverage {
	var values [24][]float64
	for i := range view.Records {
		r := view.Records[i]
		if station != "" && r.Station != station {
			continue
		}
		if r.Hour < 0 || r.Hour > 23 {
			continue
		}
		if v, ok := r.Pollutant(p); ok {
			values[r.Hour] = append(values[r.Hour], v)
		}
	}

	out := make([]HourlyAverage, 24)
	for h := range out {
		out[h] = HourlyAverage{Hour: h, Average: mean(values[h]), Count: len(values[h])}
	}
	return out
}

// PeakHour returns the hour with the highest defined average. Ties go to the
// lowest hour. Returns false when no hour has data.
func PeakHour(hours []HourlyAverage) (int, bool) {
	peak, best, found := 0, 0.0, false
	for _, h := range hours {
		if h.Average == nil {
			continue
		}
		if !found || *h.Average > best || (*h.Average == best && h.Hour < peak) {
			peak, best, found = h.Hour, *h.Average, true
		}
	}
	return peak, found
}

// YearlyAverage is the mean reading for one calendar year.
type YearlyAverage struct {
	Year    int      `json:"year"`
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// YearlyAverages groups the view by year, ascending. Years present in the view
// with no readings for p appear with a nil average.
func YearlyAverages(view Dataset, p Pollutant) []YearlyAverage {
	values := make(map[int][]float64)
	for i := range view.Records {
		r := view.Records[i]
		if _, ok := values[r.Year]; !ok {
			values[r.Year] = nil
		}
		if v, ok := r.Pollutant(p); ok {
			values[r.Year] = append(values[r.Year], v)
		}
	}

	years := make([]int, 0, len(values))
	for y := range values {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearlyAverage, len(years))
	for i, y := range years {
		out[i] = YearlyAverage{Year: y, Average: mean(values[y]), Count: len(values[y])}
	}
	return out
}

// GroupMean is the mean and size of one group. Average is nil for an empty group.
type GroupMean struct {
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// WorkdayComparison splits the view into Monday-Friday and weekend readings.
type WorkdayComparison struct {
	Workday GroupMean `json:"workday"`
	Weekend GroupMean `json:"weekend"`
}

// CompareWorkdays computes the mean reading on workdays and on weekends.
func CompareWorkdays(view Dataset, p Pollutant) WorkdayComparison {
	var workday, weekend []float64
	for i := range view.Records {
		r := view.Records[i]
		v, ok := r.Pollutant(p)
		if !ok {
			continue
		}
		if IsWorkday(Weekday(r.Timestamp)) {
			workday = append(workday, v)
		} else {
			weekend = append(weekend, v)
		}
	}
	return WorkdayComparison{
		Workday: GroupMean{Average: mean(workday), Count: len(workday)},
		Weekend: GroupMean{Average: mean(weekend), Count: len(weekend)},
	}
}

// Correlation is the Pearson coefficient between a pollutant and a weather
// factor. Coefficient is nil when fewer than two complete pairs exist or either
// series has zero variance.
type Correlation struct {
	Pollutant     Pollutant     `json:"pollutant"`
	WeatherFactor WeatherFactor `json:"weather_factor"`
	Coefficient   *float64      `json:"coefficient"`
	Pairs         int           `json:"pairs"`
}

// Correlate computes the Pearson correlation over records where both readings
// are present.
func Correlate(view Dataset, p Pollutant, w WeatherFactor) Correlation {
	var xs, ys []float64
	for i := range view.Records {
		r := view.Records[i]
		x, okX := r.Pollutant(p)
		y, okY := r.Weather(w)
		if !okX || !okY {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	c := Correlation{Pollutant: p, WeatherFactor: w, Pairs: len(xs)}
	if len(xs) < 2 {
		return c
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return c
	}
	coef := stat.Correlation(xs, ys, nil)
	if math.IsNaN(coef) || math.IsInf(coef, 0) {
		return c
	}
	c.Coefficient = &coef
	return c
}

// StationRFM is the recency/frequency/monetary summary of one station.
type StationRFM struct {
	Station   string   `json:"station"`
	Recency   int      `json:"recency"`
	Frequency int      `json:"frequency"`
	Monetary  *float64 `json:"monetary"`
}

// RFM summarizes each station of the view, ordered by station name. Recency
// counts whole days between the newest timestamp in the view and the station's
// newest timestamp.
func RFM(view Dataset, p Pollutant) []StationRFM {
	latest, ok := view.LatestTimestamp()
	if !ok {
		return []StationRFM{}
	}

	stationLatest := make(map[string]time.Time)
	values := make(map[string][]float64)
	for i := range view.Records {
		r := view.Records[i]
		if ts, seen := stationLatest[r.Station]; !seen || r.Timestamp.After(ts) {
			stationLatest[r.Station] = r.Timestamp
		}
		if v, ok := r.Pollutant(p); ok {
			values[r.Station] = append(values[r.Station], v)
		}
	}

	stations := make([]string, 0, len(stationLatest))
	for s := range stationLatest {
		stations = append(stations, s)
	}
	sort.Strings(stations)

	out := make([]StationRFM, len(stations))
	for i, s := range stations {
		out[i] = StationRFM{
			Station:   s,
			Recency:   int(latest.Sub(stationLatest[s]) / (24 * time.Hour)),
			Frequency: len(values[s]),
			Monetary:  mean(values[s]),
		}
	}
	return out
}
