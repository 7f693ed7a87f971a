package domain

import (
	"math"
	"sort"
	"time"
)

// TrendPoint is one reading on a station's time line.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TrendSeries is the time-ordered readings of one station.
type TrendSeries struct {
	Station string       `json:"station"`
	Points  []TrendPoint `json:"points"`
}

// Trend builds one series per station in first-seen order. Missing readings
// are skipped; points are sorted by timestamp with ties kept in view order.
func Trend(view Dataset, p Pollutant) []TrendSeries {
	index := make(map[string]int)
	var out []TrendSeries
	for i := range view.Records {
		r := view.Records[i]
		idx, ok := index[r.Station]
		if !ok {
			idx = len(out)
			index[r.Station] = idx
			out = append(out, TrendSeries{Station: r.Station, Points: []TrendPoint{}})
		}
		if v, ok := r.Pollutant(p); ok {
			out[idx].Points = append(out[idx].Points, TrendPoint{Timestamp: r.Timestamp, Value: v})
		}
	}
	for i := range out {
		pts := out[i].Points
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Timestamp.Before(pts[b].Timestamp) })
	}
	if out == nil {
		return []TrendSeries{}
	}
	return out
}

// HistogramBin counts readings in [Lower, Upper). The last bin also includes Upper.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram splits the range between the smallest and largest reading into
// equal-width bins. A view whose readings share one value yields a single bin;
// a view without readings yields none.
func Histogram(view Dataset, p Pollutant, bins int) []HistogramBin {
	var values []float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range view.Records {
		v, ok := view.Records[i].Pollutant(p)
		if !ok {
			continue
		}
		values = append(values, v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if len(values) == 0 || bins <= 0 {
		return []HistogramBin{}
	}
	if lo == hi {
		return []HistogramBin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i] = HistogramBin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		idx := min(max(int((v-lo)/width), 0), bins-1)
		out[idx].Count++
	}
	return out
}
