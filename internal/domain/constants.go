package domain

import "sort"

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// PolicyEvent is a static chart annotation marking a known environmental-policy year.
type PolicyEvent struct {
	Year  int    `json:"year" yaml:"year"`
	Label string `json:"label" yaml:"label"`
}

// Constants holds the fixed values the dashboard renders against.
type Constants struct {
	YearMin         int                   `json:"year_min"`
	YearMax         int                   `json:"year_max"`
	PolicyEvents    []PolicyEvent         `json:"policy_events"`
	Stations        map[string]Coordinate `json:"stations"`
	MapCenter       Coordinate            `json:"map_center"`
	PeakHourStation string                `json:"peak_hour_station,omitempty"`
	HistogramBins   int                   `json:"histogram_bins"`
}

// DefaultConstants returns the built-in year bounds, policy events, and the
// twelve known station coordinates.
func DefaultConstants() Constants {
	return Constants{
		YearMin: 2013,
		YearMax: 2017,
		PolicyEvents: []PolicyEvent{
			{Year: 2014, Label: "Beijing air pollution control regulations take effect"},
			{Year: 2016, Label: "Environmental protection tax law adopted"},
		},
		Stations: map[string]Coordinate{
			"Aotizhongxin":  {Lat: 39.985, Lon: 116.498},
			"Changping":     {Lat: 40.220, Lon: 116.234},
			"Dingling":      {Lat: 40.290, Lon: 116.220},
			"Dongsi":        {Lat: 39.929, Lon: 116.417},
			"Guanyuan":      {Lat: 39.929, Lon: 116.339},
			"Gucheng":       {Lat: 39.911, Lon: 116.184},
			"Huairou":       {Lat: 40.375, Lon: 116.630},
			"Nongzhanguan":  {Lat: 39.934, Lon: 116.455},
			"Shunyi":        {Lat: 40.125, Lon: 116.655},
			"Tiantan":       {Lat: 39.886, Lon: 116.418},
			"Wanliu":        {Lat: 39.963, Lon: 116.290},
			"Wanshouxigong": {Lat: 39.878, Lon: 116.339},
		},
		MapCenter:     Coordinate{Lat: 39.9, Lon: 116.4},
		HistogramBins: 50,
	}
}

// StationNames returns the coordinate-table station names in sorted order.
func (c Constants) StationNames() []string {
	names := make([]string, 0, len(c.Stations))
	for name := range c.Stations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
