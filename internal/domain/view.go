package domain

import "fmt"

// ViewModel is everything one render pass hands to the presentation layer.
// View holds the filtered records for in-process consumers and is not serialized.
type ViewModel struct {
	Selection    Selection `json:"selection"`
	Headline     string    `json:"headline"`
	TotalRecords int       `json:"total_records"`
	Records      int       `json:"records"`
	View         Dataset   `json:"-"`

	Trend     []TrendSeries  `json:"trend"`
	Histogram []HistogramBin `json:"histogram"`

	StationAverages []StationAverage `json:"station_averages"`
	MapCenter       Coordinate       `json:"map_center"`
	MapMarkers      []MapMarker      `json:"map_markers"`

	HourlyStation string          `json:"hourly_station,omitempty"`
	Hourly        []HourlyAverage `json:"hourly"`
	PeakHour      *int            `json:"peak_hour"`

	Yearly       []YearlyAverage `json:"yearly"`
	PolicyEvents []PolicyEvent   `json:"policy_events"`

	Workday     WorkdayComparison    `json:"workday"`
	Correlation *Correlation         `json:"correlation,omitempty"`
	Severity    SeverityDistribution `json:"severity"`
	RFM         []StationRFM         `json:"rfm"`
}

// Empty reports whether the selection matched no records.
func (v ViewModel) Empty() bool { return v.Records == 0 }

// Render filters ds by sel and computes every aggregate. It has no side
// effects: the same inputs always produce the same view.
func Render(ds Dataset, sel Selection, c Constants) (ViewModel, error) {
	if err := sel.Validate(); err != nil {
		return ViewModel{}, err
	}

	view := Filter(ds, sel)
	p := sel.Pollutant

	averages := StationAverages(view, p, sel.Stations)
	hourly := HourlyAverages(view, p, c.PeakHourStation)

	vm := ViewModel{
		Selection:    sel,
		Headline:     fmt.Sprintf("%s from %d to %d", p, sel.YearLow, sel.YearHigh),
		TotalRecords: ds.Len(),
		Records:      view.Len(),
		View:         view,

		Trend:     Trend(view, p),
		Histogram: Histogram(view, p, c.HistogramBins),

		StationAverages: averages,
		MapCenter:       c.MapCenter,
		MapMarkers:      MapMarkers(averages, c.Stations),

		HourlyStation: c.PeakHourStation,
		Hourly:        hourly,

		Yearly:       YearlyAverages(view, p),
		PolicyEvents: append([]PolicyEvent(nil), c.PolicyEvents...),

		Workday:  CompareWorkdays(view, p),
		Severity: DistributeSeverity(view, p),
		RFM:      RFM(view, p),
	}

	if h, ok := PeakHour(hourly); ok {
		vm.PeakHour = &h
	}
	if sel.WeatherFactor != "" {
		corr := Correlate(view, p, sel.WeatherFactor)
		vm.Correlation = &corr
	}
	return vm, nil
}
