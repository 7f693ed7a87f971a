package pipeline

import (
	"strconv"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Table names returned by Tables, in the order exporters should lay them out.
const (
	TableRecords         = "records"
	TableStationAverages = "station_averages"
	TableMapMarkers      = "map_markers"
	TableHourly          = "hourly"
	TableYearly          = "yearly"
	TableWorkday         = "workday"
	TableSeverity        = "severity"
	TableRFM             = "rfm"
	TableHistogram       = "histogram"
)

// TableOrder lists every table name produced by Tables.
var TableOrder = []string{
	TableRecords,
	TableStationAverages,
	TableMapMarkers,
	TableHourly,
	TableYearly,
	TableWorkday,
	TableSeverity,
	TableRFM,
	TableHistogram,
}

// Tables converts a view model into data frames ready for table and chart
// binding. Undefined values are NA cells.
func Tables(vm domain.ViewModel) map[string]dataframe.DataFrame {
	return map[string]dataframe.DataFrame{
		TableRecords:         recordsTable(vm.View, vm.Selection.Pollutant),
		TableStationAverages: stationAveragesTable(vm.StationAverages),
		TableMapMarkers:      mapMarkersTable(vm.MapMarkers),
		TableHourly:          hourlyTable(vm.Hourly),
		TableYearly:          yearlyTable(vm.Yearly),
		TableWorkday:         workdayTable(vm.Workday),
		TableSeverity:        severityTable(vm.Severity),
		TableRFM:             rfmTable(vm.RFM),
		TableHistogram:       histogramTable(vm.Histogram),
	}
}

func recordsTable(view domain.Dataset, p domain.Pollutant) dataframe.DataFrame {
	n := view.Len()
	var (
		stations   = make([]string, n)
		timestamps = make([]string, n)
		years      = make([]int, n)
		months     = make([]int, n)
		days       = make([]int, n)
		hours      = make([]int, n)
		values     = make([]*float64, n)
		weekdays   = make([]int, n)
		seasons    = make([]string, n)
		workdays   = make([]bool, n)
		severity   = make([]string, n)
	)
	labels := domain.LabelSeverity(view, p)
	for i, r := range view.Records {
		stations[i] = r.Station
		timestamps[i] = r.Timestamp.Format(time.RFC3339)
		years[i] = r.Year
		months[i] = r.Month
		days[i] = r.Day
		hours[i] = r.Hour
		if v, ok := r.Pollutant(p); ok {
			values[i] = &v
		}
		weekdays[i] = r.Weekday
		seasons[i] = string(r.Season)
		workdays[i] = r.Workday
		severity[i] = string(labels[i])
	}
	return dataframe.New(
		series.New(stations, series.String, "station"),
		series.New(timestamps, series.String, "timestamp"),
		series.New(years, series.Int, "year"),
		series.New(months, series.Int, "month"),
		series.New(days, series.Int, "day"),
		series.New(hours, series.Int, "hour"),
		floatColumn(string(p), values),
		series.New(weekdays, series.Int, "weekday"),
		series.New(seasons, series.String, "season"),
		series.New(workdays, series.Bool, "workday"),
		series.New(severity, series.String, "severity"),
	)
}

func stationAveragesTable(rows []domain.StationAverage) dataframe.DataFrame {
	stations := make([]string, len(rows))
	averages := make([]*float64, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		stations[i], averages[i], counts[i] = r.Station, r.Average, r.Count
	}
	return dataframe.New(
		series.New(stations, series.String, "station"),
		floatColumn("average", averages),
		series.New(counts, series.Int, "count"),
	)
}

func mapMarkersTable(rows []domain.MapMarker) dataframe.DataFrame {
	var (
		stations = make([]string, len(rows))
		lats     = make([]float64, len(rows))
		lons     = make([]float64, len(rows))
		averages = make([]float64, len(rows))
		radii    = make([]float64, len(rows))
		popups   = make([]string, len(rows))
	)
	for i, m := range rows {
		stations[i] = m.Station
		lats[i], lons[i] = m.Geo.Lat, m.Geo.Lon
		averages[i], radii[i] = m.Average, m.Radius
		popups[i] = m.Popup
	}
	return dataframe.New(
		series.New(stations, series.String, "station"),
		series.New(lats, series.Float, "lat"),
		series.New(lons, series.Float, "lon"),
		series.New(averages, series.Float, "average"),
		series.New(radii, series.Float, "radius"),
		series.New(popups, series.String, "popup"),
	)
}

func hourlyTable(rows []domain.HourlyAverage) dataframe.DataFrame {
	hours := make([]int, len(rows))
	averages := make([]*float64, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		hours[i], averages[i], counts[i] = r.Hour, r.Average, r.Count
	}
	return dataframe.New(
		series.New(hours, series.Int, "hour"),
		floatColumn("average", averages),
		series.New(counts, series.Int, "count"),
	)
}

func yearlyTable(rows []domain.YearlyAverage) dataframe.DataFrame {
	years := make([]int, len(rows))
	averages := make([]*float64, len(rows))
	counts := make([]int, len(rows))
	for i, r := range rows {
		years[i], averages[i], counts[i] = r.Year, r.Average, r.Count
	}
	return dataframe.New(
		series.New(years, series.Int, "year"),
		floatColumn("average", averages),
		series.New(counts, series.Int, "count"),
	)
}

func workdayTable(w domain.WorkdayComparison) dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"workday", "weekend"}, series.String, "group"),
		floatColumn("average", []*float64{w.Workday.Average, w.Weekend.Average}),
		series.New([]int{w.Workday.Count, w.Weekend.Count}, series.Int, "count"),
	)
}

func severityTable(d domain.SeverityDistribution) dataframe.DataFrame {
	n := len(d.Bins)
	bins := make([]string, n)
	lowers := make([]float64, n)
	uppers := make([]float64, n)
	counts := make([]int, n)
	for i, b := range d.Bins {
		bins[i], lowers[i], uppers[i], counts[i] = string(b.Bin), b.Lower, b.Upper, b.Count
	}
	return dataframe.New(
		series.New(bins, series.String, "bin"),
		series.New(lowers, series.Float, "lower"),
		series.New(uppers, series.Float, "upper"),
		series.New(counts, series.Int, "count"),
	)
}

func rfmTable(rows []domain.StationRFM) dataframe.DataFrame {
	stations := make([]string, len(rows))
	recency := make([]int, len(rows))
	frequency := make([]int, len(rows))
	monetary := make([]*float64, len(rows))
	for i, r := range rows {
		stations[i], recency[i], frequency[i], monetary[i] = r.Station, r.Recency, r.Frequency, r.Monetary
	}
	return dataframe.New(
		series.New(stations, series.String, "station"),
		series.New(recency, series.Int, "recency"),
		series.New(frequency, series.Int, "frequency"),
		floatColumn("monetary", monetary),
	)
}

func histogramTable(rows []domain.HistogramBin) dataframe.DataFrame {
	lowers := make([]float64, len(rows))
	uppers := make([]float64, len(rows))
	counts := make([]int, len(rows))
	for i, b := range rows {
		lowers[i], uppers[i], counts[i] = b.Lower, b.Upper, b.Count
	}
	return dataframe.New(
		series.New(lowers, series.Float, "lower"),
		series.New(uppers, series.Float, "upper"),
		series.New(counts, series.Int, "count"),
	)
}

// floatColumn builds a float series where nil entries are NA.
func floatColumn(name string, values []*float64) series.Series {
	raw := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			raw[i] = "NaN"
			continue
		}
		raw[i] = strconv.FormatFloat(*v, 'g', -1, 64)
	}
	return series.New(raw, series.Float, name)
}
