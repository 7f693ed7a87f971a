// Package domain models hourly air-quality observations from Beijing monitoring
// stations and the pure computations a dashboard renders from them.
//
// # Data Source
//
// Records come from the PRSA multi-site air-quality dataset (March 2013 to
// February 2017): one CSV per station, one row per hour. Files are named
//
//	PRSA_Data_<Station>_20130301-20170228.csv
//
// and carry the columns
//
//	No, year, month, day, hour, PM2.5, PM10, SO2, NO2, CO, O3,
//	TEMP, PRES, DEWP, RAIN, wd, WSPM, station
//
// Missing readings are written as "NA". Pollutant concentrations are in µg/m³.
//
// # Station Labels
//
// The explicit "station" column wins when present. Otherwise the label is the
// third underscore-delimited token of the file name ("PRSA_Data_Dongsi_..." ->
// "Dongsi"). The file-name convention is kept for older exports that lack the
// column.
//
// # Derived Fields
//
//	Weekday: Monday=0 .. Sunday=6, from the synthesized timestamp.
//	Season:  month only. 12,1,2 Winter | 3,4,5 Spring | 6,7,8 Summer | 9,10,11 Fall.
//	Workday: weekday < 5.
//
// # Severity Bins
//
// Fixed thresholds over a pollutant value, lower bound inclusive:
//
//	[0,50) Baik | [50,100) Sedang | [100,150) Tidak Sehat |
//	[150,200) Sangat Tidak Sehat | [200,300) Berbahaya
//
// Values outside [0,300) and missing values are unclassified. The bins are
// constants, not learned clusters.
//
// # Recency, Frequency, Monetary
//
// The per-station RFM table borrows the customer-analytics vocabulary:
// Recency is days between the newest timestamp in the view and the station's
// newest timestamp, Frequency is the number of non-missing readings, and
// Monetary is the mean reading.
//
// # Undefined Values
//
// Means and correlations over no data are nil, never zero. A nil average keeps
// a station off the map rather than drawing a zero-radius marker.
package domain
