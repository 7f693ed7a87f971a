package domain

import "time"

func ptr(v float64) *float64 { return &v }

// rec builds a record for station at the given hour with a PM2.5 reading.
// A nil value leaves the reading missing.
func rec(station string, year, month, day, hour int, pm25 *float64) Record {
	return Record{
		Station:   station,
		Year:      year,
		Month:     month,
		Day:       day,
		Hour:      hour,
		Timestamp: time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC),
		PM25:      pm25,
	}
}

func dataset(records ...Record) Dataset {
	return Dataset{Records: records}
}
