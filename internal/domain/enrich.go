package domain

import "time"

// Season is a meteorological season label.
type Season string

const (
	Winter Season = "Winter"
	Spring Season = "Spring"
	Summer Season = "Summer"
	Fall   Season = "Fall"
)

// SeasonOf maps a month to its season. Returns false for months outside 1..12.
func SeasonOf(month int) (Season, bool) {
	switch month {
	case 12, 1, 2:
		return Winter, true
	case 3, 4, 5:
		return Spring, true
	case 6, 7, 8:
		return Summer, true
	case 9, 10, 11:
		return Fall, true
	default:
		return "", false
	}
}

// Weekday returns the day of week with Monday=0 .. Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWorkday reports whether a Monday-based weekday index is Monday through Friday.
func IsWorkday(weekday int) bool {
	return weekday >= 0 && weekday < 5
}

// Enrich returns a copy of ds with weekday, season, and workday set on every record.
// Records with a zero timestamp keep weekday 0 and workday false; an invalid
// month leaves the season empty.
func Enrich(ds Dataset) Dataset {
	out := make([]Record, len(ds.Records))
	for i, r := range ds.Records {
		r.Season, _ = SeasonOf(r.Month)
		if !r.Timestamp.IsZero() {
			r.Weekday = Weekday(r.Timestamp)
			r.Workday = IsWorkday(r.Weekday)
		}
		out[i] = r
	}
	return Dataset{Records: out}
}
