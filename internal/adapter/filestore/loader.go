package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	colYear    = "year"
	colMonth   = "month"
	colDay     = "day"
	colHour    = "hour"
	colStation = "station"
)

// missingValues are the cell spellings read as a missing reading.
var missingValues = []string{"NA", "NaN", "nan", "<nil>", ""}

// Loader reads PRSA-style CSV files into a single enriched dataset.
// It implements pipeline.DatasetSource.
type Loader struct {
	paths  []string
	logger *slog.Logger
}

// NewLoader creates a loader over the given paths. Each path is either a CSV
// file or a directory whose *.csv files are read in file-name order.
func NewLoader(paths []string, logger *slog.Logger) *Loader {
	return &Loader{paths: paths, logger: logger}
}

// Paths returns the configured input paths.
func (l *Loader) Paths() []string { return l.paths }

// Resolve expands the configured paths into the ordered list of CSV files.
func (l *Loader) Resolve() ([]string, error) {
	var files []string
	for _, p := range l.paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				continue
			}
			files = append(files, filepath.Join(p, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputFiles, strings.Join(l.paths, ","))
	}
	return files, nil
}

// Load reads every resolved file, concatenates the records in file order, and
// enriches the result with weekday, season, and workday fields.
func (l *Loader) Load(ctx context.Context) (*domain.Dataset, error) {
	files, err := l.Resolve()
	if err != nil {
		return nil, err
	}

	parts := make([]domain.Dataset, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("csv file loaded", "path", path, "records", part.Len())
		parts = append(parts, part)
	}

	ds := domain.Enrich(domain.Concat(parts...))
	l.logger.Info("dataset loaded", "files", len(files), "records", ds.Len())
	return &ds, nil
}

// ReadFile parses one CSV file. The station label comes from the "station"
// column when present, otherwise from the file name.
func ReadFile(path string) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Dataset{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return domain.Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return domain.Dataset{}, fmt.Errorf("read csv %s: %w", path, df.Err)
	}
	return fromDataFrame(path, df)
}

func fromDataFrame(path string, df dataframe.DataFrame) (domain.Dataset, error) {
	for _, col := range []string{colYear, colMonth, colDay, colHour} {
		if !hasColumn(df, col) {
			return domain.Dataset{}, &SchemaError{File: path, Column: col}
		}
	}

	fallbackStation := ""
	if !hasColumn(df, colStation) {
		name, ok := StationFromFileName(path)
		if !ok {
			return domain.Dataset{}, &SchemaError{File: path, Column: colStation}
		}
		fallbackStation = name
	}

	n := df.Nrow()
	records := make([]domain.Record, n)

	ints := map[string]series.Series{
		colYear:  df.Col(colYear),
		colMonth: df.Col(colMonth),
		colDay:   df.Col(colDay),
		colHour:  df.Col(colHour),
	}

	for i := 0; i < n; i++ {
		line := i + 2
		var parsed [4]int
		for j, col := range []string{colYear, colMonth, colDay, colHour} {
			v, err := parseInt(ints[col].Elem(i))
			if err != nil {
				return domain.Dataset{}, &ParseError{File: path, Line: line, Column: col, Value: ints[col].Elem(i).String(), Err: err}
			}
			parsed[j] = v
		}

		ts, err := timestamp(parsed[0], parsed[1], parsed[2], parsed[3])
		if err != nil {
			return domain.Dataset{}, &ParseError{
				File: path, Line: line, Column: "timestamp",
				Value: fmt.Sprintf("%d-%d-%d %d", parsed[0], parsed[1], parsed[2], parsed[3]),
				Err:   err,
			}
		}

		records[i] = domain.Record{
			Station:   fallbackStation,
			Year:      parsed[0],
			Month:     parsed[1],
			Day:       parsed[2],
			Hour:      parsed[3],
			Timestamp: ts,
		}
	}

	if fallbackStation == "" {
		stations := df.Col(colStation)
		for i := 0; i < n; i++ {
			e := stations.Elem(i)
			label := strings.TrimSpace(e.String())
			if e.IsNA() || label == "" {
				return domain.Dataset{}, &ParseError{File: path, Line: i + 2, Column: colStation, Value: label, Err: errors.New("empty station label")}
			}
			records[i].Station = label
		}
	}

	for _, p := range domain.Pollutants {
		if err := fillColumn(path, df, string(p), records, func(r *domain.Record, v *float64) { r.SetPollutant(p, v) }); err != nil {
			return domain.Dataset{}, err
		}
	}
	for _, w := range domain.WeatherFactors {
		if err := fillColumn(path, df, string(w), records, func(r *domain.Record, v *float64) { r.SetWeather(w, v) }); err != nil {
			return domain.Dataset{}, err
		}
	}

	return domain.Dataset{Records: records}, nil
}

// fillColumn parses an optional measurement column. An absent column leaves
// every reading missing; a present column must hold numbers or missing markers.
func fillColumn(path string, df dataframe.DataFrame, col string, records []domain.Record, set func(*domain.Record, *float64)) error {
	if !hasColumn(df, col) {
		return nil
	}
	s := df.Col(col)
	for i := range records {
		v, err := parseReading(s.Elem(i))
		if err != nil {
			return &ParseError{File: path, Line: i + 2, Column: col, Value: s.Elem(i).String(), Err: err}
		}
		set(&records[i], v)
	}
	return nil
}

// StationFromFileName extracts the third underscore-delimited token of the
// file's base name, e.g. "PRSA_Data_Dongsi_20130301-20170228.csv" -> "Dongsi".
func StationFromFileName(path string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tokens := strings.Split(base, "_")
	if len(tokens) < 3 || strings.TrimSpace(tokens[2]) == "" {
		return "", false
	}
	return tokens[2], true
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func parseInt(e series.Element) (int, error) {
	if e.IsNA() {
		return 0, errors.New("missing value")
	}
	s := strings.TrimSpace(e.String())
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	// Some exports write integral columns as floats ("2013.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, errors.New("not an integer")
	}
	return int(f), nil
}

func parseReading(e series.Element) (*float64, error) {
	if e.IsNA() {
		return nil, nil
	}
	s := strings.TrimSpace(e.String())
	for _, m := range missingValues {
		if s == m {
			return nil, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("not a number")
	}
	// ParseFloat accepts "NaN" and "Inf" in any case.
	if math.IsNaN(v) {
		return nil, nil
	}
	if math.IsInf(v, 0) {
		return nil, errors.New("not a finite number")
	}
	return &v, nil
}

// timestamp composes the four calendar fields, rejecting values that
// time.Date would silently normalize (month 13, February 30, hour 24).
func timestamp(year, month, day, hour int) (time.Time, error) {
	ts := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day || ts.Hour() != hour {
		return time.Time{}, errors.New("invalid date")
	}
	return ts, nil
}
