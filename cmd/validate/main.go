// Command validate performs integrity checks on a PRSA hourly air-quality
// dataset. It compares raw CSV row counts against loaded records, re-derives
// the calendar enrichment, checks station and year coverage against the
// domain constants, and verifies render totals for every pollutant.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -data data/mock \
//	  -constants config/constants.yaml
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/adapter/filestore"
	"github.com/couchcryptid/airquality-dashboard/internal/config"
	"github.com/couchcryptid/airquality-dashboard/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrors caps how many findings one phase records.
const maxErrors = 50

func main() {
	data := flag.String("data", "", "comma-separated CSV files or directories")
	constantsFile := flag.String("constants", "", "optional YAML overlay for the domain constants")
	flag.Parse()

	if *data == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(strings.Split(*data, ","), *constantsFile); code != 0 {
		os.Exit(code)
	}
}

func run(paths []string, constantsFile string) int {
	fmt.Println("=== Air Quality Data Integrity Validation ===")
	fmt.Println()

	constants := domain.DefaultConstants()
	if constantsFile != "" {
		var err error
		if constants, err = config.LoadConstants(constantsFile, constants); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load constants: %v\n", err)
			return 1
		}
	}

	loader := filestore.NewLoader(paths, slog.New(slog.NewTextHandler(io.Discard, nil)))
	files, err := loader.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: resolve input files: %v\n", err)
		return 1
	}

	ds, err := loader.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}
	fmt.Printf("Loaded %d records from %d files\n", ds.Len(), len(files))

	phases := []*phase{
		validateLoaderParity(files),
		validateEnrichment(*ds),
		validateCoverage(*ds, constants),
		validateRenderTotals(*ds, constants),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateLoaderParity checks that every raw data row becomes exactly one record
// carrying the expected station label.
func validateLoaderParity(files []string) *phase {
	p := &phase{name: "Loader parity (CSV rows vs records)"}
	for _, path := range files {
		rows, err := countRows(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		part, err := filestore.ReadFile(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		if part.Len() != rows {
			p.errorf("%s: %d CSV rows, %d records", path, rows, part.Len())
		}
		if name, ok := filestore.StationFromFileName(path); ok {
			for _, s := range part.Stations() {
				if s != name {
					p.errorf("%s: station %q does not match file name station %q", path, s, name)
					break
				}
			}
		}
	}
	return p
}

func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	n := 0
	for {
		_, err := r.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

// validateEnrichment re-derives the calendar fields of every record.
func validateEnrichment(ds domain.Dataset) *phase {
	p := &phase{name: "Calendar enrichment"}
	for i, r := range ds.Records {
		if len(p.errors) >= maxErrors {
			break
		}
		want := time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, 0, 0, 0, time.UTC)
		if !r.Timestamp.Equal(want) {
			p.errorf("record %d (%s): timestamp %s, want %s", i, r.Station, r.Timestamp.Format(time.RFC3339), want.Format(time.RFC3339))
		}
		if season, _ := domain.SeasonOf(r.Month); r.Season != season {
			p.errorf("record %d (%s): season %q for month %d, want %q", i, r.Station, r.Season, r.Month, season)
		}
		if wd := domain.Weekday(r.Timestamp); r.Weekday != wd {
			p.errorf("record %d (%s): weekday %d, want %d", i, r.Station, r.Weekday, wd)
		}
		if r.Workday != domain.IsWorkday(r.Weekday) {
			p.errorf("record %d (%s): workday %t for weekday %d", i, r.Station, r.Workday, r.Weekday)
		}
	}
	return p
}

// validateCoverage checks that every station has a map coordinate and every
// record falls inside the configured year bounds.
func validateCoverage(ds domain.Dataset, c domain.Constants) *phase {
	p := &phase{name: "Station and year coverage"}
	for _, s := range ds.Stations() {
		if _, ok := c.Stations[s]; !ok {
			p.errorf("station %q has no coordinate", s)
		}
	}

	outside := make(map[int]int)
	for _, r := range ds.Records {
		if r.Year < c.YearMin || r.Year > c.YearMax {
			outside[r.Year]++
		}
	}
	for year, n := range outside {
		p.errorf("%d records in year %d, outside [%d, %d]", n, year, c.YearMin, c.YearMax)
	}
	return p
}

// validateRenderTotals renders the full selection for every pollutant and
// checks that the aggregate totals agree with the filtered view.
func validateRenderTotals(ds domain.Dataset, c domain.Constants) *phase {
	p := &phase{name: "Render totals per pollutant"}
	stations := ds.Stations()
	for _, pol := range domain.Pollutants {
		sel := domain.Selection{Pollutant: pol, YearLow: c.YearMin, YearHigh: c.YearMax, Stations: stations}
		vm, err := domain.Render(ds, sel, c)
		if err != nil {
			p.errorf("%s: render: %v", pol, err)
			continue
		}
		if vm.Records != vm.View.Len() {
			p.errorf("%s: view model reports %d records, view has %d", pol, vm.Records, vm.View.Len())
		}

		classified := vm.Severity.Unclassified
		for _, b := range vm.Severity.Bins {
			classified += b.Count
		}
		if classified != vm.Records {
			p.errorf("%s: severity bins cover %d of %d records", pol, classified, vm.Records)
		}

		if len(vm.StationAverages) != len(stations) {
			p.errorf("%s: %d station averages for %d stations", pol, len(vm.StationAverages), len(stations))
		}

		counted := 0
		for _, h := range vm.Histogram {
			counted += h.Count
		}
		present := 0
		for _, r := range vm.View.Records {
			if _, ok := r.Pollutant(pol); ok {
				present++
			}
		}
		if c.HistogramBins > 0 && counted != present {
			p.errorf("%s: histogram counts %d values, view has %d present", pol, counted, present)
		}
	}
	return p
}
