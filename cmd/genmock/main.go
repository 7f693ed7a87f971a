// Command genmock writes deterministic synthetic PRSA hourly air-quality CSV
// files, one per station, for local runs and tests. The output is read back
// through the filestore loader so the printed stats match what the dashboard
// will render.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -start 2013-03-01 -end 2017-02-28 \
//	  -stations Dongsi,Tiantan
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/adapter/filestore"
	"github.com/couchcryptid/airquality-dashboard/internal/domain"
)

var header = []string{
	"No", "year", "month", "day", "hour",
	"PM2.5", "PM10", "SO2", "NO2", "CO", "O3",
	"TEMP", "PRES", "DEWP", "RAIN", "wd", "WSPM", "station",
}

var windDirections = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

type options struct {
	out      string
	start    time.Time
	end      time.Time
	stations []string
	step     int
	seed     uint64
	missing  float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "output directory for the generated CSV files")
	start := flag.String("start", "2013-03-01", "first day to generate (YYYY-MM-DD)")
	end := flag.String("end", "2017-02-28", "last day to generate, inclusive (YYYY-MM-DD)")
	stations := flag.String("stations", "", "comma-separated station names (default: all known stations)")
	step := flag.Int("step", 1, "hours between generated rows")
	seed := flag.Uint64("seed", 42, "random seed")
	missing := flag.Float64("missing", 0.01, "probability that a reading is written as NA")
	flag.Parse()

	opts := options{out: *out, step: *step, seed: *seed, missing: *missing}
	var err error
	if opts.start, err = time.Parse(time.DateOnly, *start); err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if opts.end, err = time.Parse(time.DateOnly, *end); err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}
	if opts.end.Before(opts.start) {
		return fmt.Errorf("-end %s is before -start %s", *end, *start)
	}
	if opts.step < 1 {
		return fmt.Errorf("-step must be at least 1, got %d", opts.step)
	}

	constants := domain.DefaultConstants()
	opts.stations = constants.StationNames()
	if *stations != "" {
		opts.stations = nil
		for _, s := range strings.Split(*stations, ",") {
			if s = strings.TrimSpace(s); s != "" {
				opts.stations = append(opts.stations, s)
			}
		}
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}

	files := make([]string, 0, len(opts.stations))
	for i, station := range opts.stations {
		path := filepath.Join(opts.out, fmt.Sprintf("PRSA_Data_%s_%s-%s.csv",
			station, opts.start.Format("20060102"), opts.end.Format("20060102")))
		rows, err := writeStation(path, station, i, opts)
		if err != nil {
			return fmt.Errorf("writing %s: %w", station, err)
		}
		log.Printf("%s: %d rows -> %s", station, rows, path)
		files = append(files, path)
	}

	loader := filestore.NewLoader(files, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ds, err := loader.Load(context.Background())
	if err != nil {
		return fmt.Errorf("reading generated files back: %w", err)
	}
	printStats(*ds, constants)
	return nil
}

func writeStation(path, station string, index int, opts options) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return 0, err
	}

	rng := rand.New(rand.NewPCG(opts.seed, uint64(index)+1))
	// Per-station PM2.5 baseline.
	base := 60 + 40*rng.Float64()

	n := 0
	last := opts.end.Add(23 * time.Hour)
	for t := opts.start; !t.After(last); t = t.Add(time.Duration(opts.step) * time.Hour) {
		n++
		row := append([]string{
			strconv.Itoa(n),
			strconv.Itoa(t.Year()),
			strconv.Itoa(int(t.Month())),
			strconv.Itoa(t.Day()),
			strconv.Itoa(t.Hour()),
		}, readings(rng, t, base, opts.missing)...)
		row = append(row, station)
		if err := w.Write(row); err != nil {
			return n, err
		}
	}

	w.Flush()
	return n, w.Error()
}

// readings produces PM2.5 PM10 SO2 NO2 CO O3 TEMP PRES DEWP RAIN wd WSPM.
func readings(rng *rand.Rand, t time.Time, base, missing float64) []string {
	// winter is 1 in January, -1 in July.
	winter := math.Cos(2 * math.Pi * float64(t.YearDay()-15) / 365)
	// evening peaks around 22:00.
	evening := math.Cos(2 * math.Pi * float64(t.Hour()-22) / 24)
	afternoon := math.Cos(2 * math.Pi * float64(t.Hour()-15) / 24)
	trend := 1 - 0.06*float64(t.Year()-2013)
	workday := 1.0
	if domain.IsWorkday(domain.Weekday(t)) {
		workday = 1.1
	}

	noise := math.Exp(rng.NormFloat64() * 0.5)
	pm25 := base * (1 + 0.5*winter) * (1 + 0.25*evening) * trend * workday * noise
	pm10 := pm25*1.3 + 15*rng.Float64()
	so2 := math.Max(2, 8+12*winter+3*rng.NormFloat64())
	no2 := math.Max(5, 45+15*evening+10*rng.NormFloat64())
	co := 300 + pm25*12 + 100*rng.Float64()
	o3 := math.Max(2, 50-35*winter+30*afternoon+10*rng.NormFloat64())

	temp := 13 - 16*winter + 5*afternoon + 2*rng.NormFloat64()
	pres := 1012 + 12*winter + 2*rng.NormFloat64()
	dewp := temp - 8 - 6*rng.Float64()
	rain := 0.0
	if rng.Float64() < 0.04*(1-winter) {
		rain = 5 * rng.ExpFloat64()
	}
	wspm := 0.5 + 1.5*rng.ExpFloat64()

	values := []float64{pm25, pm10, so2, no2, co, o3, temp, pres, dewp, rain}
	out := make([]string, 0, len(values)+2)
	for _, v := range values {
		out = append(out, format(rng, v, missing))
	}
	out = append(out, windDirections[rng.IntN(len(windDirections))], format(rng, wspm, missing))
	return out
}

func format(rng *rand.Rand, v, missing float64) string {
	if rng.Float64() < missing {
		return "NA"
	}
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func printStats(ds domain.Dataset, c domain.Constants) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d records, %d stations\n", ds.Len(), len(ds.Stations()))

	missing := 0
	for _, r := range ds.Records {
		if r.PM25 == nil {
			missing++
		}
	}
	fmt.Printf("Missing PM2.5: %d\n", missing)

	fmt.Println("\nStation PM2.5 averages:")
	for _, a := range domain.StationAverages(ds, domain.PM25, nil) {
		if a.Average != nil {
			fmt.Printf("  %-14s %7.2f (%d readings)\n", a.Station, *a.Average, a.Count)
		}
	}

	fmt.Println("\nYearly PM2.5 averages:")
	for _, y := range domain.YearlyAverages(ds, domain.PM25) {
		if y.Average != nil {
			fmt.Printf("  %d %7.2f\n", y.Year, *y.Average)
		}
	}

	dist := domain.DistributeSeverity(ds, domain.PM25)
	fmt.Println("\nPM2.5 severity:")
	for _, b := range dist.Bins {
		fmt.Printf("  %-20s %d\n", b.Bin, b.Count)
	}
	fmt.Printf("  %-20s %d\n", "unclassified", dist.Unclassified)

	if peak, ok := domain.PeakHour(domain.HourlyAverages(ds, domain.PM25, c.PeakHourStation)); ok {
		fmt.Printf("\nPeak PM2.5 hour: %d\n", peak)
	}
}
