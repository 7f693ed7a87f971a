package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/couchcryptid/airquality-dashboard/internal/adapter/filestore"
	"github.com/couchcryptid/airquality-dashboard/internal/config"
	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	data          []string
	constantsFile string
	verbose       bool

	pollutant string
	weather   string
	from      int
	to        int
	stations  []string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "airq",
		Short:         "Render air-quality dashboard views from PRSA CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringSliceVar(&opts.data, "data", nil, "CSV files or directories (repeatable or comma-separated)")
	f.StringVar(&opts.constantsFile, "constants", "", "YAML overlay for the domain constants")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "write debug logs to stderr")
	f.StringVar(&opts.pollutant, "pollutant", string(domain.PM25), "pollutant to render")
	f.StringVar(&opts.weather, "weather", "", "weather factor to correlate against")
	f.IntVar(&opts.from, "from", 0, "first year of the range (default: earliest known year)")
	f.IntVar(&opts.to, "to", 0, "last year of the range (default: latest known year)")
	f.StringSliceVar(&opts.stations, "station", nil, "stations to include (default: all stations in the data)")
	_ = root.MarkPersistentFlagRequired("data")

	root.AddCommand(
		newRenderCmd(opts),
		newExportCmd(opts),
		newStationsCmd(opts),
	)
	return root
}

// dashboard builds a non-publishing dashboard over opts.data. Logs go to
// stderr so stdout carries only command output.
func (o *options) dashboard(stderr io.Writer) (*pipeline.Dashboard, error) {
	if len(o.data) == 0 {
		return nil, errors.New("--data is required")
	}

	constants := domain.DefaultConstants()
	if o.constantsFile != "" {
		var err error
		if constants, err = config.LoadConstants(o.constantsFile, constants); err != nil {
			return nil, err
		}
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	metrics := observability.NewUnregisteredMetrics()

	// One entry: a command loads a single file set.
	loader := filestore.NewCachedLoader(filestore.NewLoader(o.data, logger), 1, metrics)
	return pipeline.New(loader, nil, constants, logger, metrics), nil
}

// selection starts from the dashboard default and applies the flags the user set.
func (o *options) selection(ctx context.Context, cmd *cobra.Command, d *pipeline.Dashboard) (domain.Selection, error) {
	sel, err := d.DefaultSelection(ctx)
	if err != nil {
		return domain.Selection{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("pollutant") {
		sel.Pollutant = domain.Pollutant(o.pollutant)
	}
	if flags.Changed("weather") {
		sel.WeatherFactor = domain.WeatherFactor(o.weather)
	}
	if flags.Changed("from") {
		sel.YearLow = o.from
	}
	if flags.Changed("to") {
		sel.YearHigh = o.to
	}
	if flags.Changed("station") {
		sel.Stations = o.stations
	}
	return sel, nil
}

func (o *options) render(cmd *cobra.Command) (pipeline.Rendered, error) {
	ctx := cmd.Context()
	d, err := o.dashboard(cmd.ErrOrStderr())
	if err != nil {
		return pipeline.Rendered{}, err
	}
	sel, err := o.selection(ctx, cmd, d)
	if err != nil {
		return pipeline.Rendered{}, err
	}
	return d.Render(ctx, sel)
}
