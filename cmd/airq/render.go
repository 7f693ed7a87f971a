package main

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/airquality-dashboard/internal/adapter/xlsx"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRenderCmd(opts *options) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a selection and print the view as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := opts.render(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON on a single line")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a selection and write its tables to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := opts.render(cmd)
			if err != nil {
				return err
			}
			if err := xlsx.Save(path, pipeline.Tables(out.View), pipeline.TableOrder...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d records, render %s)\n", path, out.View.Records, out.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "out", "o", "airquality.xlsx", "output workbook path")
	return cmd
}

func newStationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List the stations present in the data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.dashboard(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			stations, err := d.Stations(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range stations {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
