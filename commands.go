package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/rtm0/aodsubset/internal/export"
	"github.com/rtm0/aodsubset/internal/plot"
	"github.com/rtm0/aodsubset/internal/swath"
	"github.com/rtm0/aodsubset/internal/vm"
)

var subsetCmd = &cobra.Command{
	Use:   "subset [files...]",
	Short: "Subset and merge swath files, printing a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := runSubset(cmd.Context(), cmd, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d points kept from %d files\n",
			merged.Name, merged.Len(), fileCount(args))
		return nil
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot [files...]",
	Short: "Subset swath files and render the points as a scatter image",
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := runSubset(cmd.Context(), cmd, args)
		if err != nil {
			return err
		}

		opts := plot.DefaultOptions()
		opts.Output = stringFlag(cmd, "output", cfg.Plot.Output)
		opts.Width = vg.Length(cfg.Plot.Width) * vg.Inch
		opts.Height = vg.Length(cfg.Plot.Height) * vg.Inch
		x := stringFlag(cmd, "x", cfg.Plot.XField)
		y := stringFlag(cmd, "y", cfg.Plot.YField)
		return plot.Scatter(merged, x, y, opts)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [files...]",
	Short: "Subset swath files and write the points as GeoJSON or a shapefile",
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := runSubset(cmd.Context(), cmd, args)
		if err != nil {
			return err
		}

		output := stringFlag(cmd, "output", cfg.Export.Output)
		switch format := stringFlag(cmd, "format", cfg.Export.Format); format {
		case "geojson":
			if err := writeGeoJSON(output, merged); err != nil {
				return err
			}
		case "shapefile":
			if err := export.Shapefile(output, merged); err != nil {
				return err
			}
		default:
			return eris.Errorf("export: unknown format %q", format)
		}
		zap.L().Info("export complete", zap.String("output", output), zap.Int("points", merged.Len()))
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [files...]",
	Short: "Subset swath files and insert the points into Victoria Metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := runSubset(cmd.Context(), cmd, args)
		if err != nil {
			return err
		}

		cli, err := vm.NewClient(stringFlag(cmd, "url", cfg.VM.InsertURL), cfg.VM.Concurrency, cfg.VM.MetricPrefix)
		if err != nil {
			return err
		}
		return cli.Push(cmd.Context(), merged, cfg.VM.BatchSize)
	},
}

func init() {
	plotCmd.Flags().StringP("output", "o", "", "image path; extension selects the format (default: config plot.output)")
	plotCmd.Flags().String("x", "", "field on the x axis (default: config plot.x_field)")
	plotCmd.Flags().String("y", "", "field on the y axis (default: config plot.y_field)")

	exportCmd.Flags().StringP("output", "o", "", "output path (default: config export.output)")
	exportCmd.Flags().StringP("format", "f", "", "geojson or shapefile (default: config export.format)")

	pushCmd.Flags().String("url", "", "Victoria Metrics insert URL (default: config vm.insert_url)")
}

// writeGeoJSON writes d to a new file at output. A failed close is an error
// since it may hide a short write.
func writeGeoJSON(output string, d *swath.Dataset) error {
	f, err := os.Create(output)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", output)
	}
	if err := export.GeoJSON(f, d); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", output)
	}
	return nil
}

// stringFlag returns the flag value, or fallback when the flag is unset.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}

func fileCount(args []string) int {
	if len(args) > 0 {
		return len(args)
	}
	return len(cfg.Files)
}
