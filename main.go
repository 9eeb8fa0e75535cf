package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rtm0/aodsubset/internal/config"
	"github.com/rtm0/aodsubset/internal/subset"
	"github.com/rtm0/aodsubset/internal/swath"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "aodsubset",
	Short: "Subset satellite aerosol optical depth swaths by region",
	Long:  "Reads AOD swath files in parallel, keeps the points inside the configured regions (northern and southern Africa by default) and merges them in file order.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "number of files read concurrently (default: config workers)")
	rootCmd.AddCommand(subsetCmd, plotCmd, exportCmd, pushCmd)
}

// runSubset reads the given files, or the configured ones when none are
// given, and returns the merged points inside the configured regions.
func runSubset(ctx context.Context, cmd *cobra.Command, args []string) (*swath.Dataset, error) {
	paths := args
	if len(paths) == 0 {
		paths = cfg.Files
	}
	workers := cfg.Workers
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		workers = n
	}

	driver := subset.NewDriver(
		subset.WithWorkers(workers),
		subset.WithRegions(cfg.Boxes()),
		subset.WithVariables(cfg.SwathVariables()),
	)
	merged, err := driver.RunMerged(ctx, paths)
	if err != nil {
		return nil, err
	}
	zap.L().Info("subset complete", merged.Summary()...)
	return merged, nil
}

func main() {
	// Replaced by config.InitLogger once the config is loaded.
	zap.ReplaceGlobals(zap.Must(zap.NewDevelopment()))
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("aodsubset failed", zap.Error(err))
		os.Exit(1)
	}
}
