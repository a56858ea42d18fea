package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tigerroll/nsrdb2epw/internal/app"
	"github.com/tigerroll/nsrdb2epw/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download NSRDB data for a geometry and write EPW files",
	Long: `Resolve the geometry to NSRDB points, retrieve every requested year and
write one EPW file per point and year. In job mode the provider prepares the
data asynchronously and the download URLs are reported instead.`,
	RunE: runRun,
}

var runFlags struct {
	geometry      string
	dataset       string
	interval      int
	years         []string
	apiKey        string
	email         string
	outputDir     string
	location      string
	state         string
	country       string
	mode          string
	groupSize     int
	concurrency   int
	failurePolicy string
	alignment     string
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.geometry, "geometry", "g", "", "WKT point or polygon")
	f.StringVarP(&runFlags.dataset, "dataset", "d", "", "dataset token (see 'datasets')")
	f.IntVar(&runFlags.interval, "interval", 0, "sampling interval in minutes")
	f.StringSliceVarP(&runFlags.years, "years", "y", nil, "years to retrieve")
	f.StringVar(&runFlags.apiKey, "api-key", "", "provider API key")
	f.StringVar(&runFlags.email, "email", "", "contact email sent with requests")
	f.StringVarP(&runFlags.outputDir, "output", "o", "", "output directory")
	f.StringVarP(&runFlags.location, "location", "l", "", "location name used in headers and file names")
	f.StringVar(&runFlags.state, "state", "", "state written into the header")
	f.StringVar(&runFlags.country, "country", "", "country written into the header")
	f.StringVarP(&runFlags.mode, "mode", "m", "", "retrieval mode: csv or job")
	f.IntVar(&runFlags.groupSize, "group-size", 0, "points per job-mode request")
	f.IntVar(&runFlags.concurrency, "concurrency", 0, "units converted in parallel")
	f.StringVar(&runFlags.failurePolicy, "failure-policy", "", "abort or continue")
	f.StringVar(&runFlags.alignment, "alignment", "", "row alignment: positional or strict")
	rootCmd.AddCommand(runCmd)
}

// runOverride applies the flags that were set on the command line.
func runOverride(cmd *cobra.Command) config.Override {
	changed := cmd.Flags().Changed
	return func(cfg *config.Config) {
		a := &cfg.App
		if changed("geometry") {
			a.Request.Geometry = runFlags.geometry
		}
		if changed("dataset") {
			a.Request.Dataset = runFlags.dataset
		}
		if changed("interval") {
			a.Request.Interval = runFlags.interval
		}
		if changed("years") {
			a.Request.Years = runFlags.years
		}
		if changed("api-key") {
			a.Request.APIKey = runFlags.apiKey
		}
		if changed("email") {
			a.Request.Email = runFlags.email
		}
		if changed("mode") {
			a.Provider.Mode = runFlags.mode
		}
		if changed("group-size") {
			a.Provider.GroupSize = runFlags.groupSize
		}
		if changed("alignment") {
			a.Transform.Alignment = runFlags.alignment
		}
		applyCommonFlags(cmd, cfg)
	}
}

// applyCommonFlags handles the output and scheduling flags shared by run and convert.
func applyCommonFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	a := &cfg.App
	if changed("output") {
		a.Output.Dir = runFlags.outputDir
	}
	if changed("location") {
		a.Output.Location = runFlags.location
	}
	if changed("state") {
		a.Output.State = runFlags.state
	}
	if changed("country") {
		a.Output.Country = runFlags.country
	}
	if changed("concurrency") {
		a.Job.Concurrency = runFlags.concurrency
	}
	if changed("failure-policy") {
		a.Job.FailurePolicy = runFlags.failurePolicy
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	return app.RunApplication(cmd.Context(), applicationOptions(runOverride(cmd)), func(ctx context.Context, c app.Components) error {
		if err := c.Config.ValidateRequest(); err != nil {
			return err
		}
		report, err := c.Job.Run(ctx, app.RunParamsFromConfig(c.Config))
		if ferr := logReport(report); err == nil {
			err = ferr
		}
		return err
	})
}
