package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tigerroll/nsrdb2epw/internal/app"
	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/internal/job"
)

var convertCmd = &cobra.Command{
	Use:   "convert [CSV files...]",
	Short: "Convert downloaded NSRDB CSV files into EPW files",
	Long: `Convert CSV files fetched from job-mode download links without contacting
the provider. Without arguments every .csv object under --prefix in the output
storage is converted.`,
	RunE: runConvert,
}

var convertPrefix string

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertPrefix, "prefix", "", "object prefix searched when no files are given")
	f.StringVarP(&runFlags.outputDir, "output", "o", "", "output directory")
	f.StringVarP(&runFlags.location, "location", "l", "", "location name used in headers and file names")
	f.StringVar(&runFlags.state, "state", "", "state written into the header")
	f.StringVar(&runFlags.country, "country", "", "country written into the header")
	f.IntVar(&runFlags.concurrency, "concurrency", 0, "files converted in parallel")
	f.StringVar(&runFlags.failurePolicy, "failure-policy", "", "abort or continue")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	override := func(cfg *config.Config) { applyCommonFlags(cmd, cfg) }
	return app.RunApplication(cmd.Context(), applicationOptions(override), func(ctx context.Context, c app.Components) error {
		report, err := c.Job.Convert(ctx, job.ConvertParams{
			Paths:  args,
			Prefix: convertPrefix,
			Site:   app.SiteFromConfig(c.Config),
		})
		if ferr := logReport(report); err == nil {
			err = ferr
		}
		return err
	})
}
