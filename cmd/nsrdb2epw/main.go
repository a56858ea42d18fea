package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tigerroll/nsrdb2epw/internal/app"
	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/internal/job"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// embeddedConfig holds the default application configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// Exit codes.
const (
	exitFailure       = 1
	exitConfiguration = 2
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "nsrdb2epw",
	Short: "Convert NSRDB solar and weather data into EnergyPlus weather files",
	Long: `nsrdb2epw resolves a WKT geometry to NSRDB points, downloads their
yearly time series and writes one EPW file per point and year.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML file layered over the built-in configuration")
}

// applicationOptions returns the options shared by every subcommand.
func applicationOptions(override config.Override) app.Options {
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}
	return app.Options{
		EnvFilePath: envFilePath,
		ConfigFile:  configFile,
		Embedded:    config.EmbeddedConfig(embeddedConfig),
		Override:    override,
	}
}

// logReport prints the outcome of a run and returns the aggregated unit
// failures, if any.
func logReport(report *job.Report) error {
	if report == nil {
		return nil
	}
	for _, path := range report.Written {
		logger.Infof("Wrote %s", path)
	}
	for _, path := range report.Parquet {
		logger.Infof("Exported %s", path)
	}
	for _, j := range report.Jobs {
		logger.Infof("Submitted job, download from %s", j.DownloadURL)
	}
	if report.Skipped > 0 {
		logger.Warnf("%d unit(s) were skipped.", report.Skipped)
	}
	return report.Err()
}

func exitCode(err error) int {
	if exception.KindOf(err) == exception.KindConfiguration {
		return exitConfiguration
	}
	return exitFailure
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}
