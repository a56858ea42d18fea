package app

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/internal/job"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// Options are the process-level inputs of an application run.
type Options struct {
	// EnvFilePath is the .env file loaded before the configuration.
	EnvFilePath string
	// ConfigFile is an optional YAML file layered over the embedded one.
	ConfigFile string
	Embedded   config.EmbeddedConfig
	// Override applies command-line flags to the loaded configuration.
	Override config.Override
	// Extra is appended to the Fx options, mainly to replace providers in tests.
	Extra []fx.Option
}

// Components are what a Command operates on.
type Components struct {
	fx.In
	Config *config.Config
	Job    *job.Job
}

// Command is the body of a CLI subcommand.
type Command func(ctx context.Context, c Components) error

// RunApplication builds the Fx graph, starts it, runs cmd and stops the graph
// again. Construction errors (bad configuration, unreachable ledger) are
// returned before cmd runs.
func RunApplication(ctx context.Context, opts Options, cmd Command) (err error) {
	override := opts.Override
	if override == nil {
		override = func(*config.Config) {}
	}

	var components Components
	fxOpts := []fx.Option{
		fx.Supply(
			opts.Embedded,
			fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(opts.ConfigFile, fx.ResultTags(`name:"configFile"`)),
		),
		fx.Provide(func() config.Override { return override }),
		logger.Module,
		config.Module,
		Module,
	}
	fxOpts = append(fxOpts, opts.Extra...)
	fxOpts = append(fxOpts, fx.Invoke(func(c Components) { components = c }))

	application := fx.New(fxOpts...)
	if err := application.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, application.StartTimeout())
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), application.StopTimeout())
		defer cancel()
		if stopErr := application.Stop(stopCtx); stopErr != nil {
			logger.Errorf("Failed to stop application: %v", stopErr)
			err = multierror.Append(err, stopErr).ErrorOrNil()
		}
	}()

	return cmd(ctx, components)
}
