package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/torosent/flood/internal/config"
	"github.com/torosent/flood/internal/logging"
	"github.com/torosent/flood/internal/remote"
	"github.com/torosent/flood/internal/runner"
	"github.com/torosent/flood/internal/threshold"
)

// errThresholdsFailed makes the process exit non-zero after the report.
var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if args == nil {
		args = []string{}
	}
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// newRootCommand wires the load test and the serve subcommand. Flag parsing
// is left to config.Loader, which also owns the positional form.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:                "flood",
		Short:              "Raw-socket HTTP(S) load generator",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadTest(cmd.Context(), args, stdout, stderr)
		},
	}
	root.AddCommand(&cobra.Command{
		Use:                "serve",
		Short:              "Run load tests triggered over a websocket",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), args, stdout, stderr)
		},
	})
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root
}

// loadTest performs one run from the command line and reports it.
func loadTest(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := newLogger(*cfg, stderr)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, *cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	result, history, err := a.execute(ctx, *cfg, true)
	if err != nil {
		return err
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(result.Stats)
	a.report(*cfg, result, history, results)

	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}

// serve listens for websocket triggers until interrupted. Flags and the
// config file provide the defaults every trigger starts from.
func serve(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.Loader{AllowEmpty: true}
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if cfg.Remote.Listen == "" {
		return errors.New("serve requires --listen")
	}

	logger, err := newLogger(*cfg, stderr)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, *cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	srv := remote.NewServer(*cfg, func(ctx context.Context, trigger config.Config) (runner.Result, error) {
		result, history, err := a.execute(ctx, trigger, false)
		if err != nil {
			return result, err
		}
		a.report(trigger, result, history, nil)
		return result, nil
	}, logger)
	return srv.ListenAndServe(ctx, cfg.Remote.Listen, cfg.Remote.Path)
}

// newLogger writes to stderr in the configured format; --verbose forces
// debug so request heads are logged.
func newLogger(cfg config.Config, stderr io.Writer) (zerolog.Logger, error) {
	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	console, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logging.New(stderr, level, console)
}
