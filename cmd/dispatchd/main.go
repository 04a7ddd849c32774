// Command dispatchd runs the demo simulation on a dispatcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oriumgames/dispatch"
	"github.com/oriumgames/dispatch/internal/config"
	"github.com/oriumgames/dispatch/internal/demo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dispatchd",
		Short:         "Run systems on a conflict-aware tick dispatcher",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newPlanCommand(opts))

	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var ticks uint64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ticks") {
				cfg.Ticks = ticks
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Uint64VarP(&ticks, "ticks", "n", 0, "stop after this many ticks (overrides config)")
	return cmd
}

func newPlanCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the execution plan of the demo simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			sim, err := build(cfg, io.Discard, nil)
			if err != nil {
				return err
			}
			defer sim.dispatcher.Close()

			_, err = io.WriteString(cmd.OutOrStdout(), dispatch.FormatPlan(sim.dispatcher.Plan()))
			return err
		},
	}
}

type simulation struct {
	dispatcher *dispatch.Dispatcher
	resources  *dispatch.Resources
	clock      *dispatch.Clock
	logger     *slog.Logger
}

func build(cfg config.Config, logOut io.Writer, report func(demo.Stats)) (*simulation, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	clock := dispatch.NewClock()
	res := dispatch.NewResources()
	res.Insert(dispatch.NewFrameSync(clock))

	opts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithFailurePolicy(cfg.Policy()),
	}
	if cfg.Workers > 0 {
		opts = append(opts, dispatch.WithWorkers(cfg.Workers))
	}
	d := dispatch.New(opts...)

	if err := demo.Bundle(cfg.Bodies, report).Install(d, res); err != nil {
		d.Close()
		return nil, err
	}

	return &simulation{dispatcher: d, resources: res, clock: clock, logger: logger}, nil
}

func run(ctx context.Context, cfg config.Config, out io.Writer) error {
	sim, err := build(cfg, out, func(s demo.Stats) {
		fmt.Fprintln(out, s)
	})
	if err != nil {
		return err
	}
	defer sim.dispatcher.Close()

	runner := dispatch.NewRunner(sim.dispatcher, sim.resources, sim.clock,
		dispatch.WithTickRate(cfg.TickRate),
		dispatch.WithMaxTicks(cfg.Ticks),
	)

	sim.logger.Info("dispatchd: starting",
		slog.Duration("tick_rate", cfg.TickRate),
		slog.Uint64("ticks", cfg.Ticks),
		slog.Int("systems", sim.dispatcher.Len()))

	runner.Start(ctx)
	<-runner.Done()

	sim.logger.Info("dispatchd: stopped", slog.Uint64("ticks", runner.Steps()))

	if err := runner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
