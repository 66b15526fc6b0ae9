package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/graceful/bootstrap"
	"github.com/kbukum/graceful/component"
	"github.com/kbukum/graceful/logger"
)

type serveOptions struct {
	stopDelay time.Duration
	flags     shutdownFlags
}

func newServeCmd(g *globals) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a long-lived app with components and probe endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load(cmd, &o.flags)
			if err != nil {
				return err
			}
			return o.serve(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().DurationVar(&o.stopDelay, "stop-delay", 200*time.Millisecond, "Time each component takes to stop")
	o.flags.register(cmd)
	return cmd
}

func (o *serveOptions) serve(ctx context.Context, cfg *demoConfig, log *logger.Logger) error {
	opts, mp, err := bootstrapOptions(ctx, cfg)
	if err != nil {
		return err
	}
	if mp != nil {
		defer func() { _ = mp.Shutdown(context.Background()) }()
	}
	opts = append(opts, bootstrap.WithLogger(log))
	if cfg.Probe.Enabled {
		opts = append(opts, bootstrap.WithProbe(cfg.Probe))
	}

	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return err
	}
	for _, name := range []string{"database", "queue", "http"} {
		if err := app.RegisterComponent(o.component(name, log)); err != nil {
			return err
		}
	}
	app.OnStop(func(ctx context.Context) error {
		log.Info("Draining in-flight requests")
		return nil
	})

	err = app.Run(ctx)
	return exitStatus(bootstrap.ExitCode(err))
}

// component simulates a dependency that takes stopDelay to release.
func (o *serveOptions) component(name string, log *logger.Logger) component.Component {
	log = log.WithComponent(name)
	return component.NewFunc(name,
		func(ctx context.Context) error {
			log.Info("Connected")
			return nil
		},
		func(ctx context.Context) error {
			select {
			case <-time.After(o.stopDelay):
				log.Info("Disconnected")
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	)
}
