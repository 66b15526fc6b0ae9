package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/graceful/bootstrap"
	"github.com/kbukum/graceful/logger"
)

// Scenarios understood by the run command.
const (
	scenarioClean     = "clean"
	scenarioReject    = "reject"
	scenarioHang      = "hang"
	scenarioPanic     = "panic"
	scenarioUnhandled = "unhandled"
	scenarioFatal     = "fatal"
)

var scenarios = []string{
	scenarioClean, scenarioReject, scenarioHang, scenarioPanic, scenarioUnhandled, scenarioFatal,
}

type runOptions struct {
	scenario string
	after    time.Duration
	drain    time.Duration
	flags    shutdownFlags
}

func newRunCmd(g *globals) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one shutdown scenario under bootstrap.Initialize",
		Long: `Run initializes the process, reports ready and then waits for a
termination signal or a supervisor "shutdown" message. With --after the
scenario triggers itself:

  clean      shutdown; cleanup succeeds
  reject     shutdown; cleanup returns an error
  hang       shutdown; cleanup never returns and the watchdog fires
  panic      the main goroutine panics
  unhandled  background work fails with nobody waiting on it
  fatal      a fatal error is reported to the coordinator`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load(cmd, &o.flags)
			if err != nil {
				return err
			}
			return o.run(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&o.scenario, "scenario", scenarioClean, fmt.Sprintf("Scenario, one of %v", scenarios))
	cmd.Flags().DurationVar(&o.after, "after", 0, "Trigger the scenario after this delay (0 waits for a signal)")
	cmd.Flags().DurationVar(&o.drain, "drain", 100*time.Millisecond, "Time the cleanup spends draining")
	o.flags.register(cmd)
	return cmd
}

func (o *runOptions) cleanup(log *logger.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log.Info("Cleanup started", logger.Fields("scenario", o.scenario))
		switch o.scenario {
		case scenarioHang:
			// Ignores ctx on purpose; only the watchdog ends this.
			select {}
		case scenarioReject:
			time.Sleep(o.drain)
			return errors.New("cleanup rejected: connection pool refused to close")
		}
		select {
		case <-time.After(o.drain):
		case <-ctx.Done():
			return ctx.Err()
		}
		log.Info("Cleanup finished")
		return nil
	}
}

func (o *runOptions) run(ctx context.Context, cfg *demoConfig, log *logger.Logger) (err error) {
	if !validScenario(o.scenario) {
		return fmt.Errorf("unknown scenario %q, want one of %v", o.scenario, scenarios)
	}

	opts, mp, err := bootstrapOptions(ctx, cfg)
	if err != nil {
		return err
	}
	if mp != nil {
		defer func() { _ = mp.Shutdown(context.Background()) }()
	}
	// The coordinator decides the code; main exits with it.
	opts = append(opts, bootstrap.WithLogger(log), bootstrap.WithExit(func(int) {}))

	proc, err := bootstrap.Initialize(o.cleanup(log), cfg.Shutdown.Timeout, opts...)
	if err != nil {
		return err
	}
	coord := proc.Coordinator()
	defer func() { err = exitStatus(coord.Wait()) }()
	defer proc.Recover()

	proc.Go(func(ctx context.Context) error {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Debug("Working")
			case <-ctx.Done():
				return nil
			}
		}
	})
	proc.Ready()

	if o.after <= 0 {
		return nil
	}
	select {
	case <-time.After(o.after):
	case <-coord.Done():
		return nil
	}

	switch o.scenario {
	case scenarioPanic:
		panic(fmt.Sprintf("scenario %s: boom at %s", o.scenario, time.Now().Format(time.RFC3339Nano)))
	case scenarioUnhandled:
		proc.Go(func(context.Context) error {
			return errors.New("background job failed")
		})
	case scenarioFatal:
		coord.Fail(errors.New("fatal: lost connection to the primary"))
	default:
		coord.Shutdown()
	}
	return nil
}

func validScenario(s string) bool {
	for _, v := range scenarios {
		if v == s {
			return true
		}
	}
	return false
}
