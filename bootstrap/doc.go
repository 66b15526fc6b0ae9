// Package bootstrap prepares a process for graceful shutdown and runs
// applications under it.
//
// Initialize is the minimal entry point: it loads the .env file, wires the
// optional crash reporter, connects to the supervisor and arms the shutdown
// coordinator on termination signals and the supervisor's "shutdown" message.
//
//	proc, err := bootstrap.Initialize(func(ctx context.Context) error {
//	    return srv.Shutdown(ctx)
//	}, 15*time.Second, bootstrap.WithCrashReporter(endpoint))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proc.Recover()
//	go srv.ListenAndServe()
//	proc.Ready()
//
// App builds on it with typed configuration, component registration and
// startup/shutdown hooks. The registered components, stopped in reverse
// order after the OnStop hooks, make up the cleanup.
//
//	app, err := bootstrap.NewApp(&cfg, bootstrap.WithProbe(cfg.Probe))
//	app.RegisterComponent(db)
//	app.RegisterComponent(server)
//	if err := app.Run(ctx); err != nil {
//	    os.Exit(bootstrap.ExitCode(err))
//	}
package bootstrap
