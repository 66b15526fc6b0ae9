// Package observability provides OpenTelemetry tracing and metrics for the
// process lifecycle.
//
// Tracing:
//
//	tp, err := observability.NewTracerProvider(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
//	m, err := observability.NewShutdownMetrics(observability.Meter("my-service"))
//	coord, err := shutdown.New(cleanup, timeout,
//	    shutdown.WithObserver(m), shutdown.WithFlusher(mp))
package observability
