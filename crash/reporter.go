package crash

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/observability"
	"github.com/kbukum/graceful/shutdown"
	"github.com/kbukum/graceful/validation"
)

const instrumentationName = "github.com/kbukum/graceful/crash"

// Config configures the OTLP crash reporter.
type Config struct {
	// Endpoint is the collector address, host:port or a full URL.
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Insecure allows plain HTTP for host:port endpoints.
	Insecure bool
}

// OTLPReporter exports captured errors through an OpenTelemetry tracer
// provider it owns.
type OTLPReporter struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

var _ shutdown.Reporter = (*OTLPReporter)(nil)

// NewOTLP creates a reporter exporting to cfg.Endpoint over OTLP/HTTP. The
// exporter connects lazily, so an unreachable endpoint only surfaces at
// Flush.
func NewOTLP(ctx context.Context, cfg Config) (*OTLPReporter, error) {
	err := validation.New().
		Required("endpoint", cfg.Endpoint).
		Endpoint("endpoint", cfg.Endpoint).
		Err()
	if err != nil {
		return nil, err
	}
	// Every captured error is exported: the default sample rate is 1.
	tc := observability.DefaultTracerConfig(cfg.ServiceName)
	tc.Endpoint = cfg.Endpoint
	tc.Insecure = cfg.Insecure
	if cfg.ServiceVersion != "" {
		tc.ServiceVersion = cfg.ServiceVersion
	}
	if cfg.Environment != "" {
		tc.Environment = cfg.Environment
	}

	tp, err := observability.NewTracerProvider(ctx, &tc)
	if err != nil {
		return nil, err
	}
	return New(tp), nil
}

// New creates a reporter on an existing provider. The reporter shuts the
// provider down on Flush.
func New(tp *sdktrace.TracerProvider) *OTLPReporter {
	return &OTLPReporter{tp: tp, tracer: tp.Tracer(instrumentationName)}
}

// Capture records err as an error span.
func (r *OTLPReporter) Capture(ctx context.Context, err error) {
	if err == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(observability.AttrErrorMessage, err.Error()),
		attribute.String(observability.AttrErrorCode, string(apperrors.CodeOf(err))),
	}
	if id := logger.ShutdownIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String(observability.AttrShutdownID, id))
	}

	stack := apperrors.StackOf(err)
	_, span := r.tracer.Start(ctx, observability.SpanCrashCapture, trace.WithAttributes(attrs...))
	opts := []trace.EventOption{}
	if stack != "" {
		opts = append(opts, trace.WithAttributes(attribute.String("exception.stacktrace", stack)))
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

// Flush exports pending spans and shuts the provider down. The reporter is
// unusable afterwards.
func (r *OTLPReporter) Flush(ctx context.Context) error {
	return errors.Join(r.tp.ForceFlush(ctx), r.tp.Shutdown(ctx))
}

type nopReporter struct{}

// Nop returns a reporter that drops everything.
func Nop() shutdown.Reporter { return nopReporter{} }

func (nopReporter) Capture(context.Context, error) {}

func (nopReporter) Flush(context.Context) error { return nil }
