package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(component string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("component", component).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// LogSkippedRecord logs a provider record that failed canonical mapping.
// Per-record failures never escalate; they are skipped and counted.
func (l *Logger) LogSkippedRecord(ctx context.Context, provider, rawID string, err error) {
	l.WithContext(ctx).Warn().
		Err(err).
		Str("provider", provider).
		Str("raw_id", rawID).
		Msg("skipping unmappable record")
}

// LogProviderFailure logs a terminal per-provider failure after retry
// exhaustion. The rest of the job continues.
func (l *Logger) LogProviderFailure(ctx context.Context, provider, scope string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("provider", provider).
		Str("scope", scope).
		Msg("provider scope failed")
}
