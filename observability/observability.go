// Package observability bundles the logger and meter the engine consumes,
// so wiring code decides once how telemetry is exported.
package observability

import (
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Provider is the telemetry surface consumed by the engine.
type Provider interface {
	Meter(name string, opts ...metric.MeterOption) metric.Meter
	Logger() *slog.Logger
}

type Observability struct {
	mp  metric.MeterProvider
	log *slog.Logger
}

func New(log *slog.Logger, mp metric.MeterProvider) *Observability {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return &Observability{mp: mp, log: log}
}

// Default logs to stderr at the given level and uses the global otel
// meter provider.
func Default(level slog.Level) *Observability {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return New(slog.New(h), nil)
}

// NOP discards all logs and metrics; test wiring.
func NOP() *Observability {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewMeterProvider())
}

func (o *Observability) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return o.mp.Meter(name, opts...)
}

func (o *Observability) Logger() *slog.Logger { return o.log }
