package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/minihttp/http"

type instruments struct {
	tracer      trace.Tracer
	connections metric.Int64Counter
	active      metric.Int64UpDownCounter
	responses   metric.Int64Counter
	duration    metric.Float64Histogram
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider) *instruments {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)
	inst := &instruments{
		tracer: tp.Tracer(instrumentationName),
	}

	// The metric API returns usable no-op instruments alongside any error.
	var err error
	inst.connections, err = meter.Int64Counter("minihttp.connections",
		metric.WithDescription("Accepted connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		otel.Handle(err)
	}

	inst.active, err = meter.Int64UpDownCounter("minihttp.connections.active",
		metric.WithDescription("Connections currently being served"),
		metric.WithUnit("{connection}"))
	if err != nil {
		otel.Handle(err)
	}

	inst.responses, err = meter.Int64Counter("minihttp.responses",
		metric.WithDescription("Responses written by status code"),
		metric.WithUnit("{response}"))
	if err != nil {
		otel.Handle(err)
	}

	inst.duration, err = meter.Float64Histogram("minihttp.request.duration",
		metric.WithDescription("Time from accept to close"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	return inst
}

func (inst *instruments) connOpened(ctx context.Context) {
	inst.connections.Add(ctx, 1)
	inst.active.Add(ctx, 1)
}

func (inst *instruments) connClosed(ctx context.Context, status uint16, elapsed time.Duration) {
	inst.active.Add(ctx, -1)

	attrs := metric.WithAttributes(attribute.Int("http.response.status_code", int(status)))
	inst.duration.Record(ctx, elapsed.Seconds(), attrs)
	if status != 0 {
		inst.responses.Add(ctx, 1, attrs)
	}
}
