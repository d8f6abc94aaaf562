package observability

import (
	"context"
	"strings"
	"time"

	"gatekeeper/internal/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedConsumer wraps a ratelimit.Consumer with OpenTelemetry tracing
// and metrics instrumentation. Every Consume call records a span, a latency
// sample, and - when the window is full - a denial counter tagged with the
// bucket that fired.
type InstrumentedConsumer struct {
	inner    ratelimit.Consumer
	tracer   trace.Tracer
	duration metric.Float64Histogram
	denials  metric.Int64Counter
	errors   metric.Int64Counter
}

// NewInstrumentedConsumer creates a consumer wrapper that records trace spans,
// decision latency histograms, denial counters, and error counters.
func NewInstrumentedConsumer(inner ratelimit.Consumer) (*InstrumentedConsumer, error) {
	tracer := otel.Tracer("gatekeeper/ratelimit")
	meter := otel.Meter("gatekeeper/ratelimit")

	duration, err := meter.Float64Histogram(
		"ratelimit.consume.duration",
		metric.WithDescription("Duration of rate limit decisions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	denials, err := meter.Int64Counter(
		"ratelimit.denials",
		metric.WithDescription("Number of requests denied by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"ratelimit.consume.errors",
		metric.WithDescription("Number of rate limit check failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedConsumer{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		denials:  denials,
		errors:   errCounter,
	}, nil
}

// Consume delegates to the wrapped consumer and records the decision.
func (c *InstrumentedConsumer) Consume(ctx context.Context, key string, max int, window time.Duration) (ratelimit.Result, error) {
	bucket := bucketFromKey(key)
	ctx, span := c.tracer.Start(ctx, "ratelimit.Consume",
		trace.WithAttributes(
			attribute.String("ratelimit.bucket", bucket),
			attribute.Int("ratelimit.max", max),
		),
	)
	start := time.Now()

	result, err := c.inner.Consume(ctx, key, max, window)

	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("bucket", bucket))
	c.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		c.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", result.Allowed))
		if !result.Allowed {
			c.denials.Add(ctx, 1, attrs)
		}
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	return result, err
}

// Close delegates to the wrapped consumer.
func (c *InstrumentedConsumer) Close() error {
	return c.inner.Close()
}

// bucketFromKey extracts the bucket segment from a counter key of the form
// "<kind>:<identity>:<bucket>:<unit>". Keys carry client identity, so only
// the low-cardinality bucket segment is used as a metric label.
func bucketFromKey(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 4 {
		return "unknown"
	}
	bucket := parts[len(parts)-2]
	if parts[len(parts)-1] == "hour" {
		bucket += "-hour"
	}
	return bucket
}
