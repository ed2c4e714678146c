package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/abhisek/lectern/internal/llm"

// TracingProvider opens a span around each Generate call, retries included.
type TracingProvider struct {
	inner  Provider
	tracer trace.Tracer
}

// WithTracing wraps p with spans from tracer, or the global tracer when nil.
func WithTracing(p Provider, tracer trace.Tracer) *TracingProvider {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &TracingProvider{inner: p, tracer: tracer}
}

func (t *TracingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)
	ctx, span := t.tracer.Start(ctx, "llm.generate "+purpose,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.purpose", purpose),
			attribute.String("llm.model", t.inner.ModelID()),
			attribute.Int("llm.max_tokens", req.MaxTokens),
		),
	)
	defer span.End()

	if req.Schema != nil {
		span.SetAttributes(attribute.String("llm.schema", req.Schema.Name))
	}

	resp, err := t.inner.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
	)
	return resp, nil
}

func (t *TracingProvider) ModelID() string {
	return t.inner.ModelID()
}
