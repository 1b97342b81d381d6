package opentelemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tagcache/pipeline"
)

const instrumentationName = "tagcache/pipeline/middlewares/opentelemetry"

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

func (m MiddlewareBuilder) Build() pipeline.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next pipeline.Handler) pipeline.Handler {
		return func(ctx context.Context, sc *pipeline.StepContext) *pipeline.StepResult {
			spanCtx, span := m.Tracer.Start(ctx, "step-"+sc.Step.Name())
			defer span.End()
			span.SetAttributes(
				attribute.String("component", "pipeline"),
				attribute.String("step.name", sc.Step.Name()),
				attribute.Int("step.order", sc.Step.Order()),
				attribute.Int("step.index", sc.Index),
			)
			res := next(spanCtx, sc)
			if res.Err != nil {
				span.RecordError(res.Err)
				span.SetStatus(codes.Error, res.Err.Error())
			}
			return res
		}
	}
}
