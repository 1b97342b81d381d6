package opentelemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"tagcache/web"
)

const instrumentationName = "tagcache/web/middlewares/opentelemetry"

type MiddlewareBuilder struct {
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

func (m MiddlewareBuilder) Build() web.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next web.HandleFunc) web.HandleFunc {
		return func(ctx *web.Context) {
			reqCtx := ctx.Req.Context()
			// join the client's trace when it sent one
			reqCtx = otel.GetTextMapPropagator().Extract(reqCtx, propagation.HeaderCarrier(ctx.Req.Header))

			reqCtx, span := m.Tracer.Start(reqCtx, "unknown")
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", ctx.Req.Method),
				attribute.String("http.url", ctx.Req.URL.String()),
				attribute.String("http.scheme", ctx.Req.URL.Scheme),
				attribute.String("http.host", ctx.Req.Host),
			)

			ctx.Req = ctx.Req.WithContext(reqCtx)
			next(ctx)

			// only known once the router ran
			if ctx.MatchRoute != "" {
				span.SetName(ctx.MatchRoute)
			}
			span.SetAttributes(attribute.Int("http.status", ctx.RespStatusCode))
			if ctx.Err != nil {
				span.RecordError(ctx.Err)
				span.SetStatus(codes.Error, ctx.Err.Error())
			}
		}
	}
}
