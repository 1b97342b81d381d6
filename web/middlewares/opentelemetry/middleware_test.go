package opentelemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"tagcache/web"
)

func TestMiddlewareBuilder_Build(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()
	tracer := tp.Tracer("test")

	server := web.NewHTTPServer(web.ServerWithMiddleware(MiddlewareBuilder{Tracer: tracer}.Build()))
	server.Get("/cache/:key", func(ctx *web.Context) {
		_, span := tracer.Start(ctx.Req.Context(), "lookup")
		span.End()
		ctx.RespStatusCode = http.StatusCreated
		ctx.Reply("v")
	})
	server.Delete("/cache/:key", func(ctx *web.Context) {
		ctx.Fail(errors.New("boom"))
	})

	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cache/a", nil))
	spans := sr.Ended()
	require.Len(t, spans, 2)
	child, root := spans[0], spans[1]
	assert.Equal(t, "lookup", child.Name())
	assert.Equal(t, root.SpanContext().SpanID(), child.Parent().SpanID())
	assert.Equal(t, "/cache/:key", root.Name())
	assert.Contains(t, root.Attributes(), attribute.String("http.method", http.MethodGet))
	assert.Contains(t, root.Attributes(), attribute.Int("http.status", http.StatusCreated))
	assert.Equal(t, codes.Unset, root.Status().Code)

	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/cache/a", nil))
	spans = sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Len(t, spans[2].Events(), 1)

	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nothing", nil))
	spans = sr.Ended()
	require.Len(t, spans, 4)
	assert.Equal(t, "unknown", spans[3].Name())
	assert.Contains(t, spans[3].Attributes(), attribute.Int("http.status", http.StatusNotFound))
}
