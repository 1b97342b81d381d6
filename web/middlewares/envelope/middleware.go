// Package envelope renders handler results through a format.Formatter.
package envelope

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"tagcache/format"
	"tagcache/web"
)

const RequestIDHeader = "X-Request-ID"

type MiddlewareBuilder struct {
	formatter format.Formatter
	// header carrying the correlation id in both directions
	correlationHeader string
}

func NewMiddlewareBuilder(f format.Formatter) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		formatter:         f,
		correlationHeader: format.DefaultOptions().CorrelationHeader,
	}
}

func (m *MiddlewareBuilder) CorrelationHeader(header string) *MiddlewareBuilder {
	m.correlationHeader = header
	return m
}

// Build wraps ctx.Result and ctx.Err into an envelope, as well as the 404 of
// an unmatched route. Responses a handler rendered itself are left alone.
func (m MiddlewareBuilder) Build() web.Middleware {
	return func(next web.HandleFunc) web.HandleFunc {
		return func(ctx *web.Context) {
			reqCtx := ctx.Req.Context()
			correlationID := ""
			if m.correlationHeader != "" {
				correlationID = ctx.Req.Header.Get(m.correlationHeader)
			}
			if correlationID == "" {
				correlationID = uuid.New().String()
			}
			requestID := ctx.Req.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			reqCtx = format.WithCorrelationID(reqCtx, correlationID)
			reqCtx = format.WithRequestID(reqCtx, requestID)
			ctx.Req = ctx.Req.WithContext(reqCtx)
			if m.correlationHeader != "" {
				ctx.Resp.Header().Set(m.correlationHeader, correlationID)
			}

			next(ctx)

			if ctx.MatchRoute == "" && ctx.RespStatusCode == http.StatusNotFound {
				ctx.RespData = nil
				ctx.Fail(format.ErrNotFound)
			}
			if ctx.RespData != nil || (ctx.Result == nil && ctx.Err == nil) {
				return
			}
			if !m.formatter.ShouldFormat(ctx.Req.URL.Path, ctx.Resp.Header().Get("Content-Type")) {
				return
			}

			var env *format.Envelope
			status := ctx.RespStatusCode
			if ctx.Err != nil {
				env = m.formatter.Failure(reqCtx, ctx.Err)
				status = format.Classify(ctx.Err).Status()
			} else {
				env = m.formatter.Success(reqCtx, ctx.Result)
				if status == 0 {
					status = http.StatusOK
				}
			}
			data, err := json.Marshal(env)
			if err != nil {
				// the result itself is not serializable
				env = m.formatter.Failure(reqCtx, err)
				status = http.StatusInternalServerError
				data, _ = json.Marshal(env)
			}
			ctx.Resp.Header().Set("Content-Type", "application/json; charset=utf-8")
			ctx.RespStatusCode = status
			ctx.RespData = data
		}
	}
}
