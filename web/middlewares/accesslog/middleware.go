package accesslog

import (
	"time"

	"github.com/sirupsen/logrus"

	"tagcache/web"
)

type MiddlewareBuilder struct {
	logFunc func(l AccessLog)
}

func NewMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{
		logFunc: func(l AccessLog) {
			logrus.WithFields(logrus.Fields{
				"host":     l.Host,
				"route":    l.Route,
				"method":   l.HTTPMethod,
				"path":     l.Path,
				"status":   l.Status,
				"duration": l.Duration,
			}).Info("access")
		},
	}
}

func (m *MiddlewareBuilder) LogFunc(fn func(l AccessLog)) *MiddlewareBuilder {
	m.logFunc = fn
	return m
}

func (m MiddlewareBuilder) Build() web.Middleware {
	return func(next web.HandleFunc) web.HandleFunc {
		return func(ctx *web.Context) {
			startTime := time.Now()
			// deferred so that a panicking handler is still logged
			defer func() {
				m.logFunc(AccessLog{
					Host:       ctx.Req.Host,
					Route:      ctx.MatchRoute,
					HTTPMethod: ctx.Req.Method,
					Path:       ctx.Req.URL.Path,
					Status:     ctx.RespStatusCode,
					Duration:   time.Since(startTime),
				})
			}()
			next(ctx)
		}
	}
}

type AccessLog struct {
	Host string `json:"host,omitempty"`
	// Route is the matched route pattern, empty when nothing matched.
	Route      string        `json:"route,omitempty"`
	HTTPMethod string        `json:"http_method,omitempty"`
	Path       string        `json:"path,omitempty"`
	Status     int           `json:"status,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}
