package recover

import (
	"github.com/sirupsen/logrus"

	"tagcache/web"
)

type MiddlewareBuilder struct {
	StatusCode int
	Data       []byte
	// Log defaults to a logrus error carrying the panic value.
	Log func(ctx *web.Context, val any)
}

// Build turns a panic below it into StatusCode and Data. Install it inside
// middlewares that need to observe the failed response, such as accesslog.
func (m MiddlewareBuilder) Build() web.Middleware {
	if m.Log == nil {
		m.Log = func(ctx *web.Context, val any) {
			logrus.WithFields(logrus.Fields{
				"path":  ctx.Req.URL.Path,
				"panic": val,
			}).Error("recovered from panic")
		}
	}
	return func(next web.HandleFunc) web.HandleFunc {
		return func(ctx *web.Context) {
			defer func() {
				if err := recover(); err != nil {
					ctx.RespData = m.Data
					ctx.RespStatusCode = m.StatusCode
					m.Log(ctx, err)
				}
			}()
			next(ctx)
		}
	}
}
