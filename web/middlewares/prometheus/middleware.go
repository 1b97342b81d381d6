package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tagcache/web"
)

type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Build registers a summary of response time in milliseconds, labeled by
// pattern, method and status.
func (m MiddlewareBuilder) Build() (web.Middleware, error) {
	vector := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:      m.Name,
		Subsystem: m.Subsystem,
		Namespace: m.Namespace,
		Help:      m.Help,
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.90:  0.01,
			0.99:  0.001,
			0.999: 0.0001,
		},
	}, []string{"pattern", "method", "status"})
	reg := m.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(vector); err != nil {
		return nil, err
	}
	return func(next web.HandleFunc) web.HandleFunc {
		return func(ctx *web.Context) {
			startTime := time.Now()
			defer func() {
				duration := time.Since(startTime).Milliseconds()
				pattern := ctx.MatchRoute
				if pattern == "" {
					pattern = "unknown"
				}
				status := ctx.RespStatusCode
				if status == 0 {
					status = 200
				}
				vector.WithLabelValues(pattern, ctx.Req.Method, strconv.Itoa(status)).
					Observe(float64(duration))
			}()
			next(ctx)
		}
	}, nil
}
