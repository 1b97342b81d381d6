package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tagcache/pipeline"
)

type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Build registers a summary of step latency in milliseconds, labeled by step
// name and outcome.
func (m MiddlewareBuilder) Build() (pipeline.Middleware, error) {
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
	}, []string{"step", "status"})
	reg := m.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(vector); err != nil {
		return nil, err
	}
	return func(next pipeline.Handler) pipeline.Handler {
		return func(ctx context.Context, sc *pipeline.StepContext) (res *pipeline.StepResult) {
			startTime := time.Now()
			defer func() {
				status := "ok"
				if res == nil || res.Err != nil {
					status = "error"
				}
				vector.WithLabelValues(sc.Step.Name(), status).
					Observe(float64(time.Since(startTime).Milliseconds()))
			}()
			return next(ctx, sc)
		}
	}, nil
}
