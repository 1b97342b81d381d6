package slowstep

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tagcache/pipeline"
)

type MiddlewareBuilder struct {
	// threshold above which a step is reported
	threshold time.Duration
	logFunc   func(step string, duration time.Duration)
}

func NewMiddlewareBuilder(threshold time.Duration) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		threshold: threshold,
		logFunc: func(step string, duration time.Duration) {
			logrus.WithFields(logrus.Fields{"step": step, "duration": duration}).Warn("slow pipeline step")
		},
	}
}

func (m *MiddlewareBuilder) LogFunc(fn func(step string, duration time.Duration)) *MiddlewareBuilder {
	m.logFunc = fn
	return m
}

func (m MiddlewareBuilder) Build() pipeline.Middleware {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(ctx context.Context, sc *pipeline.StepContext) *pipeline.StepResult {
			startTime := time.Now()
			defer func() {
				duration := time.Since(startTime)
				if duration < m.threshold {
					return
				}
				m.logFunc(sc.Step.Name(), duration)
			}()
			return next(ctx, sc)
		}
	}
}
