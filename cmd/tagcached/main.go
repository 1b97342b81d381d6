// Command tagcached serves one tagged expiring cache over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tagcache/cache"
	"tagcache/config"
	"tagcache/format"
	"tagcache/pipeline"
	pipelineotel "tagcache/pipeline/middlewares/opentelemetry"
	pipelineprom "tagcache/pipeline/middlewares/prometheus"
	"tagcache/pipeline/middlewares/slowstep"
	"tagcache/web"
	"tagcache/web/middlewares/accesslog"
	"tagcache/web/middlewares/envelope"
	webotel "tagcache/web/middlewares/opentelemetry"
	webprom "tagcache/web/middlewares/prometheus"
	"tagcache/web/middlewares/recover"
)

// version is set with -ldflags "-X main.version=v1.2.3".
var version = "devel"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	conf, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	cmd, err := newCmd(conf)
	if err != nil {
		return err
	}
	return cmd.ExecuteContext(ctx)
}

func newCmd(conf *config.Config) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           "tagcached",
		Short:         "Serve a tagged expiring cache over HTTP",
		Example:       "tagcached --address=:8080 --cache-sweep-interval=30s --tracing-exporter=zipkin",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), conf)
		},
	}
	if err := conf.BindFlags(cmd.Flags(), config.ServerOptions); err != nil {
		return nil, err
	}
	return cmd, nil
}

func serve(ctx context.Context, conf *config.Config) error {
	logger := logrus.New()
	logger.SetLevel(conf.LogLevel())
	logger.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(conf.LogLevel())

	exporter, err := conf.TracingExporter()
	if err != nil {
		return err
	}
	tp, err := newTracerProvider(ctx, exporter, conf.TracingEndpoint())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := cache.MetricsBuilder{Namespace: "tagcache", Subsystem: "cache"}.Build(reg)
	if err != nil {
		return err
	}
	c := cache.NewTaggedCache(
		cache.WithSweepInterval(conf.CacheSweepInterval()),
		cache.WithLogger(logger),
		cache.WithMetrics(metrics),
		cache.WithEvictCallback(func(key string, _ any, reason cache.EvictReason) {
			logger.WithFields(logrus.Fields{"key": key, "reason": reason.String()}).Debug("entry evicted")
		}),
	)

	h, err := newHandlerFromConfig(c, conf, reg, logger)
	if err != nil {
		return err
	}
	s, err := newServer(h, conf.FormatOptions(), reg, logger)
	if err != nil {
		return err
	}

	app := web.NewApp([]*web.AppServer{web.NewAppServer("api", conf.ServerAddress(), s)},
		web.AppWithLogger(logger),
		web.AppWithWaitTimeout(conf.ServerWaitTimeout()),
		web.AppWithShutdownCallbacks(
			func(ctx context.Context) {
				if err := c.Close(); err != nil {
					logger.WithError(err).Warn("failed to close cache")
				}
			},
			func(ctx context.Context) {
				if err := tp.Shutdown(ctx); err != nil {
					logger.WithError(err).Warn("failed to flush traces")
				}
			},
		))
	logger.WithFields(logrus.Fields{
		"address":  conf.ServerAddress(),
		"exporter": exporter,
		"version":  version,
	}).Info("starting tagcached")
	return app.StartAndServe(ctx)
}

func newHandlerFromConfig(c *cache.TaggedCache, conf *config.Config, reg prometheus.Registerer, logger logrus.FieldLogger) (*handler, error) {
	defaultMode, err := conf.CacheDefaultMode()
	if err != nil {
		return nil, err
	}
	mdls, err := newPipelineMiddlewares(reg, logger)
	if err != nil {
		return nil, err
	}
	return newHandler(c, conf.CacheDefaultTTL(), defaultMode, mdls...), nil
}

func newPipelineMiddlewares(reg prometheus.Registerer, logger logrus.FieldLogger) ([]pipeline.Middleware, error) {
	stepMetrics, err := pipelineprom.MiddlewareBuilder{
		Namespace:  "tagcache",
		Subsystem:  "pipeline",
		Name:       "step_duration_ms",
		Help:       "Pipeline step latency in milliseconds",
		Registerer: reg,
	}.Build()
	if err != nil {
		return nil, err
	}
	slow := slowstep.NewMiddlewareBuilder(100 * time.Millisecond).LogFunc(func(step string, duration time.Duration) {
		logger.WithFields(logrus.Fields{"step": step, "duration": duration}).Warn("slow pipeline step")
	}).Build()
	return []pipeline.Middleware{pipelineotel.MiddlewareBuilder{}.Build(), stepMetrics, slow}, nil
}

// newServer installs, outermost first: tracing, access log, metrics, panic
// recovery, then the envelope right around the handlers.
func newServer(h *handler, formatOpts format.Options, reg *prometheus.Registry, logger logrus.FieldLogger) (*web.HTTPServer, error) {
	httpMetrics, err := webprom.MiddlewareBuilder{
		Namespace:  "tagcache",
		Subsystem:  "web",
		Name:       "http_response_ms",
		Help:       "HTTP response time in milliseconds",
		Registerer: reg,
	}.Build()
	if err != nil {
		return nil, err
	}
	access := accesslog.NewMiddlewareBuilder().LogFunc(func(l accesslog.AccessLog) {
		logger.WithFields(logrus.Fields{
			"route":    l.Route,
			"method":   l.HTTPMethod,
			"path":     l.Path,
			"status":   l.Status,
			"duration": l.Duration,
		}).Info("access")
	}).Build()
	recovery := recover.MiddlewareBuilder{
		StatusCode: http.StatusInternalServerError,
		Data:       []byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred."}}`),
		Log: func(ctx *web.Context, val any) {
			logger.WithFields(logrus.Fields{"path": ctx.Req.URL.Path, "panic": val}).Error("recovered from panic")
		},
	}.Build()
	env := envelope.NewMiddlewareBuilder(format.New(formatOpts)).CorrelationHeader(formatOpts.CorrelationHeader).Build()

	s := web.NewHTTPServer(
		web.ServerWithLogger(logger),
		web.ServerWithMiddleware(webotel.MiddlewareBuilder{}.Build(), access, httpMetrics, recovery, env),
	)
	h.register(s)
	s.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s, nil
}
