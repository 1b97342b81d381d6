package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type AppOption func(*App)

// ShutdownCallback must return once ctx is done.
type ShutdownCallback func(ctx context.Context)

func AppWithShutdownCallbacks(cbs ...ShutdownCallback) AppOption {
	return func(app *App) {
		app.cbs = append(app.cbs, cbs...)
	}
}

func AppWithWaitTimeout(waitTimeout time.Duration) AppOption {
	return func(app *App) {
		app.waitTime = waitTimeout
	}
}

func AppWithCBTimeout(cbTimeout time.Duration) AppOption {
	return func(app *App) {
		app.cbTimeout = cbTimeout
	}
}

func AppWithLogger(log logrus.FieldLogger) AppOption {
	return func(app *App) {
		app.log = log
	}
}

// App runs servers until its context is canceled, then shuts down in order:
// reject new requests, drain in-flight ones, run the callbacks.
type App struct {
	servers []*AppServer

	// time allowed for in-flight requests, 10s by default
	waitTime time.Duration
	// time allowed for the callbacks, 3s by default
	cbTimeout time.Duration

	cbs []ShutdownCallback
	log logrus.FieldLogger
}

func NewApp(servers []*AppServer, opts ...AppOption) *App {
	app := &App{
		servers:   servers,
		waitTime:  time.Second * 10,
		cbTimeout: time.Second * 3,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// StartAndServe blocks until ctx is done or a server fails to start, and
// shuts everything down before returning.
func (app *App) StartAndServe(ctx context.Context) error {
	errCh := make(chan error, len(app.servers))
	for _, s := range app.servers {
		srv := s
		go func() {
			err := srv.Start()
			if errors.Is(err, http.ErrServerClosed) {
				app.log.WithField("server", srv.name).Info("server closed")
				return
			}
			app.log.WithError(err).WithField("server", srv.name).Error("server exited")
			errCh <- err
		}()
	}
	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	app.shutdown()
	return err
}

func (app *App) shutdown() {
	app.log.Info("rejecting new requests")
	for _, srv := range app.servers {
		srv.rejectReq()
	}

	app.log.Info("waiting for in-flight requests")
	srvCtx, cancel := context.WithTimeout(context.Background(), app.waitTime)
	defer cancel()
	var wg sync.WaitGroup
	for _, s := range app.servers {
		wg.Add(1)
		go func(srv *AppServer) {
			defer wg.Done()
			if err := srv.stop(srvCtx); err != nil {
				app.log.WithError(err).WithField("server", srv.name).Warn("failed to stop server")
			}
		}(s)
	}
	wg.Wait()

	app.log.Info("running shutdown callbacks")
	cbCtx, cancelCb := context.WithTimeout(context.Background(), app.cbTimeout)
	defer cancelCb()
	for _, cb := range app.cbs {
		wg.Add(1)
		go func(cb ShutdownCallback) {
			defer wg.Done()
			cb(cbCtx)
		}(cb)
	}
	wg.Wait()
	app.log.Info("app stopped")
}

// AppServer wraps an http.Server whose handler can be switched to reject
// requests during shutdown.
type AppServer struct {
	srv  *http.Server
	name string
	mux  *serverMux

	// set once the listener is bound
	addr atomic.Value
	// closed once the listener is bound or binding failed
	ready chan struct{}
}

type serverMux struct {
	reject atomic.Bool
	http.Handler
}

func (s *serverMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.reject.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("service is shutting down"))
		return
	}
	s.Handler.ServeHTTP(w, r)
}

func NewAppServer(name string, addr string, handler http.Handler) *AppServer {
	mux := &serverMux{Handler: handler}
	return &AppServer{
		name: name,
		mux:  mux,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ready: make(chan struct{}),
	}
}

func (s *AppServer) Start() error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		close(s.ready)
		return err
	}
	s.addr.Store(l.Addr().String())
	close(s.ready)
	return s.srv.Serve(l)
}

// Addr waits for Start to bind and returns the listening address, or "" if
// binding failed.
func (s *AppServer) Addr() string {
	<-s.ready
	addr, _ := s.addr.Load().(string)
	return addr
}

func (s *AppServer) rejectReq() {
	s.mux.reject.Store(true)
}

func (s *AppServer) stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
