package web

import (
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
)

type HandleFunc func(ctx *Context)

type Middleware func(next HandleFunc) HandleFunc

var _ Server = &HTTPServer{}

type Server interface {
	http.Handler
	Start(addr string) error
}

type HTTPServerOption func(server *HTTPServer)

type HTTPServer struct {
	router

	mdls []Middleware
	log  logrus.FieldLogger
}

func NewHTTPServer(opts ...HTTPServerOption) *HTTPServer {
	res := &HTTPServer{
		router: newRouter(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// ServerWithMiddleware installs mdls, the first one outermost.
func ServerWithMiddleware(mdls ...Middleware) HTTPServerOption {
	return func(server *HTTPServer) {
		server.mdls = mdls
	}
}

func ServerWithLogger(log logrus.FieldLogger) HTTPServerOption {
	return func(server *HTTPServer) {
		server.log = log
	}
}

func (h *HTTPServer) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	ctx := &Context{
		Req:  request,
		Resp: writer,
	}

	// build the chain back to front so that the first middleware runs first
	root := h.serve
	for i := len(h.mdls) - 1; i >= 0; i-- {
		root = h.mdls[i](root)
	}
	// outermost: flush whatever the chain left in the context
	var m Middleware = func(next HandleFunc) HandleFunc {
		return func(ctx *Context) {
			next(ctx)
			h.flashResp(ctx)
		}
	}
	root = m(root)
	root(ctx)
}

func (h *HTTPServer) flashResp(ctx *Context) {
	ctx.render()
	if ctx.RespStatusCode != 0 {
		ctx.Resp.WriteHeader(ctx.RespStatusCode)
	}
	n, err := ctx.Resp.Write(ctx.RespData)
	if err != nil || n != len(ctx.RespData) {
		h.log.WithError(err).WithField("path", ctx.Req.URL.Path).Error("failed to write response")
	}
}

func (h *HTTPServer) serve(ctx *Context) {
	info, ok := h.findRoute(ctx.Req.Method, ctx.Req.URL.Path)
	if !ok || info.n.handler == nil {
		ctx.RespStatusCode = http.StatusNotFound
		ctx.RespData = []byte("NOT FOUND")
		return
	}
	ctx.PathParams = info.pathParams
	ctx.MatchRoute = info.n.route
	info.n.handler(ctx)
}

func (h *HTTPServer) Get(path string, handleFunc HandleFunc) {
	h.addRoute(http.MethodGet, path, handleFunc)
}

func (h *HTTPServer) Post(path string, handleFunc HandleFunc) {
	h.addRoute(http.MethodPost, path, handleFunc)
}

func (h *HTTPServer) Put(path string, handleFunc HandleFunc) {
	h.addRoute(http.MethodPut, path, handleFunc)
}

func (h *HTTPServer) Delete(path string, handleFunc HandleFunc) {
	h.addRoute(http.MethodDelete, path, handleFunc)
}

// Handle mounts a plain http.Handler, for example promhttp.
func (h *HTTPServer) Handle(method string, path string, handler http.Handler) {
	h.addRoute(method, path, func(ctx *Context) {
		rec := &recorder{header: ctx.Resp.Header()}
		handler.ServeHTTP(rec, ctx.Req)
		ctx.RespStatusCode = rec.status
		ctx.RespData = rec.body
		if ctx.RespData == nil {
			ctx.RespData = []byte{}
		}
	})
}

func (h *HTTPServer) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return http.Serve(l, h)
}

// recorder buffers a plain handler's output into the Context so that
// middlewares still see it.
type recorder struct {
	header http.Header
	status int
	body   []byte
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) Write(data []byte) (int, error) {
	r.body = append(r.body, data...)
	return len(data), nil
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
}
