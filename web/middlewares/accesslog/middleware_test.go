package accesslog

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagcache/web"
)

func TestMiddlewareBuilder(t *testing.T) {
	var logs []AccessLog
	mdl := NewMiddlewareBuilder().LogFunc(func(l AccessLog) {
		logs = append(logs, l)
	}).Build()
	server := web.NewHTTPServer(web.ServerWithMiddleware(mdl))
	server.Post("/cache/:key", func(ctx *web.Context) {
		ctx.RespStatusCode = http.StatusCreated
		ctx.RespData = []byte("ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/cache/a", nil)
	server.ServeHTTP(httptest.NewRecorder(), req)
	req = httptest.NewRequest(http.MethodGet, "/missing", nil)
	server.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, logs, 2)
	assert.Equal(t, "/cache/:key", logs[0].Route)
	assert.Equal(t, "/cache/a", logs[0].Path)
	assert.Equal(t, http.MethodPost, logs[0].HTTPMethod)
	assert.Equal(t, http.StatusCreated, logs[0].Status)
	assert.Equal(t, "", logs[1].Route)
	assert.Equal(t, http.StatusNotFound, logs[1].Status)
}

func TestMiddlewareBuilder_DefaultLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	std := logrus.StandardLogger()
	out := std.Out
	hooks := std.ReplaceHooks(make(logrus.LevelHooks))
	std.SetOutput(logger.Out)
	std.AddHook(hook)
	t.Cleanup(func() {
		std.SetOutput(out)
		std.ReplaceHooks(hooks)
	})

	server := web.NewHTTPServer(web.ServerWithMiddleware(NewMiddlewareBuilder().Build()))
	server.Get("/", func(ctx *web.Context) {
		ctx.Reply("ok")
	})
	server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "access", hook.LastEntry().Message)
	assert.Equal(t, "/", hook.LastEntry().Data["route"])
}
