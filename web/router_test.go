package web

import (
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_AddRoute(t *testing.T) {
	testRoutes := []struct {
		method string
		path   string
	}{
		{
			method: http.MethodGet,
			path:   "/",
		},
		{
			method: http.MethodGet,
			path:   "/metrics",
		},
		{
			method: http.MethodGet,
			path:   "/cache/:key",
		},
		{
			method: http.MethodGet,
			path:   "/tags/:tag",
		},
		{
			method: http.MethodGet,
			path:   "/static/*",
		},
		{
			method: http.MethodPut,
			path:   "/cache/:key",
		},
		{
			method: http.MethodDelete,
			path:   "/cache",
		},
		{
			method: http.MethodDelete,
			path:   "/cache/:key",
		},
	}
	var mockHandler HandleFunc = func(ctx *Context) {}
	r := newRouter()
	for _, route := range testRoutes {
		r.addRoute(route.method, route.path, mockHandler)
	}

	// handlers are funcs, so the trees are compared by hand instead of assert.Equal
	wantRouter := &router{
		trees: map[string]*node{
			http.MethodGet: {
				path:    "/",
				handler: mockHandler,
				children: map[string]*node{
					"metrics": {
						path:    "metrics",
						handler: mockHandler,
					},
					"cache": {
						path: "cache",
						paramChild: &node{
							path:    ":key",
							handler: mockHandler,
						},
					},
					"tags": {
						path: "tags",
						paramChild: &node{
							path:    ":tag",
							handler: mockHandler,
						},
					},
					"static": {
						path: "static",
						starChild: &node{
							path:    "*",
							handler: mockHandler,
						},
					},
				},
			},
			http.MethodPut: {
				path: "/",
				children: map[string]*node{
					"cache": {
						path: "cache",
						paramChild: &node{
							path:    ":key",
							handler: mockHandler,
						},
					},
				},
			},
			http.MethodDelete: {
				path: "/",
				children: map[string]*node{
					"cache": {
						path:    "cache",
						handler: mockHandler,
						paramChild: &node{
							path:    ":key",
							handler: mockHandler,
						},
					},
				},
			},
		},
	}
	msg, ok := wantRouter.equal(&r)
	assert.True(t, ok, msg)

	r = newRouter()
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "", mockHandler)
	})
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "/a/b/c/", mockHandler)
	})
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "abc", mockHandler)
	})
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "/a//b", mockHandler)
	})

	r = newRouter()
	r.addRoute(http.MethodGet, "/", mockHandler)
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "/", mockHandler)
	})
	r.addRoute(http.MethodGet, "/cache/:key", mockHandler)
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "/cache/:key", mockHandler)
	})
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "/cache/:id", mockHandler)
	})

	r = newRouter()
	r.addRoute(http.MethodGet, "/a/*", mockHandler)
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "/a/:id", mockHandler)
	})
	r.addRoute(http.MethodGet, "/b/:id", mockHandler)
	assert.Panics(t, func() {
		r.addRoute(http.MethodGet, "/b/*", mockHandler)
	})
}

// equal returns a message locating the first difference.
func (r *router) equal(y *router) (string, bool) {
	if len(r.trees) != len(y.trees) {
		return "method count differs", false
	}
	for k, v := range r.trees {
		dst, ok := y.trees[k]
		if !ok {
			return fmt.Sprintf("method %s not found", k), false
		}
		msg, equal := v.equal(dst)
		if !equal {
			return k + ": " + msg, false
		}
	}
	return "", true
}

func (n *node) equal(y *node) (string, bool) {
	if y == nil {
		return fmt.Sprintf("node %s missing", n.path), false
	}
	if n.path != y.path {
		return fmt.Sprintf("path %s != %s", n.path, y.path), false
	}
	if len(n.children) != len(y.children) {
		return fmt.Sprintf("node %s: child count differs", n.path), false
	}
	if n.starChild != nil {
		if msg, ok := n.starChild.equal(y.starChild); !ok {
			return msg, ok
		}
	} else if y.starChild != nil {
		return fmt.Sprintf("node %s: unexpected wildcard child", n.path), false
	}
	if n.paramChild != nil {
		if msg, ok := n.paramChild.equal(y.paramChild); !ok {
			return msg, ok
		}
	} else if y.paramChild != nil {
		return fmt.Sprintf("node %s: unexpected param child", n.path), false
	}
	// funcs only compare through reflection
	if reflect.ValueOf(n.handler) != reflect.ValueOf(y.handler) {
		return fmt.Sprintf("node %s: handler differs", n.path), false
	}
	for path, c := range n.children {
		dst, ok := y.children[path]
		if !ok {
			return fmt.Sprintf("node %s: child %s not found", n.path, path), false
		}
		if msg, ok := c.equal(dst); !ok {
			return msg, false
		}
	}
	return "", true
}

func TestRouter_FindRoute(t *testing.T) {
	testRoutes := []struct {
		method string
		path   string
	}{
		{
			method: http.MethodDelete,
			path:   "/",
		},
		{
			method: http.MethodGet,
			path:   "/cache/:key",
		},
		{
			method: http.MethodGet,
			path:   "/cache/stats",
		},
		{
			method: http.MethodGet,
			path:   "/static/*",
		},
		{
			method: http.MethodDelete,
			path:   "/tags/:tag",
		},
	}
	r := newRouter()
	var mockHandler HandleFunc = func(ctx *Context) {}
	for _, route := range testRoutes {
		r.addRoute(route.method, route.path, mockHandler)
	}

	testCases := []struct {
		name   string
		method string
		path   string

		wantFound bool
		info      *matchInfo
	}{
		{
			name:   "method not found",
			method: http.MethodOptions,
			path:   "/cache/a",
		},
		{
			name:      "root",
			method:    http.MethodDelete,
			path:      "/",
			wantFound: true,
			info: &matchInfo{
				n: &node{
					path:    "/",
					handler: mockHandler,
					children: map[string]*node{
						"tags": {
							path: "tags",
							paramChild: &node{
								path:    ":tag",
								handler: mockHandler,
							},
						},
					},
				},
			},
		},
		{
			// found, but the node has no handler
			name:      "intermediate node",
			method:    http.MethodGet,
			path:      "/cache",
			wantFound: true,
			info: &matchInfo{
				n: &node{
					path: "cache",
					children: map[string]*node{
						"stats": {
							path:    "stats",
							handler: mockHandler,
						},
					},
					paramChild: &node{
						path:    ":key",
						handler: mockHandler,
					},
				},
			},
		},
		{
			name:      "static beats param",
			method:    http.MethodGet,
			path:      "/cache/stats",
			wantFound: true,
			info: &matchInfo{
				n: &node{
					path:    "stats",
					handler: mockHandler,
				},
			},
		},
		{
			name:      "param",
			method:    http.MethodGet,
			path:      "/cache/user:1",
			wantFound: true,
			info: &matchInfo{
				n: &node{
					path:    ":key",
					handler: mockHandler,
				},
				pathParams: map[string]string{
					"key": "user:1",
				},
			},
		},
		{
			name:      "tag param",
			method:    http.MethodDelete,
			path:      "/tags/users/",
			wantFound: true,
			info: &matchInfo{
				n: &node{
					path:    ":tag",
					handler: mockHandler,
				},
				pathParams: map[string]string{
					"tag": "users",
				},
			},
		},
		{
			name:      "wildcard",
			method:    http.MethodGet,
			path:      "/static/app.js",
			wantFound: true,
			info: &matchInfo{
				n: &node{
					path:    "*",
					handler: mockHandler,
				},
			},
		},
		{
			name:   "too deep for param",
			method: http.MethodGet,
			path:   "/cache/a/b",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, found := r.findRoute(tc.method, tc.path)
			assert.Equal(t, tc.wantFound, found)
			if !found {
				return
			}
			assert.Equal(t, tc.info.pathParams, info.pathParams)
			msg, ok := tc.info.n.equal(info.n)
			assert.True(t, ok, msg)
		})
	}
}
