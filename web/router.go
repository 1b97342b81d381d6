package web

import "strings"

// router keeps one segment tree per HTTP method. Segments are static text,
// a :name parameter or a single-segment * wildcard.
type router struct {
	trees map[string]*node
}

func newRouter() router {
	return router{trees: map[string]*node{}}
}

type node struct {
	// route is the full registered path, set on nodes holding a handler
	route string
	path  string

	children   map[string]*node
	starChild  *node
	paramChild *node

	handler HandleFunc
}

type matchInfo struct {
	n          *node
	pathParams map[string]string
}

// routeSegments validates a registration path and splits it. The root path
// yields no segments.
func routeSegments(path string) []string {
	switch {
	case path == "":
		panic("web: path must not be empty")
	case path[0] != '/':
		panic("web: path must start with /")
	case path == "/":
		return nil
	case strings.HasSuffix(path, "/"):
		panic("web: path must not end with /")
	}
	segs := strings.Split(path[1:], "/")
	for _, seg := range segs {
		if seg == "" {
			panic("web: path must not contain //")
		}
	}
	return segs
}

func (r *router) addRoute(method string, path string, handleFunc HandleFunc) {
	segs := routeSegments(path)
	n := r.trees[method]
	if n == nil {
		n = &node{path: "/"}
		r.trees[method] = n
	}
	for _, seg := range segs {
		n = n.childOrCreate(seg)
	}
	if n.handler != nil {
		panic("web: route " + path + " registered twice")
	}
	n.handler, n.route = handleFunc, path
}

// findRoute tolerates leading and trailing slashes on the request path.
func (r *router) findRoute(method string, path string) (*matchInfo, bool) {
	n, ok := r.trees[method]
	if !ok {
		return nil, false
	}
	info := &matchInfo{}
	if path = strings.Trim(path, "/"); path != "" {
		for _, seg := range strings.Split(path, "/") {
			child, isParam, found := n.childOf(seg)
			if !found {
				return nil, false
			}
			if isParam {
				info.addParam(child.path[1:], seg)
			}
			n = child
		}
	}
	info.n = n
	return info, true
}

func (m *matchInfo) addParam(name, value string) {
	if m.pathParams == nil {
		m.pathParams = map[string]string{}
	}
	m.pathParams[name] = value
}

// childOf prefers a static match over a path parameter over a wildcard. It
// returns the child, whether it is a path parameter and whether it matched.
func (n *node) childOf(seg string) (*node, bool, bool) {
	if child, ok := n.children[seg]; ok {
		return child, false, true
	}
	if n.paramChild != nil {
		return n.paramChild, true, true
	}
	return n.starChild, false, n.starChild != nil
}

// childOrCreate reuses an existing child for the segment. A parameter and a
// wildcard cannot share a parent, and a parent has one parameter name.
func (n *node) childOrCreate(seg string) *node {
	switch {
	case seg[0] == ':':
		if n.starChild != nil {
			panic("web: path parameter and wildcard on the same segment")
		}
		if n.paramChild == nil {
			n.paramChild = &node{path: seg}
		}
		if n.paramChild.path != seg {
			panic("web: conflicting path parameters " + n.paramChild.path + " and " + seg)
		}
		return n.paramChild
	case seg == "*":
		if n.paramChild != nil {
			panic("web: path parameter and wildcard on the same segment")
		}
		if n.starChild == nil {
			n.starChild = &node{path: seg}
		}
		return n.starChild
	}
	child, ok := n.children[seg]
	if !ok {
		child = &node{path: seg}
		if n.children == nil {
			n.children = map[string]*node{}
		}
		n.children[seg] = child
	}
	return child
}
