package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

var (
	errNilBindTarget = errors.New("web: bind target is nil")
	errNilBody       = errors.New("web: request body is nil")
	errKeyNotFound   = errors.New("web: key not found")
)

type Context struct {
	Req *http.Request

	// Resp bypasses RespData and RespStatusCode when written to directly,
	// leaving middlewares blind to the response.
	Resp http.ResponseWriter

	// RespData and RespStatusCode are flushed to Resp once every middleware
	// has run.
	RespData       []byte
	RespStatusCode int

	// Result and Err hold what the handler produced before it is rendered,
	// so that a middleware such as envelope can reshape it.
	Result any
	Err    error

	PathParams map[string]string

	queryValues url.Values

	MatchRoute string

	UserValues map[string]any
}

// Reply records a successful result for later rendering.
func (c *Context) Reply(val any) {
	c.Result = val
	c.Err = nil
}

// Fail records a failed result for later rendering.
func (c *Context) Fail(err error) {
	c.Result = nil
	c.Err = err
}

func (c *Context) RespJSONOK(val any) error {
	return c.RespJSON(http.StatusOK, val)
}

func (c *Context) RespJSON(status int, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.Resp.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.RespData = data
	c.RespStatusCode = status
	return nil
}

// render turns Result/Err into a response when nothing else did.
func (c *Context) render() {
	if c.RespData != nil || (c.Result == nil && c.Err == nil) {
		return
	}
	if c.Err != nil {
		c.RespStatusCode = http.StatusInternalServerError
		c.RespData = []byte(http.StatusText(http.StatusInternalServerError))
		return
	}
	if err := c.RespJSONOK(c.Result); err != nil {
		c.RespStatusCode = http.StatusInternalServerError
		c.RespData = []byte(http.StatusText(http.StatusInternalServerError))
	}
}

func (c *Context) BindJSON(val any) error {
	if val == nil {
		return errNilBindTarget
	}
	if c.Req.Body == nil {
		return errNilBody
	}
	decoder := json.NewDecoder(c.Req.Body)
	decoder.UseNumber()
	return decoder.Decode(val)
}

func (c *Context) FormValue(key string) StringValue {
	if err := c.Req.ParseForm(); err != nil {
		return StringValue{err: err}
	}
	vals, ok := c.Req.Form[key]
	if !ok {
		return StringValue{err: errKeyNotFound}
	}
	return StringValue{value: vals[0]}
}

// QueryValue caches the parsed query, unlike Request.URL.Query.
func (c *Context) QueryValue(key string) StringValue {
	if c.queryValues == nil {
		c.queryValues = c.Req.URL.Query()
	}
	vals, ok := c.queryValues[key]
	if !ok {
		return StringValue{err: errKeyNotFound}
	}
	return StringValue{value: vals[0]}
}

func (c *Context) PathValue(key string) StringValue {
	val, ok := c.PathParams[key]
	if !ok {
		return StringValue{err: errKeyNotFound}
	}
	return StringValue{value: val}
}

type StringValue struct {
	value string
	err   error
}

func (s StringValue) AsString() (string, error) {
	return s.value, s.err
}

func (s StringValue) AsInt64() (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return strconv.ParseInt(s.value, 10, 64)
}
