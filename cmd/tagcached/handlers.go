package main

import (
	"context"
	"fmt"
	"time"

	"tagcache/cache"
	"tagcache/format"
	"tagcache/pipeline"
	"tagcache/web"
)

type putRequest struct {
	Value any      `json:"value"`
	TTL   string   `json:"ttl"`
	Mode  string   `json:"mode"`
	Tags  []string `json:"tags"`
}

// putCommand flows through the put pipeline.
type putCommand struct {
	key  string
	req  putRequest
	ttl  time.Duration
	mode cache.Mode
}

type entryResponse struct {
	Key   string   `json:"key"`
	Value any      `json:"value,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	TTL   string   `json:"ttl,omitempty"`
	Mode  string   `json:"mode,omitempty"`
}

type tagResponse struct {
	Tag     string   `json:"tag"`
	Keys    []string `json:"keys"`
	Removed int      `json:"removed,omitempty"`
}

type handler struct {
	cache       *cache.TaggedCache
	defaultTTL  time.Duration
	defaultMode cache.Mode
	put         *pipeline.Runner
}

func newHandler(c *cache.TaggedCache, defaultTTL time.Duration, defaultMode cache.Mode, mdls ...pipeline.Middleware) *handler {
	h := &handler{
		cache:       c,
		defaultTTL:  defaultTTL,
		defaultMode: defaultMode,
	}
	h.put = pipeline.NewRunner([]pipeline.Step{
		pipeline.NewStepFunc(10, "decode", h.decode),
		pipeline.NewStepFunc(20, "validate", h.validate),
		pipeline.NewStepFunc(30, "store", h.store),
	}, pipeline.RunnerWithMiddleware(mdls...))
	return h
}

func (h *handler) register(s *web.HTTPServer) {
	s.Get("/cache/:key", h.getEntry)
	s.Put("/cache/:key", h.putEntry)
	s.Delete("/cache/:key", h.removeEntry)
	s.Delete("/cache", h.clear)
	s.Get("/tags/:tag", h.tagKeys)
	s.Delete("/tags/:tag", h.removeTag)
}

func (h *handler) getEntry(ctx *web.Context) {
	key, err := ctx.PathValue("key").AsString()
	if err != nil {
		ctx.Fail(format.WithKind(format.KindInvalidArgument, err))
		return
	}
	val, ok := h.cache.Get(key)
	if !ok {
		ctx.Fail(fmt.Errorf("key %q: %w", key, format.ErrNotFound))
		return
	}
	ctx.Reply(entryResponse{Key: key, Value: val, Tags: h.cache.Tags(key)})
}

func (h *handler) putEntry(ctx *web.Context) {
	res, err := h.put.Run(ctx.Req.Context(), ctx)
	if err != nil {
		ctx.Fail(err)
		return
	}
	ctx.Reply(res)
}

func (h *handler) removeEntry(ctx *web.Context) {
	key, err := ctx.PathValue("key").AsString()
	if err != nil {
		ctx.Fail(format.WithKind(format.KindInvalidArgument, err))
		return
	}
	h.cache.Remove(key)
	ctx.Reply(entryResponse{Key: key})
}

func (h *handler) clear(ctx *web.Context) {
	h.cache.Clear()
	ctx.Reply(map[string]int{"entries": h.cache.Len()})
}

func (h *handler) tagKeys(ctx *web.Context) {
	tag, err := ctx.PathValue("tag").AsString()
	if err != nil {
		ctx.Fail(format.WithKind(format.KindInvalidArgument, err))
		return
	}
	keys := h.cache.Keys(tag)
	if keys == nil {
		keys = []string{}
	}
	ctx.Reply(tagResponse{Tag: tag, Keys: keys})
}

func (h *handler) removeTag(ctx *web.Context) {
	tag, err := ctx.PathValue("tag").AsString()
	if err != nil {
		ctx.Fail(format.WithKind(format.KindInvalidArgument, err))
		return
	}
	keys := h.cache.RemoveByTagKeys(tag)
	if keys == nil {
		keys = []string{}
	}
	ctx.Reply(tagResponse{Tag: tag, Keys: keys, Removed: len(keys)})
}

func (h *handler) decode(_ context.Context, input any) (any, error) {
	ctx := input.(*web.Context)
	key, err := ctx.PathValue("key").AsString()
	if err != nil {
		return nil, format.WithKind(format.KindInvalidArgument, err)
	}
	cmd := &putCommand{key: key}
	if err = ctx.BindJSON(&cmd.req); err != nil {
		return nil, format.WithKind(format.KindValidation, err)
	}
	return cmd, nil
}

func (h *handler) validate(_ context.Context, input any) (any, error) {
	cmd := input.(*putCommand)
	cmd.ttl = h.defaultTTL
	if cmd.req.TTL != "" {
		ttl, err := time.ParseDuration(cmd.req.TTL)
		if err != nil {
			return nil, format.WithKind(format.KindValidation, err)
		}
		cmd.ttl = ttl
	}
	cmd.mode = h.defaultMode
	if cmd.req.Mode != "" {
		mode, err := cache.ParseMode(cmd.req.Mode)
		if err != nil {
			return nil, fmt.Errorf("mode %q: %w", cmd.req.Mode, err)
		}
		cmd.mode = mode
	}
	return cmd, nil
}

func (h *handler) store(_ context.Context, input any) (any, error) {
	cmd := input.(*putCommand)
	if err := h.cache.Set(cmd.key, cmd.req.Value, cmd.ttl, cmd.mode, cmd.req.Tags...); err != nil {
		return nil, err
	}
	return entryResponse{
		Key:   cmd.key,
		Value: cmd.req.Value,
		Tags:  h.cache.Tags(cmd.key),
		TTL:   cmd.ttl.String(),
		Mode:  cmd.mode.String(),
	}, nil
}
