// Package format wraps handler results into a uniform envelope for transports.
package format

import (
	"context"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is what a transport writes back for every formatted response.
type Envelope struct {
	Success  bool       `json:"success"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
	Metadata *Metadata  `json:"metadata,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Detail carries the original error text, only when configured.
	Detail string `json:"detail,omitempty"`
}

type Metadata struct {
	CorrelationID string         `json:"correlation_id,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
	Timestamp     *time.Time     `json:"timestamp,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// Formatter turns a result into an Envelope. Implementations never fail and
// never panic: a failure is always described inside the envelope.
type Formatter interface {
	Success(ctx context.Context, val any) *Envelope
	Failure(ctx context.Context, err error) *Envelope
	// ShouldFormat reports whether responses for path and contentType get
	// wrapped at all.
	ShouldFormat(path string, contentType string) bool
}

type Options struct {
	IncludeMetadata    bool
	IncludeTimestamp   bool
	IncludeErrorDetail bool
	// CorrelationHeader is the transport header carrying the correlation id.
	CorrelationHeader string
	// ExcludedPaths are matched as path prefixes.
	ExcludedPaths []string
	// ExcludedContentTypes are matched on the media type, parameters ignored.
	ExcludedContentTypes []string
	// GlobalMetadata is merged into the extensions of every envelope.
	GlobalMetadata map[string]any
}

// DefaultOptions includes metadata and timestamps and hides error details.
func DefaultOptions() Options {
	return Options{
		IncludeMetadata:   true,
		IncludeTimestamp:  true,
		CorrelationHeader: "X-Correlation-ID",
	}
}

var _ Formatter = &JSONFormatter{}

// JSONFormatter is the default Formatter strategy.
type JSONFormatter struct {
	opts Options
	now  func() time.Time
	id   func() string
}

func New(opts Options) *JSONFormatter {
	return &JSONFormatter{
		opts: opts,
		now:  time.Now,
		id: func() string {
			return uuid.New().String()
		},
	}
}

func (f *JSONFormatter) Options() Options {
	return f.opts
}

func (f *JSONFormatter) Success(ctx context.Context, val any) *Envelope {
	return &Envelope{
		Success:  true,
		Data:     val,
		Metadata: f.metadata(ctx),
	}
}

func (f *JSONFormatter) Failure(ctx context.Context, err error) *Envelope {
	kind := Classify(err)
	body := &ErrorBody{
		Code:    kind.Code(),
		Message: kind.Message(),
	}
	if f.opts.IncludeErrorDetail && err != nil {
		body.Detail = err.Error()
	}
	return &Envelope{
		Error:    body,
		Metadata: f.metadata(ctx),
	}
}

func (f *JSONFormatter) ShouldFormat(path string, contentType string) bool {
	for _, prefix := range f.opts.ExcludedPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return false
		}
	}
	if contentType == "" || len(f.opts.ExcludedContentTypes) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	for _, excluded := range f.opts.ExcludedContentTypes {
		if strings.EqualFold(mediaType, excluded) {
			return false
		}
	}
	return true
}

func (f *JSONFormatter) metadata(ctx context.Context) *Metadata {
	if !f.opts.IncludeMetadata {
		return nil
	}
	md := &Metadata{
		CorrelationID: CorrelationID(ctx),
		RequestID:     RequestID(ctx),
	}
	if md.CorrelationID == "" {
		md.CorrelationID = f.id()
	}
	if md.RequestID == "" {
		md.RequestID = f.id()
	}
	if f.opts.IncludeTimestamp {
		ts := f.now().UTC()
		md.Timestamp = &ts
	}
	if len(f.opts.GlobalMetadata) > 0 {
		md.Extensions = make(map[string]any, len(f.opts.GlobalMetadata))
		for k, v := range f.opts.GlobalMetadata {
			md.Extensions[k] = v
		}
	}
	return md
}
