package format

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tagcache/cache"
)

var (
	ErrValidation       = errors.New("format: validation failed")
	ErrUnauthorized     = errors.New("format: unauthorized")
	ErrInvalidArgument  = errors.New("format: invalid argument")
	ErrInvalidOperation = errors.New("format: invalid operation")
	ErrNotFound         = errors.New("format: not found")
)

// Kind is the caller-facing classification of a failure.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindValidation
	KindUnauthorized
	KindInvalidArgument
	KindInvalidOperation
	KindNotFound
	KindTimeout
)

type kindInfo struct {
	code    string
	message string
	status  int
}

// kinds is the single source of truth for what each Kind looks like on the wire.
var kinds = map[Kind]kindInfo{
	KindGeneric:          {code: "INTERNAL_ERROR", message: "An unexpected error occurred.", status: http.StatusInternalServerError},
	KindValidation:       {code: "VALIDATION_ERROR", message: "The request failed validation.", status: http.StatusBadRequest},
	KindUnauthorized:     {code: "UNAUTHORIZED", message: "Authentication is required.", status: http.StatusUnauthorized},
	KindInvalidArgument:  {code: "INVALID_ARGUMENT", message: "An argument was invalid.", status: http.StatusBadRequest},
	KindInvalidOperation: {code: "INVALID_OPERATION", message: "The operation is not valid in the current state.", status: http.StatusConflict},
	KindNotFound:         {code: "NOT_FOUND", message: "The requested resource was not found.", status: http.StatusNotFound},
	KindTimeout:          {code: "TIMEOUT", message: "The operation timed out.", status: http.StatusGatewayTimeout},
}

func (k Kind) info() kindInfo {
	if info, ok := kinds[k]; ok {
		return info
	}
	return kinds[KindGeneric]
}

func (k Kind) Code() string {
	return k.info().code
}

func (k Kind) Message() string {
	return k.info().message
}

// Status is the HTTP status a transport should answer with.
func (k Kind) Status() int {
	return k.info().status
}

func (k Kind) String() string {
	return k.Code()
}

// KindError attaches an explicit Kind to an error.
type KindError struct {
	Kind Kind
	Err  error
}

// WithKind wraps err so that Classify reports kind.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind.Code(), e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// sentinels is consulted in order; the first match wins.
var sentinels = []struct {
	err  error
	kind Kind
}{
	{err: context.DeadlineExceeded, kind: KindTimeout},
	{err: context.Canceled, kind: KindTimeout},
	{err: ErrValidation, kind: KindValidation},
	{err: ErrUnauthorized, kind: KindUnauthorized},
	{err: ErrInvalidArgument, kind: KindInvalidArgument},
	{err: cache.ErrInvalidTTL, kind: KindInvalidArgument},
	{err: cache.ErrInvalidMode, kind: KindInvalidArgument},
	{err: cache.ErrEmptyTag, kind: KindInvalidArgument},
	{err: ErrInvalidOperation, kind: KindInvalidOperation},
	{err: ErrNotFound, kind: KindNotFound},
}

// Classify maps err onto a Kind. Unknown errors are KindGeneric.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindGeneric
}
