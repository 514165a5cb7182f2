package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Kind classifies why a run failed.
type Kind string

const (
	KindConfiguration     Kind = "ConfigurationError"
	KindUpstream          Kind = "UpstreamError"
	KindMalformedResponse Kind = "MalformedResponseError"
	KindTimeout           Kind = "TimeoutError"
)

// Stage names the pipeline step that produced an outcome.
type Stage string

const (
	StageCredentials     Stage = "credentials"
	StageImageGeneration Stage = "image_generation"
	StagePublication     Stage = "publication"
	StageEncoding        Stage = "encoding"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrUpstream          = errors.New("upstream error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrTimeout           = errors.New("upstream timeout")
)

var kindSentinels = map[Kind]error{
	KindConfiguration:     ErrConfiguration,
	KindUpstream:          ErrUpstream,
	KindMalformedResponse: ErrMalformedResponse,
	KindTimeout:           ErrTimeout,
}

// Error is the single failure value a run returns. Error() yields Message
// unchanged so upstream messages reach the caller verbatim.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind sentinel and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind Kind, stage Stage, message string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Err: cause}
}

func configurationError(message string, cause error) *Error {
	return newError(KindConfiguration, StageCredentials, message, cause)
}

func upstreamError(stage Stage, message string, cause error) *Error {
	return newError(KindUpstream, stage, message, cause)
}

func malformedError(stage Stage, message string) *Error {
	return newError(KindMalformedResponse, stage, message, nil)
}

func timeoutError(stage Stage, service string, timeout time.Duration, cause error) *Error {
	return newError(KindTimeout, stage, fmt.Sprintf("%s request timed out after %v", service, timeout), cause)
}

// AsError extracts the pipeline failure from err, if there is one.
func AsError(err error) (*Error, bool) {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
