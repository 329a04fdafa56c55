// Package envelope implements the {status, message, data, errors} wrapper used by
// every endpoint of the library backend, on both the writing and the reading side.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

type Response[T any] struct {
	Status  Status   `json:"status"`
	Message string   `json:"message,omitempty"`
	Data    T        `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func Success[T any](data T) Response[T] {
	return Response[T]{Status: StatusSuccess, Data: data}
}

// Failure builds an ERROR envelope. The first code, if any, is what clients display.
func Failure(message string, codes ...string) Response[any] {
	return Response[any]{Status: StatusError, Message: message, Errors: codes}
}

type Kind uint8

const (
	KindTransport Kind = iota + 1
	KindAPI
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind       Kind
	HTTPStatus int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: err.Error(), Cause: err}
}

// Code returns the message of an envelope error, which for domain failures is the
// sentinel code (ALREADY_BOOKED, RENEW_LIMIT, ...). Other errors yield "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindAPI {
		return e.Message
	}
	return ""
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

type raw struct {
	Status  *Status         `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

var null = []byte("null")

// Decode validates an envelope received with the given HTTP status and unpacks data
// into out (which may be nil). Non-2xx and ERROR envelopes become KindAPI errors;
// 2xx bodies that are not a well-formed envelope become KindMalformed errors.
func Decode(httpStatus int, body []byte, out any) error {
	ok := httpStatus >= http.StatusOK && httpStatus < http.StatusMultipleChoices

	var env raw
	parseErr := json.Unmarshal(body, &env)
	if !ok {
		return &Error{Kind: KindAPI, HTTPStatus: httpStatus, Message: failureMessage(httpStatus, env, parseErr)}
	}
	if parseErr != nil {
		return &Error{Kind: KindMalformed, HTTPStatus: httpStatus, Message: "malformed envelope", Cause: parseErr}
	}
	if env.Status == nil {
		return &Error{Kind: KindMalformed, HTTPStatus: httpStatus, Message: "envelope without status"}
	}
	switch *env.Status {
	case StatusSuccess:
	case StatusError:
		return &Error{Kind: KindAPI, HTTPStatus: httpStatus, Message: failureMessage(httpStatus, env, nil)}
	default:
		return &Error{Kind: KindMalformed, HTTPStatus: httpStatus, Message: fmt.Sprintf("unknown envelope status %q", *env.Status)}
	}

	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, null) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindMalformed, HTTPStatus: httpStatus, Message: "malformed envelope data", Cause: err}
	}
	return nil
}

func failureMessage(httpStatus int, env raw, parseErr error) string {
	if parseErr == nil {
		if len(env.Errors) > 0 && env.Errors[0] != "" {
			return env.Errors[0]
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return fmt.Sprintf("HTTP %d", httpStatus)
}
