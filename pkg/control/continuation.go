// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package control implements reading and writing decoder variables over an
// unreliable command station link: paged access through CV31/CV32 and the
// SUSI bank index, retries, and batches.
//
// Operations never block. Results are delivered through callbacks, which
// decide how to continue by returning a Continuation.
package control

import "errors"

// Continuation tells an operation what to do after a result was delivered
type Continuation uint8

const (
	// Proceed accepts the result and continues with the next step
	Proceed Continuation = iota
	// Retry reissues the same primitive, up to the retry limit
	Retry
	// Abort stops the operation
	Abort
)

// Done is an alias for Abort used when an operation has nothing left to do
const Done = Abort

func (c Continuation) String() string {
	switch c {
	case Proceed:
		return "Proceed"
	case Retry:
		return "Retry"
	case Abort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// Errors reported by transports. They are passed unchanged in Result.Err.
var (
	ErrNotImplemented = errors.New("not implemented")
	ErrRequestFailed  = errors.New("request failed")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownRequest = errors.New("unknown request")
	ErrValueRejected  = errors.New("value rejected")
	ErrShortCircuit   = errors.New("short circuit")
	ErrTimeout        = errors.New("timeout")
)

// Errors produced by the access protocol itself
var (
	// ErrRetryExhausted wraps the last error once the retry limit is reached
	ErrRetryExhausted = errors.New("retry limit exhausted")
	// ErrPageSelect wraps the cause of a failed CV31/CV32 or CV1021 write
	ErrPageSelect = errors.New("page select failed")
)

// Result carries the outcome of one operation
type Result[T any] struct {
	Value T
	Err   error
}

// Succeeded wraps a value into a successful result
func Succeeded[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// Failed wraps an error into a failed result
func Failed[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Succeeded reports whether the operation succeeded.
func (r Result[T]) Succeeded() bool { return r.Err == nil }

// Failed reports whether the operation failed.
func (r Result[T]) Failed() bool { return r.Err != nil }

// Callback receives a result and decides how to continue
type Callback[T any] func(Result[T]) Continuation

// RetryOnError returns Retry for failed results and Proceed otherwise
func RetryOnError(err error) Continuation {
	if err != nil {
		return Retry
	}
	return Proceed
}

// callIfDefined invokes cb, or returns fallback when there is no callback
func callIfDefined[T any](fallback Continuation, cb Callback[T], r Result[T]) Continuation {
	if cb == nil {
		return fallback
	}
	return cb(r)
}
