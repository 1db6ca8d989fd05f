package service

import (
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// Result is the outcome of a business operation. Expected failures (bad
// input, wrong state, missing record) come back as Success=false with a
// message; the accompanying Go error is reserved for infrastructure faults.
type Result[T any] struct {
	Success bool
	Data    T
	Message string
	Warning string
	Failure *apperrors.DomainError
}

// OK wraps data in a successful result.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// OKWithWarning is a success the caller must follow up on.
func OKWithWarning[T any](data T, warning string) Result[T] {
	return Result[T]{Success: true, Data: data, Warning: warning}
}

// Fail converts a domain error into a failed result.
func Fail[T any](err *apperrors.DomainError) Result[T] {
	return Result[T]{Success: false, Message: err.Message, Failure: err}
}

// Code returns the failure code or "" on success.
func (r Result[T]) Code() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Code
}
