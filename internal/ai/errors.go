// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, machine-readable failure kind.
type ErrorCode string

const (
	CodeBackendUnavailable   ErrorCode = "BACKEND_UNAVAILABLE"
	CodeModelNotFound        ErrorCode = "MODEL_NOT_FOUND"
	CodeModelLoadFailed      ErrorCode = "MODEL_LOAD_FAILED"
	CodeModelNotLoaded       ErrorCode = "MODEL_NOT_LOADED"
	CodeGenerationFailed     ErrorCode = "GENERATION_FAILED"
	CodeParseFailed          ErrorCode = "PARSE_FAILED"
	CodeAllTiersFailed       ErrorCode = "ALL_TIERS_FAILED"
	CodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	CodeProviderUnavailable  ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeProviderPanic        ErrorCode = "PROVIDER_PANIC"
	CodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
)

// Sentinel errors, one per code. errors.Is(err, ErrModelNotLoaded) matches any
// *Error carrying CodeModelNotLoaded.
var (
	ErrBackendUnavailable   = &Error{Code: CodeBackendUnavailable, Message: "native inference backend unavailable"}
	ErrModelNotFound        = &Error{Code: CodeModelNotFound, Message: "model file not found"}
	ErrModelLoadFailed      = &Error{Code: CodeModelLoadFailed, Message: "model load failed"}
	ErrModelNotLoaded       = &Error{Code: CodeModelNotLoaded, Message: "no model loaded"}
	ErrGenerationFailed     = &Error{Code: CodeGenerationFailed, Message: "generation failed"}
	ErrParseFailed          = &Error{Code: CodeParseFailed, Message: "model output could not be parsed"}
	ErrAllTiersFailed       = &Error{Code: CodeAllTiersFailed, Message: "all tiers failed"}
	ErrUnsupportedOperation = &Error{Code: CodeUnsupportedOperation, Message: "operation not supported"}
	ErrProviderUnavailable  = &Error{Code: CodeProviderUnavailable, Message: "provider unavailable"}
	ErrProviderPanic        = &Error{Code: CodeProviderPanic, Message: "provider panicked"}
	ErrInvalidRequest       = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
)

// Error is the typed failure returned across the provider boundary.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewError builds an *Error wrapping an optional cause.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Errorf builds an *Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the ErrorCode from err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError converts any error into an *Error, defaulting to fallback when err
// carries no code of its own.
func AsError(err error, fallback ErrorCode) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: fallback, Message: err.Error(), Err: err}
}
