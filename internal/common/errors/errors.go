// Package errors provides the standardized error taxonomy for assistant turns.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Upstream unavailable: network failure, non-200, timeout.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeLLMRequestFailed    ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeSearchQueryFailed   ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexNotFound       ErrorCode = "INDEX_NOT_FOUND"
	ErrCodeLegacyAPIFailed     ErrorCode = "LEGACY_API_FAILED"
	ErrCodeXMLParseFailed      ErrorCode = "XML_PARSE_FAILED"

	// Reply format problems.
	ErrCodeMalformedReply ErrorCode = "MALFORMED_REPLY"
	ErrCodeUnknownFormat  ErrorCode = "UNKNOWN_FORMAT"

	// Tool contract problems.
	ErrCodeInvalidToolArguments ErrorCode = "INVALID_TOOL_ARGUMENTS"
	ErrCodeUnknownTool          ErrorCode = "UNKNOWN_TOOL"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUpstreamUnavailableError wraps a failed call to an external service.
func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamUnavailable, "Upstream service unavailable", err, true).
		WithMetadata("service", service)
}

// NewUpstreamTimeoutError marks a call that exceeded its fixed timeout.
func NewUpstreamTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamTimeout, "Upstream service timed out", err, true).
		WithMetadata("service", service)
}

func NewLLMRequestFailedError(err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, "Conversation service request failed", err, true).
		WithMetadata("service", "llm")
}

func NewSearchQueryFailedError(collection string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search backend query failed", err, true).
		WithMetadata("collection", collection)
}

func NewIndexNotFoundError(collection string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexNotFound,
		Message:   "Search collection not found",
		Details:   fmt.Sprintf("collection: %s", collection),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewLegacyAPIFailedError(err error) *StandardError {
	return newError(ErrCodeLegacyAPIFailed, "Legacy events API request failed", err, true).
		WithMetadata("service", "legacy")
}

func NewXMLParseFailedError(err error) *StandardError {
	return newError(ErrCodeXMLParseFailed, "Legacy events API returned invalid XML", err, false)
}

// NewMalformedReplyError is used when JSON was expected but the reply was not JSON.
func NewMalformedReplyError(stage string, err error) *StandardError {
	return newError(ErrCodeMalformedReply, "Assistant reply is not valid JSON", err, false).
		WithMetadata("stage", stage)
}

// NewUnknownFormatError is used when a parsed reply has no recognized field combination.
func NewUnknownFormatError(stage string, keys []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownFormat,
		Message:   "Assistant reply has no recognized fields",
		Details:   fmt.Sprintf("keys: %v", keys),
		Retryable: false,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidToolArgumentsError(tool, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidToolArguments,
		Message:   "Tool arguments failed schema validation",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"tool": tool},
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownToolError(tool string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownTool,
		Message:   "Unknown tool",
		Details:   fmt.Sprintf("tool: %s", tool),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request body",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 3. Classification
// ==========================

// GetErrorCategory groups codes the way the turn orchestrator degrades them.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeUpstreamUnavailable, ErrCodeUpstreamTimeout, ErrCodeLLMRequestFailed,
		ErrCodeSearchQueryFailed, ErrCodeIndexNotFound, ErrCodeLegacyAPIFailed, ErrCodeXMLParseFailed:
		return "upstream"
	case ErrCodeMalformedReply, ErrCodeUnknownFormat, ErrCodeInvalidToolArguments, ErrCodeUnknownTool:
		return "format"
	case ErrCodeInvalidRequest:
		return "client"
	default:
		return "internal"
	}
}

// IsRetryableErrorCode reports whether a later attempt could succeed. Request
// paths never retry; startup connection checks do.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetErrorCategory(code) == "upstream" && code != ErrCodeIndexNotFound && code != ErrCodeXMLParseFailed
}

// HTTPStatus maps a code to the status used by the API layer. Upstream and
// format errors are reported inside a 200 envelope, so only client and
// internal errors surface as HTTP errors.
func HTTPStatus(code ErrorCode) int {
	switch GetErrorCategory(code) {
	case "client":
		return http.StatusBadRequest
	case "internal":
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
