package errors

import (
	"context"
	stderrors "errors"
)

// ErrorHandler normalizes and logs errors caught at call sites.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Normalize ensures we always have a StandardError. Context deadline errors
// become UPSTREAM_TIMEOUT for the given service.
func (h *ErrorHandler) Normalize(service string, err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewUpstreamTimeoutError(service, err)
	}
	return NewInternalError(err)
}

// Log writes the error with its category. Upstream and format errors are
// expected degradations and log at warn level.
func (h *ErrorHandler) Log(msg string, stdErr *StandardError, fields map[string]interface{}) {
	if stdErr == nil {
		return
	}
	out := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range stdErr.Metadata {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}

	if GetErrorCategory(stdErr.Code) == "internal" {
		h.logger.Error(msg, out)
		return
	}
	h.logger.Warn(msg, out)
}
