package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warns  []map[string]interface{}
	errors []map[string]interface{}
}

func (r *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	r.warns = append(r.warns, fields)
}

func (r *recordingLogger) Error(msg string, fields map[string]interface{}) {
	r.errors = append(r.errors, fields)
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeUpstreamUnavailable:  "upstream",
		ErrCodeUpstreamTimeout:      "upstream",
		ErrCodeLLMRequestFailed:     "upstream",
		ErrCodeSearchQueryFailed:    "upstream",
		ErrCodeLegacyAPIFailed:      "upstream",
		ErrCodeXMLParseFailed:       "upstream",
		ErrCodeMalformedReply:       "format",
		ErrCodeUnknownFormat:        "format",
		ErrCodeInvalidToolArguments: "format",
		ErrCodeUnknownTool:          "format",
		ErrCodeInvalidRequest:       "client",
		ErrCodeInternal:             "internal",
		ErrorCode("SOMETHING_ELSE"): "internal",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(ErrCodeUpstreamUnavailable))
	assert.Equal(t, http.StatusOK, HTTPStatus(ErrCodeMalformedReply))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeInvalidRequest))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeInternal))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeUpstreamTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeIndexNotFound))
	assert.False(t, IsRetryableErrorCode(ErrCodeMalformedReply))
}

func TestStandardError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewUpstreamUnavailableError("typesense", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "typesense", err.Metadata["service"])
	assert.Equal(t, "connection refused", err.Details)
	assert.Contains(t, err.Error(), "UPSTREAM_UNAVAILABLE")
}

func TestErrorHandler_Normalize(t *testing.T) {
	h := NewErrorHandler(&recordingLogger{})

	assert.Nil(t, h.Normalize("llm", nil))

	std := NewMalformedReplyError("search", stderrors.New("bad json"))
	assert.Same(t, std, h.Normalize("llm", fmt.Errorf("wrapped: %w", std)))

	timeout := h.Normalize("legacy", fmt.Errorf("get: %w", context.DeadlineExceeded))
	require.NotNil(t, timeout)
	assert.Equal(t, ErrCodeUpstreamTimeout, timeout.Code)
	assert.Equal(t, "legacy", timeout.Metadata["service"])

	internal := h.Normalize("x", stderrors.New("nil map"))
	assert.Equal(t, ErrCodeInternal, internal.Code)
}

func TestErrorHandler_LogLevels(t *testing.T) {
	rec := &recordingLogger{}
	h := NewErrorHandler(rec)

	h.Log("search failed", NewSearchQueryFailedError("obafaq", stderrors.New("503")), map[string]interface{}{"threadId": "t1"})
	h.Log("panic", NewInternalError(stderrors.New("boom")), nil)
	h.Log("nothing", nil, nil)

	require.Len(t, rec.warns, 1)
	require.Len(t, rec.errors, 1)
	assert.Equal(t, "SEARCH_QUERY_FAILED", rec.warns[0]["errorCode"])
	assert.Equal(t, "obafaq", rec.warns[0]["collection"])
	assert.Equal(t, "t1", rec.warns[0]["threadId"])
	assert.Equal(t, "internal", rec.errors[0]["errorCategory"])
}
