// internal/api/handlers.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "nexi-assistant/internal/common/errors"
	turnorchestrator "nexi-assistant/internal/workers/conversation/turn-orchestrator"
)

// maxBodyBytes caps request bodies read by the JSON routes.
const maxBodyBytes = 1 << 20

// ─────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────

type sendMessageRequest struct {
	ThreadID  string `json:"thread_id"`
	UserInput string `json:"user_input"`
}

type applyFiltersRequest struct {
	ThreadID     string          `json:"thread_id"`
	FilterValues json.RawMessage `json:"filter_values"`
}

type resetRequest struct {
	ThreadID string `json:"thread_id"`
}

type threadResponse struct {
	ThreadID string `json:"thread_id"`
}

// ─────────────────────────────────────────────
// Conversation routes
// ─────────────────────────────────────────────

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		badRequest(w, "user_input is required")
		return
	}

	s.runTurn(w, r, &turnorchestrator.Input{
		ThreadID: req.ThreadID,
		UserText: req.UserInput,
		Source:   turnorchestrator.SourceSendMessage,
	})
}

func (s *Server) handleApplyFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req applyFiltersRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	text, err := FilterText(req.FilterValues)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s.runTurn(w, r, &turnorchestrator.Input{
		ThreadID: req.ThreadID,
		UserText: text,
		Source:   turnorchestrator.SourceApplyFilters,
	})
}

// FilterText turns filter_values into turn text. A JSON string is used as is;
// any other value is sent as compact JSON.
func FilterText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", errors.New("filter_values is required")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", errors.New("filter_values is not a valid string")
		}
		if strings.TrimSpace(s) == "" {
			return "", errors.New("filter_values is required")
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", errors.New("filter_values is not valid JSON")
	}
	return buf.String(), nil
}

func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, input *turnorchestrator.Input) {
	out, err := s.deps.Turns.Execute(r.Context(), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Envelope)
}

func (s *Server) handleStartThread(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	id, err := s.deps.Conversations.CreateConversation(r.Context())
	if err != nil {
		s.logger.Error("create conversation failed", map[string]interface{}{
			"error":     err.Error(),
			"requestId": RequestID(r.Context()),
		})
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "conversation service unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, threadResponse{ThreadID: id})
}

// handleReset clears the pinned intent. The body is optional.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req resetRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}
	if id := strings.TrimSpace(req.ThreadID); id != "" {
		if err := s.deps.Store.Delete(r.Context(), id); err != nil {
			s.writeError(w, r, apperrors.NewInternalError(err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ─────────────────────────────────────────────
// Health routes
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleReady pings every configured backing service concurrently.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.ReadyTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for name, p := range s.deps.Checks {
		name, p := name, p
		g.Go(func() error {
			if err := p.Ping(gctx); err != nil {
				return &checkError{name: name, err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("readiness check failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

type checkError struct {
	name string
	err  error
}

func (e *checkError) Error() string { return e.name + ": " + e.err.Error() }
func (e *checkError) Unwrap() error { return e.err }

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// writeError maps err to the status of its error code. Anything that is not a
// client error is logged and hidden behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stdErr *apperrors.StandardError
	if !errors.As(err, &stdErr) {
		stdErr = apperrors.NewInternalError(err)
	}
	status := apperrors.HTTPStatus(stdErr.Code)
	if status == http.StatusBadRequest {
		badRequest(w, stdErr.Message)
		return
	}

	s.logger.Error("request failed", map[string]interface{}{
		"method":    r.Method,
		"path":      r.URL.Path,
		"code":      string(stdErr.Code),
		"error":     err.Error(),
		"requestId": RequestID(r.Context()),
	})
	internalError(w)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
