package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// maxJSONBody bounds request bodies without audio.
const maxJSONBody = 1 << 20

// WriteJSON encodes data as the response body.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// WriteError logs apiErr, at error level for 5xx, and writes it.
func WriteError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	attrs := []slog.Attr{
		slog.String("code", apiErr.Code),
		slog.String("message", apiErr.Message),
		slog.Int("status", status),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}
	if apiErr.cause != nil {
		attrs = append(attrs, slog.String("cause", apiErr.cause.Error()))
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.LogAttrs(r.Context(), level, "api error", attrs...)

	WriteJSON(w, status, ErrorResponse{Error: apiErr})
}

// readJSON decodes the request body into v, reading at most limit bytes
// when limit is positive. On failure it has already answered 400 (or 413
// for an oversized body) and returns false.
func readJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	err := json.NewDecoder(body).Decode(v)
	if err == nil {
		return true
	}

	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		WriteError(w, r, http.StatusRequestEntityTooLarge, NewAPIError("TOO_LARGE", "request body too large"))
		return false
	}
	BadRequest(w, r, "invalid request body")
	return false
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", message))
}

// NotFound reports that resource does not exist.
func NotFound(w http.ResponseWriter, r *http.Request, resource string) {
	WriteError(w, r, http.StatusNotFound, NewAPIError("NOT_FOUND", resource+" not found"))
}

func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, NewAPIError("UNAUTHORIZED", message))
}

// InternalError hides cause from the client and logs it.
func InternalError(w http.ResponseWriter, r *http.Request, message string, cause error) {
	WriteError(w, r, http.StatusInternalServerError, NewAPIError("INTERNAL_ERROR", message).WithCause(cause))
}
