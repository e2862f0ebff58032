// Package http provides the JSON API and the server-rendered tree page.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"bommel/internal/core"
	"bommel/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	raw        []byte
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets a value to be encoded on Write.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	b.raw = nil
	return b
}

// Raw sets an already encoded body, e.g. from the tree cache.
func (b *JSONResponseBuilder) Raw(data []byte) *JSONResponseBuilder {
	b.raw = data
	b.body = nil
	return b
}

// Write sends the built response. An encoding failure becomes a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	payload := b.raw
	if b.body != nil {
		var err error
		if payload, err = json.Marshal(b.body); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(payload) > 0 {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// StatusFor maps a domain error onto an HTTP status.
func StatusFor(err error) int {
	var ve *core.ValidationError
	switch {
	case errors.Is(err, core.ErrMutationInFlight):
		return http.StatusConflict
	case errors.As(err, &ve):
		if errors.Is(err, core.ErrNodeNotFound) {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case core.IsPersistence(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the JSON error payload for err. Internal failures
// do not leak their message.
func ErrorResponse(err error) *JSONResponseBuilder {
	status := StatusFor(err)
	body := errorBody{Error: err.Error(), Type: log.ErrorType(err)}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status == http.StatusInternalServerError && !core.IsIntegrity(err) {
		body.Error = "internal error"
	}
	return NewJSONResponse().Status(status).Body(body)
}

// writeError logs err on the request logger and writes its response.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger := log.FromContext(r.Context())
	status := StatusFor(err)
	args := []any{log.FieldError, err, log.FieldErrorType, log.ErrorType(err), log.FieldStatusCode, status}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), msg, args...)
	} else {
		logger.WarnContext(r.Context(), msg, args...)
	}
	ErrorResponse(err).Write(w)
}
