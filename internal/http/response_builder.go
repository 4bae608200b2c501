// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps service errors onto status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"atelier/internal/core"
	applog "atelier/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
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

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter. A nil body
// produces an empty response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ValidationFailed reports bad input; per-field messages go into details.
func ValidationFailed(err error) *JSONResponseBuilder {
	body := ErrorBody{Error: "Validation failed"}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Details = ve.Fields
	} else {
		body.Details = map[string]string{"input": err.Error()}
	}
	return NewJSONResponse().Status(http.StatusBadRequest).Body(body)
}

// writeServiceError maps a service error to a response. Unexpected errors
// are logged with the request logger and answered with fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case core.IsValidation(err):
		ValidationFailed(err).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Not found").Write(w)
	case errors.Is(err, core.ErrAlreadyCancelled):
		ErrorResponse(http.StatusConflict, "Appointment already cancelled").Write(w)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), fallback,
			applog.FieldError, err.Error(),
			applog.FieldPath, r.URL.Path)
		InternalServerError(fallback).Write(w)
	}
}
