package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

const maxJSONBodyBytes = 1_048_576

// ErrorResponse writes a standard JSON error response including request ID.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := Response{
		Success:   false,
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	}
	WriteJSONResponse(w, r, status, resp)
}

// ServiceErrorResponse maps a service error onto an HTTP status and writes it.
// Internal errors are logged and hidden behind a generic message.
func ServiceErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFromError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", slog.Any("error", err))
		if status == http.StatusServiceUnavailable {
			ErrorResponse(w, r, status, types.ErrNarrativeUnavailable.Error())
			return
		}
		ErrorResponse(w, r, status, "Internal server error")
		return
	}
	logger.WarnContext(r.Context(), "Request rejected", slog.Int("status", status), slog.Any("error", err))
	ErrorResponse(w, r, status, err.Error())
}

// StatusFromError returns the HTTP status for a domain error.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidTimeFormat),
		errors.Is(err, types.ErrInvalidTimeWindow),
		errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrNarrativeUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteEnvelope wraps data in the success envelope. The message depends on
// the request method.
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, data any) {
	WriteEnvelopeMessage(w, r, status, messageForMethod(r.Method), data)
}

// WriteEnvelopeMessage is WriteEnvelope with an explicit message, for POST
// routes that only read.
func WriteEnvelopeMessage(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	WriteJSONResponse(w, r, status, Envelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	})
}

const (
	MessageRetrieved = "Data retrieved successfully"
	MessageCreated   = "Resource created successfully"
	MessageUpdated   = "Resource updated successfully"
	MessageDeleted   = "Resource deleted successfully"
)

func messageForMethod(method string) string {
	switch method {
	case http.MethodPost:
		return MessageCreated
	case http.MethodPut, http.MethodPatch:
		return MessageUpdated
	case http.MethodDelete:
		return MessageDeleted
	default:
		return MessageRetrieved
	}
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		// Status already sent.
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q (wanted %s)", unmarshalTypeError.Field, unmarshalTypeError.Type)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return fmt.Errorf("body contains unknown key %q", fieldName)

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		case errors.As(err, &invalidUnmarshalError):
			panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	if err = dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}
