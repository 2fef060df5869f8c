package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/authz"
)

const maxBodyBytes = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type conflictData struct {
	Conflicts any `json:"conflicts"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("missing request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteSuccess writes a successful envelope.
func WriteSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	if err := WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}

// WriteFailure writes an unsuccessful envelope with an explicit status.
func WriteFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := WriteJSON(w, status, Envelope{Success: false, Message: message}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}

// WriteError maps err onto a status code and writes it. Unclassified errors
// are logged and answered with a generic 500 carrying fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := log.Ctx(r.Context())
	status, message := StatusFor(err)

	var data any
	switch status {
	case http.StatusInternalServerError:
		logger.Error().Err(err).Msg(fallback)
		message = fallback
	case http.StatusConflict:
		if detail := apperr.Detail(err); detail != nil {
			data = conflictData{Conflicts: detail}
		}
	case http.StatusTooManyRequests:
		if retryAfter, ok := apperr.Detail(err).(time.Duration); ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		}
	}

	if err := WriteJSON(w, status, Envelope{Success: false, Message: message, Data: data}); err != nil {
		logger.Error().Err(err).Msg("Failed to write error response")
	}
}

// StatusFor classifies err. The message is only meaningful for non-500s.
func StatusFor(err error) (int, string) {
	var fieldErr FieldError
	switch {
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, fieldErr.Error()
	case errors.Is(err, apperr.ErrBadRequest):
		return http.StatusBadRequest, apperr.Message(err)
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, apperr.Message(err)
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, apperr.Message(err)
	case errors.Is(err, apperr.ErrUnauthorized), errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized, messageOr(err, "authentication required")
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, messageOr(err, "you do not have permission to perform this action")
	case errors.Is(err, apperr.ErrTooManyRequests):
		return http.StatusTooManyRequests, apperr.Message(err)
	default:
		return http.StatusInternalServerError, ""
	}
}

func messageOr(err error, fallback string) string {
	if message := apperr.Message(err); message != "" {
		return message
	}
	return fallback
}

// RequireActor returns the caller or writes 401/403 and returns nil.
func RequireActor(w http.ResponseWriter, r *http.Request, allowed authz.RoleSet) *authz.Actor {
	logger := log.Ctx(r.Context())
	actor, err := authz.Require(r.Context(), allowed)
	if err == nil {
		return actor
	}

	logEvent := logger.Warn().Str("path", r.URL.Path)
	if actor != nil {
		logEvent = logEvent.Int64("user_id", actor.UserID).Str("role", actor.Role.String())
	}
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		logEvent.Msg("Access denied: unauthenticated")
	case errors.Is(err, authz.ErrForbidden):
		logEvent.Msg("Access denied: forbidden")
	}
	WriteError(w, r, err, "Failed to authorize request")
	return nil
}
