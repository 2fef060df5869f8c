// internal/api/middleware.go
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/models"
)

// UserIDHeader carries the id of the caller authenticated upstream.
const UserIDHeader = "X-User-ID"

const identityLookupTimeout = 5 * time.Second

type Middleware func(http.Handler) http.Handler

func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

type requestIDKey struct{}

// RequestID returns the id assigned by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response wrapper to capture status code
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)
		log.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.status).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger := log.Ctx(r.Context())
				stack := debug.Stack()
				logger.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Msg("Panic recovered")

				apiutil.WriteFailure(w, r, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		logger := log.With().Str("request_id", requestID).Logger()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "" {
			r.Header.Set("Accept", "application/json")
		}
		if r.Body != nil && r.ContentLength != 0 && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
				apiutil.WriteFailure(w, r, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// UserLookup is satisfied by the store.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// WithIdentity resolves the upstream-authenticated user into an actor. Missing,
// malformed or unknown ids leave the request anonymous.
func WithIdentity(users UserLookup, roles *authz.RoleDirectory) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			logger := log.Ctx(r.Context())
			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				logger.Warn().Str("user_id", raw).Msg("Ignoring malformed user id header")
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), identityLookupTimeout)
			user, err := users.GetUser(ctx, userID)
			cancel()
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					logger.Warn().Int64("user_id", userID).Msg("Unknown user in identity header")
				} else {
					logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user")
				}
				next.ServeHTTP(w, r)
				return
			}

			actor := &authz.Actor{UserID: user.ID, Role: roles.Resolve(user.RoleID)}
			scoped := logger.With().Int64("user_id", actor.UserID).Str("role", actor.Role.String()).Logger()
			ctx = authz.ContextWithActor(r.Context(), actor)
			ctx = scoped.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles answers 401 for anonymous callers and 403 for callers outside
// allowed before next runs.
func RequireRoles(allowed authz.RoleSet, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiutil.RequireActor(w, r, allowed) == nil {
			return
		}
		next(w, r)
	}
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
