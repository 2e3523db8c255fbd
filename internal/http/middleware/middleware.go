package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"blogapp/internal/auth"
	"blogapp/internal/models"
	"blogapp/internal/security"
)

// Flasher queues a notice for the next rendered page.
type Flasher interface {
	AddFlash(w http.ResponseWriter, r *http.Request, category, message string)
}

type Middleware = func(http.Handler) http.Handler

// Recover turns a panicking handler into a 500 instead of a dropped
// connection.
func Recover(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if cause := recover(); cause != nil {
					if cause == http.ErrAbortHandler {
						panic(cause)
					}
					logger.Error("handler panicked",
						zap.Any("cause", cause),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

// AccessLog writes one line per request. Server errors are logged at error
// level.
func AccessLog(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("latency", time.Since(start)),
			}
			if user, ok := auth.PrincipalFrom(r.Context()); ok {
				fields = append(fields, zap.Int64("user_id", user.ID))
			}

			if status >= http.StatusInternalServerError {
				logger.Error("[ACCESS]", fields...)
				return
			}
			logger.Info("[ACCESS]", fields...)
		})
	}
}

// Principal resolves the session cookie and stores the principal, if any, in
// the request context.
func Principal(sessions *security.SessionStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := sessions.Current(r)
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), user)))
		})
	}
}

// RequireAuth sends anonymous callers to the login page.
func RequireAuth(flash Flasher) Middleware {
	return gate(flash, auth.RequireAuthenticated)
}

// RequireAdmin sends anonymous callers to the login page and authenticated
// non-admins to the index.
func RequireAdmin(flash Flasher) Middleware {
	return gate(flash, auth.RequireAdmin)
}

func gate(flash Flasher, check func(context.Context) (*models.User, error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := check(r.Context())
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrUnauthorized):
				flash.AddFlash(w, r, "info", "Please log in to access this page.")
				http.Redirect(w, r, LoginURL(r), http.StatusSeeOther)
			default:
				flash.AddFlash(w, r, "danger", "Access denied.")
				http.Redirect(w, r, "/", http.StatusSeeOther)
			}
		})
	}
}

// LoginURL points at the login page, carrying the current path as next for
// GET requests.
func LoginURL(r *http.Request) string {
	if r.Method != http.MethodGet {
		return "/login"
	}
	return "/login?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
}
