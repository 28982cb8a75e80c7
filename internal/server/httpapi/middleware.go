package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/homevault/internal/common"
	"github.com/dmitrijs2005/homevault/internal/server/auth"
)

type ctxKey string

const sessionKey ctxKey = "session"

// AuthenticatedSession is what requireSession resolves a request to.
type AuthenticatedSession struct {
	ID       uint64
	Username string
}

// SessionFromContext returns the session stored by requireSession.
func SessionFromContext(ctx context.Context) (AuthenticatedSession, bool) {
	s, ok := ctx.Value(sessionKey).(AuthenticatedSession)
	return s, ok
}

// requestLogger tags every request with a fresh id and logs its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, requestID)
		w.Header().Set(middleware.RequestIDHeader, requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		s.logger.Info(ctx, "request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

// rateLimit rejects a client over its budget with 429. If the limiter is
// missing or panics the request is refused with 500.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, ok := s.allow(r)
		if !ok {
			s.logger.Error(r.Context(), "rate limiter unavailable", "remote_addr", r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if !allowed {
			s.logger.Warn(r.Context(), "rate limit exceeded", "client", clientKey(r))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allow(r *http.Request) (allowed, ok bool) {
	if s.limiter == nil {
		return false, false
	}
	defer func() {
		if rec := recover(); rec != nil {
			allowed, ok = false, false
		}
	}()
	return s.limiter.ShouldAllow(clientKey(r)), true
}

// clientKey is the client IP without the port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireSession only lets requests with a live session through. Page
// routes send everybody else to the login page, API routes answer 401.
func (s *Server) requireSession(page bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := s.currentSession(r)
			if err != nil {
				s.logger.Debug(r.Context(), "unauthenticated request", "path", r.URL.Path, "error", err)
				if page {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentSession resolves the session cookie of r.
func (s *Server) currentSession(r *http.Request) (AuthenticatedSession, error) {
	cookie, err := r.Cookie(common.SessionCookieName)
	if err != nil {
		return AuthenticatedSession{}, common.ErrUnauthorized
	}

	id, err := auth.SessionIDFromToken(cookie.Value, s.opts.SecretKey)
	if err != nil {
		return AuthenticatedSession{}, err
	}

	username, ok := s.sessions.Get(id)
	if !ok {
		return AuthenticatedSession{}, common.ErrUnauthorized
	}

	return AuthenticatedSession{ID: id, Username: username}, nil
}
