package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examenapp/examen-api/internal/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.respondError(w, http.StatusUnauthorized, "access denied: no token provided")
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFrom(r.Context())
		if !ok || !claims.IsAdmin() {
			s.respondError(w, http.StatusForbidden, "access denied: admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// idempotent rejects a repeated Idempotency-Key within the TTL window.
// Without a configured store, or without the header, requests pass through.
// A key claimed by a request that then fails is released, so the client's
// corrected retry is not treated as a duplicate.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if s.idem == nil || header == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := s.idem.Key(r.Method, r.URL.Path, header)
		seen, err := s.idem.Seen(r.Context(), key)
		if err != nil {
			s.log.Warn("idempotency check failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if seen {
			s.respondError(w, http.StatusConflict, "duplicate request")
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusBadRequest {
			if err := s.idem.Release(r.Context(), key); err != nil {
				s.log.Warn("idempotency key release failed", zap.Error(err))
			}
		}
	})
}
