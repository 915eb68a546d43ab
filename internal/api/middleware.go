// Package api implements the scribe REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// TokenVerifier validates an ID token and returns its subject.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type subjectKey struct{}

// WithSubject returns a copy of ctx carrying the authenticated subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the authenticated subject stored in ctx.
func SubjectFrom(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// RequireAuth returns middleware that verifies the Bearer token and stores
// its subject in the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, failure("No authorization header"))
				return
			}
			token, ok := bearerToken(header)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, failure("Invalid authorization header"))
				return
			}
			subject, err := verifier.VerifyToken(r.Context(), token)
			if err != nil || subject == "" {
				writeJSON(w, http.StatusUnauthorized, failure("Invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
