package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"secureguard/internal/domain"
	"secureguard/internal/observability/metrics"
	obsmw "secureguard/internal/observability/middleware"
	"secureguard/internal/service"
)

type identityKey struct{}

func withIdentity(ctx context.Context, id *service.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the session identity attached by the auth middleware.
func IdentityFrom(ctx context.Context) (*service.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*service.Identity)
	return id, ok && id != nil
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) < len("bearer ") || !strings.EqualFold(raw[:len("bearer ")], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(raw[len("bearer "):]), true
}

// requireSession rejects requests without a valid bearer session.
func (h *handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := "success"
		defer func() {
			metrics.AuthenticationAttemptsTotal.WithLabelValues(result).Inc()
		}()

		tok, ok := bearerToken(r)
		if !ok {
			result = "missing"
			slog.Debug("missing bearer token", obsmw.LogAttrs(r.Context())...)
			writeError(w, r, domain.ErrUnauthorized)
			return
		}
		id, err := h.tokens.Validate(r.Context(), tok)
		if err != nil {
			result = "failure"
			slog.Warn("invalid session token", append(obsmw.LogAttrs(r.Context()), "error", err)...)
			writeError(w, r, domain.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// optionalSession attaches an identity when a bearer token is present. A
// token that is present but invalid is still rejected.
func (h *handler) optionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearerToken(r); !ok {
			next.ServeHTTP(w, r)
			return
		}
		h.requireSession(next).ServeHTTP(w, r)
	})
}
