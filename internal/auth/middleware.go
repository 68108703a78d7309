package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/cadenza-hq/cadenza/internal/platform/httpx"
	"github.com/cadenza-hq/cadenza/internal/shared"
)

// Middleware authenticates requests from the Authorization header and
// stores the actor in the request context.
func Middleware(repo Repository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			actor, err := Verify(r.Context(), repo, token)
			if err != nil {
				if err != ErrInvalidToken && logger != nil {
					logger.Error("verify api token", slog.Any("error", err))
				}
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}
