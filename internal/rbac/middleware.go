package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cadenza-hq/cadenza/internal/platform/httpx"
	"github.com/cadenza-hq/cadenza/internal/shared"
)

// Middleware wires role checks for HTTP handlers. The target org is
// taken from the {orgID} route parameter.
type Middleware struct {
	Memberships MembershipRepository
	Logger      *slog.Logger
}

// RequireRole ensures the current actor holds one of the given roles in
// the org addressed by the request.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid organisation id")
				return
			}
			role, ok, err := m.Memberships.RoleInOrg(r.Context(), actor.UserID, orgID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac role lookup", slog.Int64("user_id", actor.UserID), slog.Int64("org_id", orgID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !ok {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			if _, permitted := allowed[role]; !permitted {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
