package adjustments

import (
	"github.com/go-chi/chi/v5"

	"github.com/cadenza-hq/cadenza/internal/rbac"
)

// MountRoutes mounts the adjustment operations under an org-scoped
// router. Both operations are restricted to billing-capable roles.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(rbac.RoleOwner, rbac.RoleAdmin, rbac.RoleFinance))
		r.Post("/term-adjustments/preview", h.Preview)
		r.Post("/term-adjustments/{adjustmentID}/confirm", h.Confirm)
	})
}
