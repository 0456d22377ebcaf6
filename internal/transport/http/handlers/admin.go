package http_handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/miharyjoe/ameua-sub001/internal/application/auth"
	"github.com/miharyjoe/ameua-sub001/internal/logger"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/dto"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/middleware"
	"github.com/miharyjoe/ameua-sub001/internal/transport/http/response"
)

// AdminHandler serves member account management. The router puts it behind
// Auth and RequireRole(admin); the service checks the role again.
type AdminHandler struct {
	svc *auth.Service
}

func NewAdminHandler(svc *auth.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.UsersData{Users: dto.NewUserViews(users)})
}

// SetUserRole handles PATCH /api/v1/admin/users/{id}/role
func (h *AdminHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	var req dto.SetUserRoleRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.UpdateUserRole(r.Context(), actor, targetID, req.Role)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("actor_id", actor.UserID).
		Str("target_id", targetID).
		Str("role", u.Role).
		Msg("user_role_changed")

	response.OK(w, dto.UserData{User: dto.NewUserView(u)})
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	if err := h.svc.DeleteUser(r.Context(), actor, targetID); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("actor_id", actor.UserID).
		Str("target_id", targetID).
		Msg("user_deleted")

	response.OK(w, dto.MessageData{Message: "User deleted."})
}
