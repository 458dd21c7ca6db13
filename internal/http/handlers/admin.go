package handlers

import (
	"net/http"
	"strconv"

	"tryon-backend/internal/domain"
	"tryon-backend/internal/middleware"
)

// AdminListUsers handles GET /admin/users. Only callers carrying the admin
// claim may list accounts; everyone else gets 403.
func (a *App) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsAdminFromContext(r.Context()) {
		a.error(w, http.StatusForbidden, "forbidden", "admin access required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := a.Users.List(r.Context(), limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list users failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list users")
		return
	}

	public := make([]domain.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}
	a.json(w, http.StatusOK, map[string]any{"users": public})
}
