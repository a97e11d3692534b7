package httpapi

import (
	"errors"
	"net/http"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/service"

	"go.uber.org/zap"
)

// UsersHandler serves account listing and role assignment.
type UsersHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUsersHandler(users service.UserService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, logger: logger}
}

// List handles GET /api/v1/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return
	}
	items := make([]map[string]any, len(users))
	for i, u := range users {
		items[i] = u.ToJSON()
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// Ensure handles POST /api/v1/users: find-or-create by email.
func (h *UsersHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := readBodyJSON(r, 1<<16, &body); err != nil || body.Email == "" {
		writeJSON(w, http.StatusBadRequest, Fail("email is required"))
		return
	}
	role := domain.RoleUser
	if body.Role != "" {
		parsed, err := domain.ParseRole(body.Role)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		role = parsed
	}

	id, err := h.users.EnsureUser(r.Context(), body.Email, role)
	if err != nil {
		h.logger.Error("ensure user failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"user_id": id}))
}

// SetRole handles PUT /api/v1/users/{id}/role.
func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Role string `json:"role"`
	}
	if err := readBodyJSON(r, 1<<16, &body); err != nil || body.Role == "" {
		writeJSON(w, http.StatusBadRequest, Fail("role is required"))
		return
	}

	if err := h.users.SetRole(r.Context(), id, body.Role); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, Fail("user not found"))
		default:
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"user_id": id, "role": body.Role}))
}
