package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/media-gallery/internal/auth"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/service"
)

// UserHandler covers profile self-service and the admin account panel.
// The admin routes are mounted behind RequireAdmin; the handler itself
// does no role checks.
type UserHandler struct {
	users    *service.UserService
	contacts *service.ContactService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, contacts *service.ContactService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, contacts: contacts, logger: logger}
}

// HandleUpdateProfile changes the caller's display name.
//
// HTTP: PUT /api/users/profile
// Body: {"name": "..."}
// Auth: Required
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), identity.ID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleAdminListUsers returns every account.
//
// HTTP: GET /api/admin/users
// Auth: Admin
func (h *UserHandler) HandleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// HandleAdminUpdateUser edits an account: name, role, and the active
// switch. Deactivating takes effect on the target's next request even
// if their token hasn't expired.
//
// HTTP: PUT /api/admin/users/{id}
// Body: {"name": "...", "role": "admin", "is_active": false} — all optional
// Auth: Admin
func (h *UserHandler) HandleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string     `json:"name"`
		Role     *model.Role `json:"role"`
		IsActive *bool       `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	user, err := h.users.AdminUpdate(r.Context(), chi.URLParam(r, "id"), service.AdminUpdateInput{
		Name:   req.Name,
		Role:   req.Role,
		Active: req.IsActive,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleAdminListContacts returns the full contact inbox, including
// messages from anonymous visitors.
//
// HTTP: GET /api/admin/contact
// Auth: Admin
func (h *UserHandler) HandleAdminListContacts(w http.ResponseWriter, r *http.Request) {
	messages, err := h.contacts.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// HandleAdminDeleteContact hides any contact message.
//
// HTTP: DELETE /api/admin/contact/{id}
// Auth: Admin
func (h *UserHandler) HandleAdminDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.contacts.AdminDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("contact message removed by admin", slog.String("contactID", id))
	w.WriteHeader(http.StatusNoContent)
}
