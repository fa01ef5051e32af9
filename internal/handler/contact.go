package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/media-gallery/internal/auth"
	"github.com/sakif/media-gallery/internal/service"
)

// ContactHandler exposes the contact-us inbox. Submission works for
// anonymous visitors too; OptionalAuth attaches the identity when a
// valid token is present so signed-in users can later see and edit
// their own messages.
type ContactHandler struct {
	svc    *service.ContactService
	logger *slog.Logger
}

// NewContactHandler creates a ContactHandler.
func NewContactHandler(svc *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, logger: logger}
}

// HandleSubmit records a contact message.
//
// HTTP: POST /api/contact
// Body: {"name": "...", "email": "...", "message": "..."}
// Auth: Optional — an authenticated submission is tied to the account.
func (h *ContactHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	// Anonymous submissions get an empty userID.
	var userID string
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		userID = identity.ID
	}

	contact, err := h.svc.Submit(r.Context(), userID, req.Name, req.Email, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("contact message received",
		slog.String("contactID", contact.ID),
		slog.Bool("anonymous", userID == ""),
	)
	writeJSON(w, http.StatusCreated, contact)
}

// HandleListMine returns the caller's own messages, newest first.
//
// HTTP: GET /api/contact/my-messages
// Auth: Required
func (h *ContactHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	messages, err := h.svc.ListMine(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// HandleUpdate edits the text of one of the caller's messages.
//
// HTTP: PUT /api/contact/{id}
// Body: {"message": "..."}
// Auth: Required; anonymous messages cannot be edited by anyone.
func (h *ContactHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	contact, err := h.svc.Update(r.Context(), identity.ID, chi.URLParam(r, "id"), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// HandleDelete removes one of the caller's messages. The row is kept
// but hidden, so admins retain the audit trail.
//
// HTTP: DELETE /api/contact/{id}
// Auth: Required
func (h *ContactHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.svc.Delete(r.Context(), identity.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
