package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/media-gallery/internal/auth"
	"github.com/sakif/media-gallery/internal/service"
)

// MediaHandler exposes the gallery CRUD surface. Every route is behind
// RequireAuth and scoped to the caller's own items; ownership checks
// live in service.MediaService.
type MediaHandler struct {
	svc    *service.MediaService
	logger *slog.Logger
}

// NewMediaHandler creates a MediaHandler.
func NewMediaHandler(svc *service.MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{svc: svc, logger: logger}
}

// HandleUpload stores a new media item.
//
// HTTP: POST /api/media (multipart/form-data)
// Parts: file (required), title, description, tags (comma-separated)
//
// MaxBytesReader caps the whole request body. When the limit trips,
// further reads fail and ParseMultipartForm returns an error, so an
// oversized upload dies here instead of streaming gigabytes to S3.
func (h *MediaHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+1<<20) // slack for the form overhead
	if err := r.ParseMultipartForm(2 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "upload exceeds the size limit",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid multipart form",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "file part is required",
		})
		return
	}
	defer file.Close()

	media, err := h.svc.Upload(r.Context(), identity.ID, service.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        r.FormValue("tags"),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("media uploaded",
		slog.String("mediaID", media.ID),
		slog.String("ownerID", identity.ID),
		slog.Int64("size", media.Size),
	)
	writeJSON(w, http.StatusCreated, media)
}

// HandleList returns the caller's media, newest first.
//
// HTTP: GET /api/media?search=...&tags=a,b
//
// search matches the title case-insensitively; tags keeps items
// carrying at least one of the listed tags. Both filters are optional.
func (h *MediaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	items, err := h.svc.List(r.Context(), identity.ID,
		r.URL.Query().Get("search"),
		r.URL.Query().Get("tags"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleGet returns a single media item.
//
// HTTP: GET /api/media/{id}
func (h *MediaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	media, err := h.svc.Get(r.Context(), identity.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// HandleUpdate edits a media item's metadata. The stored file itself is
// immutable; re-upload to replace it.
//
// HTTP: PUT /api/media/{id}
// Body: {"title": "...", "description": "...", "tags": "a,b"} — all optional
func (h *MediaHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Tags        *string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	media, err := h.svc.Update(r.Context(), identity.ID, chi.URLParam(r, "id"), service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// HandleDelete removes a media item and its stored file.
//
// HTTP: DELETE /api/media/{id}
func (h *MediaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), identity.ID, id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("media deleted",
		slog.String("mediaID", id),
		slog.String("ownerID", identity.ID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDownload returns a short-lived presigned URL for the stored
// file. The client follows the URL directly to object storage, so the
// file bytes never pass through this server.
//
// HTTP: GET /api/media/{id}/download
func (h *MediaHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	url, expiresAt, err := h.svc.DownloadURL(r.Context(), identity.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url":       url,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}
