package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListSessions handles GET /v1/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.deps.Sessions.List(ctx, userID(ctx))
	if err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// CreateSession handles POST /v1/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.deps.Sessions.Create(ctx, userID(ctx))
	if err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.deps.Sessions.Get(ctx, userID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.deps.Sessions.Delete(ctx, userID(ctx), chi.URLParam(r, "id")); err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSession handles GET /v1/sessions/{id}/export?format=markdown|text.
func (h *Handler) ExportSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.deps.Sessions.Get(ctx, userID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}

	body, contentType := h.deps.Sessions.ExportMarkdown(session), "text/markdown; charset=utf-8"
	if r.URL.Query().Get("format") == "text" {
		body, contentType = h.deps.Sessions.ExportText(session), "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
