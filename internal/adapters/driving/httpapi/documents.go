package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// UploadResult reports one uploaded file.
type UploadResult struct {
	FileName string `json:"file_name"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

// UploadDocuments handles POST /v1/documents with multipart "files".
func (h *Handler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.deps.MaxUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(ctx, w, http.StatusBadRequest, fmt.Errorf("%w: at least one file is required", domain.ErrInvalidInput))
		return
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(ctx, w, http.StatusBadRequest, fmt.Errorf("%w: open %s: %w", domain.ErrInvalidInput, fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(ctx, w, http.StatusBadRequest, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, fh.Filename, err))
			return
		}
		files = append(files, domain.UploadFile{Name: fh.Filename, Data: data})
	}

	results := h.deps.Documents.Upload(ctx, userID(ctx), files)

	out := make([]UploadResult, 0, len(results))
	for _, res := range results {
		item := UploadResult{FileName: res.FileName, Chunks: res.Chunks}
		if res.Err != nil {
			item.Error = domain.UserMessage(res.Err)
		}
		out = append(out, item)
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": out})
}

// ListDocuments handles GET /v1/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := h.deps.Documents.List(ctx, userID(ctx))
	if err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": names})
}

// DocumentStats handles GET /v1/documents/stats.
func (h *Handler) DocumentStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.deps.Documents.Stats(ctx, userID(ctx))
	if err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"documents": stats.Documents,
		"chunks":    stats.Chunks,
	})
}

// DeleteDocument handles DELETE /v1/documents/{name}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}
	if err := h.deps.Documents.Delete(ctx, userID(ctx), name); err != nil {
		respondError(ctx, w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearData handles DELETE /v1/data: every document and session of the
// user. Both are attempted and reported separately.
func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(ctx)

	resp := map[string]any{}
	docErr := h.deps.Documents.ClearAll(ctx, user)
	resp["documents_cleared"] = docErr == nil
	n, sessErr := h.deps.Sessions.ClearAll(ctx, user)
	resp["sessions_deleted"] = n

	if err := errors.Join(docErr, sessErr); err != nil {
		resp["error"] = domain.UserMessage(err)
		respondJSON(w, http.StatusInternalServerError, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
