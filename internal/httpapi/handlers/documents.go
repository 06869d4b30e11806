package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	v1 "tixel/internal/contracts/renderer/v1"
	"tixel/internal/httpapi/util"
	"tixel/internal/httpkit"
	"tixel/internal/models"
	"tixel/internal/ports"
	"tixel/internal/repositories"
)

const maxDocumentUpload = 32 << 20 // 32 MiB is generous for a single SVG

// PostDocument receives the editor's SVG design as a multipart upload and
// stores it under the derived key documents/raw/{id}.svg. Jobs later rebuild
// the same key from the document id alone.
func (h *Handler) PostDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxDocumentUpload); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))

	file, header, err := r.FormFile("file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isSVGContentType(contentType, header.Filename) {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file must be an SVG", map[string]any{"field": "file"})
		return
	}

	documentID := util.NewID("doc")
	objectKey := v1.SVGObjectKey(documentID)

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: "image/svg+xml",
		Reader:      file,
		Size:        header.Size,
	})
	if err != nil {
		h.log.LogError(ctx, "storage put failed", err, "object_key", objectKey)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
		return
	}

	doc := &models.Document{
		ID:        documentID,
		Name:      name,
		SVGKey:    out.ObjectKey,
		Mime:      "image/svg+xml",
		SizeBytes: out.Size,
		Provider:  h.sp.Provider(),
	}
	if err := h.docs.Create(ctx, doc); err != nil {
		if errors.Is(err, repositories.ErrDocumentNameExists) {
			httpkit.WriteErr(w, 409, "DOCUMENT_NAME_EXISTS", "document name already exists", map[string]any{"field": "name"})
			return
		}
		h.log.LogError(ctx, "db insert document failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"document": doc})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.docs.List(ctx)
	if err != nil {
		h.log.LogError(ctx, "db list documents failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	httpkit.WriteJSON(w, 200, map[string]any{"documents": docs})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := chi.URLParam(r, "documentId")

	doc, err := h.docs.Get(ctx, documentID)
	if err != nil {
		httpkit.WriteErr(w, 404, "DOCUMENT_NOT_FOUND", "document not found", map[string]any{"document_id": documentID})
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"document": doc})
}

// StreamDocument serves the raw SVG for providers without signed URLs.
func (h *Handler) StreamDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := chi.URLParam(r, "documentId")

	doc, err := h.docs.Get(ctx, documentID)
	if err != nil {
		httpkit.WriteErr(w, 404, "DOCUMENT_NOT_FOUND", "document not found", map[string]any{"document_id": documentID})
		return
	}

	rc, ct, size, err := h.sp.GetObject(ctx, doc.SVGKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "DOCUMENT_FILE_MISSING", "document file missing", map[string]any{"object_key": doc.SVGKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = doc.Mime
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	documentID := chi.URLParam(r, "documentId")

	doc, err := h.docs.Get(ctx, documentID)
	if err != nil {
		httpkit.WriteErr(w, 404, "DOCUMENT_NOT_FOUND", "document not found", map[string]any{"document_id": documentID})
		return
	}

	// Refuse deletion while jobs still reference the document.
	var cnt int
	if err := h.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM jobs WHERE document_id=$1 AND status IN ('QUEUED','RUNNING')`,
		documentID,
	).Scan(&cnt); err != nil {
		if !httpkit.IsUndefinedTable(err) {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
			return
		}
		cnt = 0
	}
	if cnt > 0 {
		httpkit.WriteErr(w, 409, "DOCUMENT_IN_USE", "document has active jobs", map[string]any{"document_id": documentID})
		return
	}

	if err := h.sp.DeleteObject(ctx, doc.SVGKey); err != nil {
		h.log.FromContext(ctx).Warn("storage delete failed, continuing",
			"object_key", doc.SVGKey,
			"error", err.Error(),
		)
	}

	if err := h.docs.Delete(ctx, documentID); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isSVGContentType(contentType, filename string) bool {
	if strings.Contains(strings.ToLower(contentType), "svg") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".svg")
}
