package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tixel/internal/httpapi/util"
	"tixel/internal/httpkit"
	"tixel/internal/ports"
)

// PostOverlay receives a reusable SVG overlay (cut marks, frames, logos as
// vectors) and registers it as an asset. The returned object_key is what the
// editor puts in an svgOverlays entry when submitting a job.
func (h *Handler) PostOverlay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxDocumentUpload); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	label := strings.TrimSpace(r.FormValue("label"))

	file, header, err := r.FormFile("file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	if !isSVGContentType(header.Header.Get("Content-Type"), header.Filename) {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file must be an SVG", map[string]any{"field": "file"})
		return
	}

	overlayID := util.NewID("ovl")
	objectKey := fmt.Sprintf("overlays/%s.svg", overlayID)

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

	createdAt := time.Now().UTC()
	_, err = h.pool.Exec(ctx,
		`INSERT INTO assets (id, kind, provider, object_key, mime, size_bytes, label, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		overlayID, "overlay", h.sp.Provider(), out.ObjectKey, "image/svg+xml", out.Size, nullIfEmpty(label), createdAt,
	)
	if err != nil {
		h.log.LogError(ctx, "db insert asset failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{
		"overlay": map[string]any{
			"id":         overlayID,
			"object_key": out.ObjectKey,
			"provider":   h.sp.Provider(),
			"mime":       "image/svg+xml",
			"size_bytes": out.Size,
			"label":      label,
			"created_at": createdAt,
		},
	})
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
