package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	v1 "tixel/internal/contracts/renderer/v1"
	"tixel/internal/httpkit"
	"tixel/internal/pkg/errors"
	"tixel/internal/renderpayload"
)

const renderQueueName = "tixel:render"

// PostJob accepts the editor's flat parameter bag, builds the canonical
// render payload, persists the job and enqueues it for the worker. The
// payload is frozen at submission time: the worker forwards it verbatim.
func (h *Handler) PostJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var in renderpayload.Input
	if err := httpkit.DecodeJSONLoose(r, &in); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	payload, err := renderpayload.Build(in)
	if err != nil {
		var details map[string]any
		if field, ok := errors.GetField(err, "field").(string); ok && field != "" {
			details = map[string]any{"field": field}
		}
		var appErr *errors.Error
		if errors.As(err, &appErr) {
			httpkit.WriteErr(w, appErr.HTTPStatus(), string(appErr.Code), appErr.Message, details)
			return
		}
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", err.Error(), details)
		return
	}

	documentID := strings.TrimSpace(renderpayload.Str(in.DocumentID))
	if _, err := h.docs.Get(ctx, documentID); err != nil {
		httpkit.WriteErr(w, 404, "DOCUMENT_NOT_FOUND", "document not found", map[string]any{"document_id": documentID})
		return
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Error("payload marshal failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "payload marshal failed", nil)
		return
	}

	createdAt := time.Now().UTC()
	_, err = h.pool.Exec(ctx,
		`INSERT INTO jobs (id, document_id, status, payload_json, created_at)
		 VALUES ($1,$2,'QUEUED',$3,$4)`,
		payload.JobID, documentID, string(payloadBytes), createdAt,
	)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			httpkit.WriteErr(w, 409, "JOB_EXISTS", "job id already submitted", map[string]any{"job_id": payload.JobID})
			return
		}
		log.Error("db insert job failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	if err := h.rdb.LPush(ctx, renderQueueName, payload.JobID).Err(); err != nil {
		log.Error("queue push failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	log.Info("job queued",
		"job_id", payload.JobID,
		"document_id", documentID,
		"series_count", seriesCount(payload),
	)

	httpkit.WriteJSON(w, 201, map[string]any{
		"job": map[string]any{
			"id":          payload.JobID,
			"document_id": documentID,
			"status":      "QUEUED",
			"svg_s3_key":  payload.SVGS3Key,
			"created_at":  createdAt,
		},
	})
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	limitStr := strings.TrimSpace(r.URL.Query().Get("limit"))
	limit := 50
	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	var (
		rows pgxRows
		err  error
	)

	if status != "" {
		rows, err = h.pool.Query(ctx,
			`SELECT id, document_id, status, created_at
			 FROM jobs WHERE status=$1
			 ORDER BY created_at DESC
			 LIMIT $2`,
			status, limit,
		)
	} else {
		rows, err = h.pool.Query(ctx,
			`SELECT id, document_id, status, created_at
			 FROM jobs
			 ORDER BY created_at DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	defer rows.Close()

	type item struct {
		ID         string    `json:"id"`
		DocumentID string    `json:"document_id"`
		Status     string    `json:"status"`
		CreatedAt  time.Time `json:"created_at"`
	}

	out := make([]item, 0, limit)
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.Status, &it.CreatedAt); err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "row scan failed", nil)
			return
		}
		out = append(out, it)
	}

	httpkit.WriteJSON(w, 200, map[string]any{"jobs": out})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	var (
		id, documentID, status, payloadJSON string
		errorText                           *string
		createdAt                           time.Time
		startedAt, finishedAt               *time.Time
	)

	err := h.pool.QueryRow(ctx,
		`SELECT id, document_id, status, payload_json, error_text, created_at, started_at, finished_at
		 FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&id, &documentID, &status, &payloadJSON, &errorText, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
		return
	}

	var payload map[string]any
	_ = json.Unmarshal([]byte(payloadJSON), &payload)

	type outItem struct {
		PDFAssetID       string `json:"pdf_asset_id"`
		PreviewAssetID   string `json:"preview_asset_id,omitempty"`
		PDFObjectKey     string `json:"pdf_object_key,omitempty"`
		PreviewObjectKey string `json:"preview_object_key,omitempty"`
	}

	outs := []outItem{}

	rows, err := h.pool.Query(ctx,
		`SELECT pdf_asset_id, COALESCE(preview_asset_id,'')
		 FROM job_outputs WHERE job_id=$1`,
		jobID,
	)
	if err != nil {
		if !httpkit.IsUndefinedTable(err) {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db outputs query failed", nil)
			return
		}
	} else {
		defer rows.Close()
		for rows.Next() {
			var it outItem
			if err := rows.Scan(&it.PDFAssetID, &it.PreviewAssetID); err != nil {
				httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "outputs scan failed", nil)
				return
			}

			it.PDFObjectKey = lookupObjectKey(ctx, h.pool, it.PDFAssetID)
			if it.PreviewAssetID != "" {
				it.PreviewObjectKey = lookupObjectKey(ctx, h.pool, it.PreviewAssetID)
			}

			outs = append(outs, it)
		}
	}

	job := map[string]any{
		"id":          id,
		"document_id": documentID,
		"status":      status,
		"payload":     payload,
		"created_at":  createdAt,
		"started_at":  startedAt,
		"finished_at": finishedAt,
		"outputs":     outs,
	}
	if errorText != nil && *errorText != "" {
		job["error"] = *errorText
	}

	httpkit.WriteJSON(w, 200, map[string]any{"job": job})
}

func lookupObjectKey(ctx context.Context, pool *pgxpool.Pool, assetID string) string {
	if assetID == "" {
		return ""
	}
	var objectKey string
	_ = pool.QueryRow(ctx, `SELECT object_key FROM assets WHERE id=$1`, assetID).Scan(&objectKey)
	return objectKey
}

func seriesCount(p *v1.RenderJobRequest) int {
	if len(p.SeriesList) > 0 {
		return len(p.SeriesList)
	}
	if p.Series != nil {
		return 1
	}
	return 0
}

type pgxRows interface {
	Close()
	Next() bool
	Scan(dest ...any) error
}
