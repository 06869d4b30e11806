package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tixel/internal/pkg/errors"
	"tixel/internal/pkg/logger"
	"tixel/internal/ports"
	"tixel/internal/worker/cache"
	"tixel/internal/worker/notify"
	"tixel/internal/worker/renderer"
)

// Notifier publishes job lifecycle events. Nil disables notifications.
type Notifier interface {
	Publish(ev notify.JobEvent) error
}

type Deps struct {
	Pool         *pgxpool.Pool
	Renderer     renderer.Client
	SP           ports.StorageProvider
	StorageRoot  string
	CleanupLocal bool
	Cache        *cache.JobCache
	Notifier     Notifier
	Log          *logger.Logger
}

type Processor struct {
	pool     *pgxpool.Pool
	renderer renderer.Client
	cache    *cache.JobCache
	notifier Notifier
	log      *logger.Logger

	outputHandler *OutputHandler
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	return &Processor{
		pool:          d.Pool,
		renderer:      d.Renderer,
		cache:         d.Cache,
		notifier:      d.Notifier,
		log:           log,
		outputHandler: NewOutputHandler(d.Pool, d.SP, d.StorageRoot, d.CleanupLocal),
	}
}

// ProcessJob runs one job end to end: guard, render, register, finish.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	if p.cache != nil {
		done, err := p.cache.IsDone(ctx, jobID)
		if err != nil {
			log.Warn("dedupe check failed, processing anyway", "error", err.Error())
		} else if done {
			log.Info("job already completed, skipping duplicate queue entry")
			return nil
		}
	}

	log.Debug("fetching job payload")
	payloadJSON, err := p.fetchJobPayload(ctx, jobID)
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.fetch", "failed to fetch job payload"))
	}

	log.Debug("parsing job payload")
	payload, err := ParsePayload(payloadJSON)
	if err != nil {
		return p.failJob(ctx, jobID, errors.WrapWithCode(err, errors.CodeValidation, "processor.parse", "failed to parse job payload"))
	}

	log.Debug("marking job as running")
	if err := p.markJobRunning(ctx, jobID); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.status", "failed to mark job as running"))
	}

	outputKeys := GenerateOutputKeys(jobID)
	log.Debug("output keys generated",
		"pdf", outputKeys.PDF,
		"preview", outputKeys.Preview,
	)

	log.Info("starting render", "svg_s3_key", payload.SVGS3Key)
	if err := p.render(ctx, payload, outputKeys); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.render", "render failed"))
	}
	log.Debug("render completed")

	log.Debug("registering outputs")
	outputResult, err := p.outputHandler.RegisterOutputs(ctx, RegisterOutputsRequest{
		JobID:      jobID,
		OutputKeys: outputKeys,
	})
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.outputs", "failed to register outputs"))
	}
	log.Debug("outputs registered",
		"pdf_asset", outputResult.PDFAssetID,
		"preview_asset", outputResult.PreviewAssetID,
	)

	if err := p.saveJobOutput(ctx, jobID, outputResult); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.save", "failed to save job output"))
	}

	if err := p.markJobDone(ctx, jobID); err != nil {
		return err
	}

	if p.cache != nil {
		if err := p.cache.MarkDone(ctx, jobID); err != nil {
			log.Warn("dedupe mark failed", "error", err.Error())
		}
	}

	p.notifyEvent(notify.JobEvent{
		JobID:            jobID,
		Status:           "DONE",
		PDFObjectKey:     outputKeys.PDF,
		PreviewObjectKey: outputKeys.Preview,
		FinishedAt:       time.Now().UTC(),
	})

	return nil
}

// render forwards the stored payload verbatim plus the output block. The
// payload map is copied shallowly so the source stays untouched.
func (p *Processor) render(ctx context.Context, payload *JobPayload, keys *OutputKeys) error {
	spec := make(map[string]any, len(payload.Raw)+1)
	for k, v := range payload.Raw {
		spec[k] = v
	}
	spec["output"] = map[string]any{
		"pdf_object_key":     keys.PDF,
		"preview_object_key": keys.Preview,
	}

	return p.renderer.RenderV1(ctx, spec)
}

func (p *Processor) fetchJobPayload(ctx context.Context, jobID string) (string, error) {
	var payloadJSON string
	err := p.pool.QueryRow(ctx,
		`SELECT payload_json FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&payloadJSON)
	if err != nil {
		return "", fmt.Errorf("job not found: %w", err)
	}
	return payloadJSON, nil
}

func (p *Processor) markJobRunning(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status='RUNNING', started_at=NOW(), finished_at=NULL, error_text=NULL WHERE id=$1`,
		jobID,
	)
	return err
}

func (p *Processor) markJobDone(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status='DONE', finished_at=NOW() WHERE id=$1`,
		jobID,
	)
	return err
}

func (p *Processor) saveJobOutput(ctx context.Context, jobID string, result *OutputResult) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO job_outputs (id, job_id, pdf_asset_id, preview_asset_id)
		 VALUES ($1,$2,$3,$4)`,
		result.OutputID,
		jobID,
		result.PDFAssetID,
		NullIfEmpty(result.PreviewAssetID),
	)
	return err
}

func (p *Processor) failJob(ctx context.Context, jobID string, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	msg := ""
	if cause != nil {
		msg = cause.Error()
		if len(msg) > 2000 {
			msg = msg[:2000]
		}

		var appErr *errors.Error
		if errors.As(cause, &appErr) {
			log.Error("job failed",
				"code", string(appErr.Code),
				"op", appErr.Op,
				"message", appErr.Message,
			)
		} else {
			log.Error("job failed", "error", msg)
		}
	}

	_, _ = p.pool.Exec(ctx,
		`UPDATE jobs SET status='FAILED', finished_at=NOW(), error_text=$2 WHERE id=$1`,
		jobID, msg,
	)

	p.notifyEvent(notify.JobEvent{
		JobID:      jobID,
		Status:     "FAILED",
		Error:      msg,
		FinishedAt: time.Now().UTC(),
	})

	return cause
}

func (p *Processor) notifyEvent(ev notify.JobEvent) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ev); err != nil {
		p.log.Warn("notify publish failed",
			"job_id", ev.JobID,
			"status", ev.Status,
			"error", err.Error(),
		)
	}
}
