package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"tixel/internal/ports"
	"tixel/internal/worker/util"
)

type OutputHandler struct {
	pool         *pgxpool.Pool
	sp           ports.StorageProvider
	storageRoot  string
	cleanupLocal bool
}

func NewOutputHandler(pool *pgxpool.Pool, sp ports.StorageProvider, storageRoot string, cleanupLocal bool) *OutputHandler {
	return &OutputHandler{
		pool:         pool,
		sp:           sp,
		storageRoot:  storageRoot,
		cleanupLocal: cleanupLocal,
	}
}

type RegisterOutputsRequest struct {
	JobID      string
	OutputKeys *OutputKeys
}

type OutputResult struct {
	OutputID       string
	PDFAssetID     string
	PreviewAssetID string
}

// RegisterOutputs uploads and registers the files the renderer produced.
// The PDF is mandatory; the preview is best-effort.
func (oh *OutputHandler) RegisterOutputs(ctx context.Context, req RegisterOutputsRequest) (*OutputResult, error) {
	result := &OutputResult{
		OutputID: util.NewID("out"),
	}

	pdfAssetID, _, err := oh.registerAsset(ctx, "render_output", "application/pdf", req.OutputKeys.PDF)
	if err != nil {
		return nil, fmt.Errorf("failed to register pdf: %w", err)
	}
	result.PDFAssetID = pdfAssetID

	if oh.outputFileExists(req.OutputKeys.Preview) {
		previewAssetID, _, err := oh.registerAsset(ctx, "preview", "image/png", req.OutputKeys.Preview)
		if err != nil {
			return nil, fmt.Errorf("failed to register preview: %w", err)
		}
		result.PreviewAssetID = previewAssetID
	}

	return result, nil
}

func (oh *OutputHandler) outputFileExists(objectKey string) bool {
	localPath := filepath.Join(oh.storageRoot, objectKey)
	_, err := os.Stat(localPath)
	return err == nil
}

func (oh *OutputHandler) registerAsset(ctx context.Context, kind, mime, objectKey string) (assetID string, size int64, err error) {
	// The renderer writes into the shared storage root; upload from there.
	localPath := filepath.Join(oh.storageRoot, objectKey)
	st, err := os.Stat(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("output file not found: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open output: %w", err)
	}
	defer f.Close()

	uploadResult, err := oh.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: mime,
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload output: %w", err)
	}

	assetID = util.NewID("ast")
	_, err = oh.pool.Exec(ctx,
		`INSERT INTO assets (id, kind, provider, object_key, mime, size_bytes)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		assetID, kind, oh.sp.Provider(), uploadResult.ObjectKey, mime, uploadResult.Size,
	)
	if err != nil {
		return "", 0, fmt.Errorf("failed to register output in DB: %w", err)
	}

	oh.maybeCleanupFile(objectKey)

	return assetID, uploadResult.Size, nil
}

func (oh *OutputHandler) maybeCleanupFile(objectKey string) {
	// localfs serves straight from the storage root, so keep the file there.
	if !oh.cleanupLocal || oh.sp.Provider() == "localfs" {
		return
	}
	_ = os.Remove(filepath.Join(oh.storageRoot, objectKey))
}
