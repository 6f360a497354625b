package agent

import (
	"context"
	"fmt"
	"time"

	"vitalink-data/internal/config"
	"vitalink-data/internal/wire"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Uploader posts pending batches to the ingest API. The primary URL is tried
// first, then each fallback in order; emulator setups reach the host through
// a different address than a phone on the LAN, hence the list.
type Uploader struct {
	client *resty.Client
	urls   []string
	logger *zap.Logger
}

func NewUploader(cfg *config.AgentConfig, logger *zap.Logger) *Uploader {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	urls := append([]string{cfg.BaseURL}, cfg.FallbackURLs...)
	return &Uploader{client: client, urls: urls, logger: logger}
}

// post tries each base URL until one answers. A 4xx answer is final: the
// server understood and refused, retrying elsewhere cannot help.
func (u *Uploader) post(ctx context.Context, path, userID string, body any) (*wire.IngestResult, error) {
	var lastErr error
	for _, base := range u.urls {
		var result wire.IngestResult
		resp, err := u.client.R().
			SetContext(ctx).
			SetHeader("X-User-Id", userID).
			SetBody(body).
			SetResult(&result).
			Post(base + path)
		if err != nil {
			lastErr = err
			u.logger.Warn("upload attempt failed",
				zap.String("url", base+path), zap.Error(err))
			continue
		}
		if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
			return nil, fmt.Errorf("server rejected batch: %s: %s", resp.Status(), resp.String())
		}
		if resp.StatusCode() >= 500 {
			lastErr = fmt.Errorf("server error: %s", resp.Status())
			u.logger.Warn("upload attempt failed",
				zap.String("url", base+path), zap.String("status", resp.Status()))
			continue
		}
		return &result, nil
	}
	return nil, fmt.Errorf("all upload targets failed: %w", lastErr)
}

func (u *Uploader) UploadSteps(ctx context.Context, userID string, batch wire.StepsBatch) (*wire.IngestResult, error) {
	return u.post(ctx, "/ingest/steps-events", userID, batch)
}

func (u *Uploader) UploadDistance(ctx context.Context, userID string, batch wire.DistanceBatch) (*wire.IngestResult, error) {
	return u.post(ctx, "/ingest/distance-events", userID, batch)
}

func (u *Uploader) UploadHr(ctx context.Context, userID string, batch wire.HrBatch) (*wire.IngestResult, error) {
	return u.post(ctx, "/ingest/hr-samples", userID, batch)
}

func (u *Uploader) UploadSpo2(ctx context.Context, userID string, batch wire.Spo2Batch) (*wire.IngestResult, error) {
	return u.post(ctx, "/ingest/spo2-samples", userID, batch)
}
