package service

import (
	"context"

	"vitalink-data/internal/store"

	"go.uber.org/zap"
)

const summaryCacheTTLSeconds = 60

func summaryCacheKey(patientID string) string {
	return "vitalink:summary:" + patientID
}

// invalidateSummary drops the cached summary after any write that changes it.
// Cache trouble never fails the write.
func invalidateSummary(ctx context.Context, cache store.KV, logger *zap.Logger, patientID string) {
	if cache == nil {
		return
	}
	if err := cache.Del(ctx, summaryCacheKey(patientID)); err != nil {
		logger.Warn("failed to invalidate summary cache",
			zap.String("patient_id", patientID), zap.Error(err))
	}
}
