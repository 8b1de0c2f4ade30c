package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
)

// AnalysisCache stores per-pattern analyses keyed by dataset fingerprint
// and pattern type. Each write lands on two keys: a fresh key with the
// standard TTL, and a longer-lived stale key that degraded-mode reads fall
// back to when the model is unreachable.
type AnalysisCache struct {
	cache  Cache
	logger *zap.Logger
}

// NewAnalysisCache wraps a generic cache with analysis-specific keying.
func NewAnalysisCache(cache Cache, logger *zap.Logger) *AnalysisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisCache{cache: cache, logger: logger}
}

func analysisKey(fingerprint string, t pattern.Type) string {
	return AnalysisPrefix + fingerprint + ":" + string(t)
}

func staleKey(fingerprint string, t pattern.Type) string {
	return StaleAnalysisPrefix + fingerprint + ":" + string(t)
}

// GetAnalysis returns the fresh cached analysis, or (nil, nil) on a miss.
// Storage errors other than a miss are returned to the caller.
func (c *AnalysisCache) GetAnalysis(ctx context.Context, fingerprint string, t pattern.Type) (*pattern.Analysis, error) {
	var analysis pattern.Analysis
	err := c.cache.GetJSON(ctx, analysisKey(fingerprint, t), &analysis)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// GetStaleAnalysis returns the last known analysis even if its fresh TTL
// has lapsed, or (nil, nil) when none survives.
func (c *AnalysisCache) GetStaleAnalysis(ctx context.Context, fingerprint string, t pattern.Type) (*pattern.Analysis, error) {
	var analysis pattern.Analysis
	err := c.cache.GetJSON(ctx, staleKey(fingerprint, t), &analysis)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// SetAnalysis writes both the fresh and stale keys. A failed write is
// logged but not fatal; analysis results remain valid without caching.
func (c *AnalysisCache) SetAnalysis(ctx context.Context, fingerprint string, t pattern.Type, analysis *pattern.Analysis) {
	if err := c.cache.SetJSON(ctx, analysisKey(fingerprint, t), analysis, AnalysisTTL); err != nil {
		c.logger.Warn("analysis cache write failed",
			zap.String("fingerprint", fingerprint),
			zap.String("pattern_type", string(t)),
			zap.Error(err))
		return
	}
	if err := c.cache.SetJSON(ctx, staleKey(fingerprint, t), analysis, StaleTTL); err != nil {
		c.logger.Warn("stale analysis cache write failed",
			zap.String("fingerprint", fingerprint),
			zap.String("pattern_type", string(t)),
			zap.Error(err))
	}
}

// Invalidate removes both keys for one (fingerprint, type) slot.
func (c *AnalysisCache) Invalidate(ctx context.Context, fingerprint string, t pattern.Type) error {
	if err := c.cache.Delete(ctx, analysisKey(fingerprint, t)); err != nil {
		return err
	}
	return c.cache.Delete(ctx, staleKey(fingerprint, t))
}
