package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/config"
	"github.com/patternlens/transaction-pattern-backend/internal/metrics"
)

const topThreatsLimit = 10

// Service orchestrates pattern mining, model interpretation, caching, and
// aggregation into a single analysis result.
type Service struct {
	miner   PatternMiner
	model   ModelClient
	cache   ResultCache
	store   *transaction.Store
	cfg     config.AnalysisConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer

	mu         sync.RWMutex
	lastResult *pattern.AnalysisResult
}

// ProgressiveResult pairs a full analysis result with the per-task states
// the scheduler went through to produce it.
type ProgressiveResult struct {
	Result *pattern.AnalysisResult
	Tasks  []TaskResult
}

// NewService wires the orchestrator. The rate limiter spaces out live model
// calls across all tasks in a run.
func NewService(miner PatternMiner, model ModelClient, cache ResultCache, store *transaction.Store, cfg config.AnalysisConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Service{
		miner:   miner,
		model:   model,
		cache:   cache,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
		tracer:  otel.Tracer("service.analysis"),
	}
}

// Patterns mines the current dataset without any model involvement.
func (s *Service) Patterns(ctx context.Context) (*pattern.PatternData, error) {
	records, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return s.miner.MinePatterns(ctx, records)
}

// Analyze runs the full pipeline: mine, interpret every pattern type, and
// aggregate. All five types run under the configured concurrency bound and
// the overall deadline; each one is guaranteed to produce an analysis, live
// or degraded.
func (s *Service) Analyze(ctx context.Context) (*pattern.AnalysisResult, error) {
	prog, err := s.AnalyzeProgressive(ctx)
	if err != nil {
		return nil, err
	}
	return prog.Result, nil
}

// AnalyzeProgressive is Analyze with the scheduler's per-task outcomes
// exposed, for callers that surface analysis progress.
func (s *Service) AnalyzeProgressive(ctx context.Context) (*ProgressiveResult, error) {
	records, fingerprint, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(
			attribute.String("dataset.fingerprint", fingerprint),
			attribute.Int("dataset.size", len(records)),
		))
	defer span.End()

	overall := s.cfg.OverallTimeout
	if overall <= 0 {
		overall = 75 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	data, err := s.miner.MinePatterns(ctx, records)
	if err != nil {
		span.SetStatus(codes.Error, "pattern mining failed")
		return nil, errors.NewInternalError("pattern mining failed").WithCause(err)
	}

	stats := transaction.Summarize(records)

	start := time.Now()
	tasks := s.runScheduled(ctx, fingerprint, data, stats, s.cfg.MaxConcurrent)
	metrics.RecordAnalysisRun(time.Since(start))

	result := &pattern.AnalysisResult{
		Patterns:    make(map[pattern.Type]pattern.Analysis, len(tasks)),
		Fingerprint: fingerprint,
		GeneratedAt: time.Now().UTC(),
		Cached:      len(tasks) > 0,
	}
	for _, task := range tasks {
		metrics.RecordTaskOutcome(string(task.Type), string(task.State))
		result.Patterns[task.Type] = *task.Analysis
		switch task.State {
		case TaskCacheHit:
		case TaskFallbackMock:
			result.Cached = false
			result.Mock = true
		case TaskFallbackPartial:
			result.Cached = false
			result.Partial = true
		default:
			result.Cached = false
		}
	}
	result.OverallAssessment = buildOverallAssessment(result)
	span.SetAttributes(
		attribute.Int("analysis.total_threads", result.OverallAssessment.TotalThreads),
		attribute.String("analysis.overall_risk", string(result.OverallAssessment.OverallRiskLevel)),
		attribute.Bool("analysis.cached", result.Cached),
		attribute.Bool("analysis.mock", result.Mock),
		attribute.Bool("analysis.partial", result.Partial),
	)

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "analysis complete",
		slog.String("fingerprint", fingerprint),
		slog.Int("total_threads", result.OverallAssessment.TotalThreads),
		slog.String("overall_risk", string(result.OverallAssessment.OverallRiskLevel)),
		slog.Bool("cached", result.Cached),
		slog.Bool("mock", result.Mock),
		slog.Bool("partial", result.Partial),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &ProgressiveResult{Result: result, Tasks: tasks}, nil
}

// Threads returns the flattened thread listing for the current dataset,
// running a full analysis when none has been produced for it yet.
func (s *Service) Threads(ctx context.Context) (pattern.ThreadsReport, error) {
	_, fingerprint, err := s.snapshot()
	if err != nil {
		return pattern.ThreadsReport{}, err
	}

	s.mu.RLock()
	last := s.lastResult
	s.mu.RUnlock()

	if last == nil || last.Fingerprint != fingerprint {
		result, err := s.Analyze(ctx)
		if err != nil {
			return pattern.ThreadsReport{}, err
		}
		last = result
	}
	return pattern.BuildThreadsReport(last), nil
}

// LastResult returns the most recent analysis, or nil.
func (s *Service) LastResult() *pattern.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult
}

func (s *Service) snapshot() ([]transaction.Transaction, string, error) {
	if s.store.Empty() {
		return nil, "", errors.ErrNoDataset
	}
	return s.store.Snapshot(), s.store.Fingerprint(), nil
}

// analyzeType resolves one pattern type to an analysis. The state flow is
// cache, then empty-skip, then live model, then stale-cache, then mock;
// the final fallback cannot fail, so the task always terminates with an
// analysis in hand.
func (s *Service) analyzeType(ctx context.Context, fingerprint string, t pattern.Type, data *pattern.PatternData, stats transaction.SummaryStats) TaskResult {
	ctx, span := s.tracer.Start(ctx, "analysis.task",
		trace.WithAttributes(
			attribute.String("pattern.type", string(t)),
			attribute.Int("pattern.match_count", data.CountFor(t)),
		))
	defer span.End()

	result := s.resolveTask(ctx, fingerprint, t, data, stats)
	span.SetAttributes(attribute.String("task.state", string(result.State)))
	if result.Err != nil {
		span.RecordError(result.Err)
	}
	return result
}

// resolveTask walks the fallback ladder for one pattern type.
func (s *Service) resolveTask(ctx context.Context, fingerprint string, t pattern.Type, data *pattern.PatternData, stats transaction.SummaryStats) TaskResult {
	cached, err := s.cache.GetAnalysis(ctx, fingerprint, t)
	if err != nil {
		s.logger.WarnContext(ctx, "analysis cache read failed",
			slog.String("pattern_type", string(t)), slog.String("error", err.Error()))
	}
	metrics.RecordCacheLookup(cached != nil)
	if cached != nil {
		cached.Source = pattern.SourceCached
		return TaskResult{Type: t, State: TaskCacheHit, Analysis: cached}
	}

	if data.CountFor(t) == 0 {
		analysis := &pattern.Analysis{
			Threads:   []pattern.SuspiciousThread{},
			RiskLevel: pattern.RiskLow,
			Summary:   fmt.Sprintf("no %s patterns detected in the dataset", t),
		}
		s.cache.SetAnalysis(ctx, fingerprint, t, analysis)
		return TaskResult{Type: t, State: TaskSkipped, Analysis: analysis}
	}

	if !s.model.Configured() {
		analysis := MockAnalysis(t, data)
		s.cache.SetAnalysis(ctx, fingerprint, t, analysis)
		return TaskResult{Type: t, State: TaskFallbackMock, Analysis: analysis}
	}

	analysis, err := s.callModel(ctx, t, data, stats)
	if err == nil {
		analysis.Source = pattern.SourceLive
		s.cache.SetAnalysis(ctx, fingerprint, t, analysis)
		return TaskResult{Type: t, State: TaskSucceeded, Analysis: analysis}
	}

	s.logger.WarnContext(ctx, "model call failed, degrading",
		slog.String("pattern_type", string(t)), slog.String("error", err.Error()))

	stale, staleErr := s.cache.GetStaleAnalysis(ctx, fingerprint, t)
	if staleErr == nil && stale != nil {
		stale.Source = pattern.SourcePartial
		return TaskResult{Type: t, State: TaskFallbackPartial, Analysis: stale, Err: err}
	}

	analysis = MockAnalysis(t, data)
	return TaskResult{Type: t, State: TaskFallbackMock, Analysis: analysis, Err: err}
}

// callModel performs one rate-limited, deadline-bounded model call. A
// malformed model response is not an error: parsing degrades to the safe
// default analysis instead.
func (s *Service) callModel(ctx context.Context, t pattern.Type, data *pattern.PatternData, stats transaction.SummaryStats) (*pattern.Analysis, error) {
	taskTimeout := s.cfg.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = 25 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	callStart := time.Now()
	ctx, span := s.tracer.Start(ctx, "model.generate",
		trace.WithAttributes(attribute.String("pattern.type", string(t))))
	text, err := s.model.GenerateContent(ctx, BuildPrompt(t, data, stats))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		span.End()
		metrics.RecordModelCall("error", time.Since(callStart))
		return nil, err
	}
	span.End()
	metrics.RecordModelCall("success", time.Since(callStart))

	analysis, parseErr := ParseAnalysis(text, t)
	if parseErr != nil {
		s.logger.WarnContext(ctx, "model output parse failed, using safe defaults",
			slog.String("pattern_type", string(t)), slog.String("error", parseErr.Error()))
	}
	return analysis, nil
}

// buildOverallAssessment aggregates per-type analyses: thread totals, the
// maximum risk level observed, per-type digests, and the highest-severity
// threats capped for display.
func buildOverallAssessment(result *pattern.AnalysisResult) pattern.OverallAssessment {
	assessment := pattern.OverallAssessment{
		OverallRiskLevel: pattern.RiskLow,
		PatternSummary:   make(map[pattern.Type]pattern.PatternSummary, len(result.Patterns)),
	}

	typesWithThreads := 0
	for _, t := range pattern.AllTypes() {
		analysis, ok := result.Patterns[t]
		if !ok {
			continue
		}
		assessment.TotalThreads += len(analysis.Threads)
		if len(analysis.Threads) > 0 {
			typesWithThreads++
		}
		assessment.OverallRiskLevel = pattern.MaxRiskLevel(assessment.OverallRiskLevel, analysis.RiskLevel)
		assessment.PatternSummary[t] = pattern.PatternSummary{
			ThreadCount: len(analysis.Threads),
			RiskLevel:   analysis.RiskLevel,
			Summary:     analysis.Summary,
		}
	}

	threats := result.AllThreads()
	if len(threats) > topThreatsLimit {
		threats = threats[:topThreatsLimit]
	}
	assessment.TopThreats = threats

	assessment.ExecutiveSummary = fmt.Sprintf(
		"Analysis identified %d suspicious threads across %d pattern categories. Overall risk level: %s.",
		assessment.TotalThreads, typesWithThreads, assessment.OverallRiskLevel)

	return assessment
}
