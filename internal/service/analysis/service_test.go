package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	domainerrors "github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/cache"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/config"
	"github.com/patternlens/transaction-pattern-backend/internal/service/mining"
)

type stubModel struct {
	configured bool
	response   string
	err        error
	calls      atomic.Int32
}

func (m *stubModel) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *stubModel) Configured() bool { return m.configured }

// staleOnlyCache misses on fresh reads but serves a fixed stale analysis,
// simulating a slot whose fresh TTL has lapsed.
type staleOnlyCache struct {
	stale *pattern.Analysis
}

func (c *staleOnlyCache) GetAnalysis(ctx context.Context, fp string, t pattern.Type) (*pattern.Analysis, error) {
	return nil, nil
}

func (c *staleOnlyCache) GetStaleAnalysis(ctx context.Context, fp string, t pattern.Type) (*pattern.Analysis, error) {
	if c.stale == nil {
		return nil, nil
	}
	cp := *c.stale
	return &cp, nil
}

func (c *staleOnlyCache) SetAnalysis(ctx context.Context, fp string, t pattern.Type, a *pattern.Analysis) {
}

func analysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		MaxConcurrent:  3,
		TaskTimeout:    5 * time.Second,
		OverallTimeout: 30 * time.Second,
		RatePerSecond:  1000,
		RateBurst:      10,
	}
}

func testTx(id, sender, receiver string, amount float64, at time.Time) transaction.Transaction {
	return transaction.Transaction{
		ID:           id,
		SenderID:     sender,
		SenderName:   "Name " + sender,
		ReceiverID:   receiver,
		ReceiverName: "Name " + receiver,
		Amount:       decimal.NewFromFloat(amount),
		Currency:     "INR",
		Status:       "completed",
		CreatedAt:    at,
	}
}

// suspiciousDataset trips the frequent-pair, round-amount, repeated-amount
// and quick-succession miners but not the high-activity miner.
func suspiciousDataset() []transaction.Transaction {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return []transaction.Transaction{
		testTx("t1", "A", "B", 1000, base),
		testTx("t2", "A", "B", 1000, base.Add(2*time.Minute)),
		testTx("t3", "A", "B", 1000, base.Add(4*time.Minute)),
	}
}

func newTestService(t *testing.T, model ModelClient, records []transaction.Transaction) (*Service, ResultCache) {
	t.Helper()
	store := transaction.NewStore()
	if len(records) > 0 {
		require.NoError(t, store.Replace(records))
	}
	backend := cache.NewMemoryCache()
	t.Cleanup(func() { _ = backend.Close() })
	rc := cache.NewAnalysisCache(backend, nil)
	miner := mining.NewService(mining.DefaultConfig(), nil)
	return NewService(miner, model, rc, store, analysisConfig(), nil), rc
}

func TestAnalyzeWithoutDataset(t *testing.T) {
	svc, _ := newTestService(t, &stubModel{}, nil)

	_, err := svc.Analyze(context.Background())
	require.Error(t, err)
	assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeValidation))
}

func TestAnalyzeMockWhenModelUnconfigured(t *testing.T) {
	model := &stubModel{configured: false}
	svc, _ := newTestService(t, model, suspiciousDataset())

	result, err := svc.Analyze(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Mock)
	assert.False(t, result.Cached)
	assert.False(t, result.Partial)
	assert.Len(t, result.Patterns, 5)
	assert.Equal(t, int32(0), model.calls.Load(), "unconfigured model must never be called")
	assert.NotEmpty(t, result.Fingerprint)
}

func TestAnalyzeSecondRunServedFromCache(t *testing.T) {
	svc, _ := newTestService(t, &stubModel{configured: false}, suspiciousDataset())
	ctx := context.Background()

	first, err := svc.Analyze(ctx)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Analyze(ctx)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.False(t, second.Mock)
	assert.Equal(t, first.OverallAssessment.TotalThreads, second.OverallAssessment.TotalThreads)
	for _, pt := range pattern.AllTypes() {
		assert.Equal(t, pattern.SourceCached, second.Patterns[pt].Source, "type %s", pt)
	}
}

func TestAnalyzeLive(t *testing.T) {
	model := &stubModel{configured: true, response: validVerdict}
	svc, _ := newTestService(t, model, suspiciousDataset())

	result, err := svc.Analyze(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Mock)
	assert.False(t, result.Partial)
	assert.False(t, result.Cached)
	// high-activity has no matches and skips the model
	assert.Equal(t, int32(4), model.calls.Load())

	pairs := result.Patterns[pattern.TypeFrequentPairs]
	require.Len(t, pairs.Threads, 1)
	assert.Equal(t, pattern.SourceLive, pairs.Source)

	activity := result.Patterns[pattern.TypeHighActivity]
	assert.Empty(t, activity.Threads)
	assert.Equal(t, pattern.RiskLow, activity.RiskLevel)

	assert.Equal(t, pattern.RiskHigh, result.OverallAssessment.OverallRiskLevel)
	assert.Equal(t, 4, result.OverallAssessment.TotalThreads)
}

func TestAnalyzeFallsBackToMockOnModelError(t *testing.T) {
	model := &stubModel{configured: true, err: errors.New("upstream unavailable")}
	svc, _ := newTestService(t, model, suspiciousDataset())

	result, err := svc.Analyze(context.Background())
	require.NoError(t, err, "model failure must degrade, not fail the run")

	assert.True(t, result.Mock)
	assert.False(t, result.Partial)
	assert.Len(t, result.Patterns, 5)
}

func TestAnalyzeFallsBackToStaleCache(t *testing.T) {
	stale := &pattern.Analysis{
		Threads:   []pattern.SuspiciousThread{{ThreadID: "old_1", RiskLevel: pattern.RiskMedium, Description: "earlier verdict"}},
		RiskLevel: pattern.RiskMedium,
		Summary:   "previous analysis",
	}
	model := &stubModel{configured: true, err: errors.New("upstream unavailable")}

	store := transaction.NewStore()
	require.NoError(t, store.Replace(suspiciousDataset()))
	miner := mining.NewService(mining.DefaultConfig(), nil)
	svc := NewService(miner, model, &staleOnlyCache{stale: stale}, store, analysisConfig(), nil)

	result, err := svc.Analyze(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Partial)
	for _, pt := range pattern.AllTypes() {
		if pt == pattern.TypeHighActivity {
			continue // no matches, skipped before the model
		}
		a := result.Patterns[pt]
		assert.Equal(t, pattern.SourcePartial, a.Source, "type %s", pt)
		assert.Equal(t, "previous analysis", a.Summary, "type %s", pt)
	}
}

func TestAnalyzeProgressiveTerminalStates(t *testing.T) {
	model := &stubModel{configured: true, err: errors.New("boom")}
	svc, _ := newTestService(t, model, suspiciousDataset())

	prog, err := svc.AnalyzeProgressive(context.Background())
	require.NoError(t, err)

	require.Len(t, prog.Tasks, 5)
	for i, task := range prog.Tasks {
		assert.Equal(t, pattern.AllTypes()[i], task.Type, "tasks keep priority order")
		assert.True(t, task.State.Terminal(), "task %s ended in %s", task.Type, task.State)
		require.NotNil(t, task.Analysis, "task %s must carry an analysis", task.Type)
	}
}

func TestAnalyzeFingerprintIsolation(t *testing.T) {
	svc, _ := newTestService(t, &stubModel{configured: false}, suspiciousDataset())
	ctx := context.Background()

	first, err := svc.Analyze(ctx)
	require.NoError(t, err)
	_, err = svc.Analyze(ctx)
	require.NoError(t, err)

	// swapping the dataset changes the fingerprint and sidesteps the cache
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	other := []transaction.Transaction{
		testTx("x1", "P", "Q", 250, base),
		testTx("x2", "P", "Q", 250, base.Add(time.Hour)),
	}
	require.NoError(t, svc.store.Replace(other))

	third, err := svc.Analyze(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)
	assert.False(t, third.Cached)
}

func TestThreads(t *testing.T) {
	svc, _ := newTestService(t, &stubModel{configured: false}, suspiciousDataset())

	report, err := svc.Threads(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(report.Threads), report.TotalCount)
	total := 0
	for _, n := range report.RiskDistribution {
		total += n
	}
	assert.Equal(t, report.TotalCount, total)
}

func TestAnalyzeEmitsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	svc, _ := newTestService(t, &stubModel{configured: false}, suspiciousDataset())
	_, err := svc.Analyze(context.Background())
	require.NoError(t, err)

	var runSpans, taskSpans int
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "analysis.run":
			runSpans++
		case "analysis.task":
			taskSpans++
		}
	}
	assert.Equal(t, 1, runSpans)
	assert.Equal(t, 5, taskSpans, "one span per pattern type")
}

func TestBuildOverallAssessmentTopThreatsCap(t *testing.T) {
	result := &pattern.AnalysisResult{Patterns: map[pattern.Type]pattern.Analysis{}}

	var threads []pattern.SuspiciousThread
	for i := 0; i < 14; i++ {
		level := pattern.RiskLow
		if i < 3 {
			level = pattern.RiskHigh
		} else if i < 8 {
			level = pattern.RiskMedium
		}
		threads = append(threads, pattern.SuspiciousThread{
			ThreadID:        fmt.Sprintf("t%02d", i),
			RiskLevel:       level,
			ConfidenceScore: float64(i) / 20,
		})
	}
	result.Patterns[pattern.TypeFrequentPairs] = pattern.Analysis{Threads: threads, RiskLevel: pattern.RiskHigh, Summary: "s"}

	assessment := buildOverallAssessment(result)
	assert.Equal(t, 14, assessment.TotalThreads)
	assert.Equal(t, pattern.RiskHigh, assessment.OverallRiskLevel)
	require.Len(t, assessment.TopThreats, 10)
	assert.Equal(t, pattern.RiskHigh, assessment.TopThreats[0].RiskLevel)
	// within a severity band, higher confidence ranks first
	assert.GreaterOrEqual(t, assessment.TopThreats[0].ConfidenceScore, assessment.TopThreats[1].ConfidenceScore)
}
