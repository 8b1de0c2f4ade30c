package pattern

import (
	"sort"
	"time"
)

// Source records how an Analysis was produced.
type Source string

const (
	SourceLive    Source = "live"
	SourceMock    Source = "mock"
	SourceCached  Source = "cached"
	SourcePartial Source = "partial"
)

// SuspiciousThread is one investigable finding inside an analysis.
// Evidence lists concrete observations; TransactionsInvolved lists the IDs
// of the transactions behind the finding.
type SuspiciousThread struct {
	ThreadID             string    `json:"thread_id"`
	Description          string    `json:"description"`
	Participants         []string  `json:"participants"`
	RiskLevel            RiskLevel `json:"risk_level"`
	Evidence             []string  `json:"evidence"`
	TransactionsInvolved []string  `json:"transactions_involved"`
	PotentialViolation   string    `json:"potential_violation"`
	PatternType          Type      `json:"pattern_type,omitempty"`
	ConfidenceScore      float64   `json:"confidence_score"`
	RecommendedAction    string    `json:"recommended_action"`
}

// Analysis is the structured verdict for a single pattern type.
type Analysis struct {
	Threads     []SuspiciousThread `json:"suspicious_threads"`
	RiskLevel   RiskLevel          `json:"risk_level"`
	Summary     string             `json:"summary"`
	KeyInsights []string           `json:"key_insights,omitempty"`
	Source      Source             `json:"source,omitempty"`
}

// PatternSummary condenses one per-type analysis for the overview block.
type PatternSummary struct {
	ThreadCount int       `json:"thread_count"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Summary     string    `json:"summary"`
}

// OverallAssessment aggregates the per-type analyses into a single verdict.
type OverallAssessment struct {
	TotalThreads     int                     `json:"total_suspicious_threads"`
	OverallRiskLevel RiskLevel               `json:"overall_risk_level"`
	ExecutiveSummary string                  `json:"executive_summary"`
	PatternSummary   map[Type]PatternSummary `json:"pattern_summary"`
	TopThreats       []SuspiciousThread      `json:"top_threats"`
}

// AnalysisResult is the full output of one analysis run over a dataset.
type AnalysisResult struct {
	Patterns          map[Type]Analysis `json:"patterns"`
	OverallAssessment OverallAssessment `json:"overall_assessment"`
	Fingerprint       string            `json:"dataset_fingerprint"`
	GeneratedAt       time.Time         `json:"generated_at"`
	Cached            bool              `json:"-"`
	Mock              bool              `json:"-"`
	Partial           bool              `json:"-"`
}

// AllThreads returns every thread across pattern types in deterministic
// order: severity descending, then confidence descending, then thread ID.
func (r *AnalysisResult) AllThreads() []SuspiciousThread {
	var threads []SuspiciousThread
	for _, t := range AllTypes() {
		if a, ok := r.Patterns[t]; ok {
			threads = append(threads, a.Threads...)
		}
	}
	sort.SliceStable(threads, func(i, j int) bool {
		si, sj := threads[i].RiskLevel.Severity(), threads[j].RiskLevel.Severity()
		if si != sj {
			return si > sj
		}
		if threads[i].ConfidenceScore != threads[j].ConfidenceScore {
			return threads[i].ConfidenceScore > threads[j].ConfidenceScore
		}
		return threads[i].ThreadID < threads[j].ThreadID
	})
	return threads
}

// ThreadsReport is the flattened thread listing surfaced by the threads
// endpoint.
type ThreadsReport struct {
	Threads          []SuspiciousThread `json:"suspicious_threads"`
	TotalCount       int                `json:"total_count"`
	RiskDistribution map[RiskLevel]int  `json:"risk_distribution"`
}

// BuildThreadsReport flattens a result into a ThreadsReport.
func BuildThreadsReport(r *AnalysisResult) ThreadsReport {
	threads := r.AllThreads()
	dist := map[RiskLevel]int{RiskLow: 0, RiskMedium: 0, RiskHigh: 0}
	for _, th := range threads {
		dist[th.RiskLevel]++
	}
	return ThreadsReport{
		Threads:          threads,
		TotalCount:       len(threads),
		RiskDistribution: dist,
	}
}
