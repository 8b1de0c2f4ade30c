package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
)

const defaultSummary = "analysis completed"

// rawAnalysis mirrors the JSON contract we ask the model to follow. Risk
// levels arrive as free-form strings and are normalized after decoding.
// Models sometimes answer with "threads" instead of "suspicious_threads",
// so both keys are accepted.
type rawAnalysis struct {
	SuspiciousThreads []rawThread `json:"suspicious_threads"`
	Threads           []rawThread `json:"threads"`
	RiskLevel         string      `json:"risk_level"`
	Summary           string      `json:"summary"`
	KeyInsights       []string    `json:"key_insights"`
}

type rawThread struct {
	ThreadID             string     `json:"thread_id"`
	Description          string     `json:"description"`
	Participants         stringList `json:"participants"`
	RiskLevel            string     `json:"risk_level"`
	Evidence             stringList `json:"evidence"`
	TransactionsInvolved stringList `json:"transactions_involved"`
	PotentialViolation   string     `json:"potential_violation"`
	ConfidenceScore      float64    `json:"confidence_score"`
	RecommendedAction    string     `json:"recommended_action"`
}

// stringList decodes a JSON string array, tolerating the shape drift models
// produce in practice: a bare string becomes a one-element list, and
// non-string list items (numeric transaction IDs, for example) are
// stringified. Decoding never fails, so a sloppy field cannot discard an
// otherwise valid verdict.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		*l = nil
		return nil
	}
	switch val := v.(type) {
	case nil:
		*l = nil
	case string:
		if val != "" {
			*l = stringList{val}
		}
	case []interface{}:
		out := make(stringList, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		*l = out
	default:
		*l = stringList{fmt.Sprint(val)}
	}
	return nil
}

// ParseAnalysis extracts a structured Analysis from raw model output.
// Markdown fences are stripped and the outermost JSON object is located by
// brace scanning, since models routinely wrap or pad their output. A
// response with no recoverable JSON yields the safe default rather than an
// error: no threads, low risk.
func ParseAnalysis(text string, t pattern.Type) (*pattern.Analysis, error) {
	cleaned := stripFences(text)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return defaultAnalysis(), fmt.Errorf("no JSON object in model output")
	}
	cleaned = cleaned[start : end+1]

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return defaultAnalysis(), fmt.Errorf("parse analysis JSON: %w", err)
	}

	rawThreads := raw.SuspiciousThreads
	if len(rawThreads) == 0 {
		rawThreads = raw.Threads
	}

	analysis := &pattern.Analysis{
		Threads:     make([]pattern.SuspiciousThread, 0, len(rawThreads)),
		RiskLevel:   pattern.ParseRiskLevel(raw.RiskLevel),
		Summary:     raw.Summary,
		KeyInsights: raw.KeyInsights,
	}
	if analysis.Summary == "" {
		analysis.Summary = defaultSummary
	}

	for i, rt := range rawThreads {
		th := pattern.SuspiciousThread{
			ThreadID:             rt.ThreadID,
			Description:          rt.Description,
			Participants:         rt.Participants,
			RiskLevel:            pattern.ParseRiskLevel(rt.RiskLevel),
			Evidence:             rt.Evidence,
			TransactionsInvolved: rt.TransactionsInvolved,
			PotentialViolation:   rt.PotentialViolation,
			PatternType:          t,
			ConfidenceScore:      clampScore(rt.ConfidenceScore),
			RecommendedAction:    rt.RecommendedAction,
		}
		if th.ThreadID == "" {
			th.ThreadID = fmt.Sprintf("%s_thread_%d", t, i+1)
		}
		analysis.Threads = append(analysis.Threads, th)
	}

	return analysis, nil
}

func defaultAnalysis() *pattern.Analysis {
	return &pattern.Analysis{
		Threads:   []pattern.SuspiciousThread{},
		RiskLevel: pattern.RiskLow,
		Summary:   defaultSummary,
	}
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
