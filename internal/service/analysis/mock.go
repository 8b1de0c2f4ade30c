package analysis

import (
	"fmt"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
)

// Mock thresholds: only the strongest signals become threads, so mock mode
// stays conservative instead of flooding reviewers with noise.
const (
	mockPairMinCount      = 5
	mockPairHighCount     = 8
	mockMaxPairThreads    = 3
	mockRoundMinCount     = 6
	mockActivityMinCount  = 11
	mockActivityHighCount = 20
	mockMaxActivity       = 2
	mockRepeatedMinFreq   = 5
	mockQuickMinCount     = 11
	mockMaxTransactionIDs = 10
)

// MockAnalysis builds a deterministic rule-based analysis for one pattern
// type. It stands in for the model when no API key is configured and when
// every live fallback has been exhausted, so identical pattern data always
// yields the identical verdict.
func MockAnalysis(t pattern.Type, data *pattern.PatternData) *pattern.Analysis {
	switch t {
	case pattern.TypeFrequentPairs:
		return mockFrequentPairs(data.FrequentPairs)
	case pattern.TypeRoundAmounts:
		return mockRoundAmounts(data.RoundAmounts)
	case pattern.TypeHighActivity:
		return mockHighActivity(data.HighActivityPeriods)
	case pattern.TypeRepeatedAmounts:
		return mockRepeatedAmounts(data.RepeatedAmounts)
	case pattern.TypeQuickSuccessive:
		return mockQuickSuccessive(data.QuickSuccessive)
	}
	return &pattern.Analysis{
		Threads:   []pattern.SuspiciousThread{},
		RiskLevel: pattern.RiskLow,
		Summary:   "no rule-based analysis available for this pattern type",
		Source:    pattern.SourceMock,
	}
}

func mockFrequentPairs(pairs []pattern.FrequentPair) *pattern.Analysis {
	threads := []pattern.SuspiciousThread{}
	for i, p := range pairs {
		if i >= mockMaxPairThreads {
			break
		}
		if p.TransactionCount < mockPairMinCount {
			continue
		}
		risk := pattern.RiskMedium
		confidence := 0.6
		if p.TransactionCount >= mockPairHighCount {
			risk = pattern.RiskHigh
			confidence = 0.8
		}
		threads = append(threads, pattern.SuspiciousThread{
			ThreadID: fmt.Sprintf("%s_thread_%d", pattern.TypeFrequentPairs, len(threads)+1),
			Description: fmt.Sprintf("%d transactions between %s and %s totaling %s",
				p.TransactionCount, p.SenderName, p.ReceiverName, p.TotalAmount),
			Participants: []string{p.SenderName, p.ReceiverName},
			RiskLevel:    risk,
			Evidence: []string{
				fmt.Sprintf("%d transfers between %s and %s", p.TransactionCount, p.FirstTransaction.Format("2006-01-02"), p.LastTransaction.Format("2006-01-02")),
				fmt.Sprintf("total %s, average %s per transfer", p.TotalAmount, p.AverageAmount),
			},
			TransactionsInvolved: sampleIDs(p.SampleTransactions),
			PotentialViolation:   "possible layering or mule account activity",
			PatternType:          pattern.TypeFrequentPairs,
			ConfidenceScore:      confidence,
			RecommendedAction:    "review account relationship and transaction justification",
		})
	}
	return mockResult(threads, pattern.TypeFrequentPairs,
		fmt.Sprintf("rule-based review of %d frequent sender/receiver pairs", len(pairs)))
}

func mockRoundAmounts(matches []pattern.RoundAmount) *pattern.Analysis {
	threads := []pattern.SuspiciousThread{}
	if len(matches) >= mockRoundMinCount {
		participants := participantNames(matches)
		threads = append(threads, pattern.SuspiciousThread{
			ThreadID:             fmt.Sprintf("%s_thread_1", pattern.TypeRoundAmounts),
			Description:          fmt.Sprintf("%d transactions used exact round amounts", len(matches)),
			Participants:         participants,
			RiskLevel:            pattern.RiskMedium,
			Evidence:             []string{fmt.Sprintf("%d round-amount transfers detected", len(matches))},
			TransactionsInvolved: roundAmountIDs(matches),
			PotentialViolation:   "possible structuring below reporting thresholds",
			PatternType:          pattern.TypeRoundAmounts,
			ConfidenceScore:      0.5,
			RecommendedAction:    "check whether amounts cluster below a reporting limit",
		})
	}
	return mockResult(threads, pattern.TypeRoundAmounts,
		fmt.Sprintf("rule-based review of %d round-amount transactions", len(matches)))
}

func mockHighActivity(periods []pattern.HighActivityPeriod) *pattern.Analysis {
	threads := []pattern.SuspiciousThread{}
	for i, p := range periods {
		if i >= mockMaxActivity {
			break
		}
		if p.TransactionCount < mockActivityMinCount {
			continue
		}
		risk := pattern.RiskMedium
		confidence := 0.55
		if p.TransactionCount >= mockActivityHighCount {
			risk = pattern.RiskHigh
			confidence = 0.75
		}
		threads = append(threads, pattern.SuspiciousThread{
			ThreadID: fmt.Sprintf("%s_thread_%d", pattern.TypeHighActivity, len(threads)+1),
			Description: fmt.Sprintf("%d transactions from %d users within the hour starting %s",
				p.TransactionCount, p.UniqueUsers, p.TimePeriod.Format("2006-01-02 15:00")),
			Participants:         []string{},
			RiskLevel:            risk,
			Evidence:             []string{fmt.Sprintf("hourly volume %d, total amount %s", p.TransactionCount, p.TotalAmount)},
			TransactionsInvolved: sampleIDs(p.SampleTransactions),
			PotentialViolation:   "possible coordinated or automated transfers",
			PatternType:          pattern.TypeHighActivity,
			ConfidenceScore:      confidence,
			RecommendedAction:    "correlate the burst with known settlement or campaign events",
		})
	}
	return mockResult(threads, pattern.TypeHighActivity,
		fmt.Sprintf("rule-based review of %d high-activity windows", len(periods)))
}

func mockRepeatedAmounts(matches []pattern.RepeatedAmount) *pattern.Analysis {
	threads := []pattern.SuspiciousThread{}
	for _, m := range matches {
		if len(threads) >= 1 {
			break
		}
		if m.Frequency < mockRepeatedMinFreq || m.UniqueSenders < 2 {
			continue
		}
		threads = append(threads, pattern.SuspiciousThread{
			ThreadID: fmt.Sprintf("%s_thread_1", pattern.TypeRepeatedAmounts),
			Description: fmt.Sprintf("amount %s repeated %d times across %d senders",
				m.Amount, m.Frequency, m.UniqueSenders),
			Participants:         []string{},
			RiskLevel:            pattern.RiskMedium,
			Evidence:             []string{fmt.Sprintf("%d occurrences of %s from %d senders to %d receivers", m.Frequency, m.Amount, m.UniqueSenders, m.UniqueReceivers)},
			TransactionsInvolved: sampleIDs(m.SampleTransactions),
			PotentialViolation:   "possible scripted payouts or split payments",
			PatternType:          pattern.TypeRepeatedAmounts,
			ConfidenceScore:      0.5,
			RecommendedAction:    "inspect whether the senders share a common controller",
		})
	}
	return mockResult(threads, pattern.TypeRepeatedAmounts,
		fmt.Sprintf("rule-based review of %d repeated amounts", len(matches)))
}

func mockQuickSuccessive(matches []pattern.QuickSuccessive) *pattern.Analysis {
	threads := []pattern.SuspiciousThread{}
	if len(matches) >= mockQuickMinCount {
		threads = append(threads, pattern.SuspiciousThread{
			ThreadID:             fmt.Sprintf("%s_thread_1", pattern.TypeQuickSuccessive),
			Description:          fmt.Sprintf("%d transactions issued within minutes of the sender's previous transfer", len(matches)),
			Participants:         []string{},
			RiskLevel:            pattern.RiskMedium,
			Evidence:             []string{fmt.Sprintf("%d rapid-succession transfers detected", len(matches))},
			TransactionsInvolved: quickSuccessiveIDs(matches),
			PotentialViolation:   "possible account takeover or scripted draining",
			PatternType:          pattern.TypeQuickSuccessive,
			ConfidenceScore:      0.5,
			RecommendedAction:    "verify device and session continuity for the senders involved",
		})
	}
	return mockResult(threads, pattern.TypeQuickSuccessive,
		fmt.Sprintf("rule-based review of %d quick-succession transactions", len(matches)))
}

func mockResult(threads []pattern.SuspiciousThread, t pattern.Type, summary string) *pattern.Analysis {
	risk := pattern.RiskLow
	for _, th := range threads {
		risk = pattern.MaxRiskLevel(risk, th.RiskLevel)
	}
	return &pattern.Analysis{
		Threads:   threads,
		RiskLevel: risk,
		Summary:   summary,
		Source:    pattern.SourceMock,
	}
}

func sampleIDs(samples []pattern.SampleTransaction) []string {
	ids := make([]string, 0, len(samples))
	for _, s := range samples {
		ids = append(ids, s.TransactionID)
	}
	return ids
}

func roundAmountIDs(matches []pattern.RoundAmount) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(ids) == mockMaxTransactionIDs {
			break
		}
		ids = append(ids, m.TransactionID)
	}
	return ids
}

func quickSuccessiveIDs(matches []pattern.QuickSuccessive) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(ids) == mockMaxTransactionIDs {
			break
		}
		ids = append(ids, m.TransactionID)
	}
	return ids
}

// participantNames collects distinct names from round-amount matches,
// preserving first-seen order and capping the list.
func participantNames(matches []pattern.RoundAmount) []string {
	const limit = 6
	seen := make(map[string]struct{})
	names := []string{}
	for _, m := range matches {
		for _, n := range []string{m.SenderName, m.ReceiverName} {
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
			if len(names) == limit {
				return names
			}
		}
	}
	return names
}
