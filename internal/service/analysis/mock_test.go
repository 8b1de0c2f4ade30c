package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
)

func pairOf(count int) pattern.FrequentPair {
	return pattern.FrequentPair{
		SenderID:         "S1",
		ReceiverID:       "R1",
		SenderName:       "Alice",
		ReceiverName:     "Bob",
		TransactionCount: count,
		TotalAmount:      decimal.NewFromInt(int64(count * 1000)),
		AverageAmount:    decimal.NewFromInt(1000),
		FirstTransaction: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		LastTransaction:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestMockFrequentPairsThresholds(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		wantThreads int
		wantRisk    pattern.RiskLevel
	}{
		{"below threshold", 4, 0, pattern.RiskLow},
		{"medium", 5, 1, pattern.RiskMedium},
		{"high", 8, 1, pattern.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &pattern.PatternData{FrequentPairs: []pattern.FrequentPair{pairOf(tt.count)}}
			a := MockAnalysis(pattern.TypeFrequentPairs, data)
			assert.Len(t, a.Threads, tt.wantThreads)
			assert.Equal(t, tt.wantRisk, a.RiskLevel)
			assert.Equal(t, pattern.SourceMock, a.Source)
		})
	}
}

func TestMockFrequentPairsCapsThreads(t *testing.T) {
	var pairs []pattern.FrequentPair
	for i := 0; i < 6; i++ {
		p := pairOf(9)
		p.SenderName = fmt.Sprintf("Sender%d", i)
		pairs = append(pairs, p)
	}
	a := MockAnalysis(pattern.TypeFrequentPairs, &pattern.PatternData{FrequentPairs: pairs})
	assert.Len(t, a.Threads, 3)
}

func TestMockRoundAmountsThreshold(t *testing.T) {
	makeMatches := func(n int) []pattern.RoundAmount {
		matches := make([]pattern.RoundAmount, n)
		for i := range matches {
			matches[i] = pattern.RoundAmount{
				TransactionID: fmt.Sprintf("t%d", i),
				SenderName:    "Alice",
				ReceiverName:  "Bob",
				Amount:        decimal.NewFromInt(5000),
			}
		}
		return matches
	}

	a := MockAnalysis(pattern.TypeRoundAmounts, &pattern.PatternData{RoundAmounts: makeMatches(5)})
	assert.Empty(t, a.Threads)
	assert.Equal(t, pattern.RiskLow, a.RiskLevel)

	a = MockAnalysis(pattern.TypeRoundAmounts, &pattern.PatternData{RoundAmounts: makeMatches(6)})
	require.Len(t, a.Threads, 1)
	assert.Equal(t, pattern.RiskMedium, a.RiskLevel)
	assert.Equal(t, []string{"t0", "t1", "t2", "t3", "t4", "t5"}, a.Threads[0].TransactionsInvolved)
	assert.NotEmpty(t, a.Threads[0].Evidence)
	assert.Equal(t, []string{"Alice", "Bob"}, a.Threads[0].Participants)
}

func TestMockHighActivityRiskGrading(t *testing.T) {
	data := &pattern.PatternData{HighActivityPeriods: []pattern.HighActivityPeriod{
		{TimePeriod: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC), TransactionCount: 25, UniqueUsers: 8, TotalAmount: decimal.NewFromInt(90000)},
		{TimePeriod: time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC), TransactionCount: 12, UniqueUsers: 4, TotalAmount: decimal.NewFromInt(20000)},
		{TimePeriod: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC), TransactionCount: 30, UniqueUsers: 9, TotalAmount: decimal.NewFromInt(120000)},
	}}
	a := MockAnalysis(pattern.TypeHighActivity, data)
	// only the top two periods are considered
	require.Len(t, a.Threads, 2)
	assert.Equal(t, pattern.RiskHigh, a.Threads[0].RiskLevel)
	assert.Equal(t, pattern.RiskMedium, a.Threads[1].RiskLevel)
	assert.Equal(t, pattern.RiskHigh, a.RiskLevel)
}

func TestMockAnalysisDeterministic(t *testing.T) {
	data := &pattern.PatternData{
		FrequentPairs: []pattern.FrequentPair{pairOf(9)},
		QuickSuccessive: func() []pattern.QuickSuccessive {
			var qs []pattern.QuickSuccessive
			for i := 0; i < 12; i++ {
				qs = append(qs, pattern.QuickSuccessive{TransactionID: fmt.Sprintf("q%d", i)})
			}
			return qs
		}(),
	}
	for _, pt := range pattern.AllTypes() {
		first := MockAnalysis(pt, data)
		second := MockAnalysis(pt, data)
		assert.Equal(t, first, second, "type %s", pt)
	}
}
