package mining

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func tx(id, sender, receiver string, amount float64, at time.Time) transaction.Transaction {
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

func TestMineFrequentPairs(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	records := []transaction.Transaction{
		tx("t1", "A", "B", 500, baseTime),
		tx("t2", "A", "B", 700, baseTime.Add(1*time.Hour)),
		tx("t3", "A", "B", 900, baseTime.Add(2*time.Hour)),
		tx("t4", "C", "D", 100, baseTime),
		tx("t5", "C", "D", 100, baseTime.Add(time.Hour)),
		// reverse direction counts separately
		tx("t6", "B", "A", 500, baseTime),
	}

	pairs := svc.MineFrequentPairs(records)
	require.Len(t, pairs, 1)

	p := pairs[0]
	assert.Equal(t, "A", p.SenderID)
	assert.Equal(t, "B", p.ReceiverID)
	assert.Equal(t, 3, p.TransactionCount)
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(2100)), "total %s", p.TotalAmount)
	assert.True(t, p.AverageAmount.Equal(decimal.NewFromInt(700)), "avg %s", p.AverageAmount)
	assert.InDelta(t, 163.299, p.AmountStdDev, 0.001)
	assert.Equal(t, baseTime, p.FirstTransaction)
	assert.Equal(t, baseTime.Add(2*time.Hour), p.LastTransaction)
	assert.Len(t, p.SampleTransactions, 3)
}

func TestMineFrequentPairsOrdering(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	var records []transaction.Transaction
	for i := 0; i < 4; i++ {
		records = append(records, tx(fmt.Sprintf("x%d", i), "X", "Y", 100, baseTime.Add(time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 3; i++ {
		records = append(records, tx(fmt.Sprintf("a%d", i), "A", "B", 100, baseTime.Add(time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 3; i++ {
		records = append(records, tx(fmt.Sprintf("c%d", i), "C", "D", 100, baseTime.Add(time.Duration(i)*time.Hour)))
	}

	pairs := svc.MineFrequentPairs(records)
	require.Len(t, pairs, 3)
	assert.Equal(t, "X", pairs[0].SenderID)
	// equal counts break ties by pair key
	assert.Equal(t, "A", pairs[1].SenderID)
	assert.Equal(t, "C", pairs[2].SenderID)
}

func TestMineRoundAmounts(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	records := []transaction.Transaction{
		tx("t1", "A", "B", 1000, baseTime),
		tx("t2", "A", "B", 1500, baseTime),
		tx("t3", "A", "B", 5000, baseTime),
		tx("t4", "A", "B", 999.99, baseTime),
		tx("t5", "A", "B", 20000, baseTime),
	}

	matches := svc.MineRoundAmounts(records)
	require.Len(t, matches, 3)
	assert.Equal(t, "t1", matches[0].TransactionID)
	assert.Equal(t, "t3", matches[1].TransactionID)
	assert.Equal(t, "t5", matches[2].TransactionID)
}

func TestMineHighActivityPeriods(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	var records []transaction.Transaction
	// 12 transactions inside one hour from 2 distinct senders
	for i := 0; i < 12; i++ {
		sender, receiver := "A", "B"
		if i%2 == 1 {
			sender, receiver = "C", "D"
		}
		records = append(records, tx(fmt.Sprintf("h%d", i), sender, receiver, 100, baseTime.Add(time.Duration(i)*time.Minute)))
	}
	// a quiet hour stays below threshold
	records = append(records, tx("q1", "A", "B", 100, baseTime.Add(3*time.Hour)))

	periods := svc.MineHighActivityPeriods(records)
	require.Len(t, periods, 1)
	assert.Equal(t, baseTime.Truncate(time.Hour), periods[0].TimePeriod)
	assert.Equal(t, 12, periods[0].TransactionCount)
	// receivers do not count toward unique_users, only senders do
	assert.Equal(t, 2, periods[0].UniqueUsers)
	assert.True(t, periods[0].TotalAmount.Equal(decimal.NewFromInt(1200)))
	assert.Len(t, periods[0].SampleTransactions, 5)
}

func TestMineRepeatedAmounts(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	records := []transaction.Transaction{
		tx("t1", "A", "B", 750, baseTime),
		tx("t2", "C", "B", 750, baseTime.Add(time.Minute)),
		tx("t3", "D", "E", 750, baseTime.Add(2*time.Minute)),
		tx("t4", "A", "B", 300, baseTime),
		tx("t5", "A", "B", 300, baseTime),
	}

	matches := svc.MineRepeatedAmounts(records)
	require.Len(t, matches, 1)
	m := matches[0]
	assert.True(t, m.Amount.Equal(decimal.NewFromInt(750)))
	assert.Equal(t, 3, m.Frequency)
	assert.Equal(t, 3, m.UniqueSenders)
	assert.Equal(t, 2, m.UniqueReceivers)
}

func TestMineQuickSuccessive(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	records := []transaction.Transaction{
		tx("t1", "A", "B", 100, baseTime),
		tx("t2", "A", "C", 200, baseTime.Add(2*time.Minute)),  // 120s after t1
		tx("t3", "A", "B", 300, baseTime.Add(20*time.Minute)), // outside window
		tx("t4", "Z", "B", 400, baseTime.Add(21*time.Minute)), // first txn for Z
	}

	matches := svc.MineQuickSuccessive(records)
	require.Len(t, matches, 1)
	assert.Equal(t, "t2", matches[0].TransactionID)
	assert.Equal(t, 120.0, matches[0].TimeDiffSeconds)
}

// Three 1000-rupee transfers from the same sender to the same receiver two
// minutes apart should trip four of the five miners at once.
func TestMinePatternsOverlap(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	records := []transaction.Transaction{
		tx("t1", "A", "B", 1000, baseTime),
		tx("t2", "A", "B", 1000, baseTime.Add(2*time.Minute)),
		tx("t3", "A", "B", 1000, baseTime.Add(4*time.Minute)),
	}

	data, err := svc.MinePatterns(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, data.CountFor(pattern.TypeFrequentPairs))
	assert.Equal(t, 3, data.CountFor(pattern.TypeRoundAmounts))
	assert.Equal(t, 1, data.CountFor(pattern.TypeRepeatedAmounts))
	assert.Equal(t, 2, data.CountFor(pattern.TypeQuickSuccessive))
	assert.Equal(t, 0, data.CountFor(pattern.TypeHighActivity))
}

func TestMinePatternsDeterministic(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	var records []transaction.Transaction
	for i := 0; i < 40; i++ {
		sender := fmt.Sprintf("S%d", i%5)
		receiver := fmt.Sprintf("R%d", i%3)
		records = append(records, tx(fmt.Sprintf("t%d", i), sender, receiver, float64(100*(i%7+1)), baseTime.Add(time.Duration(i)*time.Minute)))
	}

	first, err := svc.MinePatterns(context.Background(), records)
	require.NoError(t, err)
	second, err := svc.MinePatterns(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMinePatternsEmptyDataset(t *testing.T) {
	svc := NewService(DefaultConfig(), nil)

	data, err := svc.MinePatterns(context.Background(), nil)
	require.NoError(t, err)
	for _, pt := range pattern.AllTypes() {
		assert.Zero(t, data.CountFor(pt), "type %s", pt)
	}
}
