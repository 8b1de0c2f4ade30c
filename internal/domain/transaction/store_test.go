package transaction

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
)

var testBase = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func record(id string, at time.Time) Transaction {
	return Transaction{
		ID:           id,
		SenderID:     "A",
		SenderName:   "Alice",
		ReceiverID:   "B",
		ReceiverName: "Bob",
		Amount:       decimal.NewFromInt(100),
		Currency:     "INR",
		Status:       "completed",
		CreatedAt:    at,
	}
}

func TestStoreReplaceSortsRecords(t *testing.T) {
	s := NewStore()
	records := []Transaction{
		record("t3", testBase.Add(2*time.Hour)),
		record("t1", testBase),
		record("t2", testBase.Add(time.Hour)),
	}
	require.NoError(t, s.Replace(records))

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "t1", snapshot[0].ID)
	assert.Equal(t, "t2", snapshot[1].ID)
	assert.Equal(t, "t3", snapshot[2].ID)
}

func TestStoreFingerprintIgnoresInputOrder(t *testing.T) {
	a := NewStore()
	b := NewStore()

	records := []Transaction{
		record("t1", testBase),
		record("t2", testBase.Add(time.Hour)),
		record("t3", testBase.Add(2*time.Hour)),
	}
	reversed := []Transaction{records[2], records[1], records[0]}

	require.NoError(t, a.Replace(records))
	require.NoError(t, b.Replace(reversed))

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}

func TestStoreFingerprintChangesWithDataset(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Replace([]Transaction{record("t1", testBase)}))
	first := s.Fingerprint()

	require.NoError(t, s.Replace([]Transaction{record("t1", testBase), record("t2", testBase.Add(time.Minute))}))
	assert.NotEqual(t, first, s.Fingerprint())
}

func TestStoreReplaceRejectsBadInput(t *testing.T) {
	s := NewStore()

	err := s.Replace(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	dup := []Transaction{record("t1", testBase), record("t1", testBase.Add(time.Minute))}
	err = s.Replace(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	bad := record("t2", testBase)
	bad.Amount = decimal.NewFromInt(-5)
	err = s.Replace([]Transaction{bad})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	// a failed replace leaves the store empty
	assert.True(t, s.Empty())
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Replace([]Transaction{record("t1", testBase)}))

	snapshot := s.Snapshot()
	snapshot[0].SenderName = "tampered"

	assert.Equal(t, "Alice", s.Snapshot()[0].SenderName)
}

func TestSummarize(t *testing.T) {
	records := []Transaction{
		record("t1", testBase),
		record("t2", testBase.Add(time.Hour)),
		{
			ID: "t3", SenderID: "C", SenderName: "Carol", ReceiverID: "A", ReceiverName: "Alice",
			Amount: decimal.NewFromInt(400), Status: "pending", CreatedAt: testBase.Add(2 * time.Hour),
		},
	}

	stats := Summarize(records)
	assert.Equal(t, 3, stats.TotalTransactions)
	assert.Equal(t, 2, stats.UniqueSenders)
	assert.Equal(t, 2, stats.UniqueReceivers)
	assert.True(t, stats.TotalAmount.Equal(decimal.NewFromInt(600)))
	assert.True(t, stats.AverageAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, testBase, stats.DateRange.Start)
	assert.Equal(t, testBase.Add(2*time.Hour), stats.DateRange.End)
	assert.Equal(t, map[string]int{"completed": 2, "pending": 1}, stats.PaymentStatuses)

	require.NotEmpty(t, stats.TopSenders)
	assert.Equal(t, NameCount{Name: "Alice", Count: 2}, stats.TopSenders[0])

	require.NotEmpty(t, stats.TopAmounts)
	assert.True(t, stats.TopAmounts[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2, stats.TopAmounts[0].Frequency)
}

func TestSummarizeCapsTopLists(t *testing.T) {
	var records []Transaction
	for i := 0; i < 12; i++ {
		tx := record(fmt.Sprintf("t%d", i), testBase.Add(time.Duration(i)*time.Minute))
		tx.SenderID = fmt.Sprintf("S%d", i)
		tx.SenderName = fmt.Sprintf("Sender %d", i)
		tx.Amount = decimal.NewFromInt(int64(100 + i))
		records = append(records, tx)
	}

	stats := Summarize(records)
	assert.Len(t, stats.TopSenders, 5)
	assert.Len(t, stats.TopAmounts, 10)
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)
	assert.Equal(t, 0, stats.TotalTransactions)
	assert.True(t, stats.TotalAmount.IsZero())
	assert.Empty(t, stats.TopSenders)
}
