package transaction

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SummaryStats describes the active dataset at a glance. It feeds both the
// summary endpoint and the dataset-context block of every analysis prompt.
type SummaryStats struct {
	TotalTransactions int               `json:"total_transactions"`
	UniqueSenders     int               `json:"unique_senders"`
	UniqueReceivers   int               `json:"unique_receivers"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	AverageAmount     decimal.Decimal   `json:"average_amount"`
	DateRange         DateRange         `json:"date_range"`
	PaymentStatuses   map[string]int    `json:"payment_statuses"`
	TopSenders        []NameCount       `json:"top_senders"`
	TopAmounts        []AmountFrequency `json:"top_amounts"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AmountFrequency struct {
	Amount    decimal.Decimal `json:"amount"`
	Frequency int             `json:"frequency"`
}

const summaryTopN = 5

// Summarize computes summary statistics over a dataset snapshot.
func Summarize(records []Transaction) SummaryStats {
	stats := SummaryStats{
		TotalTransactions: len(records),
		TotalAmount:       decimal.Zero,
		AverageAmount:     decimal.Zero,
		PaymentStatuses:   make(map[string]int),
	}
	if len(records) == 0 {
		return stats
	}

	senders := make(map[string]struct{})
	receivers := make(map[string]struct{})
	senderCounts := make(map[string]int)
	amountCounts := make(map[string]int)
	amountValues := make(map[string]decimal.Decimal)

	stats.DateRange.Start = records[0].CreatedAt
	stats.DateRange.End = records[0].CreatedAt

	for _, r := range records {
		senders[r.SenderID] = struct{}{}
		receivers[r.ReceiverID] = struct{}{}
		senderCounts[r.SenderName]++
		key := r.Amount.String()
		amountCounts[key]++
		amountValues[key] = r.Amount
		stats.TotalAmount = stats.TotalAmount.Add(r.Amount)
		stats.PaymentStatuses[r.Status]++

		if r.CreatedAt.Before(stats.DateRange.Start) {
			stats.DateRange.Start = r.CreatedAt
		}
		if r.CreatedAt.After(stats.DateRange.End) {
			stats.DateRange.End = r.CreatedAt
		}
	}

	stats.UniqueSenders = len(senders)
	stats.UniqueReceivers = len(receivers)
	stats.AverageAmount = stats.TotalAmount.DivRound(decimal.NewFromInt(int64(len(records))), 2)

	for name, count := range senderCounts {
		stats.TopSenders = append(stats.TopSenders, NameCount{Name: name, Count: count})
	}
	sort.Slice(stats.TopSenders, func(i, j int) bool {
		if stats.TopSenders[i].Count != stats.TopSenders[j].Count {
			return stats.TopSenders[i].Count > stats.TopSenders[j].Count
		}
		return stats.TopSenders[i].Name < stats.TopSenders[j].Name
	})
	if len(stats.TopSenders) > summaryTopN {
		stats.TopSenders = stats.TopSenders[:summaryTopN]
	}

	for key, count := range amountCounts {
		stats.TopAmounts = append(stats.TopAmounts, AmountFrequency{Amount: amountValues[key], Frequency: count})
	}
	sort.Slice(stats.TopAmounts, func(i, j int) bool {
		if stats.TopAmounts[i].Frequency != stats.TopAmounts[j].Frequency {
			return stats.TopAmounts[i].Frequency > stats.TopAmounts[j].Frequency
		}
		return stats.TopAmounts[i].Amount.LessThan(stats.TopAmounts[j].Amount)
	})
	if len(stats.TopAmounts) > summaryTopN*2 {
		stats.TopAmounts = stats.TopAmounts[:summaryTopN*2]
	}

	return stats
}
