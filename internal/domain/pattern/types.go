package pattern

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies one of the mined behavioral pattern categories.
type Type string

const (
	TypeFrequentPairs   Type = "frequent_pairs"
	TypeRoundAmounts    Type = "round_amounts"
	TypeHighActivity    Type = "high_activity_periods"
	TypeRepeatedAmounts Type = "repeated_amounts"
	TypeQuickSuccessive Type = "quick_successive"
)

// AllTypes returns every pattern type in analysis priority order. Frequent
// pairs and quick-succession carry the most signal and run first so partial
// results cover them even when later calls time out.
func AllTypes() []Type {
	return []Type{
		TypeFrequentPairs,
		TypeQuickSuccessive,
		TypeRoundAmounts,
		TypeHighActivity,
		TypeRepeatedAmounts,
	}
}

// Valid reports whether t is a known pattern type.
func (t Type) Valid() bool {
	switch t {
	case TypeFrequentPairs, TypeRoundAmounts, TypeHighActivity, TypeRepeatedAmounts, TypeQuickSuccessive:
		return true
	}
	return false
}

// RiskLevel grades a thread or analysis.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity maps a risk level to a comparable rank. Unknown levels rank
// lowest so malformed model output can never dominate the aggregation.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

// MaxRiskLevel returns the highest-severity level among the arguments.
func MaxRiskLevel(levels ...RiskLevel) RiskLevel {
	max := RiskLow
	for _, l := range levels {
		if l.Severity() > max.Severity() {
			max = l
		}
	}
	return max
}

// ParseRiskLevel normalizes free-form model output to a known level,
// defaulting to low.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(s) {
	case RiskHigh:
		return RiskHigh
	case RiskMedium:
		return RiskMedium
	}
	return RiskLow
}

// SampleTransaction is a bounded excerpt of a matched transaction. Samples
// are always a small subset of the full match set to cap prompt size.
type SampleTransaction struct {
	TransactionID string          `json:"transaction_id"`
	SenderName    string          `json:"sender_name,omitempty"`
	ReceiverName  string          `json:"receiver_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
	Remarks       string          `json:"remarks,omitempty"`
}

// FrequentPair is a (sender, receiver) pair with at least the frequency
// threshold of transactions between them.
type FrequentPair struct {
	SenderID           string              `json:"sender_id"`
	ReceiverID         string              `json:"receiver_id"`
	SenderName         string              `json:"sender_name"`
	ReceiverName       string              `json:"receiver_name"`
	TransactionCount   int                 `json:"transaction_count"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	AverageAmount      decimal.Decimal     `json:"average_amount"`
	AmountStdDev       float64             `json:"amount_std"`
	FirstTransaction   time.Time           `json:"first_transaction"`
	LastTransaction    time.Time           `json:"last_transaction"`
	SampleTransactions []SampleTransaction `json:"sample_transactions"`
}

// RoundAmount flags a transaction whose amount is an exact multiple of the
// configured unit, a candidate structuring indicator.
type RoundAmount struct {
	TransactionID string          `json:"transaction_id"`
	SenderName    string          `json:"sender_name"`
	ReceiverName  string          `json:"receiver_name"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
	Remarks       string          `json:"remarks,omitempty"`
}

// HighActivityPeriod is an hour-aligned window with unusually many
// transactions.
type HighActivityPeriod struct {
	TimePeriod         time.Time           `json:"time_period"`
	TransactionCount   int                 `json:"transaction_count"`
	UniqueUsers        int                 `json:"unique_users"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	SampleTransactions []SampleTransaction `json:"sample_transactions"`
}

// RepeatedAmount groups transactions sharing an exact amount value.
// Sender/receiver cardinality separates automation from coincidence.
type RepeatedAmount struct {
	Amount             decimal.Decimal     `json:"amount"`
	Frequency          int                 `json:"frequency"`
	UniqueSenders      int                 `json:"unique_senders"`
	UniqueReceivers    int                 `json:"unique_receivers"`
	SampleTransactions []SampleTransaction `json:"sample_transactions"`
}

// QuickSuccessive flags a transaction issued within the configured window of
// the same sender's previous transaction. The first transaction of any
// sender has no predecessor and is never flagged.
type QuickSuccessive struct {
	TransactionID   string          `json:"transaction_id"`
	SenderName      string          `json:"sender_name"`
	ReceiverName    string          `json:"receiver_name"`
	Amount          decimal.Decimal `json:"amount"`
	TimeDiffSeconds float64         `json:"time_diff"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PatternData is the raw output of all five miners for one dataset snapshot.
type PatternData struct {
	FrequentPairs       []FrequentPair       `json:"frequent_pairs"`
	RoundAmounts        []RoundAmount        `json:"round_amounts"`
	HighActivityPeriods []HighActivityPeriod `json:"high_activity_periods"`
	RepeatedAmounts     []RepeatedAmount     `json:"repeated_amounts"`
	QuickSuccessive     []QuickSuccessive    `json:"quick_successive"`
}

// CountFor returns the number of matches mined for the given type.
func (d *PatternData) CountFor(t Type) int {
	switch t {
	case TypeFrequentPairs:
		return len(d.FrequentPairs)
	case TypeRoundAmounts:
		return len(d.RoundAmounts)
	case TypeHighActivity:
		return len(d.HighActivityPeriods)
	case TypeRepeatedAmounts:
		return len(d.RepeatedAmounts)
	case TypeQuickSuccessive:
		return len(d.QuickSuccessive)
	}
	return 0
}
