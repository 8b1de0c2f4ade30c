package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
)

// Transaction is an immutable peer-to-peer payment record. Records are never
// mutated after ingestion; identity is the transaction ID.
type Transaction struct {
	ID           string          `json:"transaction_id" validate:"required"`
	SenderID     string          `json:"sender_id" validate:"required"`
	SenderName   string          `json:"sender_name"`
	ReceiverID   string          `json:"receiver_id" validate:"required"`
	ReceiverName string          `json:"receiver_name"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"payment_status"`
	UTRNumber    string          `json:"utr_number,omitempty"`
	Remarks      string          `json:"remarks,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Validate checks the invariants the struct tags cannot express.
// Well-formed input carries strictly positive amounts and a real timestamp.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return errors.NewValidationError("INVALID_TRANSACTION", "transaction_id is required")
	}
	if t.SenderID == "" || t.ReceiverID == "" {
		return errors.NewValidationError("INVALID_TRANSACTION", "sender_id and receiver_id are required").
			WithDetails(map[string]interface{}{"transaction_id": t.ID})
	}
	if !t.Amount.IsPositive() {
		return errors.NewValidationError("INVALID_TRANSACTION", "amount must be positive").
			WithDetails(map[string]interface{}{"transaction_id": t.ID, "amount": t.Amount.String()})
	}
	if t.CreatedAt.IsZero() {
		return errors.NewValidationError("INVALID_TRANSACTION", "created_at is required").
			WithDetails(map[string]interface{}{"transaction_id": t.ID})
	}
	return nil
}

// PairKey returns the directed (sender, receiver) grouping key.
func (t Transaction) PairKey() string {
	return t.SenderID + "->" + t.ReceiverID
}

// ProcessingTime returns the elapsed time between creation and last update,
// or zero when the record was never updated.
func (t Transaction) ProcessingTime() time.Duration {
	if t.UpdatedAt.IsZero() || t.UpdatedAt.Before(t.CreatedAt) {
		return 0
	}
	return t.UpdatedAt.Sub(t.CreatedAt)
}
