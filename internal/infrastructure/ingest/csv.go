// Package ingest loads transaction datasets from CSV exports. Column names
// vary across payment providers (including a common "reciever" misspelling),
// so headers are matched through an alias table.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
)

// headerAliases maps CSV column names to canonical field names.
var headerAliases = map[string]string{
	"transaction_id": "id",
	"txn_id":         "id",
	"id":             "id",

	"sender_id": "sender_id",
	"user_id":   "sender_id",
	"from_id":   "sender_id",

	"sender_name": "sender_name",
	"user_name":   "sender_name",
	"from_name":   "sender_name",

	"receiver_id": "receiver_id",
	"reciever_id": "receiver_id",
	"to_id":       "receiver_id",

	"receiver_name": "receiver_name",
	"reciever_name": "receiver_name",
	"to_name":       "receiver_name",

	"amount":             "amount",
	"transaction_amount": "amount",

	"currency": "currency",

	"status":         "status",
	"payment_status": "status",

	"utr_number": "utr_number",
	"utr":        "utr_number",

	"remarks":     "remarks",
	"note":        "remarks",
	"description": "remarks",

	"created_at": "created_at",
	"timestamp":  "created_at",
	"date":       "created_at",

	"updated_at": "updated_at",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
}

// Loader parses CSV transaction exports.
type Loader struct {
	maxRecords int
}

// NewLoader creates a loader that rejects files above maxRecords rows.
func NewLoader(maxRecords int) *Loader {
	if maxRecords <= 0 {
		maxRecords = 100000
	}
	return &Loader{maxRecords: maxRecords}
}

// LoadFile reads and parses a CSV file from disk.
func (l *Loader) LoadFile(path string) ([]transaction.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return l.Load(f)
}

// Load parses CSV content into validated transactions. Rows missing an ID
// get a generated one; rows that fail validation abort the load with a
// row-numbered error.
func (l *Loader) Load(r io.Reader) ([]transaction.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewValidationError("EMPTY_FILE", "CSV file has no header row")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := columns[canonical]; !dup {
				columns[canonical] = i
			}
		}
	}
	for _, required := range []string{"sender_id", "receiver_id", "amount", "created_at"} {
		if _, ok := columns[required]; !ok {
			return nil, errors.NewValidationError("MISSING_COLUMN",
				fmt.Sprintf("CSV is missing a recognizable %q column", required))
		}
	}

	var records []transaction.Transaction
	row := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row+1, err)
		}
		row++

		if len(records) >= l.maxRecords {
			return nil, errors.NewValidationError("DATASET_TOO_LARGE",
				fmt.Sprintf("CSV exceeds the %d transaction limit", l.maxRecords))
		}

		tx, err := l.parseRow(columns, fields)
		if err != nil {
			return nil, errors.NewValidationError("INVALID_ROW",
				fmt.Sprintf("row %d: %v", row, err))
		}
		records = append(records, tx)
	}

	if len(records) == 0 {
		return nil, errors.ErrEmptyDataset
	}
	return records, nil
}

func (l *Loader) parseRow(columns map[string]int, fields []string) (transaction.Transaction, error) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	amount, err := decimal.NewFromString(get("amount"))
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("invalid amount %q", get("amount"))
	}

	createdAt, err := parseTime(get("created_at"))
	if err != nil {
		return transaction.Transaction{}, err
	}

	var updatedAt time.Time
	if raw := get("updated_at"); raw != "" {
		if parsed, err := parseTime(raw); err == nil {
			updatedAt = parsed
		}
	}

	tx := transaction.Transaction{
		ID:           get("id"),
		SenderID:     get("sender_id"),
		SenderName:   get("sender_name"),
		ReceiverID:   get("receiver_id"),
		ReceiverName: get("receiver_name"),
		Amount:       amount,
		Currency:     get("currency"),
		Status:       get("status"),
		UTRNumber:    get("utr_number"),
		Remarks:      get("remarks"),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.SenderName == "" {
		tx.SenderName = tx.SenderID
	}
	if tx.ReceiverName == "" {
		tx.ReceiverName = tx.ReceiverID
	}

	if err := tx.Validate(); err != nil {
		return transaction.Transaction{}, err
	}
	return tx, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
