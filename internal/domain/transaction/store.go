package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/errors"
)

// Store holds the active transaction dataset. It is the shared, read-only
// input to all pattern miners; replacing the dataset swaps the whole table
// and changes the fingerprint, which partitions every cache namespace.
type Store struct {
	mu          sync.RWMutex
	records     []Transaction
	fingerprint string
	loadedAt    time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace validates and installs a new dataset, recomputing the fingerprint.
// Records are sorted by (created_at, id) so every downstream scan sees a
// deterministic ordering regardless of the input file's row order.
func (s *Store) Replace(records []Transaction) error {
	if len(records) == 0 {
		return errors.ErrEmptyDataset
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return errors.NewValidationError("DUPLICATE_TRANSACTION", "duplicate transaction_id in dataset").
				WithDetails(map[string]interface{}{"transaction_id": r.ID})
		}
		seen[r.ID] = struct{}{}
	}

	sorted := make([]Transaction, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	s.mu.Lock()
	s.records = sorted
	s.fingerprint = fingerprintOf(sorted)
	s.loadedAt = time.Now()
	s.mu.Unlock()

	return nil
}

// Snapshot returns a copy of the current dataset. Callers own the slice and
// may scan it without holding any lock.
func (s *Store) Snapshot() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Transaction, len(s.records))
	copy(out, s.records)
	return out
}

// Fingerprint returns the stable identifier of the active dataset, or ""
// when no dataset is loaded.
func (s *Store) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint
}

// Len returns the number of records in the active dataset.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Empty reports whether a dataset is loaded.
func (s *Store) Empty() bool {
	return s.Len() == 0
}

// LoadedAt returns when the active dataset was installed.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// fingerprintOf hashes the identifying fields of every record. The input is
// already sorted, so identical datasets always hash identically.
func fingerprintOf(records []Transaction) string {
	h := sha256.New()
	for _, r := range records {
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
		h.Write([]byte(r.Amount.String()))
		h.Write([]byte{0})
		h.Write([]byte(r.CreatedAt.UTC().Format(time.RFC3339Nano)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
