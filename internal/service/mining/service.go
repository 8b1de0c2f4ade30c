package mining

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
)

// Service mines behavioral patterns from a transaction dataset. Miners are
// pure functions over an immutable snapshot, so results are deterministic
// for a given dataset and configuration.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

// NewService creates a mining service with the given thresholds.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg.withDefaults(), logger: logger}
}

// MinePatterns runs all five miners over the snapshot. The miners are
// independent and run concurrently; each writes a distinct field of the
// result, so no locking is needed beyond the WaitGroup.
func (s *Service) MinePatterns(ctx context.Context, records []transaction.Transaction) (*pattern.PatternData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	data := &pattern.PatternData{}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		data.FrequentPairs = s.MineFrequentPairs(records)
	}()
	go func() {
		defer wg.Done()
		data.RoundAmounts = s.MineRoundAmounts(records)
	}()
	go func() {
		defer wg.Done()
		data.HighActivityPeriods = s.MineHighActivityPeriods(records)
	}()
	go func() {
		defer wg.Done()
		data.RepeatedAmounts = s.MineRepeatedAmounts(records)
	}()
	go func() {
		defer wg.Done()
		data.QuickSuccessive = s.MineQuickSuccessive(records)
	}()
	wg.Wait()

	s.logger.DebugContext(ctx, "pattern mining complete",
		slog.Int("transactions", len(records)),
		slog.Int("frequent_pairs", len(data.FrequentPairs)),
		slog.Int("round_amounts", len(data.RoundAmounts)),
		slog.Int("high_activity_periods", len(data.HighActivityPeriods)),
		slog.Int("repeated_amounts", len(data.RepeatedAmounts)),
		slog.Int("quick_successive", len(data.QuickSuccessive)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return data, nil
}

// MineFrequentPairs groups transactions by directed (sender, receiver) pair
// and flags pairs meeting the frequency threshold. Results are ordered by
// transaction count descending, ties broken by pair key.
func (s *Service) MineFrequentPairs(records []transaction.Transaction) []pattern.FrequentPair {
	groups := make(map[string][]transaction.Transaction)
	for _, tx := range records {
		key := tx.PairKey()
		groups[key] = append(groups[key], tx)
	}

	results := make([]pattern.FrequentPair, 0)
	for _, txs := range groups {
		if len(txs) < s.cfg.FrequentPairMinCount {
			continue
		}
		first := txs[0]
		total := decimal.Zero
		for _, tx := range txs {
			total = total.Add(tx.Amount)
		}
		count := decimal.NewFromInt(int64(len(txs)))
		results = append(results, pattern.FrequentPair{
			SenderID:           first.SenderID,
			ReceiverID:         first.ReceiverID,
			SenderName:         first.SenderName,
			ReceiverName:       first.ReceiverName,
			TransactionCount:   len(txs),
			TotalAmount:        total,
			AverageAmount:      total.DivRound(count, 2),
			AmountStdDev:       amountStdDev(txs),
			FirstTransaction:   txs[0].CreatedAt,
			LastTransaction:    txs[len(txs)-1].CreatedAt,
			SampleTransactions: sampleOf(txs, s.cfg.SampleLimit),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TransactionCount != results[j].TransactionCount {
			return results[i].TransactionCount > results[j].TransactionCount
		}
		ki := results[i].SenderID + "->" + results[i].ReceiverID
		kj := results[j].SenderID + "->" + results[j].ReceiverID
		return ki < kj
	})
	return results
}

// MineRoundAmounts flags transactions whose amount is a positive exact
// multiple of the configured unit. Output preserves dataset order.
func (s *Service) MineRoundAmounts(records []transaction.Transaction) []pattern.RoundAmount {
	results := make([]pattern.RoundAmount, 0)
	for _, tx := range records {
		if !tx.Amount.IsPositive() {
			continue
		}
		if !tx.Amount.Mod(s.cfg.RoundAmountUnit).IsZero() {
			continue
		}
		results = append(results, pattern.RoundAmount{
			TransactionID: tx.ID,
			SenderName:    tx.SenderName,
			ReceiverName:  tx.ReceiverName,
			Amount:        tx.Amount,
			CreatedAt:     tx.CreatedAt,
			Remarks:       tx.Remarks,
		})
	}
	return results
}

// MineHighActivityPeriods buckets transactions into hour-aligned windows
// and flags buckets meeting the count threshold. Results are ordered by
// transaction count descending, ties broken by period start.
func (s *Service) MineHighActivityPeriods(records []transaction.Transaction) []pattern.HighActivityPeriod {
	buckets := make(map[time.Time][]transaction.Transaction)
	for _, tx := range records {
		hour := tx.CreatedAt.Truncate(time.Hour)
		buckets[hour] = append(buckets[hour], tx)
	}

	results := make([]pattern.HighActivityPeriod, 0)
	for hour, txs := range buckets {
		if len(txs) < s.cfg.HighActivityMinCount {
			continue
		}
		// unique_users counts distinct senders, the actors driving the burst
		users := make(map[string]struct{})
		total := decimal.Zero
		for _, tx := range txs {
			users[tx.SenderID] = struct{}{}
			total = total.Add(tx.Amount)
		}
		results = append(results, pattern.HighActivityPeriod{
			TimePeriod:         hour,
			TransactionCount:   len(txs),
			UniqueUsers:        len(users),
			TotalAmount:        total,
			SampleTransactions: sampleOf(txs, s.cfg.ActivitySampleLimit),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TransactionCount != results[j].TransactionCount {
			return results[i].TransactionCount > results[j].TransactionCount
		}
		return results[i].TimePeriod.Before(results[j].TimePeriod)
	})
	return results
}

// MineRepeatedAmounts groups transactions by exact amount and flags amounts
// meeting the frequency threshold. Results are ordered by frequency
// descending, ties broken by amount ascending.
func (s *Service) MineRepeatedAmounts(records []transaction.Transaction) []pattern.RepeatedAmount {
	groups := make(map[string][]transaction.Transaction)
	for _, tx := range records {
		key := tx.Amount.String()
		groups[key] = append(groups[key], tx)
	}

	results := make([]pattern.RepeatedAmount, 0)
	for _, txs := range groups {
		if len(txs) < s.cfg.RepeatedAmountMinFrequency {
			continue
		}
		senders := make(map[string]struct{})
		receivers := make(map[string]struct{})
		for _, tx := range txs {
			senders[tx.SenderID] = struct{}{}
			receivers[tx.ReceiverID] = struct{}{}
		}
		results = append(results, pattern.RepeatedAmount{
			Amount:             txs[0].Amount,
			Frequency:          len(txs),
			UniqueSenders:      len(senders),
			UniqueReceivers:    len(receivers),
			SampleTransactions: sampleOf(txs, s.cfg.SampleLimit),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Frequency != results[j].Frequency {
			return results[i].Frequency > results[j].Frequency
		}
		return results[i].Amount.LessThan(results[j].Amount)
	})
	return results
}

// MineQuickSuccessive flags transactions issued within the configured
// window of the same sender's previous transaction. A sender's first
// transaction is never flagged. Output preserves dataset order.
func (s *Service) MineQuickSuccessive(records []transaction.Transaction) []pattern.QuickSuccessive {
	lastSeen := make(map[string]time.Time)
	results := make([]pattern.QuickSuccessive, 0)
	for _, tx := range records {
		prev, ok := lastSeen[tx.SenderID]
		lastSeen[tx.SenderID] = tx.CreatedAt
		if !ok {
			continue
		}
		diff := tx.CreatedAt.Sub(prev)
		if diff < 0 || diff > s.cfg.QuickSuccessionWindow {
			continue
		}
		results = append(results, pattern.QuickSuccessive{
			TransactionID:   tx.ID,
			SenderName:      tx.SenderName,
			ReceiverName:    tx.ReceiverName,
			Amount:          tx.Amount,
			TimeDiffSeconds: diff.Seconds(),
			CreatedAt:       tx.CreatedAt,
		})
	}
	return results
}

// amountStdDev computes the population standard deviation of the amounts.
// Float precision is acceptable here; the value is descriptive, not
// monetary.
func amountStdDev(txs []transaction.Transaction) float64 {
	if len(txs) < 2 {
		return 0
	}
	var sum float64
	values := make([]float64, len(txs))
	for i, tx := range txs {
		values[i] = tx.Amount.InexactFloat64()
		sum += values[i]
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func sampleOf(txs []transaction.Transaction, limit int) []pattern.SampleTransaction {
	if limit > len(txs) {
		limit = len(txs)
	}
	samples := make([]pattern.SampleTransaction, 0, limit)
	for _, tx := range txs[:limit] {
		samples = append(samples, pattern.SampleTransaction{
			TransactionID: tx.ID,
			SenderName:    tx.SenderName,
			ReceiverName:  tx.ReceiverName,
			Amount:        tx.Amount,
			CreatedAt:     tx.CreatedAt,
			Remarks:       tx.Remarks,
		})
	}
	return samples
}
