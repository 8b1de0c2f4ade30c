package analysis

import (
	"fmt"
	"strings"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
)

// Prompt item caps keep token usage bounded on large datasets.
const (
	promptMaxPairs    = 25
	promptMaxRound    = 20
	promptMaxActivity = 5
	promptMaxRepeated = 15
	promptMaxQuick    = 20
)

const promptJSONFormat = `Respond with ONLY valid JSON in exactly this format:
{
  "suspicious_threads": [
    {
      "thread_id": "thread_1",
      "description": "what makes this pattern suspicious",
      "participants": ["name1", "name2"],
      "risk_level": "low|medium|high",
      "evidence": ["specific numbers and timings from the data"],
      "transactions_involved": ["transaction_id"],
      "potential_violation": "what rule or regulation this may breach",
      "confidence_score": 0.0,
      "recommended_action": "next investigative step"
    }
  ],
  "risk_level": "low|medium|high",
  "summary": "one-paragraph overview",
  "key_insights": ["insight 1", "insight 2"]
}
Do not include markdown fences or any text outside the JSON object.`

// BuildPrompt renders the analysis prompt for one pattern type, opening
// with a dataset overview so the model can judge matches against the whole
// population. The prompt is deterministic for a given dataset so repeated
// runs produce identical model inputs.
func BuildPrompt(t pattern.Type, data *pattern.PatternData, stats transaction.SummaryStats) string {
	var b strings.Builder

	b.WriteString("You are a financial crime analyst reviewing UPI peer-to-peer payment data.\n\n")
	b.WriteString("Dataset overview:\n")
	fmt.Fprintf(&b, "- Total transactions: %d\n", stats.TotalTransactions)
	fmt.Fprintf(&b, "- Unique senders: %d, unique receivers: %d\n", stats.UniqueSenders, stats.UniqueReceivers)
	fmt.Fprintf(&b, "- Total amount: %s, average amount: %s\n", stats.TotalAmount, stats.AverageAmount)
	if !stats.DateRange.Start.IsZero() {
		fmt.Fprintf(&b, "- Date range: %s to %s\n",
			stats.DateRange.Start.Format("2006-01-02 15:04"), stats.DateRange.End.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n")

	switch t {
	case pattern.TypeFrequentPairs:
		b.WriteString("The following sender/receiver pairs transacted unusually often:\n\n")
		items := data.FrequentPairs
		if len(items) > promptMaxPairs {
			items = items[:promptMaxPairs]
		}
		for i, p := range items {
			fmt.Fprintf(&b, "[%d] %s -> %s: %d transactions, total %s, average %s, std dev %.2f, span %s to %s\n",
				i+1, p.SenderName, p.ReceiverName, p.TransactionCount,
				p.TotalAmount, p.AverageAmount, p.AmountStdDev,
				p.FirstTransaction.Format("2006-01-02 15:04"), p.LastTransaction.Format("2006-01-02 15:04"))
		}
		b.WriteString("\nAssess whether any pair suggests money laundering layering, mule activity, or collusive transfers.\n")

	case pattern.TypeRoundAmounts:
		b.WriteString("The following transactions used suspiciously round amounts:\n\n")
		items := data.RoundAmounts
		if len(items) > promptMaxRound {
			items = items[:promptMaxRound]
		}
		for i, m := range items {
			fmt.Fprintf(&b, "[%d] %s -> %s: %s at %s",
				i+1, m.SenderName, m.ReceiverName, m.Amount, m.CreatedAt.Format("2006-01-02 15:04"))
			if m.Remarks != "" {
				fmt.Fprintf(&b, " (remarks: %s)", m.Remarks)
			}
			b.WriteString("\n")
		}
		b.WriteString("\nAssess whether the round amounts suggest structuring, informal settlement, or scripted transfers.\n")

	case pattern.TypeHighActivity:
		b.WriteString("The following one-hour windows saw unusually high transaction volume:\n\n")
		items := data.HighActivityPeriods
		if len(items) > promptMaxActivity {
			items = items[:promptMaxActivity]
		}
		for i, m := range items {
			fmt.Fprintf(&b, "[%d] %s: %d transactions, %d unique users, total %s\n",
				i+1, m.TimePeriod.Format("2006-01-02 15:00"), m.TransactionCount, m.UniqueUsers, m.TotalAmount)
			for _, s := range m.SampleTransactions {
				fmt.Fprintf(&b, "    - %s -> %s: %s\n", s.SenderName, s.ReceiverName, s.Amount)
			}
		}
		b.WriteString("\nAssess whether the bursts suggest coordinated activity, bot-driven transfers, or flash settlement events.\n")

	case pattern.TypeRepeatedAmounts:
		b.WriteString("The following exact amounts recurred across multiple transactions:\n\n")
		items := data.RepeatedAmounts
		if len(items) > promptMaxRepeated {
			items = items[:promptMaxRepeated]
		}
		for i, m := range items {
			fmt.Fprintf(&b, "[%d] amount %s: %d occurrences, %d unique senders, %d unique receivers\n",
				i+1, m.Amount, m.Frequency, m.UniqueSenders, m.UniqueReceivers)
		}
		b.WriteString("\nAssess whether the repetition suggests automated payouts, split payments, or fee-evasion patterns.\n")

	case pattern.TypeQuickSuccessive:
		b.WriteString("The following transactions were issued within minutes of the same sender's previous transaction:\n\n")
		items := data.QuickSuccessive
		if len(items) > promptMaxQuick {
			items = items[:promptMaxQuick]
		}
		for i, m := range items {
			fmt.Fprintf(&b, "[%d] %s -> %s: %s, %.0f seconds after the previous transaction, at %s\n",
				i+1, m.SenderName, m.ReceiverName, m.Amount, m.TimeDiffSeconds,
				m.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		b.WriteString("\nAssess whether the rapid sequences suggest account takeover, panic transfers, or scripted draining.\n")
	}

	b.WriteString("\n")
	b.WriteString(promptJSONFormat)
	return b.String()
}
