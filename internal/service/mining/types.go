package mining

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config carries the mining thresholds. Zero values are replaced by
// defaults so a partially-populated config still behaves.
type Config struct {
	// FrequentPairMinCount is the minimum number of transactions between a
	// directed (sender, receiver) pair for the pair to be flagged.
	FrequentPairMinCount int

	// RoundAmountUnit flags amounts that are exact multiples of this unit.
	RoundAmountUnit decimal.Decimal

	// HighActivityMinCount is the minimum transaction count in an hourly
	// bucket for the period to be flagged.
	HighActivityMinCount int

	// RepeatedAmountMinFrequency is the minimum number of transactions
	// sharing an exact amount for that amount to be flagged.
	RepeatedAmountMinFrequency int

	// QuickSuccessionWindow flags a transaction issued within this window
	// of the same sender's previous transaction.
	QuickSuccessionWindow time.Duration

	// SampleLimit caps the per-match sample transaction excerpts.
	SampleLimit int

	// ActivitySampleLimit caps samples for high-activity periods, which
	// tolerate a slightly larger excerpt.
	ActivitySampleLimit int
}

// DefaultConfig returns the standard mining thresholds.
func DefaultConfig() Config {
	return Config{
		FrequentPairMinCount:       3,
		RoundAmountUnit:            decimal.NewFromInt(1000),
		HighActivityMinCount:       10,
		RepeatedAmountMinFrequency: 3,
		QuickSuccessionWindow:      5 * time.Minute,
		SampleLimit:                3,
		ActivitySampleLimit:        5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FrequentPairMinCount <= 0 {
		c.FrequentPairMinCount = d.FrequentPairMinCount
	}
	if c.RoundAmountUnit.IsZero() {
		c.RoundAmountUnit = d.RoundAmountUnit
	}
	if c.HighActivityMinCount <= 0 {
		c.HighActivityMinCount = d.HighActivityMinCount
	}
	if c.RepeatedAmountMinFrequency <= 0 {
		c.RepeatedAmountMinFrequency = d.RepeatedAmountMinFrequency
	}
	if c.QuickSuccessionWindow <= 0 {
		c.QuickSuccessionWindow = d.QuickSuccessionWindow
	}
	if c.SampleLimit <= 0 {
		c.SampleLimit = d.SampleLimit
	}
	if c.ActivitySampleLimit <= 0 {
		c.ActivitySampleLimit = d.ActivitySampleLimit
	}
	return c
}
