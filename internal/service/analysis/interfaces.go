package analysis

import (
	"context"

	"github.com/patternlens/transaction-pattern-backend/internal/domain/pattern"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
)

// ModelClient is the generative model used for pattern interpretation.
type ModelClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// ResultCache stores per-pattern analyses keyed by dataset fingerprint and
// pattern type.
type ResultCache interface {
	GetAnalysis(ctx context.Context, fingerprint string, t pattern.Type) (*pattern.Analysis, error)
	GetStaleAnalysis(ctx context.Context, fingerprint string, t pattern.Type) (*pattern.Analysis, error)
	SetAnalysis(ctx context.Context, fingerprint string, t pattern.Type, analysis *pattern.Analysis)
}

// PatternMiner produces the raw pattern data the analyses interpret.
type PatternMiner interface {
	MinePatterns(ctx context.Context, records []transaction.Transaction) (*pattern.PatternData, error)
}
