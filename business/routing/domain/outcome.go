package domain

import (
	"strings"
	"time"

	"github.com/fd1az/swap-aggregator/internal/asset"
)

// TransactionOutcome is a completed swap reported back by a caller.
type TransactionOutcome struct {
	From *asset.Asset
	To   *asset.Asset
	// Amount is a decimal string in From units.
	Amount    string
	RoutePath []string
	Duration  time.Duration
	GasCost   uint64
	// Slippage is the realised fraction, e.g. 0.004.
	Slippage   float64
	Success    bool
	RecordedAt time.Time
}

// PathSignature is the recorder key for o's route.
func (o TransactionOutcome) PathSignature() string {
	return PathSignatureOf(o.RoutePath)
}

// PathSignatureOf joins lower-cased protocol names with '>'.
func PathSignatureOf(protocols []string) string {
	names := make([]string, len(protocols))
	for i, p := range protocols {
		names[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(names, ">")
}

// PairKey identifies a token pair independent of amount.
func PairKey(from, to *asset.Asset) string {
	if from == nil || to == nil {
		return ""
	}
	return from.ID().String() + "->" + to.ID().String()
}

// PathStats aggregates recorded outcomes for one path signature.
type PathStats struct {
	Attempts  int
	Successes int
	MeanGas   float64
}

// SuccessRate is Successes/Attempts, 0 with no attempts.
func (s PathStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}
