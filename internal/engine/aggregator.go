// Package engine wires the full analysis pipeline: type detection,
// policy evaluation, normalization, signal extraction, threat-intel
// lookup and score aggregation.
package engine

import (
	"math"

	"github.com/halcyonsec/qrverdict/internal/normalizer"
	"github.com/halcyonsec/qrverdict/internal/signals"
	"github.com/halcyonsec/qrverdict/pkg/models"
)

// mlBudget caps the ML contribution at 30 of the 100-point scale,
// alongside heuristics 0-40, brand 0-20 and TLD 0-10.
const mlBudget = 30

// AggregateInput collects the independent signal outputs for one URL.
type AggregateInput struct {
	Normalization normalizer.Result
	Heuristics    signals.HeuristicResult
	Brand         signals.BrandMatch
	TLDScore      int
	TLDFlag       string
	MLProbability float64
	BloomHit      bool
	BloomPenalty  int
}

// Aggregate combines all signal scores into a RiskAssessment. The
// total is clamp(sum of contributions, 0, 100) and the verdict follows
// the score bands; flags preserve first-seen order and are unique.
func Aggregate(in AggregateInput) models.RiskAssessment {
	ml := int(math.Round(in.MLProbability * mlBudget))

	penalty := 0
	if in.BloomHit {
		penalty = in.BloomPenalty
	}

	total := in.Heuristics.Score + in.Brand.Score + in.TLDScore + ml +
		in.Normalization.RiskScore + penalty
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	flags := newFlagSet()
	for _, a := range in.Normalization.DetectedAttacks {
		flags.add(string(a))
	}
	flags.addAll(in.Heuristics.Flags)
	flags.addAll(in.Brand.Flags)
	if in.TLDFlag != "" {
		flags.add(in.TLDFlag)
	}
	if in.BloomHit {
		flags.add("KNOWN_THREAT")
	}

	return models.RiskAssessment{
		URL:     in.Normalization.NormalizedURL,
		Score:   total,
		Verdict: models.VerdictForScore(total),
		Flags:   flags.ordered,
		Details: models.SignalBreakdown{
			Heuristics:    in.Heuristics.Score,
			Brand:         in.Brand.Score,
			TLD:           in.TLDScore,
			ML:            ml,
			Normalization: in.Normalization.RiskScore,
			IntelHit:      in.BloomHit,
			IntelPenalty:  penalty,
		},
		Confidence: confidence(total, flags.len()),
	}
}

// confidence grows with distance from the nearest verdict threshold
// and with the number of distinct flags, and stays strictly inside
// (0, 1). A score sitting on a band boundary with no flags is the
// least certain call the engine can make.
func confidence(score, flagCount int) float64 {
	distSafe := abs(score - models.SafeThreshold)
	distMal := abs(score - models.MaliciousThreshold)
	nearest := distSafe
	if distMal < nearest {
		nearest = distMal
	}

	c := 0.5 + 0.4*float64(nearest)/35.0 + 0.01*float64(flagCount)
	if c > 0.99 {
		c = 0.99
	}
	if c < 0.05 {
		c = 0.05
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// flagSet keeps reason codes unique while preserving insertion order.
type flagSet struct {
	seen    map[string]bool
	ordered []string
}

func newFlagSet() *flagSet {
	return &flagSet{seen: make(map[string]bool)}
}

func (f *flagSet) add(flag string) {
	if flag == "" || f.seen[flag] {
		return
	}
	f.seen[flag] = true
	f.ordered = append(f.ordered, flag)
}

func (f *flagSet) addAll(flags []string) {
	for _, fl := range flags {
		f.add(fl)
	}
}

func (f *flagSet) len() int { return len(f.ordered) }
