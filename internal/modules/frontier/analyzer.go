// Package frontier extracts the efficient frontier from a simulated
// population of scored candidates.
package frontier

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
)

// Analyzer derives the non-dominated (volatility, return) boundary from a
// population. The result is always a subset of the sampled candidates, never
// fabricated points, so it cannot overstate achievable return.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a new frontier analyzer.
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		log: log.With().Str("component", "frontier").Logger(),
	}
}

// Extract returns the frontier points ordered by ascending volatility.
//
// The population is sorted by volatility (ties broken by higher return, then
// stable) and swept left to right with a running maximum: a candidate is
// retained only when its return strictly exceeds every retained point at
// equal-or-lower volatility. O(N log N).
func (a *Analyzer) Extract(population []domain.ScoredCandidate) []domain.ScoredCandidate {
	if len(population) == 0 {
		return nil
	}

	sorted := make([]domain.ScoredCandidate, len(population))
	copy(sorted, population)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Volatility != sorted[j].Volatility {
			return sorted[i].Volatility < sorted[j].Volatility
		}
		return sorted[i].ExpectedReturn > sorted[j].ExpectedReturn
	})

	frontier := make([]domain.ScoredCandidate, 0, 64)
	bestReturn := 0.0
	for _, c := range sorted {
		if len(frontier) == 0 || c.ExpectedReturn > bestReturn {
			frontier = append(frontier, c)
			bestReturn = c.ExpectedReturn
		}
	}

	a.log.Debug().
		Int("population", len(population)).
		Int("frontier_points", len(frontier)).
		Msg("Extracted efficient frontier")

	return frontier
}
