// Package runs orchestrates a full simulation-and-optimization run: price
// history in, persisted run record out.
package runs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/aristath/frontier/internal/modules/history"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/results"
	"github.com/aristath/frontier/internal/modules/returns"
	"github.com/aristath/frontier/internal/modules/simulation"
)

// sharpeCrossCheckTolerance guards the continuous-vs-discrete invariant: the
// optimizer searches continuously, so its Sharpe ratio must not fall below
// the best sampled candidate by more than numerical noise.
const sharpeCrossCheckTolerance = 1e-6

// Params holds the caller-supplied parameters of one run.
type Params struct {
	Tickers        []string
	Count          int
	Seed           *uint64 // nil generates a seed, which is still recorded
	RiskFreeRate   float64
	PortfolioValue float64
	LookbackDays   int
	WeightMin      float64
	WeightMax      float64
}

// Result is the in-memory outcome of a successful run.
type Result struct {
	Run        results.Run              `json:"run"`
	Population []domain.ScoredCandidate `json:"-"`
	Frontier   []domain.ScoredCandidate `json:"frontier"`
	Optimal    *domain.OptimalPortfolio `json:"optimal"`
}

// Service wires the pipeline: history → returns → simulation ∥ optimizer →
// frontier → persistence.
type Service struct {
	history       *history.Repository
	calculator    *returns.Calculator
	engine        *simulation.Engine
	analyzer      *frontier.Analyzer
	optimizer     *optimization.Optimizer
	results       *results.Repository
	annualization int
	log           zerolog.Logger
}

// NewService creates a new run service.
func NewService(
	historyRepo *history.Repository,
	calculator *returns.Calculator,
	engine *simulation.Engine,
	analyzer *frontier.Analyzer,
	optimizer *optimization.Optimizer,
	resultsRepo *results.Repository,
	annualization int,
	log zerolog.Logger,
) *Service {
	return &Service{
		history:       historyRepo,
		calculator:    calculator,
		engine:        engine,
		analyzer:      analyzer,
		optimizer:     optimizer,
		results:       resultsRepo,
		annualization: annualization,
		log:           log.With().Str("component", "runs").Logger(),
	}
}

// Execute performs one run end to end. Any DataError, ConfigError or
// ConvergenceError is terminal: nothing is persisted for a failed run.
func (s *Service) Execute(ctx context.Context, p Params) (*Result, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	aligned, err := s.history.GetAligned(p.Tickers, p.LookbackDays)
	if err != nil {
		return nil, err
	}

	rm, err := s.calculator.Compute(aligned)
	if err != nil {
		return nil, err
	}

	seed := s.resolveSeed(p.Seed)

	n := rm.NumAssets()
	minW := make([]float64, n)
	maxW := make([]float64, n)
	for i := range minW {
		minW[i] = p.WeightMin
		maxW[i] = p.WeightMax
	}

	// The simulation population and the optimizer both read the same
	// immutable statistics, so they run concurrently.
	var population []domain.ScoredCandidate
	var optimal *domain.OptimalPortfolio

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var simErr error
		population, simErr = s.engine.Run(gctx, rm, simulation.Config{
			Count:        p.Count,
			Seed:         seed,
			RiskFreeRate: p.RiskFreeRate,
			AllowShort:   p.WeightMin < 0,
		})
		return simErr
	})
	g.Go(func() error {
		var optErr error
		optimal, optErr = s.optimizer.Optimize(rm, optimization.Request{
			Objective:    optimization.ObjectiveMaxSharpe,
			RiskFreeRate: p.RiskFreeRate,
			MinWeights:   minW,
			MaxWeights:   maxW,
		})
		return optErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	frontierPoints := s.analyzer.Extract(population)

	bestSampled := bestSharpe(population)
	if optimal.Sharpe+sharpeCrossCheckTolerance < bestSampled {
		// The continuous optimum can never trail the sampled one; this
		// signals optimizer non-convergence or a scoring bug.
		s.log.Warn().
			Float64("optimal_sharpe", optimal.Sharpe).
			Float64("best_sampled_sharpe", bestSampled).
			Msg("Optimizer Sharpe below sampled maximum")
	}

	run := results.Run{
		ID:                uuid.New().String(),
		CreatedAt:         time.Now().UTC(),
		Tickers:           rm.Tickers,
		Seed:              seed,
		Count:             p.Count,
		RiskFreeRate:      p.RiskFreeRate,
		PortfolioValue:    p.PortfolioValue,
		Annualization:     s.annualization,
		OptimalReturn:     optimal.ExpectedReturn,
		OptimalVolatility: optimal.Volatility,
		OptimalSharpe:     optimal.Sharpe,
		BestSampledSharpe: bestSampled,
	}

	trials, allocations := buildTrialRecords(run, population)
	frontierRecords := buildFrontierRecords(run.ID, frontierPoints)
	optimalRecords := buildOptimalRecords(run, optimal)

	if err := s.results.SaveRun(run, trials, allocations, frontierRecords, optimalRecords); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("run_id", run.ID).
		Uint64("seed", seed).
		Int("count", p.Count).
		Float64("optimal_sharpe", optimal.Sharpe).
		Msg("Run completed")

	return &Result{
		Run:        run,
		Population: population,
		Frontier:   frontierPoints,
		Optimal:    optimal,
	}, nil
}

// validate rejects invalid run parameters before any computation begins.
func validate(p Params) error {
	if len(p.Tickers) < 2 {
		return &domain.ConfigError{
			Param:  "tickers",
			Reason: "at least 2 tickers are required",
		}
	}
	if p.Count <= 0 {
		return &domain.ConfigError{
			Param:  "count",
			Reason: "simulation count must be positive",
		}
	}
	if p.PortfolioValue <= 0 {
		return &domain.ConfigError{
			Param:  "portfolio_value",
			Reason: "portfolio value must be positive",
		}
	}
	if p.WeightMin > p.WeightMax {
		return &domain.ConfigError{
			Param:  "bounds",
			Reason: "lower weight bound exceeds upper bound",
		}
	}
	return nil
}

// resolveSeed returns the caller's seed or generates one. Either way the seed
// ends up in the run record so the population can be reproduced.
func (s *Service) resolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	generated := uint64(time.Now().UnixNano())
	s.log.Debug().Uint64("seed", generated).Msg("Generated run seed")
	return generated
}

func bestSharpe(population []domain.ScoredCandidate) float64 {
	best := population[0].Sharpe
	for _, c := range population[1:] {
		if c.Sharpe > best {
			best = c.Sharpe
		}
	}
	return best
}

func buildTrialRecords(run results.Run, population []domain.ScoredCandidate) ([]results.Trial, []results.Allocation) {
	trials := make([]results.Trial, 0, len(population))
	allocations := make([]results.Allocation, 0, len(population)*len(run.Tickers))

	for i, c := range population {
		trials = append(trials, results.Trial{
			RunID:          run.ID,
			Index:          i,
			Weights:        c.Weights,
			ExpectedReturn: c.ExpectedReturn,
			Volatility:     c.Volatility,
			Sharpe:         c.Sharpe,
		})
		for j, ticker := range run.Tickers {
			allocations = append(allocations, results.Allocation{
				RunID:      run.ID,
				TrialIndex: i,
				Ticker:     ticker,
				Weight:     c.Weights[j],
				Amount:     c.Weights[j] * run.PortfolioValue,
			})
		}
	}
	return trials, allocations
}

func buildFrontierRecords(runID string, points []domain.ScoredCandidate) []results.FrontierPoint {
	records := make([]results.FrontierPoint, 0, len(points))
	for i, p := range points {
		records = append(records, results.FrontierPoint{
			RunID:          runID,
			Index:          i,
			Volatility:     p.Volatility,
			ExpectedReturn: p.ExpectedReturn,
		})
	}
	return records
}

func buildOptimalRecords(run results.Run, optimal *domain.OptimalPortfolio) []results.OptimalAllocation {
	asOf := run.CreatedAt.Format("2006-01-02")
	records := make([]results.OptimalAllocation, 0, len(run.Tickers))
	for i, ticker := range run.Tickers {
		records = append(records, results.OptimalAllocation{
			RunID:    run.ID,
			AsOfDate: asOf,
			Ticker:   ticker,
			Weight:   optimal.Weights[i],
			Amount:   optimal.Weights[i] * run.PortfolioValue,
		})
	}
	return records
}
