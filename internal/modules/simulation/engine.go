// Package simulation draws random candidate allocations and scores them
// against annualized return statistics.
package simulation

import (
	"context"
	"math"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// Config holds the parameters of one simulation run.
type Config struct {
	Count        int     // number of trials, must be positive
	Seed         uint64  // explicit seed; identical seed + inputs reproduce the population
	RiskFreeRate float64 // annual risk-free rate for Sharpe scoring
	AllowShort   bool    // draw from a symmetric range, permitting negative weights
	Workers      int     // parallel workers; defaults to GOMAXPROCS when <= 0
}

// Engine produces populations of scored candidate allocations.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new simulation engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "simulation").Logger(),
	}
}

// Run draws cfg.Count random weight vectors and scores each against the
// return statistics. Trials are distributed across workers; results are
// indexed by trial so the population does not depend on arrival order.
// Fails with a ConfigError when the count is non-positive or the universe
// has fewer than 2 assets.
func (e *Engine) Run(ctx context.Context, rm *domain.ReturnsMatrix, cfg Config) ([]domain.ScoredCandidate, error) {
	if cfg.Count <= 0 {
		return nil, &domain.ConfigError{
			Param:  "count",
			Reason: "simulation count must be positive",
		}
	}
	if rm.NumAssets() < 2 {
		return nil, &domain.ConfigError{
			Param:  "universe",
			Reason: "at least 2 assets are required for diversification",
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.Count {
		workers = cfg.Count
	}

	population := make([]domain.ScoredCandidate, cfg.Count)

	g, ctx := errgroup.WithContext(ctx)
	chunk := (cfg.Count + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > cfg.Count {
			end = cfg.Count
		}
		if start >= end {
			break
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				population[i] = trial(rm, cfg, uint64(i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.Debug().
		Int("count", cfg.Count).
		Int("workers", workers).
		Uint64("seed", cfg.Seed).
		Msg("Simulation population generated")

	return population, nil
}

// trial draws one raw weight vector from the trial's own random stream,
// normalizes it to the full-investment constraint and scores it.
func trial(rm *domain.ReturnsMatrix, cfg Config, idx uint64) domain.ScoredCandidate {
	n := rm.NumAssets()
	dist := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewSource(trialSeed(cfg.Seed, idx))}
	if cfg.AllowShort {
		dist.Min = -1
	}

	weights := make([]float64, n)
	for {
		var sum float64
		for i := 0; i < n; i++ {
			weights[i] = dist.Rand()
			sum += weights[i]
		}
		// With shorts permitted the raw sum can land near zero, and scaling
		// by a tiny sum produces absurdly levered candidates. Redraw until
		// the sum carries real mass; each |weight| stays below 1/0.1.
		if math.Abs(sum) < 0.1 {
			continue
		}
		for i := 0; i < n; i++ {
			weights[i] /= sum
		}
		break
	}

	return Score(weights, rm, cfg.RiskFreeRate)
}

// Score computes the candidate metrics for a given weight vector. It is the
// single scoring path: the optimizer's output is re-scored through it when
// cross-checking against the sampled population.
func Score(weights []float64, rm *domain.ReturnsMatrix, riskFreeRate float64) domain.ScoredCandidate {
	expReturn := formulas.PortfolioReturn(weights, rm.Mean)
	volatility := formulas.PortfolioVolatility(weights, rm.Cov)
	return domain.ScoredCandidate{
		Weights:        append([]float64(nil), weights...),
		ExpectedReturn: expReturn,
		Volatility:     volatility,
		Sharpe:         formulas.SharpeRatio(expReturn, volatility, riskFreeRate),
	}
}
