package optimization

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/aristath/frontier/pkg/formulas"
)

// Two uncorrelated assets with closed-form answers: tangency at [0.6, 0.4],
// global minimum variance at [0.2, 0.8].
func twoAssetFixture() *domain.ReturnsMatrix {
	return &domain.ReturnsMatrix{
		Tickers: []string{"AAA", "BBB"},
		Mean:    []float64{0.08, 0.03},
		Cov: [][]float64{
			{0.04, 0.00},
			{0.00, 0.01},
		},
	}
}

func fourAssetFixture() *domain.ReturnsMatrix {
	return &domain.ReturnsMatrix{
		Tickers: []string{"AAA", "BBB", "CCC", "DDD"},
		Mean:    []float64{0.10, 0.07, 0.05, 0.03},
		Cov: [][]float64{
			{0.0900, 0.0120, 0.0050, 0.0020},
			{0.0120, 0.0400, 0.0060, 0.0030},
			{0.0050, 0.0060, 0.0250, 0.0010},
			{0.0020, 0.0030, 0.0010, 0.0100},
		},
	}
}

func newTestOptimizer() *Optimizer {
	return NewOptimizer(&GradientSolver{}, zerolog.Nop())
}

func TestOptimizeMaxSharpeTwoAsset(t *testing.T) {
	opt := newTestOptimizer()

	result, err := opt.Optimize(twoAssetFixture(), Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: 0.02,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, result.Weights[0], 1e-3)
	assert.InDelta(t, 0.4, result.Weights[1], 1e-3)
	assert.InDelta(t, 0.3162, result.Sharpe, 1e-3)

	sum := result.Weights[0] + result.Weights[1]
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestOptimizeMaxSharpeBeatsCornerPortfolios(t *testing.T) {
	opt := newTestOptimizer()
	rm := twoAssetFixture()

	result, err := opt.Optimize(rm, Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: 0.02,
	})
	require.NoError(t, err)

	allFirst := simulation.Score([]float64{1, 0}, rm, 0.02)
	allSecond := simulation.Score([]float64{0, 1}, rm, 0.02)
	assert.GreaterOrEqual(t, result.Sharpe, allFirst.Sharpe)
	assert.GreaterOrEqual(t, result.Sharpe, allSecond.Sharpe)
}

func TestOptimizeMinVolatilityTwoAsset(t *testing.T) {
	opt := newTestOptimizer()

	result, err := opt.Optimize(twoAssetFixture(), Request{
		Objective: ObjectiveMinVolatility,
	})
	require.NoError(t, err)

	// For uncorrelated assets w1 = s2^2 / (s1^2 + s2^2).
	assert.InDelta(t, 0.2, result.Weights[0], 1e-3)
	assert.InDelta(t, 0.8, result.Weights[1], 1e-3)
}

func TestOptimizeMinVolatilityWithTargetReturn(t *testing.T) {
	opt := newTestOptimizer()
	target := 0.055

	result, err := opt.Optimize(twoAssetFixture(), Request{
		Objective:    ObjectiveMinVolatility,
		TargetReturn: &target,
	})
	require.NoError(t, err)

	// 0.08*w1 + 0.03*(1-w1) = 0.055 forces w1 = 0.5.
	assert.InDelta(t, 0.5, result.Weights[0], 5e-3)
	assert.InDelta(t, target, result.ExpectedReturn, 5e-4)
}

func TestOptimizeBoundsSampledPopulation(t *testing.T) {
	rm := fourAssetFixture()
	riskFree := 0.02

	engine := simulation.NewEngine(zerolog.Nop())
	population, err := engine.Run(context.Background(), rm, simulation.Config{
		Count:        5000,
		Seed:         99,
		RiskFreeRate: riskFree,
	})
	require.NoError(t, err)

	bestSampled := population[0].Sharpe
	for _, c := range population {
		if c.Sharpe > bestSampled {
			bestSampled = c.Sharpe
		}
	}

	opt := newTestOptimizer()
	result, err := opt.Optimize(rm, Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: riskFree,
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Sharpe+1e-6, bestSampled,
		"direct optimum must not lose to any sampled candidate")
}

func TestOptimizeScoresAgreeWithSimulation(t *testing.T) {
	opt := newTestOptimizer()
	rm := fourAssetFixture()

	result, err := opt.Optimize(rm, Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: 0.02,
	})
	require.NoError(t, err)

	rescored := simulation.Score(result.Weights, rm, 0.02)
	assert.InDelta(t, result.ExpectedReturn, rescored.ExpectedReturn, 1e-12)
	assert.InDelta(t, result.Volatility, rescored.Volatility, 1e-12)
	assert.InDelta(t, result.Sharpe, rescored.Sharpe, 1e-12)
}

func TestOptimizeRespectsBounds(t *testing.T) {
	opt := newTestOptimizer()

	result, err := opt.Optimize(fourAssetFixture(), Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: 0.02,
		MinWeights:   []float64{0.05, 0.05, 0.05, 0.05},
		MaxWeights:   []float64{0.50, 0.50, 0.50, 0.50},
	})
	require.NoError(t, err)

	// Normalization after projection can shift weights by the residual
	// penalty violation, so allow a small slack around the bounds.
	for _, w := range result.Weights {
		assert.GreaterOrEqual(t, w, 0.05-1e-3)
		assert.LessOrEqual(t, w, 0.50+1e-3)
	}
}

func TestOptimizeMaxSharpeWithShortBounds(t *testing.T) {
	// Shorting the negative-return asset funds extra exposure to the
	// positive one, so the optimum must carry a negative weight.
	rm := &domain.ReturnsMatrix{
		Tickers: []string{"AAA", "BBB"},
		Mean:    []float64{0.10, -0.08},
		Cov: [][]float64{
			{0.04, 0.00},
			{0.00, 0.04},
		},
	}

	opt := newTestOptimizer()
	result, err := opt.Optimize(rm, Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: 0.02,
		MinWeights:   []float64{-1, -1},
		MaxWeights:   []float64{2, 2},
	})
	require.NoError(t, err)

	sum := result.Weights[0] + result.Weights[1]
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Negative(t, result.Weights[1], "bounds permit shorts, the result must too")
	assert.GreaterOrEqual(t, result.Weights[0], -1-1e-3)
	assert.LessOrEqual(t, result.Weights[0], 2+1e-3)

	// A long-short portfolio well inside the bounds beats every long-only
	// one; the optimizer must at least match it.
	hedged := simulation.Score([]float64{1.5, -0.5}, rm, 0.02)
	allFirst := simulation.Score([]float64{1, 0}, rm, 0.02)
	assert.Greater(t, hedged.Sharpe, allFirst.Sharpe)
	assert.GreaterOrEqual(t, result.Sharpe+1e-6, hedged.Sharpe)
}

type stubSolver struct {
	solution Solution
	err      error
}

func (s *stubSolver) Solve(Problem) (Solution, error) { return s.solution, s.err }

func TestOptimizeSolverErrorCarriesBestPoint(t *testing.T) {
	solver := &stubSolver{
		solution: Solution{X: []float64{0.9, 0.3}, Iterations: 17},
		err:      errors.New("line search failed"),
	}
	opt := NewOptimizer(solver, zerolog.Nop())

	_, err := opt.Optimize(twoAssetFixture(), Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: 0.02,
	})
	require.Error(t, err)

	var convErr *domain.ConvergenceError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, []float64{0.9, 0.3}, convErr.BestWeights, "error must surface the solver's last point, not the starting guess")
	assert.InDelta(t, 0.2, convErr.ConstraintViolation, 1e-12)
	assert.Equal(t, 17, convErr.Iterations)
}

func TestOptimizeConfigErrors(t *testing.T) {
	opt := newTestOptimizer()
	rm := twoAssetFixture()
	var configErr *domain.ConfigError

	// Lower bounds alone already exceed full investment.
	_, err := opt.Optimize(rm, Request{
		Objective:  ObjectiveMinVolatility,
		MinWeights: []float64{0.7, 0.7},
		MaxWeights: []float64{1.0, 1.0},
	})
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "bounds", configErr.Param)

	// Upper bounds cannot reach full investment.
	_, err = opt.Optimize(rm, Request{
		Objective:  ObjectiveMinVolatility,
		MinWeights: []float64{0.0, 0.0},
		MaxWeights: []float64{0.3, 0.3},
	})
	require.ErrorAs(t, err, &configErr)

	// Unknown objective.
	_, err = opt.Optimize(rm, Request{Objective: Objective("max_drawdown")})
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "objective", configErr.Param)

	// Target return is meaningless for max_sharpe.
	target := 0.05
	_, err = opt.Optimize(rm, Request{
		Objective:    ObjectiveMaxSharpe,
		TargetReturn: &target,
	})
	require.ErrorAs(t, err, &configErr)

	// Single-asset universe.
	single := &domain.ReturnsMatrix{
		Tickers: []string{"AAA"},
		Mean:    []float64{0.08},
		Cov:     [][]float64{{0.04}},
	}
	_, err = opt.Optimize(single, Request{Objective: ObjectiveMaxSharpe})
	require.ErrorAs(t, err, &configErr)
}

func TestOptimizeConvergenceErrorCarriesBestWeights(t *testing.T) {
	opt := newTestOptimizer()

	_, err := opt.Optimize(fourAssetFixture(), Request{
		Objective:     ObjectiveMaxSharpe,
		RiskFreeRate:  0.02,
		MaxIterations: 1,
	})
	require.Error(t, err)

	var convErr *domain.ConvergenceError
	require.ErrorAs(t, err, &convErr)
	assert.Len(t, convErr.BestWeights, 4)
	assert.GreaterOrEqual(t, convErr.ConstraintViolation, 0.0)
}

func TestOptimizeResultIsValidPortfolio(t *testing.T) {
	opt := newTestOptimizer()

	result, err := opt.Optimize(fourAssetFixture(), Request{
		Objective:    ObjectiveMaxSharpe,
		RiskFreeRate: 0.02,
	})
	require.NoError(t, err)

	sum := 0.0
	for _, w := range result.Weights {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, result.Volatility, 0.0)
	assert.Positive(t, result.Iterations)
	assert.InDelta(t,
		formulas.SharpeRatio(result.ExpectedReturn, result.Volatility, 0.02),
		result.Sharpe, 1e-12)
}
