// Package optimization solves the constrained allocation problem directly,
// independent of random sampling.
package optimization

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// Objective selects the optimization target.
type Objective string

const (
	// ObjectiveMaxSharpe maximizes (μ'w - r_f) / sqrt(w'Σw).
	ObjectiveMaxSharpe Objective = "max_sharpe"
	// ObjectiveMinVolatility minimizes w'Σw, optionally pinning μ'w to a target.
	ObjectiveMinVolatility Objective = "min_volatility"
)

const (
	defaultMaxIterations = 1000
	penaltyWeight        = 1000.0
)

// Request holds the parameters of one optimization.
type Request struct {
	Objective    Objective
	RiskFreeRate float64
	// TargetReturn pins the expected return (min_volatility only).
	TargetReturn *float64
	// MinWeights / MaxWeights are per-asset bounds; nil defaults to [0,1]
	// long-only bounds for every asset.
	MinWeights []float64
	MaxWeights []float64
	// MaxIterations bounds the solver; defaults to 1000.
	MaxIterations int
}

// Optimizer finds the single best allocation for an objective subject to the
// full-investment constraint and per-asset weight bounds.
type Optimizer struct {
	solver Solver
	log    zerolog.Logger
}

// NewOptimizer creates a new optimizer backed by the given solver.
func NewOptimizer(solver Solver, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		solver: solver,
		log:    log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize solves the constrained problem from the equal-weight starting
// point. On success the portfolio's Sharpe ratio is at least that of the best
// candidate any sampled population can draw from the same statistics.
//
// Fails with a ConfigError before any computation when bounds make the
// feasible region empty, and with a ConvergenceError (carrying the best-found
// weights and constraint violation) when the solver exhausts its budget.
func (o *Optimizer) Optimize(rm *domain.ReturnsMatrix, req Request) (*domain.OptimalPortfolio, error) {
	n := rm.NumAssets()
	if n < 2 {
		return nil, &domain.ConfigError{
			Param:  "universe",
			Reason: "at least 2 assets are required for optimization",
		}
	}

	minW, maxW, err := resolveBounds(n, req.MinWeights, req.MaxWeights)
	if err != nil {
		return nil, err
	}

	if req.Objective != ObjectiveMaxSharpe && req.Objective != ObjectiveMinVolatility {
		return nil, &domain.ConfigError{
			Param:  "objective",
			Reason: "unknown objective " + string(req.Objective),
		}
	}
	if req.Objective == ObjectiveMaxSharpe && req.TargetReturn != nil {
		return nil, &domain.ConfigError{
			Param:  "target_return",
			Reason: "target return applies to min_volatility only",
		}
	}

	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	problem := Problem{
		Initial:       equalWeights(n),
		MaxIterations: maxIter,
	}
	switch req.Objective {
	case ObjectiveMaxSharpe:
		problem.Func, problem.Grad = o.maxSharpeObjective(rm, req.RiskFreeRate, minW, maxW)
	case ObjectiveMinVolatility:
		problem.Func, problem.Grad = o.minVolatilityObjective(rm, req.TargetReturn, minW, maxW)
	}

	solution, err := o.solver.Solve(problem)
	if err != nil {
		best := solution.X
		if len(best) == 0 {
			best = equalWeights(n)
		} else {
			best = projectToBounds(best, minW, maxW)
		}
		return nil, &domain.ConvergenceError{
			BestWeights:         best,
			ConstraintViolation: sumViolation(best),
			Iterations:          solution.Iterations,
			Reason:              err.Error(),
		}
	}

	// Project the solver's point to bounds, then scale onto the
	// full-investment constraint. Scaling preserves sign, so short positions
	// permitted by the bounds survive.
	xFinal := projectToBounds(solution.X, minW, maxW)
	sum := 0.0
	for _, w := range xFinal {
		sum += w
	}
	violation := math.Abs(sum - 1.0)

	if !solution.Converged {
		return nil, &domain.ConvergenceError{
			BestWeights:         xFinal,
			ConstraintViolation: violation,
			Iterations:          solution.Iterations,
			Reason:              "iteration budget exhausted before meeting tolerances",
		}
	}

	if sum <= 0 {
		return nil, &domain.ConvergenceError{
			BestWeights:         xFinal,
			ConstraintViolation: violation,
			Iterations:          solution.Iterations,
			Reason:              "solution mass is non-positive, cannot scale onto the budget constraint",
		}
	}

	weights := make([]float64, n)
	for i := range xFinal {
		weights[i] = xFinal[i] / sum
	}

	expReturn := formulas.PortfolioReturn(weights, rm.Mean)
	volatility := formulas.PortfolioVolatility(weights, rm.Cov)
	sharpe := formulas.SharpeRatio(expReturn, volatility, req.RiskFreeRate)

	if math.IsNaN(expReturn) || math.IsNaN(volatility) || math.IsNaN(sharpe) {
		return nil, &domain.ConvergenceError{
			BestWeights:         weights,
			ConstraintViolation: violation,
			Iterations:          solution.Iterations,
			Reason:              "solution metrics are not finite, covariance singular along search direction",
		}
	}

	o.log.Debug().
		Str("objective", string(req.Objective)).
		Float64("expected_return", expReturn).
		Float64("volatility", volatility).
		Float64("sharpe", sharpe).
		Int("iterations", solution.Iterations).
		Msg("Optimization converged")

	return &domain.OptimalPortfolio{
		Weights:        weights,
		ExpectedReturn: expReturn,
		Volatility:     volatility,
		Sharpe:         sharpe,
		Iterations:     solution.Iterations,
	}, nil
}

// maxSharpeObjective builds the penalized negative Sharpe ratio and its
// gradient. The sum-to-one constraint enters as a quadratic penalty.
func (o *Optimizer) maxSharpeObjective(
	rm *domain.ReturnsMatrix,
	riskFreeRate float64,
	minW, maxW []float64,
) (func(x []float64) float64, func(grad, x []float64)) {
	n := rm.NumAssets()

	fn := func(x []float64) float64 {
		xProj := projectToBounds(x, minW, maxW)

		excess := formulas.PortfolioReturn(xProj, rm.Mean) - riskFreeRate
		variance := formulas.PortfolioVariance(xProj, rm.Cov)
		stdDev := math.Sqrt(math.Max(variance, 1e-10))

		sum := 0.0
		for i := 0; i < n; i++ {
			sum += xProj[i]
		}

		obj := -excess / stdDev
		obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
		return obj
	}

	grad := func(grad, x []float64) {
		xProj := projectToBounds(x, minW, maxW)

		excess := formulas.PortfolioReturn(xProj, rm.Mean) - riskFreeRate
		variance := formulas.PortfolioVariance(xProj, rm.Cov)
		stdDev := math.Sqrt(math.Max(variance, 1e-10))

		for i := 0; i < n; i++ {
			var dVariance float64
			for j := 0; j < n; j++ {
				dVariance += 2 * rm.Cov[i][j] * xProj[j]
			}
			grad[i] = -rm.Mean[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev)
		}

		sum := 0.0
		for i := 0; i < n; i++ {
			sum += xProj[i]
		}
		for i := 0; i < n; i++ {
			grad[i] += 2 * penaltyWeight * (sum - 1.0)
		}
	}

	return fn, grad
}

// minVolatilityObjective builds the penalized portfolio variance and its
// gradient. When a target return is given, pinning it enters as an
// additional quadratic penalty.
func (o *Optimizer) minVolatilityObjective(
	rm *domain.ReturnsMatrix,
	targetReturn *float64,
	minW, maxW []float64,
) (func(x []float64) float64, func(grad, x []float64)) {
	n := rm.NumAssets()

	fn := func(x []float64) float64 {
		xProj := projectToBounds(x, minW, maxW)

		variance := formulas.PortfolioVariance(xProj, rm.Cov)

		sum := 0.0
		for i := 0; i < n; i++ {
			sum += xProj[i]
		}

		obj := variance
		obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
		if targetReturn != nil {
			ret := formulas.PortfolioReturn(xProj, rm.Mean)
			obj += penaltyWeight * (ret - *targetReturn) * (ret - *targetReturn)
		}
		return obj
	}

	grad := func(grad, x []float64) {
		xProj := projectToBounds(x, minW, maxW)

		for i := 0; i < n; i++ {
			grad[i] = 0
			for j := 0; j < n; j++ {
				grad[i] += 2 * rm.Cov[i][j] * xProj[j]
			}
		}

		sum := 0.0
		for i := 0; i < n; i++ {
			sum += xProj[i]
		}
		for i := 0; i < n; i++ {
			grad[i] += 2 * penaltyWeight * (sum - 1.0)
		}

		if targetReturn != nil {
			ret := formulas.PortfolioReturn(xProj, rm.Mean)
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (ret - *targetReturn) * rm.Mean[i]
			}
		}
	}

	return fn, grad
}

// resolveBounds fills default [0,1] bounds and rejects configurations whose
// feasible region is empty before any computation is started.
func resolveBounds(n int, minW, maxW []float64) ([]float64, []float64, error) {
	if minW == nil {
		minW = make([]float64, n) // zeros
	}
	if maxW == nil {
		maxW = make([]float64, n)
		for i := range maxW {
			maxW[i] = 1.0
		}
	}
	if len(minW) != n || len(maxW) != n {
		return nil, nil, &domain.ConfigError{
			Param:  "bounds",
			Reason: "bounds length does not match the number of assets",
		}
	}

	var minSum, maxSum float64
	for i := 0; i < n; i++ {
		if minW[i] > maxW[i] {
			return nil, nil, &domain.ConfigError{
				Param:  "bounds",
				Reason: "lower bound exceeds upper bound",
			}
		}
		minSum += minW[i]
		maxSum += maxW[i]
	}
	if minSum > 1.0 || maxSum < 1.0 {
		return nil, nil, &domain.ConfigError{
			Param:  "bounds",
			Reason: "bounds make the full-investment constraint infeasible",
		}
	}

	return minW, maxW, nil
}

// projectToBounds clamps each weight into its configured bounds.
func projectToBounds(x, minW, maxW []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(minW[i], math.Min(maxW[i], x[i]))
	}
	return proj
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

func sumViolation(weights []float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return math.Abs(sum - 1.0)
}
