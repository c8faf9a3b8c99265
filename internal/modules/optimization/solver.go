package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// Problem describes a smooth minimization handed to a Solver. Constraints are
// folded into Func and Grad by the caller (penalty formulation), so any
// standard numerical routine can be substituted.
type Problem struct {
	Func          func(x []float64) float64
	Grad          func(grad, x []float64)
	Initial       []float64
	MaxIterations int // iteration budget, bounds solver runtime
}

// Solution is the solver's best point with convergence metadata.
type Solution struct {
	X          []float64
	Converged  bool
	Iterations int
}

// Solver abstracts the constrained numerical routine behind the optimizer so
// SQP, interior point or a bespoke projected-gradient method can be swapped in.
type Solver interface {
	Solve(p Problem) (Solution, error)
}

// GradientSolver minimizes with BFGS first and retries with Nelder-Mead when
// the gradient-based run fails or stalls.
type GradientSolver struct{}

// Solve runs the minimization within the problem's iteration budget.
func (s *GradientSolver) Solve(p Problem) (Solution, error) {
	problem := optimize.Problem{
		Func: p.Func,
		Grad: p.Grad,
	}
	settings := &optimize.Settings{
		MajorIterations: p.MaxIterations,
	}

	result, err := optimize.Minimize(problem, initial(p), settings, &optimize.BFGS{})
	if err != nil || !convergedStatus(result.Status) {
		// Try with different method
		result, err = optimize.Minimize(problem, initial(p), settings, &optimize.NelderMead{})
		if err != nil {
			// Still hand back the last point reached so the caller can
			// surface it as the best-found candidate.
			sol := Solution{}
			if result != nil && len(result.X) > 0 {
				sol.X = append([]float64(nil), result.X...)
				sol.Iterations = result.Stats.MajorIterations
			}
			return sol, fmt.Errorf("optimization failed: %w", err)
		}
	}

	return Solution{
		X:          append([]float64(nil), result.X...),
		Converged:  convergedStatus(result.Status),
		Iterations: result.Stats.MajorIterations,
	}, nil
}

// convergedStatus accepts the successful gonum termination statuses.
func convergedStatus(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

func initial(p Problem) []float64 {
	return append([]float64(nil), p.Initial...)
}
