// Package domain holds the core value types and error taxonomy shared by the
// simulation and optimization modules. It has no infrastructure dependencies.
package domain

import "fmt"

// DataError reports malformed or insufficient historical input. It carries the
// offending ticker and date so callers can surface actionable context.
// Data errors are terminal for the run and are never retried internally.
type DataError struct {
	Ticker string
	Date   string
	Reason string
}

func (e *DataError) Error() string {
	switch {
	case e.Ticker != "" && e.Date != "":
		return fmt.Sprintf("data error for %s at %s: %s", e.Ticker, e.Date, e.Reason)
	case e.Ticker != "":
		return fmt.Sprintf("data error for %s: %s", e.Ticker, e.Reason)
	default:
		return fmt.Sprintf("data error: %s", e.Reason)
	}
}

// ConfigError reports invalid run parameters. It is raised before any
// computation begins, so no partial run is ever started.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// ConvergenceError reports that the numerical solver exhausted its iteration
// budget without meeting tolerances. BestWeights holds the best candidate
// found (possibly infeasible) and ConstraintViolation the final magnitude of
// the sum-to-one violation, so callers can fall back to the best sampled
// candidate instead.
type ConvergenceError struct {
	BestWeights         []float64
	ConstraintViolation float64
	Iterations          int
	Reason              string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("optimizer did not converge after %d iterations (constraint violation %.3e): %s",
		e.Iterations, e.ConstraintViolation, e.Reason)
}
