// Package results persists simulation run records and serves them back to
// the API and visualization collaborators.
package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles result database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new results repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "results").Logger(),
	}
}

// SaveRun writes a complete run record in a single transaction. A failed run
// never reaches this point, so the store only ever holds finished runs.
func (r *Repository) SaveRun(
	run Run,
	trials []Trial,
	allocations []Allocation,
	frontier []FrontierPoint,
	optimal []OptimalAllocation,
) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO simulation_runs
		(id, created_at, tickers, seed, trial_count, risk_free_rate, portfolio_value,
		 annualization, optimal_return, optimal_volatility, optimal_sharpe, best_sampled_sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.Unix(),
		strings.Join(run.Tickers, ","),
		strconv.FormatUint(run.Seed, 10),
		run.Count,
		run.RiskFreeRate,
		run.PortfolioValue,
		run.Annualization,
		run.OptimalReturn,
		run.OptimalVolatility,
		run.OptimalSharpe,
		run.BestSampledSharpe,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	trialStmt, err := tx.Prepare(`
		INSERT INTO simulation_trials (run_id, trial_idx, weights, expected_return, volatility, sharpe)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	defer trialStmt.Close()

	for _, t := range trials {
		weights, err := json.Marshal(t.Weights)
		if err != nil {
			return fmt.Errorf("failed to marshal weights for trial %d: %w", t.Index, err)
		}
		if _, err := trialStmt.Exec(run.ID, t.Index, string(weights), t.ExpectedReturn, t.Volatility, t.Sharpe); err != nil {
			return fmt.Errorf("failed to insert trial %d: %w", t.Index, err)
		}
	}

	allocStmt, err := tx.Prepare(`
		INSERT INTO trial_allocations (run_id, trial_idx, ticker, weight, amount)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare allocation insert: %w", err)
	}
	defer allocStmt.Close()

	for _, a := range allocations {
		if _, err := allocStmt.Exec(run.ID, a.TrialIndex, a.Ticker, a.Weight, a.Amount); err != nil {
			return fmt.Errorf("failed to insert allocation for trial %d %s: %w", a.TrialIndex, a.Ticker, err)
		}
	}

	frontierStmt, err := tx.Prepare(`
		INSERT INTO frontier_points (run_id, point_idx, volatility, expected_return)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare frontier insert: %w", err)
	}
	defer frontierStmt.Close()

	for _, p := range frontier {
		if _, err := frontierStmt.Exec(run.ID, p.Index, p.Volatility, p.ExpectedReturn); err != nil {
			return fmt.Errorf("failed to insert frontier point %d: %w", p.Index, err)
		}
	}

	optimalStmt, err := tx.Prepare(`
		INSERT INTO optimal_portfolios (run_id, as_of_date, ticker, weight, amount)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare optimal insert: %w", err)
	}
	defer optimalStmt.Close()

	for _, o := range optimal {
		if _, err := optimalStmt.Exec(run.ID, o.AsOfDate, o.Ticker, o.Weight, o.Amount); err != nil {
			return fmt.Errorf("failed to insert optimal allocation for %s: %w", o.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}

	r.log.Info().
		Str("run_id", run.ID).
		Int("trials", len(trials)).
		Int("frontier_points", len(frontier)).
		Msg("Persisted simulation run")

	return nil
}

// GetRun fetches a run record by id. Returns sql.ErrNoRows when absent.
func (r *Repository) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, created_at, tickers, seed, trial_count, risk_free_rate, portfolio_value,
		       annualization, optimal_return, optimal_volatility, optimal_sharpe, best_sampled_sharpe
		FROM simulation_runs WHERE id = ?
	`, id)

	var run Run
	var createdAt int64
	var tickers, seed string
	err := row.Scan(
		&run.ID, &createdAt, &tickers, &seed, &run.Count, &run.RiskFreeRate,
		&run.PortfolioValue, &run.Annualization, &run.OptimalReturn,
		&run.OptimalVolatility, &run.OptimalSharpe, &run.BestSampledSharpe,
	)
	if err != nil {
		return nil, err
	}

	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	if tickers != "" {
		run.Tickers = strings.Split(tickers, ",")
	}
	run.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored seed %q: %w", seed, err)
	}

	return &run, nil
}

// GetTrials fetches the scored population of a run ordered by trial index.
func (r *Repository) GetTrials(runID string) ([]Trial, error) {
	rows, err := r.db.Query(`
		SELECT trial_idx, weights, expected_return, volatility, sharpe
		FROM simulation_trials WHERE run_id = ? ORDER BY trial_idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials for %s: %w", runID, err)
	}
	defer rows.Close()

	var trials []Trial
	for rows.Next() {
		t := Trial{RunID: runID}
		var weights string
		if err := rows.Scan(&t.Index, &weights, &t.ExpectedReturn, &t.Volatility, &t.Sharpe); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		if err := json.Unmarshal([]byte(weights), &t.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trial weights: %w", err)
		}
		trials = append(trials, t)
	}
	return trials, rows.Err()
}

// GetFrontier fetches the frontier curve of a run ordered by ascending
// volatility.
func (r *Repository) GetFrontier(runID string) ([]FrontierPoint, error) {
	rows, err := r.db.Query(`
		SELECT point_idx, volatility, expected_return
		FROM frontier_points WHERE run_id = ? ORDER BY point_idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frontier for %s: %w", runID, err)
	}
	defer rows.Close()

	var points []FrontierPoint
	for rows.Next() {
		p := FrontierPoint{RunID: runID}
		if err := rows.Scan(&p.Index, &p.Volatility, &p.ExpectedReturn); err != nil {
			return nil, fmt.Errorf("failed to scan frontier point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetOptimal fetches the optimal portfolio allocation rows of a run.
func (r *Repository) GetOptimal(runID string) ([]OptimalAllocation, error) {
	rows, err := r.db.Query(`
		SELECT as_of_date, ticker, weight, amount
		FROM optimal_portfolios WHERE run_id = ? ORDER BY weight DESC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query optimal portfolio for %s: %w", runID, err)
	}
	defer rows.Close()

	var allocations []OptimalAllocation
	for rows.Next() {
		a := OptimalAllocation{RunID: runID}
		if err := rows.Scan(&a.AsOfDate, &a.Ticker, &a.Weight, &a.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan optimal allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}
