package results

import "time"

// Run is the persisted record of one simulation-and-optimization run.
// The seed is always recorded, including seeds the service generated itself,
// so any run can be reproduced bit-for-bit.
type Run struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Tickers        []string  `json:"tickers"`
	Seed           uint64    `json:"seed"`
	Count          int       `json:"count"`
	RiskFreeRate   float64   `json:"risk_free_rate"`
	PortfolioValue float64   `json:"portfolio_value"`
	Annualization  int       `json:"annualization"`

	// Optimal portfolio summary metrics, alongside the best sampled Sharpe
	// for the continuous-vs-discrete cross-check.
	OptimalReturn     float64 `json:"optimal_return"`
	OptimalVolatility float64 `json:"optimal_volatility"`
	OptimalSharpe     float64 `json:"optimal_sharpe"`
	BestSampledSharpe float64 `json:"best_sampled_sharpe"`
}

// Trial is one scored candidate of a run, keyed by its stable trial index.
type Trial struct {
	RunID          string    `json:"run_id"`
	Index          int       `json:"index"`
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	Sharpe         float64   `json:"sharpe"`
}

// Allocation is the per-ticker breakdown of one trial's weight vector into
// notional amounts (weight × portfolio value).
type Allocation struct {
	RunID      string  `json:"run_id"`
	TrialIndex int     `json:"trial_index"`
	Ticker     string  `json:"ticker"`
	Weight     float64 `json:"weight"`
	Amount     float64 `json:"amount"`
}

// OptimalAllocation is one row of the optimal portfolio record.
type OptimalAllocation struct {
	RunID    string  `json:"run_id"`
	AsOfDate string  `json:"as_of_date"`
	Ticker   string  `json:"ticker"`
	Weight   float64 `json:"weight"`
	Amount   float64 `json:"amount"`
}

// FrontierPoint is one point of the persisted frontier curve, ordered by
// ascending volatility.
type FrontierPoint struct {
	RunID          string  `json:"run_id"`
	Index          int     `json:"index"`
	Volatility     float64 `json:"volatility"`
	ExpectedReturn float64 `json:"expected_return"`
}

// Schema defines the result tables. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
    id                  TEXT PRIMARY KEY,
    created_at          INTEGER NOT NULL,
    tickers             TEXT NOT NULL,
    seed                TEXT NOT NULL,
    trial_count         INTEGER NOT NULL,
    risk_free_rate      REAL NOT NULL,
    portfolio_value     REAL NOT NULL,
    annualization       INTEGER NOT NULL,
    optimal_return      REAL NOT NULL,
    optimal_volatility  REAL NOT NULL,
    optimal_sharpe      REAL NOT NULL,
    best_sampled_sharpe REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS simulation_trials (
    run_id          TEXT NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
    trial_idx       INTEGER NOT NULL,
    weights         TEXT NOT NULL,
    expected_return REAL NOT NULL,
    volatility      REAL NOT NULL,
    sharpe          REAL NOT NULL,
    PRIMARY KEY (run_id, trial_idx)
);

CREATE TABLE IF NOT EXISTS trial_allocations (
    run_id    TEXT NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
    trial_idx INTEGER NOT NULL,
    ticker    TEXT NOT NULL,
    weight    REAL NOT NULL,
    amount    REAL NOT NULL,
    PRIMARY KEY (run_id, trial_idx, ticker)
);

CREATE TABLE IF NOT EXISTS optimal_portfolios (
    run_id     TEXT NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
    as_of_date TEXT NOT NULL,
    ticker     TEXT NOT NULL,
    weight     REAL NOT NULL,
    amount     REAL NOT NULL,
    PRIMARY KEY (run_id, ticker)
);

CREATE TABLE IF NOT EXISTS frontier_points (
    run_id          TEXT NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
    point_idx       INTEGER NOT NULL,
    volatility      REAL NOT NULL,
    expected_return REAL NOT NULL,
    PRIMARY KEY (run_id, point_idx)
);
`
