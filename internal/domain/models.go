package domain

// AlignedPrices is an immutable aligned view of historical closing prices for
// a fixed asset universe. Closes[i][t] is the close of Tickers[i] on Dates[t].
// The providing collaborator guarantees dates are strictly increasing and
// shared by every ticker, with no duplicates.
type AlignedPrices struct {
	Tickers []string
	Dates   []string
	Closes  [][]float64
}

// NumAssets returns the number of assets in the aligned view.
func (p *AlignedPrices) NumAssets() int { return len(p.Tickers) }

// NumDates returns the number of common dates.
func (p *AlignedPrices) NumDates() int { return len(p.Dates) }

// ReturnsMatrix holds annualized return statistics for an asset universe.
// Created once per run from a fixed historical window; immutable afterward.
// Cov is symmetric with non-negative diagonal entries.
type ReturnsMatrix struct {
	Tickers []string
	Mean    []float64   // annualized mean returns, one per asset
	Cov     [][]float64 // annualized covariance matrix, N×N
}

// NumAssets returns the dimension of the statistics.
func (rm *ReturnsMatrix) NumAssets() int { return len(rm.Tickers) }

// ScoredCandidate is a weight vector paired with its derived metrics.
// Immutable once computed.
type ScoredCandidate struct {
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	Sharpe         float64   `json:"sharpe"`
}

// OptimalPortfolio is the single best allocation produced by the numerical
// optimizer, as opposed to the best sampled candidate.
type OptimalPortfolio struct {
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Volatility     float64   `json:"volatility"`
	Sharpe         float64   `json:"sharpe"`
	Iterations     int       `json:"iterations"`
}
