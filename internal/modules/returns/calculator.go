// Package returns converts aligned historical price series into annualized
// return statistics for the simulation and optimization modules.
package returns

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// Calculator builds annualized mean and covariance statistics from aligned
// price history. It is a pure transform of its immutable input.
type Calculator struct {
	annualization float64
	log           zerolog.Logger
}

// NewCalculator creates a new returns calculator. periodsPerYear is the
// annualization factor (252 for daily trading data).
func NewCalculator(periodsPerYear int, log zerolog.Logger) *Calculator {
	return &Calculator{
		annualization: float64(periodsPerYear),
		log:           log.With().Str("component", "returns").Logger(),
	}
}

// Compute derives the annualized mean-return vector and covariance matrix
// from an aligned price table.
//
// Per-period simple returns are r[t] = (p[t] - p[t-1]) / p[t-1]; per-period
// moments are scaled by the annualization factor. Fails with a DataError when
// fewer than 2 overlapping dates exist, when any price is non-positive, or
// when an asset has zero variance (singular covariance row).
func (c *Calculator) Compute(prices *domain.AlignedPrices) (*domain.ReturnsMatrix, error) {
	n := prices.NumAssets()
	t := prices.NumDates()

	if t < 2 {
		return nil, &domain.DataError{
			Reason: "fewer than 2 overlapping dates, cannot compute returns",
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < t; j++ {
			if prices.Closes[i][j] <= 0 {
				return nil, &domain.DataError{
					Ticker: prices.Tickers[i],
					Date:   prices.Dates[j],
					Reason: "non-positive closing price, return undefined",
				}
			}
		}
	}

	// Per-period simple returns, one series per asset.
	periodReturns := make([][]float64, n)
	for i := 0; i < n; i++ {
		periodReturns[i] = formulas.SimpleReturns(prices.Closes[i])
	}

	mean := make([]float64, n)
	for i := 0; i < n; i++ {
		mean[i] = formulas.Mean(periodReturns[i]) * c.annualization
	}

	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := formulas.Covariance(periodReturns[i], periodReturns[j]) * c.annualization
			cov[i][j] = v
			cov[j][i] = v
		}
	}

	for i := 0; i < n; i++ {
		if cov[i][i] < formulas.VolatilityEpsilon || math.IsNaN(cov[i][i]) {
			return nil, &domain.DataError{
				Ticker: prices.Tickers[i],
				Reason: "zero variance price series, covariance matrix is singular",
			}
		}
	}

	c.log.Debug().
		Int("num_assets", n).
		Int("num_periods", t-1).
		Float64("annualization", c.annualization).
		Msg("Computed return statistics")

	return &domain.ReturnsMatrix{
		Tickers: append([]string(nil), prices.Tickers...),
		Mean:    mean,
		Cov:     cov,
	}, nil
}
