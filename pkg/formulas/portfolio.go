package formulas

import "math"

// VolatilityEpsilon is the threshold below which portfolio volatility is
// treated as numerically zero. The Sharpe ratio is defined as 0 below it.
const VolatilityEpsilon = 1e-12

// PortfolioReturn calculates the expected portfolio return: μ'w
func PortfolioReturn(weights, mu []float64) float64 {
	var ret float64
	for i := range weights {
		ret += weights[i] * mu[i]
	}
	return ret
}

// PortfolioVariance calculates the portfolio variance: w'Σw
func PortfolioVariance(weights []float64, cov [][]float64) float64 {
	var variance float64
	for i := range weights {
		for j := range weights {
			variance += weights[i] * weights[j] * cov[i][j]
		}
	}
	return variance
}

// PortfolioVolatility calculates the portfolio standard deviation: sqrt(w'Σw)
func PortfolioVolatility(weights []float64, cov [][]float64) float64 {
	return math.Sqrt(math.Max(PortfolioVariance(weights, cov), 0))
}

// SharpeRatio calculates (return - riskFree) / volatility.
// Defined as 0 when volatility is numerically zero.
func SharpeRatio(expectedReturn, volatility, riskFreeRate float64) float64 {
	if volatility < VolatilityEpsilon {
		return 0
	}
	return (expectedReturn - riskFreeRate) / volatility
}
