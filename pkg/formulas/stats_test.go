package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(values), 1e-12)
	// Sample standard deviation of the classic fixture.
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(values), 1e-12)
}

func TestCovarianceSymmetry(t *testing.T) {
	x := []float64{0.01, -0.02, 0.03, 0.00}
	y := []float64{0.02, 0.01, -0.01, 0.03}

	assert.InDelta(t, Covariance(x, y), Covariance(y, x), 1e-15)
	assert.InDelta(t, Variance(x), Covariance(x, x), 1e-15)
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, -0.02}

	daily := StdDev(returns)
	assert.InDelta(t, daily*math.Sqrt(252), AnnualizedVolatility(returns, 252), 1e-12)
}
