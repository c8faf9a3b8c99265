package history

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"

	_ "modernc.org/sqlite"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return NewRepository(db, zerolog.Nop())
}

func point(ticker, date string, close float64) PricePoint {
	return PricePoint{Ticker: ticker, Date: date, Close: close}
}

func TestSavePricesAndTickers(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.SavePrices([]PricePoint{
		point("BBB", "2024-01-02", 50),
		point("AAA", "2024-01-02", 100),
	})
	require.NoError(t, err)

	tickers, err := repo.Tickers()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, tickers)
}

func TestSavePricesUpsertReplacesDuplicates(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.SavePrices([]PricePoint{point("AAA", "2024-01-02", 100)}))
	require.NoError(t, repo.SavePrices([]PricePoint{point("AAA", "2024-01-02", 101)}))

	aligned, err := repo.GetAligned([]string{"AAA"}, 0)
	require.NoError(t, err)
	require.Len(t, aligned.Dates, 1)
	assert.Equal(t, 101.0, aligned.Closes[0][0])
}

func TestSavePricesEmptyBatch(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.SavePrices(nil))
}

func TestGetAlignedIntersectsDates(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.SavePrices([]PricePoint{
		point("AAA", "2024-01-02", 100),
		point("AAA", "2024-01-03", 110),
		point("AAA", "2024-01-04", 105),
		point("BBB", "2024-01-03", 50),
		point("BBB", "2024-01-04", 52),
		point("BBB", "2024-01-05", 51),
	}))

	aligned, err := repo.GetAligned([]string{"AAA", "BBB"}, 0)
	require.NoError(t, err)

	// Only the dates both tickers share survive, in ascending order.
	assert.Equal(t, []string{"2024-01-03", "2024-01-04"}, aligned.Dates)
	assert.Equal(t, []float64{110, 105}, aligned.Closes[0])
	assert.Equal(t, []float64{50, 52}, aligned.Closes[1])
}

func TestGetAlignedAppliesLookback(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.SavePrices([]PricePoint{
		point("AAA", "2024-01-02", 100),
		point("AAA", "2024-01-03", 110),
		point("AAA", "2024-01-04", 105),
		point("AAA", "2024-01-05", 108),
	}))

	aligned, err := repo.GetAligned([]string{"AAA"}, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-04", "2024-01-05"}, aligned.Dates)
	assert.Equal(t, []float64{105, 108}, aligned.Closes[0])
}

func TestGetAlignedDataErrors(t *testing.T) {
	repo := setupTestRepo(t)
	var dataErr *domain.DataError

	_, err := repo.GetAligned(nil, 0)
	require.ErrorAs(t, err, &dataErr)

	require.NoError(t, repo.SavePrices([]PricePoint{point("AAA", "2024-01-02", 100)}))

	_, err = repo.GetAligned([]string{"AAA", "MISSING"}, 0)
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "MISSING", dataErr.Ticker)
}
