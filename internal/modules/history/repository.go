// Package history stores daily closing prices and serves aligned views of
// them to the returns calculator.
package history

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
)

// Repository handles price history database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price history repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// SavePrices upserts a batch of price points. The (ticker, date) primary key
// guarantees the table never holds duplicate observations.
func (r *Repository) SavePrices(points []PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO prices (ticker, date, close, volume)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET close = excluded.close, volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(p.Ticker, p.Date, p.Close, p.Volume); err != nil {
			return fmt.Errorf("failed to insert price for %s at %s: %w", p.Ticker, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}

	r.log.Debug().Int("points", len(points)).Msg("Saved price points")
	return nil
}

// GetAligned returns the closing prices for the given tickers over their
// common dates, sorted ascending and capped at lookbackDays most recent
// observations. Dates missing for any ticker are dropped, so the view the
// core receives is always aligned and duplicate-free.
func (r *Repository) GetAligned(tickers []string, lookbackDays int) (*domain.AlignedPrices, error) {
	if len(tickers) == 0 {
		return nil, &domain.DataError{Reason: "no tickers requested"}
	}

	perTicker := make([]map[string]float64, len(tickers))
	for i, ticker := range tickers {
		closes, err := r.getCloses(ticker)
		if err != nil {
			return nil, err
		}
		if len(closes) == 0 {
			return nil, &domain.DataError{
				Ticker: ticker,
				Reason: "no price history available",
			}
		}
		perTicker[i] = closes
	}

	// Intersect dates across all tickers.
	var common []string
	for date := range perTicker[0] {
		shared := true
		for i := 1; i < len(perTicker); i++ {
			if _, ok := perTicker[i][date]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, date)
		}
	}
	sort.Strings(common)

	if lookbackDays > 0 && len(common) > lookbackDays {
		common = common[len(common)-lookbackDays:]
	}

	closes := make([][]float64, len(tickers))
	for i := range tickers {
		closes[i] = make([]float64, len(common))
		for j, date := range common {
			closes[i][j] = perTicker[i][date]
		}
	}

	r.log.Debug().
		Int("tickers", len(tickers)).
		Int("common_dates", len(common)).
		Msg("Built aligned price view")

	return &domain.AlignedPrices{
		Tickers: append([]string(nil), tickers...),
		Dates:   common,
		Closes:  closes,
	}, nil
}

// Tickers lists the distinct tickers present in the store.
func (r *Repository) Tickers() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT ticker FROM prices ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

func (r *Repository) getCloses(ticker string) (map[string]float64, error) {
	rows, err := r.db.Query(`SELECT date, close FROM prices WHERE ticker = ? ORDER BY date`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	closes := make(map[string]float64)
	for rows.Next() {
		var date string
		var close float64
		if err := rows.Scan(&date, &close); err != nil {
			return nil, fmt.Errorf("failed to scan price for %s: %w", ticker, err)
		}
		closes[date] = close
	}
	return closes, rows.Err()
}
