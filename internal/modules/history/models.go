package history

// PricePoint is one daily closing price observation.
type PricePoint struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"` // ISO date, YYYY-MM-DD
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// Schema defines the price history tables. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS prices (
    ticker TEXT NOT NULL,
    date   TEXT NOT NULL,
    close  REAL NOT NULL,
    volume INTEGER,
    PRIMARY KEY (ticker, date)
);

CREATE INDEX IF NOT EXISTS idx_prices_date ON prices(date);
`
