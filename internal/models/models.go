package models

import (
	"time"

	"gorm.io/gorm"
)

// Coin is a tracked crypto asset.
type Coin struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Symbol    string         `json:"symbol" gorm:"uniqueIndex;not null"`
	Name      string         `json:"name" gorm:"not null"`
	Slug      string         `json:"slug" gorm:"index"`
	Category  string         `json:"category"` // layer1, layer2, defi, stablecoin...
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Associations
	PricePoints []PricePoint `json:"price_points,omitempty" gorm:"foreignKey:CoinID"`
}

// PricePoint is one observation in a coin's price history.
// Callers assume ascending timestamp order when reading series.
type PricePoint struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CoinID    uint      `json:"coin_id" gorm:"uniqueIndex:idx_coin_ts;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"uniqueIndex:idx_coin_ts;index;not null"`
	Price     float64   `json:"price"`
	Volume    *float64  `json:"volume"`
	MarketCap *float64  `json:"market_cap"`
	Source    string    `json:"source" gorm:"default:'market_api'"`
	CreatedAt time.Time `json:"created_at"`
}

// BetaCache stores a computed beta keyed by coin and benchmark so repeat
// analyses within the TTL skip the regression.
type BetaCache struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CoinID     uint      `json:"coin_id" gorm:"uniqueIndex:idx_beta_coin_bench;not null"`
	Benchmark  string    `json:"benchmark" gorm:"uniqueIndex:idx_beta_coin_bench;not null"`
	Beta       float64   `json:"beta"`
	R2         float64   `json:"r2"`
	SampleSize int       `json:"sample_size"`
	Confidence string    `json:"confidence"` // low, medium, high
	ExpiresAt  time.Time `json:"expires_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BenchmarkSnapshot is a TTL'd snapshot of a reference asset (sp500, btc)
// used for beta and discount-rate calculations.
type BenchmarkSnapshot struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"uniqueIndex;not null"`
	CurrentValue float64   `json:"current_value"`
	TrailingCAGR float64   `json:"trailing_cagr"`
	Volatility   float64   `json:"volatility"`
	ReturnsJSON  string    `json:"-" gorm:"type:longtext"` // serialized return series
	SampleSize   int       `json:"sample_size"`
	Estimated    bool      `json:"estimated"` // true when built from fallback constants
	ExpiresAt    time.Time `json:"expires_at" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnalysisRecord stores one completed analysis for auditing and report export.
type AnalysisRecord struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"` // uuid
	CoinSymbol   string    `json:"coin_symbol" gorm:"index;not null"`
	HorizonYears float64   `json:"horizon_years"`
	Amount       float64   `json:"amount"`
	ResultJSON   string    `json:"-" gorm:"type:longtext"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

// Portfolio groups a user's holdings.
type Portfolio struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"` // uuid
	Name      string         `json:"name" gorm:"not null"`
	Currency  string         `json:"currency" gorm:"default:'USD'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:PortfolioID"`
}

// Transaction is a buy or sell inside a portfolio.
type Transaction struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PortfolioID string    `json:"portfolio_id" gorm:"index;size:36;not null"`
	CoinSymbol  string    `json:"coin_symbol" gorm:"index;not null"`
	Type        string    `json:"type" gorm:"not null"` // buy, sell
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	ExecutedAt  time.Time `json:"executed_at" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}
