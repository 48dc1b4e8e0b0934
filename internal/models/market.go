package models

import "time"

// MarketData is one persisted market sample.
type MarketData struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MarketCap float64   `gorm:"not null" json:"marketCap"`
	Price     float64   `gorm:"not null" json:"price"`
	Supply    float64   `json:"supply"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (MarketData) TableName() string {
	return "market_data"
}

// MarketQuote is what a price oracle returns before persistence.
type MarketQuote struct {
	Price     float64
	Supply    float64
	MarketCap float64
}

type MarketUpdate struct {
	MarketCap          float64   `json:"marketCap"`
	Price              float64   `json:"price"`
	FormattedMarketCap string    `json:"formattedMarketCap"`
	Timestamp          time.Time `json:"timestamp"`
}

func (m *MarketData) Update() MarketUpdate {
	return MarketUpdate{
		MarketCap:          m.MarketCap,
		Price:              m.Price,
		FormattedMarketCap: FormatMarketCap(m.MarketCap),
		Timestamp:          m.Timestamp,
	}
}
