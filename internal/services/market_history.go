package services

import (
	"context"
	"errors"
	"fmt"

	"code-reveal-backend/internal/models"

	"gorm.io/gorm"
)

type MarketHistory interface {
	Save(ctx context.Context, data *models.MarketData) error
	// Latest returns nil without error when no sample has been stored yet.
	Latest(ctx context.Context) (*models.MarketData, error)
}

type GormMarketHistory struct {
	db *gorm.DB
}

func NewGormMarketHistory(db *gorm.DB) *GormMarketHistory {
	return &GormMarketHistory{db: db}
}

func (h *GormMarketHistory) Save(ctx context.Context, data *models.MarketData) error {
	if err := h.db.WithContext(ctx).Create(data).Error; err != nil {
		return fmt.Errorf("failed to save market data: %w", err)
	}
	return nil
}

func (h *GormMarketHistory) Latest(ctx context.Context) (*models.MarketData, error) {
	var data models.MarketData
	err := h.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").First(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest market data: %w", err)
	}
	return &data, nil
}
