package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"code-reveal-backend/internal/models"

	"gorm.io/gorm"
)

const admitMaxRetries = 3

// WinnerLedger is the durable record of who has won and at which position.
type WinnerLedger interface {
	HasWon(ctx context.Context, wallet string) (bool, error)
	// Admit assigns the next position to wallet and persists it. It fails with
	// ErrMaxWinnersReached when maxWinners records exist and ErrAlreadyWon when
	// the wallet is already recorded.
	Admit(ctx context.Context, wallet string, maxWinners int) (*models.Winner, error)
	Recent(ctx context.Context, limit int) ([]models.Winner, error)
}

// GormLedger stores winners in postgres. Unique indexes on wallet_address and
// position are the authoritative guard; the mutex and table lock only keep
// contention off them.
type GormLedger struct {
	mu sync.Mutex
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) HasWon(ctx context.Context, wallet string) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).
		Model(&models.Winner{}).
		Where("wallet_address = ?", wallet).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up winner: %w", err)
	}
	return n > 0, nil
}

func (l *GormLedger) Admit(ctx context.Context, wallet string, maxWinners int) (*models.Winner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 0; i < admitMaxRetries; i++ {
		winner, err := l.admitOnce(ctx, wallet, maxWinners)
		if err == nil {
			return winner, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}

		won, lookupErr := l.HasWon(ctx, wallet)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if won {
			return nil, ErrAlreadyWon
		}
		// Position collided with a writer in another process; recount.
	}

	return nil, fmt.Errorf("failed to assign winner position after %d tries", admitMaxRetries)
}

func (l *GormLedger) admitOnce(ctx context.Context, wallet string, maxWinners int) (*models.Winner, error) {
	var winner *models.Winner

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("LOCK TABLE winners IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&models.Winner{}).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(maxWinners) {
			return ErrMaxWinnersReached
		}

		position := int(count) + 1
		winner = &models.Winner{
			WalletAddress:     wallet,
			Position:          position,
			RewardBasisPoints: models.RewardBasisPointsFor(position),
			CreatedAt:         time.Now(),
		}
		return tx.Create(winner).Error
	})
	if err != nil {
		return nil, err
	}
	return winner, nil
}

func (l *GormLedger) Recent(ctx context.Context, limit int) ([]models.Winner, error) {
	var winners []models.Winner
	err := l.db.WithContext(ctx).
		Order("created_at DESC").
		Order("position DESC").
		Limit(limit).
		Find(&winners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	return winners, nil
}
