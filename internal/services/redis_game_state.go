package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"code-reveal-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

var errGameStateContention = errors.New("game state update kept conflicting")

// GetGameState loads the reveal record, creating it on first read. SETNX keeps
// concurrent first readers from overwriting each other.
func (s *RedisService) GetGameState(ctx context.Context, length int) (*models.RevealRecord, error) {
	data, err := s.client.Get(ctx, KeyGameState).Bytes()
	if err == redis.Nil {
		initial, err := json.Marshal(models.NewRevealRecord(length))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal game state: %w", err)
		}
		if err := s.client.SetNX(ctx, KeyGameState, initial, 0).Err(); err != nil {
			return nil, fmt.Errorf("failed to init game state: %w", err)
		}
		data, err = s.client.Get(ctx, KeyGameState).Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to get game state: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	return decodeGameState(data, length)
}

// UpdateGameState runs fn inside a WATCH/MULTI transaction on the game state
// key and retries when another writer got there first. fn reports whether it
// changed the record; unchanged records are not written back. fn may run more
// than once and must derive everything from the record it is given.
func (s *RedisService) UpdateGameState(ctx context.Context, length int, fn func(*models.RevealRecord) (bool, error)) (*models.RevealRecord, error) {
	var result *models.RevealRecord

	txf := func(tx *redis.Tx) error {
		var record *models.RevealRecord

		data, err := tx.Get(ctx, KeyGameState).Bytes()
		switch {
		case err == redis.Nil:
			record = models.NewRevealRecord(length)
		case err != nil:
			return fmt.Errorf("failed to get game state: %w", err)
		default:
			record, err = decodeGameState(data, length)
			if err != nil {
				return err
			}
		}

		changed, err := fn(record)
		if err != nil {
			return err
		}
		result = record
		if !changed {
			return nil
		}

		updated, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal game state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, KeyGameState, updated, 0)
			return nil
		})
		return err
	}

	for i := 0; i < gameStateMaxRetries; i++ {
		err := s.client.Watch(ctx, txf, KeyGameState)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, errGameStateContention
}

func decodeGameState(data []byte, length int) (*models.RevealRecord, error) {
	var record models.RevealRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}
	if len(record.RevealedCharacters) != length {
		return nil, fmt.Errorf("stored game state has %d slots, secret has %d",
			len(record.RevealedCharacters), length)
	}
	return &record, nil
}
