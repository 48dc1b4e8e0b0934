package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"code-reveal-backend/internal/config"
	"code-reveal-backend/internal/models"
	"code-reveal-backend/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

var testCode = strings.Repeat("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789abcdefghijklmnopqrstuvwxyz", 2)[:100]

func setupTestRedis(t *testing.T) (*services.RedisService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{
		RedisURL:       mr.Addr(),
		RequestTimeout: time.Second,
	}

	redisService, err := services.NewRedisService(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { redisService.Close() })

	return redisService, mr
}

func testSecret(t *testing.T) *services.SecretStore {
	t.Helper()
	secret, err := services.NewSecretStore(testCode)
	require.NoError(t, err)
	return secret
}

type memLedger struct {
	mu      sync.Mutex
	winners []models.Winner
	failAll error
}

func (l *memLedger) HasWon(_ context.Context, wallet string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAll != nil {
		return false, l.failAll
	}
	for _, w := range l.winners {
		if w.WalletAddress == wallet {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.winners)
}

func (l *memLedger) Admit(_ context.Context, wallet string, maxWinners int) (*models.Winner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.winners {
		if w.WalletAddress == wallet {
			return nil, services.ErrAlreadyWon
		}
	}
	if len(l.winners) >= maxWinners {
		return nil, services.ErrMaxWinnersReached
	}
	position := len(l.winners) + 1
	w := models.Winner{
		ID:                uint(position),
		WalletAddress:     wallet,
		Position:          position,
		RewardBasisPoints: models.RewardBasisPointsFor(position),
		CreatedAt:         time.Now().Add(time.Duration(position) * time.Millisecond),
	}
	l.winners = append(l.winners, w)
	return &w, nil
}

func (l *memLedger) Recent(_ context.Context, limit int) ([]models.Winner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Winner, len(l.winners))
	copy(out, l.winners)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memHistory struct {
	mu      sync.Mutex
	samples []models.MarketData
}

func (h *memHistory) Save(_ context.Context, data *models.MarketData) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	data.ID = uint(len(h.samples) + 1)
	h.samples = append(h.samples, *data)
	return nil
}

func (h *memHistory) Latest(_ context.Context) (*models.MarketData, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.samples) == 0 {
		return nil, nil
	}
	latest := h.samples[len(h.samples)-1]
	return &latest, nil
}

func (h *memHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

type fakeCaptcha struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (c *fakeCaptcha) Verify(_ context.Context, _, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *fakeCaptcha) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	markets []models.MarketUpdate
	reveals []*models.RevealEvent
	winners []*models.WinnerEvent
}

func (b *recordingBroadcaster) BroadcastMarketUpdate(update models.MarketUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markets = append(b.markets, update)
}

func (b *recordingBroadcaster) BroadcastCharacterReveal(event *models.RevealEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reveals = append(b.reveals, event)
}

func (b *recordingBroadcaster) BroadcastNewWinner(event *models.WinnerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.winners = append(b.winners, event)
}

func (b *recordingBroadcaster) Reveals() []*models.RevealEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.RevealEvent(nil), b.reveals...)
}

func (b *recordingBroadcaster) Winners() []*models.WinnerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.WinnerEvent(nil), b.winners...)
}

func (b *recordingBroadcaster) Markets() []models.MarketUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.MarketUpdate(nil), b.markets...)
}
