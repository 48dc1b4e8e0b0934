package services_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/models"
	"code-reveal-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	calls atomic.Int32
	quote models.MarketQuote
	err   error
}

func (o *stubOracle) Quote(context.Context) (*models.MarketQuote, error) {
	o.calls.Add(1)
	if o.err != nil {
		return nil, o.err
	}
	q := o.quote
	return &q, nil
}

func newMarketFixture(t *testing.T, oracle services.PriceOracle) (*services.MarketService, *services.RevealEngine, *memHistory, *recordingBroadcaster) {
	t.Helper()
	redisService, _ := setupTestRedis(t)
	broadcaster := &recordingBroadcaster{}
	history := &memHistory{}
	engine := services.NewRevealEngine(redisService, testSecret(t), services.DefaultRevealRules, broadcaster, logger.Discard())
	market := services.NewMarketService(oracle, history, engine, broadcaster, 10*time.Millisecond, time.Second, logger.Discard())
	return market, engine, history, broadcaster
}

func TestMarketIngest(t *testing.T) {
	market, engine, history, broadcaster := newMarketFixture(t, &stubOracle{})
	ctx := context.Background()

	data, event, err := market.Ingest(ctx, &models.MarketQuote{Price: 0.004, Supply: 1_000_000_000, MarketCap: 4_000_000})
	require.NoError(t, err)
	assert.Equal(t, 4_000_000.0, data.MarketCap)
	require.NotNil(t, event)
	assert.Equal(t, 0, *event.Position)

	latest, err := history.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4_000_000.0, latest.MarketCap)

	markets := broadcaster.Markets()
	require.Len(t, markets, 1)
	assert.Equal(t, "$4.00M", markets[0].FormattedMarketCap)

	state, err := engine.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.RevealedCount())
}

func TestMarketIngestRejectsNonFiniteSamples(t *testing.T) {
	market, engine, history, broadcaster := newMarketFixture(t, &stubOracle{})
	ctx := context.Background()

	for _, quote := range []models.MarketQuote{
		{Price: math.Inf(1), Supply: 1_000, MarketCap: math.Inf(1)},
		{Price: 0.001, Supply: math.NaN(), MarketCap: math.NaN()},
	} {
		_, event, err := market.Ingest(ctx, &quote)
		assert.ErrorIs(t, err, services.ErrInvalidSample)
		assert.Nil(t, event)
	}

	assert.Zero(t, history.Len())
	assert.Empty(t, broadcaster.Markets())
	assert.Empty(t, broadcaster.Reveals())

	state, err := engine.State(ctx)
	require.NoError(t, err)
	assert.Zero(t, state.RevealedCount())
}

func TestMarketRunPollsUntilCancelled(t *testing.T) {
	oracle := &stubOracle{quote: models.MarketQuote{Price: 0.001, Supply: 1_000_000_000, MarketCap: 1_000_000}}
	market, _, history, broadcaster := newMarketFixture(t, oracle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		market.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return history.Len() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Len(t, broadcaster.Reveals(), 1, "repeated samples at the same milestone reveal once")
}

func TestMarketRunSurvivesOracleErrors(t *testing.T) {
	oracle := &stubOracle{err: errors.New("price api down")}
	market, _, history, _ := newMarketFixture(t, oracle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		market.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return oracle.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Zero(t, history.Len())
}
