package services

import (
	"context"
	"fmt"
	"time"

	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/models"
)

// MarketService samples the oracle on an interval and drives the reveal engine.
type MarketService struct {
	oracle      PriceOracle
	history     MarketHistory
	engine      *RevealEngine
	broadcaster Broadcaster
	interval    time.Duration
	timeout     time.Duration
	log         *logger.Logger
}

func NewMarketService(oracle PriceOracle, history MarketHistory, engine *RevealEngine, broadcaster Broadcaster, interval, timeout time.Duration, log *logger.Logger) *MarketService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &MarketService{
		oracle:      oracle,
		history:     history,
		engine:      engine,
		broadcaster: broadcaster,
		interval:    interval,
		timeout:     timeout,
		log:         log,
	}
}

// Run polls until ctx is cancelled. Failures are logged and the loop carries on.
func (m *MarketService) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)

	for {
		select {
		case <-ticker.C:
			m.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *MarketService) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	quote, err := m.oracle.Quote(ctx)
	if err != nil {
		m.log.Errorf("Error fetching market data: %v", err)
		return
	}

	if _, _, err := m.Ingest(ctx, quote); err != nil {
		m.log.Errorf("Error updating market data: %v", err)
	}
}

// Ingest persists a sample, broadcasts it and feeds it to the reveal engine.
// Operators use it directly to inject samples.
func (m *MarketService) Ingest(ctx context.Context, quote *models.MarketQuote) (*models.MarketData, *models.RevealEvent, error) {
	if !ValidMarketCap(quote.MarketCap) || !ValidMarketCap(quote.Price) || !ValidMarketCap(quote.Supply) {
		return nil, nil, fmt.Errorf("%w: market cap %v, price %v, supply %v", ErrInvalidSample, quote.MarketCap, quote.Price, quote.Supply)
	}

	data := &models.MarketData{
		MarketCap: quote.MarketCap,
		Price:     quote.Price,
		Supply:    quote.Supply,
		Timestamp: time.Now(),
	}

	if err := m.history.Save(ctx, data); err != nil {
		return nil, nil, err
	}

	m.log.Debugf("Price: %g, Supply: %g, Market Cap: %s", data.Price, data.Supply, models.FormatMarketCap(data.MarketCap))
	m.broadcaster.BroadcastMarketUpdate(data.Update())

	event, err := m.engine.OnMarketCapSample(ctx, data.MarketCap)
	if err != nil {
		return data, nil, fmt.Errorf("milestone check failed: %w", err)
	}
	return data, event, nil
}
