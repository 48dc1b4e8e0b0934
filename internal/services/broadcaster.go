package services

import "code-reveal-backend/internal/models"

// Broadcaster fans events out to observers. Implementations must not block.
type Broadcaster interface {
	BroadcastMarketUpdate(update models.MarketUpdate)
	BroadcastCharacterReveal(event *models.RevealEvent)
	BroadcastNewWinner(event *models.WinnerEvent)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastMarketUpdate(models.MarketUpdate) {}
func (noopBroadcaster) BroadcastCharacterReveal(*models.RevealEvent) {}
func (noopBroadcaster) BroadcastNewWinner(*models.WinnerEvent) {}
