package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/models"
)

// RevealRules are the milestone constants of the reveal state machine.
type RevealRules struct {
	MilestoneSize  float64
	FinalMilestone float64
	// HiddenChars trailing characters stay hidden until FinalMilestone.
	HiddenChars int
}

var DefaultRevealRules = RevealRules{
	MilestoneSize:  1_000_000,
	FinalMilestone: 100_000_000,
	HiddenChars:    10,
}

// ValidMarketCap reports whether a sample may drive the reveal state.
func ValidMarketCap(marketCap float64) bool {
	return !math.IsNaN(marketCap) && !math.IsInf(marketCap, 0)
}

func (r RevealRules) Milestone(marketCap float64) int64 {
	if math.IsNaN(marketCap) || marketCap <= 0 {
		return 0
	}
	return int64(math.Floor(marketCap / r.MilestoneSize))
}

// Advance applies one market cap sample to record in place and returns the
// event to broadcast, or nil when nothing changed.
func (r RevealRules) Advance(record *models.RevealRecord, secret *SecretStore, marketCap float64) (*models.RevealEvent, error) {
	if !record.IsActive || !ValidMarketCap(marketCap) {
		return nil, nil
	}

	milestone := r.Milestone(marketCap)

	if marketCap >= r.FinalMilestone {
		if !record.HasHidden() {
			return nil, nil
		}
		for i, c := range record.RevealedCharacters {
			if c != models.Unrevealed {
				continue
			}
			ch, err := secret.CharAt(i)
			if err != nil {
				return nil, err
			}
			record.RevealedCharacters[i] = ch
		}
		if milestone > record.CurrentMilestone {
			record.CurrentMilestone = milestone
		}
		return &models.RevealEvent{
			RevealedCharacters: record.Snapshot(),
			AllRevealed:        true,
			Milestone:          record.CurrentMilestone,
		}, nil
	}

	if milestone <= record.CurrentMilestone || !record.HasHidden() {
		return nil, nil
	}
	if record.RevealedCount() >= len(record.RevealedCharacters)-r.HiddenChars {
		return nil, nil
	}

	next := record.NextHidden()
	ch, err := secret.CharAt(next)
	if err != nil {
		return nil, err
	}

	record.CurrentMilestone = milestone
	record.RevealedCharacters[next] = ch

	return &models.RevealEvent{
		Position:           &next,
		Character:          ch,
		RevealedCharacters: record.Snapshot(),
		Milestone:          milestone,
	}, nil
}

// RevealEngine is the sole writer of the reveal record.
type RevealEngine struct {
	mu          sync.Mutex
	redis       *RedisService
	secret      *SecretStore
	rules       RevealRules
	broadcaster Broadcaster
	log         *logger.Logger
}

func NewRevealEngine(redis *RedisService, secret *SecretStore, rules RevealRules, broadcaster Broadcaster, log *logger.Logger) *RevealEngine {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &RevealEngine{
		redis:       redis,
		secret:      secret,
		rules:       rules,
		broadcaster: broadcaster,
		log:         log,
	}
}

// OnMarketCapSample advances the reveal state for one sample. The mutex keeps
// one check in flight per process; the WATCH transaction covers other processes.
func (e *RevealEngine) OnMarketCapSample(ctx context.Context, marketCap float64) (*models.RevealEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var event *models.RevealEvent
	_, err := e.redis.UpdateGameState(ctx, e.secret.Len(), func(record *models.RevealRecord) (bool, error) {
		var err error
		event, err = e.rules.Advance(record, e.secret, marketCap)
		if err != nil {
			return false, err
		}
		return event != nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance reveal state: %w", err)
	}

	if event == nil {
		return nil, nil
	}

	if event.AllRevealed {
		e.log.Infof("Final milestone reached at market cap %s, all characters revealed", models.FormatMarketCap(marketCap))
	} else {
		e.log.Infof("Milestone %d reached, revealed position %d", event.Milestone, *event.Position)
	}

	e.broadcaster.BroadcastCharacterReveal(event)
	return event, nil
}

func (e *RevealEngine) State(ctx context.Context) (*models.RevealRecord, error) {
	return e.redis.GetGameState(ctx, e.secret.Len())
}

// SetActive toggles whether samples may reveal further characters.
func (e *RevealEngine) SetActive(ctx context.Context, active bool) (*models.RevealRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.redis.UpdateGameState(ctx, e.secret.Len(), func(record *models.RevealRecord) (bool, error) {
		if record.IsActive == active {
			return false, nil
		}
		record.IsActive = active
		return true, nil
	})
}
