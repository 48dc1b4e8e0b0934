package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/models"

	"github.com/samber/lo"
)

type GameRules struct {
	RateLimitWindow      time.Duration
	MaxAttemptsPerWallet int
	MaxWinners           int
	// RequireFullReveal rejects submissions while any character is hidden.
	RequireFullReveal bool
	RequestTimeout    time.Duration
	RecentWinners     int
}

var DefaultGameRules = GameRules{
	RateLimitWindow:      DefaultRateLimitWindow,
	MaxAttemptsPerWallet: DefaultMaxAttemptsPerWallet,
	MaxWinners:           models.MaxWinners,
	RequireFullReveal:    false,
	RequestTimeout:       5 * time.Second,
	RecentWinners:        10,
}

// GameService runs the winner admission protocol and serves the public state.
type GameService struct {
	redis       *RedisService
	ledger      WinnerLedger
	captcha     CaptchaVerifier
	secret      *SecretStore
	engine      *RevealEngine
	history     MarketHistory
	broadcaster Broadcaster
	rules       GameRules
	log         *logger.Logger
}

type GameServiceDeps struct {
	Redis       *RedisService
	Ledger      WinnerLedger
	Captcha     CaptchaVerifier
	Secret      *SecretStore
	Engine      *RevealEngine
	History     MarketHistory
	Broadcaster Broadcaster
	Log         *logger.Logger
}

func NewGameService(deps GameServiceDeps, rules GameRules) *GameService {
	if deps.Broadcaster == nil {
		deps.Broadcaster = noopBroadcaster{}
	}
	return &GameService{
		redis:       deps.Redis,
		ledger:      deps.Ledger,
		captcha:     deps.Captcha,
		secret:      deps.Secret,
		engine:      deps.Engine,
		history:     deps.History,
		broadcaster: deps.Broadcaster,
		rules:       rules,
		log:         deps.Log,
	}
}

func (g *GameService) CodeLength() int {
	return g.secret.Len()
}

// SubmitGuess checks, in order: IP rate limit, CAPTCHA, attempt ceiling,
// already-won; then burns an attempt, compares the code and admits the wallet.
// A wrong code is a normal {success:false} result, not an error.
func (g *GameService) SubmitGuess(ctx context.Context, sub models.Submission) (*models.SubmissionResult, error) {
	if err := g.withTimeout(ctx, func(ctx context.Context) error {
		return g.redis.CheckSubmitRateLimit(ctx, sub.IP, g.rules.RateLimitWindow)
	}); err != nil {
		return nil, g.transient(err, "rate limit")
	}

	if err := g.verifyCaptcha(ctx, sub); err != nil {
		return nil, err
	}

	if g.rules.RequireFullReveal {
		if err := g.requireFullReveal(ctx); err != nil {
			return nil, err
		}
	}

	var attempts int64
	if err := g.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		attempts, err = g.redis.GetWalletAttempts(ctx, sub.Wallet)
		return err
	}); err != nil {
		return nil, g.transient(err, "attempt lookup")
	}
	if attempts >= int64(g.rules.MaxAttemptsPerWallet) {
		return nil, ErrMaxAttemptsExceeded
	}

	var won bool
	if err := g.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		won, err = g.ledger.HasWon(ctx, sub.Wallet)
		return err
	}); err != nil {
		return nil, g.transient(err, "winner lookup")
	}
	if won {
		return nil, ErrAlreadyWon
	}

	// The attempt is consumed from here on, even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := g.withTimeout(ctx, func(ctx context.Context) error {
		_, err := g.redis.IncrementWalletAttempts(ctx, sub.Wallet, g.rules.MaxAttemptsPerWallet)
		return err
	}); err != nil {
		return nil, g.transient(err, "attempt increment")
	}

	if !g.secret.Matches(sub.Code) {
		g.log.Debugf("Incorrect guess from wallet %s", sub.Wallet)
		return &models.SubmissionResult{Success: false}, nil
	}

	var winner *models.Winner
	if err := g.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		winner, err = g.ledger.Admit(ctx, sub.Wallet, g.rules.MaxWinners)
		return err
	}); err != nil {
		return nil, g.transient(err, "winner admission")
	}

	reward := winner.RewardPercentage()
	g.log.Infof("Wallet %s admitted as winner #%d (%.2f%%)", winner.WalletAddress, winner.Position, reward)

	g.broadcaster.BroadcastNewWinner(&models.WinnerEvent{
		Position: winner.Position,
		Wallet:   winner.WalletAddress,
		Reward:   reward,
	})

	return &models.SubmissionResult{
		Success:  true,
		Position: winner.Position,
		Reward:   models.Float64Ptr(reward),
	}, nil
}

func (g *GameService) verifyCaptcha(ctx context.Context, sub models.Submission) error {
	err := g.withTimeout(ctx, func(ctx context.Context) error {
		return g.captcha.Verify(ctx, sub.CaptchaToken, sub.IP)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCaptchaNotConfigured):
		g.log.Errorf("CAPTCHA misconfigured, rejecting submission: %v", err)
		return ErrInvalidCaptcha
	case errors.Is(err, ErrCaptchaRejected):
		g.log.Warnf("CAPTCHA rejected for ip %s: %v", sub.IP, err)
		return ErrInvalidCaptcha
	default:
		g.log.Errorf("CAPTCHA verification request failed: %v", err)
		if errors.Is(err, ErrServiceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
}

func (g *GameService) requireFullReveal(ctx context.Context) error {
	var record *models.RevealRecord
	if err := g.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		record, err = g.engine.State(ctx)
		return err
	}); err != nil {
		return g.transient(err, "game state lookup")
	}
	if !record.IsFullyRevealed() {
		return ErrGameNotReady
	}
	return nil
}

// GetState returns the latest market cap, the revealed characters and the
// most recent winners.
func (g *GameService) GetState(ctx context.Context) (*models.GameStateResponse, error) {
	var (
		latest  *models.MarketData
		record  *models.RevealRecord
		winners []models.Winner
	)

	err := g.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		if latest, err = g.history.Latest(ctx); err != nil {
			return err
		}
		if record, err = g.engine.State(ctx); err != nil {
			return err
		}
		winners, err = g.ledger.Recent(ctx, g.rules.RecentWinners)
		return err
	})
	if err != nil {
		return nil, g.transient(err, "state lookup")
	}

	state := &models.GameStateResponse{
		RevealedCharacters: record.Joined(),
		Winners: lo.Map(winners, func(w models.Winner, _ int) models.WinnerView {
			return w.View()
		}),
	}
	if latest != nil {
		state.MarketCap = latest.MarketCap
	}
	return state, nil
}

func (g *GameService) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if g.rules.RequestTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, g.rules.RequestTimeout)
	defer cancel()
	return fn(ctx)
}

// transient passes user-facing errors through and wraps everything else as
// ErrServiceUnavailable.
func (g *GameService) transient(err error, op string) error {
	for _, known := range []error{
		ErrRateLimitExceeded,
		ErrInvalidCaptcha,
		ErrMaxAttemptsExceeded,
		ErrAlreadyWon,
		ErrMaxWinnersReached,
		ErrGameNotReady,
		ErrServiceUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	g.log.Errorf("%s failed: %v", op, err)
	return fmt.Errorf("%w: %s", ErrServiceUnavailable, op)
}
