package services

import "time"

const (
	KeyGameState      = "game:state"
	KeyRateLimit      = "ratelimit:%s"
	KeyWalletAttempts = "attempts:%s"

	DefaultRateLimitWindow      = 2 * time.Second
	DefaultMaxAttemptsPerWallet = 5

	gameStateMaxRetries = 10
)
