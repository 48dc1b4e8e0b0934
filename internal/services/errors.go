package services

import "errors"

// User-facing admission failures. Handlers map these to 4xx responses.
var (
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrInvalidCaptcha      = errors.New("invalid CAPTCHA")
	ErrMaxAttemptsExceeded = errors.New("maximum attempts exceeded for this wallet")
	ErrAlreadyWon          = errors.New("wallet has already won")
	ErrMaxWinnersReached   = errors.New("maximum winners reached")
	ErrGameNotReady        = errors.New("code is not fully revealed yet")
)

// ErrServiceUnavailable wraps transient store or verifier failures. Callers may retry.
var ErrServiceUnavailable = errors.New("service temporarily unavailable")

// Captcha verifier failures, logged distinctly and collapsed to ErrInvalidCaptcha.
var (
	ErrCaptchaNotConfigured = errors.New("CAPTCHA verification is not properly configured")
	ErrCaptchaRejected      = errors.New("CAPTCHA verification failed")
)

// ErrInvalidSample marks a market sample that is not a finite number.
var ErrInvalidSample = errors.New("invalid market sample")
