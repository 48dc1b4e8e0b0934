package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/models"
	"code-reveal-backend/internal/services"
)

// GameAPI is the slice of the game service the HTTP layer needs.
type GameAPI interface {
	CodeLength() int
	SubmitGuess(ctx context.Context, sub models.Submission) (*models.SubmissionResult, error)
	GetState(ctx context.Context) (*models.GameStateResponse, error)
}

type GameHandler struct {
	game GameAPI
	log  *logger.Logger
}

func NewGameHandler(game GameAPI, log *logger.Logger) *GameHandler {
	return &GameHandler{
		game: game,
		log:  log,
	}
}

func (h *GameHandler) GetState(c *gin.Context) {
	state, err := h.game.GetState(c.Request.Context())
	if err != nil {
		h.log.Errorf("Error getting game state: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to get game state"})
		return
	}

	c.JSON(http.StatusOK, state)
}

func (h *GameHandler) SubmitCode(c *gin.Context) {
	var req models.SubmitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet address is required"})
		return
	}

	if n := utf8.RuneCountInString(req.Code); n != h.game.CodeLength() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid code length",
			"details": gin.H{"expected": h.game.CodeLength(), "got": n},
		})
		return
	}

	result, err := h.game.SubmitGuess(c.Request.Context(), models.Submission{
		Code:         req.Code,
		Wallet:       wallet,
		CaptchaToken: req.CaptchaToken,
		IP:           c.ClientIP(),
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Errorf("Error submitting code for %s: %v", wallet, err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrRateLimitExceeded),
		errors.Is(err, services.ErrMaxAttemptsExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrInvalidCaptcha):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAlreadyWon),
		errors.Is(err, services.ErrMaxWinnersReached):
		return http.StatusConflict
	case errors.Is(err, services.ErrGameNotReady):
		return http.StatusForbidden
	case errors.Is(err, services.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
