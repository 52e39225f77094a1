package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"micro-casino/internal/fairness"
	"micro-casino/internal/games"
	"micro-casino/internal/middleware"
	"micro-casino/internal/models"
	"micro-casino/internal/services"
)

// AccountStore is the read side the handlers need besides the engine.
type AccountStore interface {
	services.WalletStore
	services.HistoryStore
}

type GameHandler struct {
	gameEngine *services.GameEngine
	store      AccountStore
}

func NewGameHandler(gameEngine *services.GameEngine, store AccountStore) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		store:      store,
	}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, games.ErrInvalidParameters),
		errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorizedRound):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRoundNotFound),
		errors.Is(err, services.ErrSeedNotRevealed):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRoundBusy),
		errors.Is(err, services.ErrRoundFinished),
		errors.Is(err, services.ErrWalletContention):
		return http.StatusConflict
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"path":    c.FullPath(),
			"user_id": c.GetInt64(middleware.ContextUserID),
		}).Error(message)
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func limitParam(c *gin.Context) int64 {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}

func respondRecord(c *gin.Context, rec *models.RoundRecord, err error) {
	if err != nil {
		respondError(c, "Failed to play", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  rec,
	})
}

func respondRound(c *gin.Context, out *models.RoundOutcome, err error) {
	if err != nil {
		respondError(c, "Round action failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   models.NewRoundView(out),
	})
}

func (h *GameHandler) PlayDice(c *gin.Context) {
	var req models.DiceRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.gameEngine.PlayDice(c.Request.Context(), c.GetInt64(middleware.ContextUserID), &req)
	respondRecord(c, rec, err)
}

func (h *GameHandler) PlayCrash(c *gin.Context) {
	var req models.CrashRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.gameEngine.PlayCrash(c.Request.Context(), c.GetInt64(middleware.ContextUserID), &req)
	respondRecord(c, rec, err)
}

func (h *GameHandler) PlayRoulette(c *gin.Context) {
	var req models.RouletteRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.gameEngine.PlayRoulette(c.Request.Context(), c.GetInt64(middleware.ContextUserID), &req)
	respondRecord(c, rec, err)
}

func (h *GameHandler) PlaySlots(c *gin.Context) {
	var req models.StakeRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.gameEngine.PlaySlots(c.Request.Context(), c.GetInt64(middleware.ContextUserID), &req)
	respondRecord(c, rec, err)
}

func (h *GameHandler) StartBlackjack(c *gin.Context) {
	var req models.StakeRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.gameEngine.StartBlackjack(c.Request.Context(), c.GetInt64(middleware.ContextUserID), &req)
	respondRound(c, out, err)
}

func (h *GameHandler) HitBlackjack(c *gin.Context) {
	var req models.RoundActionRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.gameEngine.HitBlackjack(c.Request.Context(), c.GetInt64(middleware.ContextUserID), req.RoundID)
	respondRound(c, out, err)
}

func (h *GameHandler) StandBlackjack(c *gin.Context) {
	var req models.RoundActionRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.gameEngine.StandBlackjack(c.Request.Context(), c.GetInt64(middleware.ContextUserID), req.RoundID)
	respondRound(c, out, err)
}

func (h *GameHandler) DealPoker(c *gin.Context) {
	var req models.StakeRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.gameEngine.DealPoker(c.Request.Context(), c.GetInt64(middleware.ContextUserID), &req)
	respondRound(c, out, err)
}

func (h *GameHandler) DrawPoker(c *gin.Context) {
	var req models.PokerDrawRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.gameEngine.DrawPoker(c.Request.Context(), c.GetInt64(middleware.ContextUserID), &req)
	respondRound(c, out, err)
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	wallet, err := h.store.GetWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to get wallet", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"balance":     wallet.Response(),
		"nonce":       wallet.Nonce,
		"client_seed": wallet.ClientSeed,
		"limits": gin.H{
			"min": h.gameEngine.Limits().Min,
			"max": h.gameEngine.Limits().Max,
		},
	})
}

func (h *GameHandler) GetActiveRounds(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	rounds, err := h.gameEngine.GetUserActiveRounds(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to fetch active rounds", err)
		return
	}

	response := make([]models.RoundView, 0, len(rounds))
	for _, r := range rounds {
		response = append(response, models.NewRoundView(&models.RoundOutcome{Round: r}))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  response,
		"count":   len(response),
	})
}

func (h *GameHandler) GetGameHistory(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	records, err := h.store.GetGameHistory(c.Request.Context(), userID, limitParam(c))
	if err != nil {
		respondError(c, "Failed to get game history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  records,
		"count":   len(records),
	})
}

func (h *GameHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	txs, err := h.store.GetUserTransactions(c.Request.Context(), userID, limitParam(c))
	if err != nil {
		respondError(c, "Failed to get transactions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": txs,
		"count":        len(txs),
	})
}

func (h *GameHandler) GetVerificationData(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	data, err := h.gameEngine.GetVerificationData(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to get verification data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func (h *GameHandler) VerifyGame(c *gin.Context) {
	var req models.VerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := services.Verify(&req)
	if err != nil {
		respondError(c, "Verification failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"game_type":   req.GameType,
			"server_hash": fairness.HashSeed(req.ServerSeed),
			"client_seed": req.ClientSeed,
			"nonce":       req.Nonce,
			"result":      result,
		},
	})
}

func (h *GameHandler) SetClientSeed(c *gin.Context) {
	var req models.ClientSeedRequest
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.gameEngine.SetClientSeed(c.Request.Context(), c.GetInt64(middleware.ContextUserID), req.ClientSeed)
	if err != nil {
		respondError(c, "Failed to set client seed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"client_seed": wallet.ClientSeed,
		"nonce":       wallet.Nonce,
	})
}

func (h *GameHandler) GetRevealedSeed(c *gin.Context) {
	hash := c.Param("hash")

	seed, err := h.gameEngine.RevealedSeed(c.Request.Context(), hash)
	if err != nil {
		respondError(c, "Seed not available", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"server_hash": hash,
		"server_seed": seed,
	})
}
