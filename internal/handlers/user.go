package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"micro-casino/internal/middleware"
	"micro-casino/internal/services"
)

type UserHandler struct {
	wallets    services.WalletStore
	gameEngine *services.GameEngine
}

func NewUserHandler(wallets services.WalletStore, gameEngine *services.GameEngine) *UserHandler {
	return &UserHandler{
		wallets:    wallets,
		gameEngine: gameEngine,
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)
	ctx := c.Request.Context()

	wallet, err := h.wallets.GetWallet(ctx, userID)
	if err != nil {
		respondError(c, "Failed to get wallet", err)
		return
	}

	active, err := h.gameEngine.GetUserActiveRounds(ctx, userID)
	if err != nil {
		respondError(c, "Failed to fetch active rounds", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":         userID,
			"session_id": c.GetString(middleware.ContextSessionID),
		},
		"wallet": gin.H{
			"balance":       wallet.Balance,
			"locked":        wallet.LockedBalance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
			"client_seed":   wallet.ClientSeed,
			"nonce":         wallet.Nonce,
		},
		"active_rounds": len(active),
	})
}
