package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"micro-casino/internal/middleware"
	"micro-casino/internal/services"
)

type RouterDeps struct {
	Engine    *services.GameEngine
	Store     services.Store
	Validator middleware.TokenValidator
	Hub       *WebSocketHub
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	userHandler := NewUserHandler(d.Store, d.Engine)
	gameHandler := NewGameHandler(d.Engine, d.Store)
	wsHandler := NewWebSocketHandler(d.Hub, d.Store)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(d.Validator), middleware.RateLimitMiddleware(d.Store))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.GET("/balance", gameHandler.GetBalance)
			games.GET("/active", gameHandler.GetActiveRounds)
			games.GET("/history", gameHandler.GetGameHistory)
			games.GET("/transactions", gameHandler.GetTransactions)

			games.GET("/verification", gameHandler.GetVerificationData)
			games.POST("/verify", gameHandler.VerifyGame)
			games.POST("/seed/client", gameHandler.SetClientSeed)
			games.GET("/seed/revealed/:hash", gameHandler.GetRevealedSeed)

			games.POST("/dice/play", gameHandler.PlayDice)
			games.POST("/crash/play", gameHandler.PlayCrash)
			games.POST("/roulette/play", gameHandler.PlayRoulette)
			games.POST("/slots/play", gameHandler.PlaySlots)

			blackjack := games.Group("/blackjack")
			{
				blackjack.POST("/start", gameHandler.StartBlackjack)
				blackjack.POST("/hit", gameHandler.HitBlackjack)
				blackjack.POST("/stand", gameHandler.StandBlackjack)
			}

			poker := games.Group("/poker")
			{
				poker.POST("/deal", gameHandler.DealPoker)
				poker.POST("/draw", gameHandler.DrawPoker)
			}
		}
	}

	return router
}
