package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"micro-casino/internal/config"
	"micro-casino/internal/handlers"
	"micro-casino/internal/models"
	"micro-casino/internal/services"
)

const (
	sweepInterval    = time.Minute
	seedRotatePeriod = 24 * time.Hour
)

func setupLogging(cfg *config.Config) {
	if cfg.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.DebugLevel)
}

// runMaintenance finishes abandoned rounds, rotates the server seed and
// reveals retired seeds until ctx ends.
func runMaintenance(ctx context.Context, engine *services.GameEngine) {
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	rotate := time.NewTicker(seedRotatePeriod)
	defer rotate.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			engine.CleanupStaleRounds(ctx)
			if err := engine.RevealPendingSeeds(ctx); err != nil {
				log.WithError(err).Error("failed to reveal pending server seeds")
			}
		case <-rotate.C:
			if _, err := engine.RotateServerSeed(ctx); err != nil {
				log.WithError(err).Error("failed to rotate server seed")
			}
		}
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg)

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	engine := services.NewGameEngine(redisService, models.BetLimits{Min: cfg.MinBet, Max: cfg.MaxBet}, cfg.RoundTTL)
	engine.SetSeedRevealDelay(cfg.SeedRevealDelay)
	hub := handlers.NewWebSocketHub()
	defer hub.Close()
	engine.SetBroadcaster(hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runMaintenance(ctx, engine)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Engine:    engine,
		Store:     redisService,
		Validator: jwtService,
		Hub:       hub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":    cfg.Port,
			"env":     cfg.Env,
			"min_bet": cfg.MinBet.String(),
			"max_bet": cfg.MaxBet.String(),
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
}
