// Command devtoken prints a signed JWT for a user id so the API can be
// exercised locally without an identity provider.
package main

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"micro-casino/internal/config"
	"micro-casino/internal/services"
)

func main() {
	userID := flag.Int64("user", 1, "user id to put in the token")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Env == "production" {
		log.Fatal("devtoken refuses to run with ENV=production")
	}
	if *userID <= 0 {
		log.Fatal("user id must be positive")
	}

	token, err := services.NewJWTService(cfg).GenerateToken(*userID)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
