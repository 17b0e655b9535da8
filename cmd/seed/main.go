package main

import (
	"fmt"
	"log"
	"time"

	"github.com/veiledapp/veiled-backend/internal/auth"
	"github.com/veiledapp/veiled-backend/internal/config"
	"github.com/veiledapp/veiled-backend/internal/db"
)

func main() {
	// Load configuration
	cfg := config.New()

	database, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")

	// Dev tokens for poking the API with curl.
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	for userID := uint64(1); userID <= 3; userID++ {
		signed, err := tokens.Issue(userID, 24*time.Hour)
		if err != nil {
			log.Fatalf("failed to issue dev token: %v", err)
		}
		fmt.Printf("user %d: Bearer %s\n", userID, signed)
	}
}
