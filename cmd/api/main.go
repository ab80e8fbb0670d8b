package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/authbridge/authbridge/internal/app"
	"github.com/authbridge/authbridge/internal/config"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	authCfg := &config.Auth{
		Providers: []config.Provider{
			{ID: "github", Name: "GitHub"},
			{ID: "google", Name: "Google"},
		},
	}

	appCtx := context.Background()
	instance, err := app.New(appCtx, cfg, authCfg, nil)
	if err != nil {
		log.Fatalf("failed to build app: %v", err)
	}

	if err := instance.Run(appCtx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
