package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"anovadash/app"
	"anovadash/internal"
	"anovadash/internal/api"
	"anovadash/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(cfg.Log.Level))

	service, err := app.NewAnalysisServiceFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create analysis service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(service, cfg.Server.GinMode)
	if err := api.Serve(ctx, router, cfg.Server.APIPort); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
