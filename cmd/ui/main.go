package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"anovadash/app"
	"anovadash/internal"
	"anovadash/internal/config"
	"anovadash/ui"
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

	dashboard, err := ui.NewApp(ui.Config{Port: cfg.Server.Port}, service)
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dashboard.Start(ctx); err != nil {
		log.Fatal(err)
	}
}
