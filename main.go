package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"anovadash/app"
	"anovadash/internal"
	"anovadash/internal/api"
	"anovadash/internal/config"
	"anovadash/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(appConfig.Log.Level))

	service, err := app.NewAnalysisServiceFromConfig(appConfig)
	if err != nil {
		log.Fatalf("Failed to create analysis service: %v", err)
	}

	// Load the table up front so a bad DATA_FILE fails at startup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if _, err := service.Table(ctx); err != nil {
		log.Fatalf("Failed to load data from %s: %v", service.SourceName(), err)
	}

	dashboard, err := ui.NewApp(ui.Config{Port: appConfig.Server.Port}, service)
	if err != nil {
		log.Fatalf("Failed to initialize dashboard: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dashboard.Start(gctx)
	})
	g.Go(func() error {
		return api.Serve(gctx, api.NewRouter(service, appConfig.Server.GinMode), appConfig.Server.APIPort)
	})

	log.Printf("Starting ANOVA dashboard on port %s (API on %s)", appConfig.Server.Port, appConfig.Server.APIPort)
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
