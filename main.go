package main

import (
	"log"

	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/internal/container"
	"trolleymatch/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
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

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))
	gin.SetMode(appConfig.Server.GinMode)

	deps, err := container.New(appConfig, container.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}

	server, err := ui.NewServer(deps.UIDeps())
	if err != nil {
		log.Fatalf("Failed to initialize UI server: %v", err)
	}

	if err := server.Start(appConfig.Server.Addr()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
