package main

import (
	"os"

	"github.com/yigit/coursemarket/internal/config"
	"github.com/yigit/coursemarket/internal/pkg/logger"
	"github.com/yigit/coursemarket/internal/server"
)

// @title Course Market API
// @version 1.0
// @description API for the Course Market online course marketplace

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	// Empty selects configs/config.yaml
	srv, err := server.NewServer(config.GetEnv("CONFIG_PATH", ""))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
