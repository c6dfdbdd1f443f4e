package main

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-track-gateway/internal/config"
	"github.com/MKhiriev/go-track-gateway/internal/gateway"
	handler "github.com/MKhiriev/go-track-gateway/internal/handler/http"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/server"
	"github.com/MKhiriev/go-track-gateway/internal/service"
	"github.com/MKhiriev/go-track-gateway/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("go-track-gateway")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	storages, err := store.NewStorages(context.Background(), cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}

	verifier := service.NewTokenVerifier(cfg.Auth, log)
	gw := gateway.NewGateway(storages.PositionRepository, cfg.Gateway, log)
	handlers := handler.NewHandler(verifier, gw, storages.PositionRepository, cfg.Gateway, cfg.Server, log)

	srv, err := server.NewServer(handlers.Init(), gw, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
