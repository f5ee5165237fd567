// Package main runs the ledger API server.
package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/storage"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	if err := run(logger, config, storage.Open); err != nil {
		logger.Fatal().Err(err).Str("store_driver", config.StoreDriver).Send()
	}
}

// run serves until the engine stops and closes the stores before returning.
func run(logger zerolog.Logger, config configpkg.Config,
	open func(context.Context, configpkg.Config) (storage.Stores, error),
) (err error) {
	stores, err := open(context.Background(), config)
	if err != nil {
		return fmt.Errorf("cannot open store: %w", err)
	}

	defer func() {
		if closeErr := stores.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("cannot close store: %w", closeErr)
		}
	}()

	if config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := httpserver.New(stores, logger, config)
	if err != nil {
		return fmt.Errorf("cannot create server: %w", err)
	}

	logger.Info().Str("store_driver", config.StoreDriver).Msg("LEDGER API SERVER HAS STARTED")

	if err := server.Engine.Run(config.ServerAddress); err != nil {
		return fmt.Errorf("cannot start server: %w", err)
	}

	return nil
}
