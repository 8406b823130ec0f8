package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/live"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	services := setupServices(pool, config)
	server := setupServer(services, config)

	// Bridge durable writes from the CRUD layer onto the hubs. Skipped
	// when no bus is configured, which leaves the WebSocket side fully
	// functional for local display work.
	natsURL := os.Getenv("NATS_URL")
	if natsURL != "" {
		consumerConfig := live.DefaultConsumerConfig()
		consumerConfig.URL = natsURL
		consumerConfig.StreamName = config.Bus.StreamName
		consumerConfig.ConsumerName = config.Bus.ConsumerName
		consumerConfig.SubjectFilter = config.Bus.SubjectFilter

		consumer, err := live.NewConsumer(services.Gateway, consumerConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event consumer")
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	} else {
		log.Warn().Msg("NATS_URL not set, running without the durable-write bridge")
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("mosaic live server shutdown complete")
}
