package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/display"
	"github.com/mosaicwall/wall/go/internal/models"
)

// Headless display client: connects to the live server, keeps a local
// grid in sync, and logs every reveal. Useful for soak-testing the hub
// without a browser.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	serverURL := getEnv("LIVE_SERVER_URL", "ws://localhost:8080")
	mosaicIDStr := os.Getenv("MOSAIC_ID")
	mosaicID, err := uuid.Parse(mosaicIDStr)
	if err != nil {
		log.Fatal().Str("mosaic_id", mosaicIDStr).Msg("MOSAIC_ID must be a valid UUID")
	}

	sequencer := display.NewSequencer()
	sequencer.SetOnReveal(func(tile models.Tile) {
		log.Info().
			Str("tile_id", tile.ID.String()).
			Str("uploader", tile.Uploader).
			Int("grid_x", tile.GridX).
			Int("grid_y", tile.GridY).
			Msg("revealing tile")
	})

	client := display.NewClient(serverURL, mosaicID, sequencer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	// Reconnect loop: every fresh connection resynchronizes through the
	// init snapshot, so dropping and redialing is always safe.
	for {
		if err := client.Run(ctx); err != nil {
			log.Error().Err(err).Msg("display connection lost")
		}
		select {
		case <-ctx.Done():
			log.Info().Int("tiles", len(sequencer.PlacedTiles())).Msg("display shutting down")
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
