package main

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaicwall/wall/go/internal/live"
	"github.com/mosaicwall/wall/go/internal/mosaic"
	"github.com/mosaicwall/wall/go/internal/prize"
)

// Services holds the wired dependency chain:
// database → repository → app → matcher/registry → gateway → handler.
type Services struct {
	Store    *mosaic.App
	Registry *live.Registry
	Gateway  *live.Gateway
	Handler  *live.WebSocketHandler
}

func setupServices(pool *pgxpool.Pool, config *Config) *Services {
	repo := mosaic.NewRepository(pool)
	store := mosaic.NewApp(repo)

	matcher := prize.NewMatcher(store)

	registry := live.NewRegistry(config.hubGrace())
	gateway := live.NewGateway(registry, matcher)

	connConfig := live.DefaultConnectionConfig()
	if config.Live.SendBufferSize > 0 {
		connConfig.SendBufferSize = config.Live.SendBufferSize
	}
	handler := live.NewWebSocketHandler(registry, store, connConfig)

	return &Services{
		Store:    store,
		Registry: registry,
		Gateway:  gateway,
		Handler:  handler,
	}
}
