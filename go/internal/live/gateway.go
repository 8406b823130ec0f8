package live

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/models"
)

// PrizeChecker decides whether a placed tile additionally earns a
// prize_won envelope.
type PrizeChecker interface {
	Check(ctx context.Context, tile models.Tile) (*Envelope, error)
}

// Gateway is the ingress point for externally triggered state changes.
// Each operation assumes the durable write already succeeded, translates
// it into envelopes, and fans them out through the registry. Broadcast is
// fire-and-forget relative to the durable write: the store is the source
// of truth, and a mosaic with no viewers is silently a no-op.
type Gateway struct {
	registry *Registry
	prizes   PrizeChecker
	validate *validator.Validate
}

// NewGateway creates a gateway over the registry and prize checker.
func NewGateway(registry *Registry, prizes PrizeChecker) *Gateway {
	return &Gateway{
		registry: registry,
		prizes:   prizes,
		validate: validator.New(),
	}
}

// TileCreated announces a durably written tile. Every placement path
// funnels through here, so prize matching is uniform across uploads,
// bulk fills, and random fills. The tile's coordinates must be final.
func (g *Gateway) TileCreated(ctx context.Context, tile models.Tile) error {
	if err := g.validate.Struct(tile); err != nil {
		return fmt.Errorf("invalid tile: %w", err)
	}

	env, err := NewEnvelope(tile.MosaicID, KindTileAdded, TileAddedPayload{Tile: tile})
	if err != nil {
		return err
	}
	g.registry.BroadcastTo(tile.MosaicID, env)

	prizeEnv, err := g.prizes.Check(ctx, tile)
	if err != nil {
		// Prize state lives in the store; a read failure must not undo an
		// already-announced tile.
		log.Error().
			Err(err).
			Str("mosaic_id", tile.MosaicID.String()).
			Msg("prize check failed")
		return nil
	}
	if prizeEnv != nil {
		g.registry.BroadcastTo(tile.MosaicID, *prizeEnv)
	}
	return nil
}

// TilesBulkCreated announces a batch of durably written tiles in order,
// then mirrors a fill confirmation to admin consoles.
func (g *Gateway) TilesBulkCreated(ctx context.Context, mosaicID uuid.UUID, tiles []models.Tile) error {
	for _, tile := range tiles {
		if err := g.TileCreated(ctx, tile); err != nil {
			return err
		}
	}

	env, err := NewEnvelope(mosaicID, KindAdminFilled, AdminFilledPayload{
		MosaicID: mosaicID,
		Count:    len(tiles),
	})
	if err != nil {
		return err
	}
	g.registry.BroadcastTo(mosaicID, env)
	return nil
}

// ConfigReplaced announces a replaced mosaic configuration.
func (g *Gateway) ConfigReplaced(ctx context.Context, config models.MosaicConfig) error {
	if err := g.validate.Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	env, err := NewEnvelope(config.MosaicID, KindConfigUpdated, ConfigUpdatedPayload{Config: config})
	if err != nil {
		return err
	}
	g.registry.BroadcastTo(config.MosaicID, env)
	return nil
}

// TilesCleared announces that every tile of the mosaic was removed.
// Already-broadcast envelopes are never retracted: clients discard their
// queued reveals on receipt.
func (g *Gateway) TilesCleared(ctx context.Context, mosaicID uuid.UUID) error {
	payload := ClearedPayload{MosaicID: mosaicID}

	env, err := NewEnvelope(mosaicID, KindCleared, payload)
	if err != nil {
		return err
	}
	g.registry.BroadcastTo(mosaicID, env)

	mirror, err := NewEnvelope(mosaicID, KindAdminCleared, payload)
	if err != nil {
		return err
	}
	g.registry.BroadcastTo(mosaicID, mirror)
	return nil
}

// PrizeCellsReplaced announces a replaced prize-cell set to admin
// consoles. Displays never learn prize coordinates ahead of a win.
func (g *Gateway) PrizeCellsReplaced(ctx context.Context, mosaicID uuid.UUID, cells []models.PrizeCell) error {
	saved, err := NewEnvelope(mosaicID, KindAdminPrizeCellsSaved, PrizeCellsSavedPayload{
		MosaicID: mosaicID,
		Count:    len(cells),
	})
	if err != nil {
		return err
	}
	g.registry.BroadcastTo(mosaicID, saved)

	set, err := NewEnvelope(mosaicID, KindAdminPrizeCells, PrizeCellsPayload{Cells: cells})
	if err != nil {
		return err
	}
	g.registry.BroadcastTo(mosaicID, set)
	return nil
}
