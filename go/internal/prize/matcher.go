package prize

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/live"
	"github.com/mosaicwall/wall/go/internal/models"
)

// FallbackWinner is attributed when a winning tile carries no uploader name.
const FallbackWinner = "Guest"

// CellStore is what the matcher needs from the durable record store.
type CellStore interface {
	// FindPrizeCell returns the prize cell at (x, y) for the mosaic, or
	// nil when the coordinate is not a prize cell.
	FindPrizeCell(ctx context.Context, mosaicID uuid.UUID, x, y int) (*models.PrizeCell, error)
}

// Matcher decides whether a newly placed tile lands on a prize cell.
// It reads prize state but never mutates it.
type Matcher struct {
	store CellStore
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(store CellStore) *Matcher {
	return &Matcher{store: store}
}

// Check tests the tile's final coordinates against the mosaic's prize-cell
// set. On a hit it returns exactly one prize_won envelope; on a miss it
// returns nil. Callers must invoke Check only after the tile's placement
// is final.
func (m *Matcher) Check(ctx context.Context, tile models.Tile) (*live.Envelope, error) {
	cell, err := m.store.FindPrizeCell(ctx, tile.MosaicID, tile.GridX, tile.GridY)
	if err != nil {
		return nil, fmt.Errorf("look up prize cell (%d,%d): %w", tile.GridX, tile.GridY, err)
	}
	if cell == nil {
		return nil, nil
	}

	winner := tile.Uploader
	if winner == "" {
		winner = FallbackWinner
	}

	env, err := live.NewEnvelope(tile.MosaicID, live.KindPrizeWon, live.PrizeWonPayload{
		Tile:   tile,
		Winner: winner,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("mosaic_id", tile.MosaicID.String()).
		Str("winner", winner).
		Int("grid_x", tile.GridX).
		Int("grid_y", tile.GridY).
		Msg("prize won")
	return &env, nil
}
