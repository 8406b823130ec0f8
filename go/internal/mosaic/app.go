package mosaic

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mosaicwall/wall/go/internal/models"
)

// StoreRepository defines what the app layer needs from the repository.
type StoreRepository interface {
	GetMosaicBySlug(ctx context.Context, slug string) (*models.Mosaic, error)
	ListApprovedTiles(ctx context.Context, mosaicID uuid.UUID) ([]models.Tile, error)
	CreateTile(ctx context.Context, req CreateTileRequest) (*models.Tile, error)
	DeleteTiles(ctx context.Context, mosaicID uuid.UUID) error
	GetConfig(ctx context.Context, mosaicID uuid.UUID) (*models.MosaicConfig, error)
	UpsertConfig(ctx context.Context, cfg models.MosaicConfig) (*models.MosaicConfig, error)
	ListPrizeCells(ctx context.Context, mosaicID uuid.UUID) ([]models.PrizeCell, error)
	ReplacePrizeCells(ctx context.Context, mosaicID uuid.UUID, coords []Coordinate) ([]models.PrizeCell, error)
	FindPrizeCell(ctx context.Context, mosaicID uuid.UUID, x, y int) (*models.PrizeCell, error)
}

// App owns mosaic business logic: snapshots for late joiners, tile
// placement, and the durable writes that precede every broadcast.
type App struct {
	repo StoreRepository
}

// NewApp creates a new mosaic App.
func NewApp(repo StoreRepository) *App {
	return &App{repo: repo}
}

// Snapshot assembles the init payload for a subscribing viewer: current
// config (or defaults) plus every approved tile, read fresh from the
// store.
func (a *App) Snapshot(ctx context.Context, mosaicID uuid.UUID) (models.MosaicConfig, []models.Tile, error) {
	return a.configAndTiles(ctx, mosaicID)
}

// PlaceTileRequest carries a new upload. Placement is chosen by the app.
type PlaceTileRequest struct {
	MosaicID uuid.UUID
	ImageURL string
	Uploader string
	Email    *string
}

// PlaceTile durably writes a tile on a free cell of the grid. When the
// grid is full the tile lands on a random occupied cell, matching the
// display's stacking behavior.
func (a *App) PlaceTile(ctx context.Context, req PlaceTileRequest) (*models.Tile, error) {
	cfg, tiles, err := a.configAndTiles(ctx, req.MosaicID)
	if err != nil {
		return nil, err
	}
	cell := pickFreeCell(cfg, tiles)

	uploader := req.Uploader
	if uploader == "" {
		uploader = "Guest"
	}

	tile, err := a.repo.CreateTile(ctx, CreateTileRequest{
		MosaicID: req.MosaicID,
		ImageURL: req.ImageURL,
		GridX:    cell.X,
		GridY:    cell.Y,
		Uploader: uploader,
		Email:    req.Email,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("mosaic_id", req.MosaicID.String()).
		Str("tile_id", tile.ID.String()).
		Int("grid_x", tile.GridX).
		Int("grid_y", tile.GridY).
		Msg("tile placed")
	return tile, nil
}

// RandomFill places up to n stock tiles on free cells. Returns the tiles
// actually created, which may be fewer than n when the grid runs out of
// free cells.
func (a *App) RandomFill(ctx context.Context, mosaicID uuid.UUID, n int) ([]models.Tile, error) {
	cfg, tiles, err := a.configAndTiles(ctx, mosaicID)
	if err != nil {
		return nil, err
	}

	free := freeCells(cfg, tiles)
	rand.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	if len(free) > n {
		free = free[:n]
	}

	created := make([]models.Tile, 0, len(free))
	for _, cell := range free {
		tile, err := a.repo.CreateTile(ctx, CreateTileRequest{
			MosaicID: mosaicID,
			ImageURL: fmt.Sprintf("https://picsum.photos/seed/%d/300/300", rand.Int63()),
			GridX:    cell.X,
			GridY:    cell.Y,
			Uploader: "Auto Fill",
		})
		if err != nil {
			return created, err
		}
		created = append(created, *tile)
	}
	return created, nil
}

// ClearTiles durably removes every tile of the mosaic.
func (a *App) ClearTiles(ctx context.Context, mosaicID uuid.UUID) error {
	return a.repo.DeleteTiles(ctx, mosaicID)
}

// ReplaceConfig durably replaces the mosaic's display configuration.
func (a *App) ReplaceConfig(ctx context.Context, cfg models.MosaicConfig) (*models.MosaicConfig, error) {
	return a.repo.UpsertConfig(ctx, cfg)
}

// ReplacePrizeCells durably replaces the mosaic's prize-cell set.
func (a *App) ReplacePrizeCells(ctx context.Context, mosaicID uuid.UUID, coords []Coordinate) ([]models.PrizeCell, error) {
	return a.repo.ReplacePrizeCells(ctx, mosaicID, coords)
}

// FindPrizeCell exposes the prize-cell lookup for the matcher.
func (a *App) FindPrizeCell(ctx context.Context, mosaicID uuid.UUID, x, y int) (*models.PrizeCell, error) {
	return a.repo.FindPrizeCell(ctx, mosaicID, x, y)
}

func (a *App) configAndTiles(ctx context.Context, mosaicID uuid.UUID) (models.MosaicConfig, []models.Tile, error) {
	cfg, err := a.repo.GetConfig(ctx, mosaicID)
	if err != nil {
		return models.MosaicConfig{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg == nil {
		def := models.DefaultMosaicConfig(mosaicID)
		cfg = &def
	}

	out := *cfg
	if out.GridWidth <= 0 || out.GridHeight <= 0 {
		// A stored row with a zero-size grid would make every cell
		// computation degenerate. Validation guards writes, not reads.
		def := models.DefaultMosaicConfig(mosaicID)
		out.GridWidth = def.GridWidth
		out.GridHeight = def.GridHeight
	}

	tiles, err := a.repo.ListApprovedTiles(ctx, mosaicID)
	if err != nil {
		return models.MosaicConfig{}, nil, fmt.Errorf("failed to load tiles: %w", err)
	}
	return out, tiles, nil
}

// pickFreeCell chooses a random unoccupied cell; a full grid falls back
// to a random cell.
func pickFreeCell(cfg models.MosaicConfig, tiles []models.Tile) Coordinate {
	free := freeCells(cfg, tiles)
	if len(free) == 0 {
		return Coordinate{
			X: rand.Intn(cfg.GridWidth),
			Y: rand.Intn(cfg.GridHeight),
		}
	}
	return free[rand.Intn(len(free))]
}

func freeCells(cfg models.MosaicConfig, tiles []models.Tile) []Coordinate {
	occupied := lo.Associate(tiles, func(t models.Tile) (Coordinate, struct{}) {
		return Coordinate{X: t.GridX, Y: t.GridY}, struct{}{}
	})

	free := make([]Coordinate, 0, cfg.GridWidth*cfg.GridHeight-len(occupied))
	for y := 0; y < cfg.GridHeight; y++ {
		for x := 0; x < cfg.GridWidth; x++ {
			cell := Coordinate{X: x, Y: y}
			if _, taken := occupied[cell]; !taken {
				free = append(free, cell)
			}
		}
	}
	return free
}
