package mosaic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mosaicwall/wall/go/internal/models"
)

// Repository implements mosaic data access over Postgres. It is the one
// real implementation of the store interfaces the sync core depends on.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new mosaic repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTileRequest carries the fields of a new tile. Coordinates are
// already final when the request reaches the repository.
type CreateTileRequest struct {
	MosaicID uuid.UUID
	ImageURL string
	GridX    int
	GridY    int
	Uploader string
	Email    *string
}

// Coordinate is one grid cell position.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GetMosaicBySlug retrieves a mosaic by its public slug.
func (r *Repository) GetMosaicBySlug(ctx context.Context, slug string) (*models.Mosaic, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, description, status, created_at
		   FROM mosaics WHERE slug = $1`, slug)

	var m models.Mosaic
	err := row.Scan(&m.ID, &m.Name, &m.Slug, &m.Description, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mosaic by slug: %w", err)
	}
	return &m, nil
}

// ListApprovedTiles retrieves every approved tile of a mosaic in
// placement order.
func (r *Repository) ListApprovedTiles(ctx context.Context, mosaicID uuid.UUID) ([]models.Tile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, mosaic_id, image_url, grid_x, grid_y, status, uploader, email, created_at
		   FROM tiles WHERE mosaic_id = $1 AND status = $2
		  ORDER BY created_at`, mosaicID, models.TileStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiles: %w", err)
	}
	defer rows.Close()

	var tiles []models.Tile
	for rows.Next() {
		var t models.Tile
		if err := rows.Scan(&t.ID, &t.MosaicID, &t.ImageURL, &t.GridX, &t.GridY, &t.Status, &t.Uploader, &t.Email, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tile: %w", err)
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

// CreateTile inserts an approved tile.
func (r *Repository) CreateTile(ctx context.Context, req CreateTileRequest) (*models.Tile, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tiles (id, mosaic_id, image_url, grid_x, grid_y, status, uploader, email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, mosaic_id, image_url, grid_x, grid_y, status, uploader, email, created_at`,
		uuid.New(), req.MosaicID, req.ImageURL, req.GridX, req.GridY,
		models.TileStatusApproved, req.Uploader, req.Email)

	var t models.Tile
	if err := row.Scan(&t.ID, &t.MosaicID, &t.ImageURL, &t.GridX, &t.GridY, &t.Status, &t.Uploader, &t.Email, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create tile: %w", err)
	}
	return &t, nil
}

// DeleteTiles removes every tile of a mosaic.
func (r *Repository) DeleteTiles(ctx context.Context, mosaicID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM tiles WHERE mosaic_id = $1`, mosaicID); err != nil {
		return fmt.Errorf("failed to delete tiles: %w", err)
	}
	return nil
}

// GetConfig retrieves the mosaic's config, or nil when none was saved yet.
func (r *Repository) GetConfig(ctx context.Context, mosaicID uuid.UUID) (*models.MosaicConfig, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, mosaic_id, grid_width, grid_height, gap_size, border_radius,
		        bg_image_url, bg_opacity, animation_speed, entry_animation, updated_at
		   FROM mosaic_configs WHERE mosaic_id = $1`, mosaicID)

	var c models.MosaicConfig
	err := row.Scan(&c.ID, &c.MosaicID, &c.GridWidth, &c.GridHeight, &c.GapSize, &c.BorderRadius,
		&c.BgImageURL, &c.BgOpacity, &c.AnimationSpeed, &c.EntryAnimation, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return &c, nil
}

// UpsertConfig replaces the mosaic's config.
func (r *Repository) UpsertConfig(ctx context.Context, cfg models.MosaicConfig) (*models.MosaicConfig, error) {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO mosaic_configs
		        (id, mosaic_id, grid_width, grid_height, gap_size, border_radius,
		         bg_image_url, bg_opacity, animation_speed, entry_animation, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		 ON CONFLICT (mosaic_id) DO UPDATE SET
		        grid_width = EXCLUDED.grid_width,
		        grid_height = EXCLUDED.grid_height,
		        gap_size = EXCLUDED.gap_size,
		        border_radius = EXCLUDED.border_radius,
		        bg_image_url = EXCLUDED.bg_image_url,
		        bg_opacity = EXCLUDED.bg_opacity,
		        animation_speed = EXCLUDED.animation_speed,
		        entry_animation = EXCLUDED.entry_animation,
		        updated_at = now()
		 RETURNING id, mosaic_id, grid_width, grid_height, gap_size, border_radius,
		           bg_image_url, bg_opacity, animation_speed, entry_animation, updated_at`,
		cfg.ID, cfg.MosaicID, cfg.GridWidth, cfg.GridHeight, cfg.GapSize, cfg.BorderRadius,
		cfg.BgImageURL, cfg.BgOpacity, cfg.AnimationSpeed, cfg.EntryAnimation)

	var c models.MosaicConfig
	if err := row.Scan(&c.ID, &c.MosaicID, &c.GridWidth, &c.GridHeight, &c.GapSize, &c.BorderRadius,
		&c.BgImageURL, &c.BgOpacity, &c.AnimationSpeed, &c.EntryAnimation, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to upsert config: %w", err)
	}
	return &c, nil
}

// ListPrizeCells retrieves the mosaic's prize-cell set.
func (r *Repository) ListPrizeCells(ctx context.Context, mosaicID uuid.UUID) ([]models.PrizeCell, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, mosaic_id, grid_x, grid_y, created_at
		   FROM prize_cells WHERE mosaic_id = $1`, mosaicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prize cells: %w", err)
	}
	defer rows.Close()

	var cells []models.PrizeCell
	for rows.Next() {
		var c models.PrizeCell
		if err := rows.Scan(&c.ID, &c.MosaicID, &c.GridX, &c.GridY, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prize cell: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// ReplacePrizeCells atomically replaces the mosaic's prize-cell set.
func (r *Repository) ReplacePrizeCells(ctx context.Context, mosaicID uuid.UUID, coords []Coordinate) ([]models.PrizeCell, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM prize_cells WHERE mosaic_id = $1`, mosaicID); err != nil {
		return nil, fmt.Errorf("failed to delete prize cells: %w", err)
	}

	cells := make([]models.PrizeCell, 0, len(coords))
	for _, coord := range coords {
		row := tx.QueryRow(ctx,
			`INSERT INTO prize_cells (id, mosaic_id, grid_x, grid_y)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, mosaic_id, grid_x, grid_y, created_at`,
			uuid.New(), mosaicID, coord.X, coord.Y)

		var c models.PrizeCell
		if err := row.Scan(&c.ID, &c.MosaicID, &c.GridX, &c.GridY, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert prize cell: %w", err)
		}
		cells = append(cells, c)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit prize cells: %w", err)
	}
	return cells, nil
}

// FindPrizeCell returns the prize cell at (x, y), or nil when the
// coordinate is not a prize cell.
func (r *Repository) FindPrizeCell(ctx context.Context, mosaicID uuid.UUID, x, y int) (*models.PrizeCell, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, mosaic_id, grid_x, grid_y, created_at
		   FROM prize_cells WHERE mosaic_id = $1 AND grid_x = $2 AND grid_y = $3`,
		mosaicID, x, y)

	var c models.PrizeCell
	err := row.Scan(&c.ID, &c.MosaicID, &c.GridX, &c.GridY, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find prize cell: %w", err)
	}
	return &c, nil
}
