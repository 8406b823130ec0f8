package models

import (
	"time"

	"github.com/google/uuid"
)

// TileStatus defines the moderation state of a tile.
type TileStatus string

const (
	TileStatusPending  TileStatus = "pending"
	TileStatusApproved TileStatus = "approved"
	TileStatusRejected TileStatus = "rejected"
)

// Tile represents one placed photo at a grid coordinate within a mosaic.
type Tile struct {
	ID        uuid.UUID  `json:"id"`
	MosaicID  uuid.UUID  `json:"mosaic_id"`
	ImageURL  string     `json:"image_url" validate:"required"`
	GridX     int        `json:"grid_x" validate:"gte=0"`
	GridY     int        `json:"grid_y" validate:"gte=0"`
	Status    TileStatus `json:"status"`
	Uploader  string     `json:"uploader"`
	Email     *string    `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
