package models

import (
	"time"

	"github.com/google/uuid"
)

// PrizeCell is a grid coordinate pre-marked to trigger a "prize won"
// notification when a tile lands on it.
type PrizeCell struct {
	ID        uuid.UUID `json:"id"`
	MosaicID  uuid.UUID `json:"mosaic_id"`
	GridX     int       `json:"grid_x"`
	GridY     int       `json:"grid_y"`
	CreatedAt time.Time `json:"created_at"`
}
