package models

import (
	"time"

	"github.com/google/uuid"
)

// MosaicConfig holds per-mosaic display configuration.
type MosaicConfig struct {
	ID             uuid.UUID `json:"id"`
	MosaicID       uuid.UUID `json:"mosaic_id"`
	GridWidth      int       `json:"grid_width" validate:"gt=0,lte=200"`
	GridHeight     int       `json:"grid_height" validate:"gt=0,lte=200"`
	GapSize        int       `json:"gap_size" validate:"gte=0"`
	BorderRadius   int       `json:"border_radius" validate:"gte=0"`
	BgImageURL     *string   `json:"bg_image_url,omitempty"`
	BgOpacity      float64   `json:"bg_opacity" validate:"gte=0,lte=1"`
	AnimationSpeed float64   `json:"animation_speed" validate:"gt=0"`
	EntryAnimation string    `json:"entry_animation"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DefaultMosaicConfig returns the configuration used when a mosaic has no
// config row yet.
func DefaultMosaicConfig(mosaicID uuid.UUID) MosaicConfig {
	return MosaicConfig{
		MosaicID:       mosaicID,
		GridWidth:      20,
		GridHeight:     15,
		GapSize:        2,
		BorderRadius:   4,
		BgOpacity:      0.5,
		AnimationSpeed: 0.8,
		EntryAnimation: "scale",
	}
}
