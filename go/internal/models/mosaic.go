package models

import (
	"time"

	"github.com/google/uuid"
)

// MosaicStatus defines the lifecycle state of a mosaic.
type MosaicStatus string

const (
	MosaicStatusActive   MosaicStatus = "active"
	MosaicStatusArchived MosaicStatus = "archived"
)

// Mosaic represents one logical grid/event instance. It is the unit of
// isolation for broadcast and storage.
type Mosaic struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description *string      `json:"description,omitempty"`
	Status      MosaicStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}
