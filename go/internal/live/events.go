package live

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicwall/wall/go/internal/models"
)

// Envelope is the tagged message unit exchanged between the server and
// viewers. It is immutable once constructed and belongs to exactly one
// mosaic's fan-out.
type Envelope struct {
	ID        string          `json:"id"`        // Envelope UUID
	MosaicID  uuid.UUID       `json:"mosaic_id"` // Mosaic this envelope belongs to
	Kind      Kind            `json:"kind"`      // Envelope kind
	Timestamp time.Time       `json:"timestamp"` // Creation time
	Payload   json.RawMessage `json:"payload"`   // Kind-specific payload
}

// Kind identifies the payload type carried by an envelope.
type Kind string

const (
	// KindDisplayReady is sent by a viewer right after connecting to name
	// the mosaic it wants to subscribe to.
	KindDisplayReady Kind = "display_ready"
	// KindInit carries the full current state so late joiners catch up
	// without replaying history.
	KindInit Kind = "init"

	KindTileAdded     Kind = "tile_added"
	KindConfigUpdated Kind = "config_updated"
	KindCleared       Kind = "cleared"
	KindPrizeWon      Kind = "prize_won"

	// Admin mirrors confirming save/clear/fill operations to admin consoles.
	KindAdminCleared         Kind = "admin:cleared"
	KindAdminFilled          Kind = "admin:filled"
	KindAdminPrizeCellsSaved Kind = "admin:prize_cells_saved"
	KindAdminPrizeCells      Kind = "admin:prize_cells"
)

// DisplayReadyPayload names the mosaic a viewer subscribes to.
type DisplayReadyPayload struct {
	MosaicID uuid.UUID `json:"mosaic_id"`
	Slug     string    `json:"slug,omitempty"`
}

// InitPayload is the late-joiner snapshot: config plus every approved tile.
type InitPayload struct {
	Config models.MosaicConfig `json:"config"`
	Tiles  []models.Tile       `json:"tiles"`
}

type TileAddedPayload struct {
	Tile models.Tile `json:"tile"`
}

type ConfigUpdatedPayload struct {
	Config models.MosaicConfig `json:"config"`
}

type ClearedPayload struct {
	MosaicID uuid.UUID `json:"mosaic_id"`
}

type PrizeWonPayload struct {
	Tile   models.Tile `json:"tile"`
	Winner string      `json:"winner"`
}

type AdminFilledPayload struct {
	MosaicID uuid.UUID `json:"mosaic_id"`
	Count    int       `json:"count"`
}

type PrizeCellsSavedPayload struct {
	MosaicID uuid.UUID `json:"mosaic_id"`
	Count    int       `json:"count"`
}

type PrizeCellsPayload struct {
	Cells []models.PrizeCell `json:"cells"`
}

// NewEnvelope constructs an envelope for the given mosaic and kind,
// marshaling the payload once at construction time.
func NewEnvelope(mosaicID uuid.UUID, kind Kind, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		MosaicID:  mosaicID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// ParsePayload decodes an envelope's payload into the struct matching its
// kind. The kind set is closed: an unknown kind is an error, not a silent
// nil, so receivers dispatch exhaustively.
func ParsePayload(env Envelope) (interface{}, error) {
	switch env.Kind {
	case KindDisplayReady:
		var p DisplayReadyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindInit:
		var p InitPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindTileAdded:
		var p TileAddedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindConfigUpdated:
		var p ConfigUpdatedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindCleared, KindAdminCleared:
		var p ClearedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindPrizeWon:
		var p PrizeWonPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindAdminFilled:
		var p AdminFilledPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindAdminPrizeCellsSaved:
		var p PrizeCellsSavedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindAdminPrizeCells:
		var p PrizeCellsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown envelope kind %q", env.Kind)
	}
}
