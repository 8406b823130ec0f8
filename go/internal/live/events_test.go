package live

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mosaicwall/wall/go/internal/models"
)

func TestNewEnvelopeStampsIdentity(t *testing.T) {
	mosaicID := uuid.New()

	env, err := NewEnvelope(mosaicID, KindCleared, ClearedPayload{MosaicID: mosaicID})
	require.NoError(t, err)

	require.NotEmpty(t, env.ID)
	require.Equal(t, mosaicID, env.MosaicID)
	require.Equal(t, KindCleared, env.Kind)
	require.False(t, env.Timestamp.IsZero())

	other, err := NewEnvelope(mosaicID, KindCleared, ClearedPayload{MosaicID: mosaicID})
	require.NoError(t, err)
	require.NotEqual(t, env.ID, other.ID)
}

func TestParsePayloadDispatchesByKind(t *testing.T) {
	mosaicID := uuid.New()
	tile := models.Tile{
		ID:       uuid.New(),
		MosaicID: mosaicID,
		ImageURL: "https://example.com/photo.jpg",
		GridX:    7,
		GridY:    3,
		Status:   models.TileStatusApproved,
		Uploader: "Bea",
	}

	cases := []struct {
		kind    Kind
		payload interface{}
		check   func(t *testing.T, parsed interface{})
	}{
		{
			kind:    KindDisplayReady,
			payload: DisplayReadyPayload{MosaicID: mosaicID, Slug: "launch-party"},
			check: func(t *testing.T, parsed interface{}) {
				require.Equal(t, "launch-party", parsed.(DisplayReadyPayload).Slug)
			},
		},
		{
			kind: KindInit,
			payload: InitPayload{
				Config: models.DefaultMosaicConfig(mosaicID),
				Tiles:  []models.Tile{tile},
			},
			check: func(t *testing.T, parsed interface{}) {
				p := parsed.(InitPayload)
				require.Equal(t, 20, p.Config.GridWidth)
				require.Len(t, p.Tiles, 1)
			},
		},
		{
			kind:    KindTileAdded,
			payload: TileAddedPayload{Tile: tile},
			check: func(t *testing.T, parsed interface{}) {
				require.Equal(t, tile.ID, parsed.(TileAddedPayload).Tile.ID)
			},
		},
		{
			kind:    KindPrizeWon,
			payload: PrizeWonPayload{Tile: tile, Winner: "Bea"},
			check: func(t *testing.T, parsed interface{}) {
				require.Equal(t, "Bea", parsed.(PrizeWonPayload).Winner)
			},
		},
		{
			kind:    KindAdminCleared,
			payload: ClearedPayload{MosaicID: mosaicID},
			check: func(t *testing.T, parsed interface{}) {
				require.Equal(t, mosaicID, parsed.(ClearedPayload).MosaicID)
			},
		},
		{
			kind:    KindAdminPrizeCells,
			payload: PrizeCellsPayload{Cells: []models.PrizeCell{{MosaicID: mosaicID, GridX: 1, GridY: 2}}},
			check: func(t *testing.T, parsed interface{}) {
				require.Len(t, parsed.(PrizeCellsPayload).Cells, 1)
			},
		},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			env, err := NewEnvelope(mosaicID, tc.kind, tc.payload)
			require.NoError(t, err)

			parsed, err := ParsePayload(env)
			require.NoError(t, err)
			tc.check(t, parsed)
		})
	}
}

func TestParsePayloadRejectsUnknownKind(t *testing.T) {
	env := Envelope{
		ID:       uuid.New().String(),
		MosaicID: uuid.New(),
		Kind:     Kind("tile_removed"),
		Payload:  json.RawMessage(`{}`),
	}

	_, err := ParsePayload(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown envelope kind")
}

func TestParsePayloadRejectsMalformedPayload(t *testing.T) {
	env := Envelope{
		ID:       uuid.New().String(),
		MosaicID: uuid.New(),
		Kind:     KindTileAdded,
		Payload:  json.RawMessage(`{"tile":`),
	}

	_, err := ParsePayload(env)
	require.Error(t, err)
}
