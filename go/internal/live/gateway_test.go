package live

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mosaicwall/wall/go/internal/models"
)

// stubPrizes awards a prize for one fixed coordinate.
type stubPrizes struct {
	winX, winY int
	checked    []models.Tile
}

func (s *stubPrizes) Check(ctx context.Context, tile models.Tile) (*Envelope, error) {
	s.checked = append(s.checked, tile)
	if tile.GridX != s.winX || tile.GridY != s.winY {
		return nil, nil
	}
	winner := tile.Uploader
	if winner == "" {
		winner = "Guest"
	}
	env, err := NewEnvelope(tile.MosaicID, KindPrizeWon, PrizeWonPayload{Tile: tile, Winner: winner})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func newGatewayFixture(t *testing.T) (*Gateway, *Registry, *stubPrizes) {
	t.Helper()
	registry := NewRegistry(0)
	prizes := &stubPrizes{winX: 1, winY: 1}
	return NewGateway(registry, prizes), registry, prizes
}

func approvedTile(mosaicID uuid.UUID, x, y int) models.Tile {
	return models.Tile{
		ID:       uuid.New(),
		MosaicID: mosaicID,
		ImageURL: "https://example.com/photo.jpg",
		GridX:    x,
		GridY:    y,
		Status:   models.TileStatusApproved,
		Uploader: "Alice",
	}
}

func TestGatewayTileCreatedBroadcastsTileAdded(t *testing.T) {
	gateway, registry, _ := newGatewayFixture(t)
	mosaicID := uuid.New()

	viewer := testConn(mosaicID, RoleDisplay, 16)
	registry.Subscribe(viewer)

	tile := approvedTile(mosaicID, 3, 4)
	require.NoError(t, gateway.TileCreated(context.Background(), tile))

	env := recvEnvelope(t, viewer)
	require.Equal(t, KindTileAdded, env.Kind)

	payload, err := ParsePayload(env)
	require.NoError(t, err)
	require.Equal(t, tile.ID, payload.(TileAddedPayload).Tile.ID)
	requireNoEnvelope(t, viewer)
}

func TestGatewayTileCreatedOnPrizeCell(t *testing.T) {
	gateway, registry, _ := newGatewayFixture(t)
	mosaicID := uuid.New()

	viewer := testConn(mosaicID, RoleDisplay, 16)
	registry.Subscribe(viewer)

	require.NoError(t, gateway.TileCreated(context.Background(), approvedTile(mosaicID, 1, 1)))

	require.Equal(t, KindTileAdded, recvEnvelope(t, viewer).Kind)
	prizeEnv := recvEnvelope(t, viewer)
	require.Equal(t, KindPrizeWon, prizeEnv.Kind)

	payload, err := ParsePayload(prizeEnv)
	require.NoError(t, err)
	require.Equal(t, "Alice", payload.(PrizeWonPayload).Winner)
	requireNoEnvelope(t, viewer)
}

func TestGatewayTileCreatedOffPrizeCellEmitsNoPrize(t *testing.T) {
	gateway, registry, _ := newGatewayFixture(t)
	mosaicID := uuid.New()

	viewer := testConn(mosaicID, RoleDisplay, 16)
	registry.Subscribe(viewer)

	require.NoError(t, gateway.TileCreated(context.Background(), approvedTile(mosaicID, 0, 0)))

	require.Equal(t, KindTileAdded, recvEnvelope(t, viewer).Kind)
	requireNoEnvelope(t, viewer)
}

func TestGatewayTileCreatedWithoutSubscribers(t *testing.T) {
	gateway, _, prizes := newGatewayFixture(t)
	mosaicID := uuid.New()

	// No hub exists: broadcast is silently a no-op, but prize matching
	// still runs against the durable state.
	require.NoError(t, gateway.TileCreated(context.Background(), approvedTile(mosaicID, 2, 2)))
	require.Len(t, prizes.checked, 1)
}

func TestGatewayTileCreatedRejectsInvalidTile(t *testing.T) {
	gateway, _, prizes := newGatewayFixture(t)

	tile := approvedTile(uuid.New(), 0, 0)
	tile.GridX = -1
	require.Error(t, gateway.TileCreated(context.Background(), tile))
	require.Empty(t, prizes.checked)
}

func TestGatewayBulkCreatedKeepsOrderAndMirrorsFill(t *testing.T) {
	gateway, registry, _ := newGatewayFixture(t)
	mosaicID := uuid.New()

	viewer := testConn(mosaicID, RoleDisplay, 32)
	admin := testConn(mosaicID, RoleAdmin, 32)
	registry.Subscribe(viewer)
	registry.Subscribe(admin)

	tiles := []models.Tile{
		approvedTile(mosaicID, 0, 0),
		approvedTile(mosaicID, 2, 0),
		approvedTile(mosaicID, 4, 0),
	}
	require.NoError(t, gateway.TilesBulkCreated(context.Background(), mosaicID, tiles))

	for _, tile := range tiles {
		env := recvEnvelope(t, viewer)
		require.Equal(t, KindTileAdded, env.Kind)
		payload, err := ParsePayload(env)
		require.NoError(t, err)
		require.Equal(t, tile.ID, payload.(TileAddedPayload).Tile.ID)
	}
	requireNoEnvelope(t, viewer)

	for range tiles {
		require.Equal(t, KindTileAdded, recvEnvelope(t, admin).Kind)
	}
	fill := recvEnvelope(t, admin)
	require.Equal(t, KindAdminFilled, fill.Kind)
	payload, err := ParsePayload(fill)
	require.NoError(t, err)
	require.Equal(t, 3, payload.(AdminFilledPayload).Count)
}

func TestGatewayConfigReplaced(t *testing.T) {
	gateway, registry, _ := newGatewayFixture(t)
	mosaicID := uuid.New()

	viewer := testConn(mosaicID, RoleDisplay, 16)
	registry.Subscribe(viewer)

	config := models.DefaultMosaicConfig(mosaicID)
	config.GridWidth = 30
	require.NoError(t, gateway.ConfigReplaced(context.Background(), config))

	env := recvEnvelope(t, viewer)
	require.Equal(t, KindConfigUpdated, env.Kind)
	payload, err := ParsePayload(env)
	require.NoError(t, err)
	require.Equal(t, 30, payload.(ConfigUpdatedPayload).Config.GridWidth)
}

func TestGatewayConfigReplacedRejectsInvalidConfig(t *testing.T) {
	gateway, _, _ := newGatewayFixture(t)

	config := models.DefaultMosaicConfig(uuid.New())
	config.GridWidth = 0
	require.Error(t, gateway.ConfigReplaced(context.Background(), config))
}

func TestGatewayTilesCleared(t *testing.T) {
	gateway, registry, _ := newGatewayFixture(t)
	mosaicID := uuid.New()

	viewer := testConn(mosaicID, RoleDisplay, 16)
	admin := testConn(mosaicID, RoleAdmin, 16)
	registry.Subscribe(viewer)
	registry.Subscribe(admin)

	require.NoError(t, gateway.TilesCleared(context.Background(), mosaicID))

	require.Equal(t, KindCleared, recvEnvelope(t, viewer).Kind)
	requireNoEnvelope(t, viewer)

	require.Equal(t, KindCleared, recvEnvelope(t, admin).Kind)
	require.Equal(t, KindAdminCleared, recvEnvelope(t, admin).Kind)
}

func TestGatewayPrizeCellsReplacedMirrorsToAdminsOnly(t *testing.T) {
	gateway, registry, _ := newGatewayFixture(t)
	mosaicID := uuid.New()

	viewer := testConn(mosaicID, RoleDisplay, 16)
	admin := testConn(mosaicID, RoleAdmin, 16)
	registry.Subscribe(viewer)
	registry.Subscribe(admin)

	cells := []models.PrizeCell{
		{ID: uuid.New(), MosaicID: mosaicID, GridX: 1, GridY: 1},
		{ID: uuid.New(), MosaicID: mosaicID, GridX: 5, GridY: 5},
	}
	require.NoError(t, gateway.PrizeCellsReplaced(context.Background(), mosaicID, cells))

	saved := recvEnvelope(t, admin)
	require.Equal(t, KindAdminPrizeCellsSaved, saved.Kind)
	set := recvEnvelope(t, admin)
	require.Equal(t, KindAdminPrizeCells, set.Kind)

	payload, err := ParsePayload(set)
	require.NoError(t, err)
	require.Len(t, payload.(PrizeCellsPayload).Cells, 2)

	requireNoEnvelope(t, viewer)
}
