package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mosaicwall/wall/go/internal/models"
)

type fakeSnapshotStore struct {
	mu     sync.Mutex
	config models.MosaicConfig
	tiles  []models.Tile
}

func (f *fakeSnapshotStore) Snapshot(ctx context.Context, mosaicID uuid.UUID) (models.MosaicConfig, []models.Tile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config, f.tiles, nil
}

func (f *fakeSnapshotStore) setTiles(tiles []models.Tile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tiles = tiles
}

func newHandlerFixture(t *testing.T, store *fakeSnapshotStore) *httptest.Server {
	t.Helper()
	registry := NewRegistry(0)
	handler := NewWebSocketHandler(registry, store, DefaultConnectionConfig())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialMosaic(t *testing.T, srv *httptest.Server, mosaicID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mosaic?mosaic_id=" + mosaicID.String()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHandlerSendsInitSnapshotOnSubscribe(t *testing.T) {
	mosaicID := uuid.New()
	store := &fakeSnapshotStore{
		config: models.DefaultMosaicConfig(mosaicID),
		tiles: []models.Tile{
			approvedTile(mosaicID, 0, 0),
			approvedTile(mosaicID, 1, 0),
			approvedTile(mosaicID, 2, 0),
		},
	}
	srv := newHandlerFixture(t, store)

	ws := dialMosaic(t, srv, mosaicID)

	// The very first frame is the full snapshot, never a replay of
	// individual tile_added envelopes.
	env := readEnvelope(t, ws)
	require.Equal(t, KindInit, env.Kind)
	require.Equal(t, mosaicID, env.MosaicID)

	payload, err := ParsePayload(env)
	require.NoError(t, err)
	init := payload.(InitPayload)
	require.Len(t, init.Tiles, 3)
	require.Equal(t, 20, init.Config.GridWidth)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = ws.ReadMessage()
	require.Error(t, err, "no further frames expected after the snapshot")
}

func TestHandlerDisplayReadyTriggersFreshSnapshot(t *testing.T) {
	mosaicID := uuid.New()
	store := &fakeSnapshotStore{
		config: models.DefaultMosaicConfig(mosaicID),
		tiles:  []models.Tile{approvedTile(mosaicID, 0, 0)},
	}
	srv := newHandlerFixture(t, store)

	ws := dialMosaic(t, srv, mosaicID)
	first := readEnvelope(t, ws)
	require.Equal(t, KindInit, first.Kind)

	// More tiles land while the display is connected; announcing
	// readiness again resyncs it with the store's current state.
	store.setTiles([]models.Tile{
		approvedTile(mosaicID, 0, 0),
		approvedTile(mosaicID, 1, 1),
	})

	ready, err := NewEnvelope(mosaicID, KindDisplayReady, DisplayReadyPayload{MosaicID: mosaicID})
	require.NoError(t, err)
	data, err := json.Marshal(ready)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))

	second := readEnvelope(t, ws)
	require.Equal(t, KindInit, second.Kind)

	payload, err := ParsePayload(second)
	require.NoError(t, err)
	require.Len(t, payload.(InitPayload).Tiles, 2)
}

func TestHandlerRejectsBadMosaicID(t *testing.T) {
	srv := newHandlerFixture(t, &fakeSnapshotStore{})

	resp, err := http.Get(srv.URL + "/ws/mosaic")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws/mosaic?mosaic_id=not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerConnectionStats(t *testing.T) {
	mosaicID := uuid.New()
	store := &fakeSnapshotStore{config: models.DefaultMosaicConfig(mosaicID)}
	srv := newHandlerFixture(t, store)

	ws := dialMosaic(t, srv, mosaicID)
	readEnvelope(t, ws)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats RegistryStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, 1, stats.TotalConnections)
	require.Equal(t, 1, stats.ActiveMosaics)
	require.Equal(t, 1, stats.MosaicConnections[mosaicID.String()])
}
