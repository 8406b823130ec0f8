package live

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/models"
)

// SnapshotStore is what the handler needs from the durable record store:
// the full current state of a mosaic, fetched fresh for every late
// joiner. Hub memory is never the source of a snapshot.
type SnapshotStore interface {
	Snapshot(ctx context.Context, mosaicID uuid.UUID) (models.MosaicConfig, []models.Tile, error)
}

// WebSocketHandler upgrades viewer and admin connections and wires them
// into the registry.
type WebSocketHandler struct {
	registry *Registry
	store    SnapshotStore
	upgrader websocket.Upgrader
	config   ConnectionConfig
}

// NewWebSocketHandler creates a handler over the given registry and store.
func NewWebSocketHandler(registry *Registry, store SnapshotStore, config ConnectionConfig) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		store:    store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// HandleMosaicConnection handles WebSocket connections for one mosaic.
// The connection is subscribed immediately and receives an init snapshot,
// so a late joiner sees every prior tile without replaying history.
func (h *WebSocketHandler) HandleMosaicConnection(w http.ResponseWriter, r *http.Request) {
	mosaicIDStr := r.URL.Query().Get("mosaic_id")
	if mosaicIDStr == "" {
		http.Error(w, "mosaic_id is required", http.StatusBadRequest)
		return
	}
	mosaicID, err := uuid.Parse(mosaicIDStr)
	if err != nil {
		http.Error(w, "invalid mosaic_id format", http.StatusBadRequest)
		return
	}

	role := RoleDisplay
	if r.URL.Query().Get("role") == string(RoleAdmin) {
		// In production the admin role comes from the session credential;
		// the sync core only cares which mirror set the connection gets.
		role = RoleAdmin
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	conn := &Connection{
		ID:          uuid.New().String(),
		MosaicID:    mosaicID,
		Role:        role,
		Send:        make(chan []byte, h.config.SendBufferSize),
		ws:          ws,
		registry:    h.registry,
		config:      h.config,
		inbound:     h.handleInbound,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	hub := h.registry.Subscribe(conn)

	go conn.writePump()
	go conn.readPump()

	h.sendInit(r.Context(), hub, conn)

	log.Info().
		Str("connection_id", conn.ID).
		Str("mosaic_id", mosaicID.String()).
		Str("role", string(role)).
		Msg("WebSocket connection established")
}

// sendInit fetches the mosaic's current state from the store and delivers
// it to a single connection.
func (h *WebSocketHandler) sendInit(ctx context.Context, hub *Hub, conn *Connection) {
	config, tiles, err := h.store.Snapshot(ctx, conn.MosaicID)
	if err != nil {
		log.Error().
			Err(err).
			Str("mosaic_id", conn.MosaicID.String()).
			Msg("failed to fetch init snapshot")
		return
	}

	env, err := NewEnvelope(conn.MosaicID, KindInit, InitPayload{Config: config, Tiles: tiles})
	if err != nil {
		log.Error().Err(err).Msg("failed to build init envelope")
		return
	}
	hub.sendTo(conn, env)
}

// handleInbound processes messages received from a client. A malformed
// message is logged and dropped; the connection stays open.
func (h *WebSocketHandler) handleInbound(conn *Connection, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("dropping malformed client message")
		return
	}

	switch env.Kind {
	case KindDisplayReady:
		// Viewers announce readiness after connecting; answer with a
		// fresh snapshot so a reconnecting display resyncs in place.
		hub := h.registry.GetOrCreate(conn.MosaicID)
		h.sendInit(context.Background(), hub, conn)
	default:
		log.Debug().
			Str("connection_id", conn.ID).
			Str("kind", string(env.Kind)).
			Msg("ignoring client message")
	}
}

// HandleConnectionStats reports active connection counts.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.registry.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/mosaic", h.HandleMosaicConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
