package live

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Hub fans envelopes out to every connection subscribed to one mosaic.
// Hubs are independent of one another: each carries its own lock, so a
// busy mosaic never contends with a quiet one.
type Hub struct {
	mosaicID uuid.UUID

	mu    sync.RWMutex
	conns map[*Connection]bool
}

func newHub(mosaicID uuid.UUID) *Hub {
	return &Hub{
		mosaicID: mosaicID,
		conns:    make(map[*Connection]bool),
	}
}

// MosaicID returns the mosaic this hub serves.
func (h *Hub) MosaicID() uuid.UUID {
	return h.mosaicID
}

// Subscribe registers a connection with the hub.
func (h *Hub) Subscribe(conn *Connection) {
	h.mu.Lock()
	h.conns[conn] = true
	total := len(h.conns)
	h.mu.Unlock()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("mosaic_id", h.mosaicID.String()).
		Int("total_connections", total).
		Msg("connection subscribed")
}

// Unsubscribe removes a connection from the hub. Idempotent: a connection
// already removed is a no-op. Returns the number of connections left.
func (h *Hub) Unsubscribe(conn *Connection) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return len(h.conns)
	}
	delete(h.conns, conn)
	conn.closeSend()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("mosaic_id", h.mosaicID.String()).
		Int("total_connections", len(h.conns)).
		Msg("connection unsubscribed")
	return len(h.conns)
}

// Len reports the number of subscribed connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast delivers the envelope to every subscribed connection.
// Delivery is best-effort per connection: a slow or dead connection is
// pruned instead of blocking the rest, and no error ever reaches the
// caller. Sequential Broadcast calls reach each surviving connection in
// the order they were issued.
func (h *Hub) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("kind", string(env.Kind)).Msg("failed to marshal envelope for broadcast")
		return
	}

	adminOnly := isAdminKind(env.Kind)

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		if adminOnly && conn.Role != RoleAdmin {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	var dead []*Connection
	for _, conn := range targets {
		if !conn.enqueue(data) {
			// Send buffer full: the consumer is too slow, drop it rather
			// than let it stall the hub.
			log.Warn().
				Str("connection_id", conn.ID).
				Str("mosaic_id", h.mosaicID.String()).
				Msg("connection send buffer full, closing connection")
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		h.Unsubscribe(conn)
		conn.closeSocket()
	}

	log.Debug().
		Str("kind", string(env.Kind)).
		Str("mosaic_id", h.mosaicID.String()).
		Int("connections", len(targets)-len(dead)).
		Msg("envelope broadcast")
}

// sendTo delivers an envelope to a single connection, pruning it on a
// full buffer the same way Broadcast does.
func (h *Hub) sendTo(conn *Connection, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("kind", string(env.Kind)).Msg("failed to marshal envelope")
		return
	}
	if !conn.enqueue(data) {
		h.Unsubscribe(conn)
		conn.closeSocket()
	}
}

func isAdminKind(k Kind) bool {
	return strings.HasPrefix(string(k), "admin:")
}
