package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Registry is the process-wide map from mosaic ID to its hub. Hubs are
// created lazily on first subscribe and evicted once empty, after an
// optional grace period that tolerates reconnect storms. Eviction timing
// is a memory optimization only: viewers always resynchronize through
// the init snapshot, never through hub memory.
type Registry struct {
	mu   sync.Mutex
	hubs map[uuid.UUID]*Hub

	clock clockwork.Clock
	grace time.Duration
}

// NewRegistry creates a registry whose empty hubs linger for grace before
// being removed. A zero grace evicts immediately.
func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		hubs:  make(map[uuid.UUID]*Hub),
		clock: clockwork.NewRealClock(),
		grace: grace,
	}
}

// NewRegistryWithClock is NewRegistry with an injected clock for tests.
func NewRegistryWithClock(grace time.Duration, clock clockwork.Clock) *Registry {
	r := NewRegistry(grace)
	r.clock = clock
	return r
}

// GetOrCreate returns the hub for the mosaic, creating it if none exists.
// Safe under concurrent calls: one hub per mosaic, no cross-talk between
// mosaics.
func (r *Registry) GetOrCreate(mosaicID uuid.UUID) *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()

	hub, ok := r.hubs[mosaicID]
	if !ok {
		hub = newHub(mosaicID)
		r.hubs[mosaicID] = hub
		log.Debug().Str("mosaic_id", mosaicID.String()).Msg("hub created")
	}
	return hub
}

// Subscribe registers the connection with the hub for its mosaic,
// creating the hub on first subscribe.
func (r *Registry) Subscribe(conn *Connection) *Hub {
	hub := r.GetOrCreate(conn.MosaicID)
	hub.Subscribe(conn)
	return hub
}

// Unsubscribe removes the connection from whichever hub holds it.
// Idempotent. An empty hub is scheduled for eviction.
func (r *Registry) Unsubscribe(conn *Connection) {
	r.mu.Lock()
	hub, ok := r.hubs[conn.MosaicID]
	r.mu.Unlock()
	if !ok {
		return
	}

	if hub.Unsubscribe(conn) == 0 {
		r.scheduleEviction(conn.MosaicID)
	}
}

// BroadcastTo delivers the envelope to the mosaic's hub if one exists.
// No subscribers means nothing to notify: silently a no-op, never an
// error.
func (r *Registry) BroadcastTo(mosaicID uuid.UUID, env Envelope) {
	r.mu.Lock()
	hub, ok := r.hubs[mosaicID]
	r.mu.Unlock()
	if !ok {
		return
	}
	hub.Broadcast(env)
}

// scheduleEviction removes the mosaic's hub once the grace period passes,
// unless a new subscriber arrived in the meantime.
func (r *Registry) scheduleEviction(mosaicID uuid.UUID) {
	if r.grace <= 0 {
		r.evictIfEmpty(mosaicID)
		return
	}
	r.clock.AfterFunc(r.grace, func() {
		r.evictIfEmpty(mosaicID)
	})
}

func (r *Registry) evictIfEmpty(mosaicID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hub, ok := r.hubs[mosaicID]
	if !ok || hub.Len() > 0 {
		return
	}
	delete(r.hubs, mosaicID)
	log.Debug().Str("mosaic_id", mosaicID.String()).Msg("empty hub evicted")
}

// Stats reports active hubs and connection counts per mosaic.
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := RegistryStats{MosaicConnections: make(map[string]int, len(r.hubs))}
	for id, hub := range r.hubs {
		n := hub.Len()
		stats.TotalConnections += n
		stats.ActiveMosaics++
		stats.MosaicConnections[id.String()] = n
	}
	return stats
}

// RegistryStats is a point-in-time view of registry occupancy.
type RegistryStats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveMosaics     int            `json:"active_mosaics"`
	MosaicConnections map[string]int `json:"mosaic_connections"`
}
