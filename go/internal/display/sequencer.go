package display

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/live"
	"github.com/mosaicwall/wall/go/internal/models"
)

// State is the sequencer's playback state.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
)

// SpotlightDuration is how long one tile reveal stays on screen before
// the tile locks into the grid.
const SpotlightDuration = 4500 * time.Millisecond

// PrizeBannerDuration is how long a prize celebration stays up.
const PrizeBannerDuration = 8 * time.Second

// Sequencer turns a stream of envelopes into a strictly serial reveal
// playback: at most one tile animates at any instant, no matter how many
// tile_added envelopes arrive back to back. New arrivals append to the
// queue tail; the head leaves the queue only after its animation
// completes. Non-reveal kinds apply immediately without queueing.
//
// The state machine advances on a single "animation finished" signal.
// With a real clock the signal fires SpotlightDuration after a reveal
// starts; tests drive it directly or through a fake clock.
type Sequencer struct {
	mu sync.Mutex

	state   State
	queue   []uuid.UUID
	known   map[uuid.UUID]models.Tile
	placed  []uuid.UUID
	current uuid.UUID

	// revealGen increments every time a reveal starts. A timer callback
	// that fired before a clear or init flushed its reveal carries a stale
	// generation and is ignored; Stop alone cannot catch a callback
	// already blocked on the mutex.
	revealGen uint64

	config models.MosaicConfig
	prize  *live.PrizeWonPayload

	clock      clockwork.Clock
	spotlight  time.Duration
	timer      clockwork.Timer
	prizeTimer clockwork.Timer

	// onReveal fires when a tile's animation starts. Optional.
	onReveal func(models.Tile)
}

// NewSequencer creates a sequencer with a real clock.
func NewSequencer() *Sequencer {
	return NewSequencerWithClock(clockwork.NewRealClock())
}

// NewSequencerWithClock creates a sequencer with an injected clock for
// deterministic tests.
func NewSequencerWithClock(clock clockwork.Clock) *Sequencer {
	return &Sequencer{
		state:     StateIdle,
		known:     make(map[uuid.UUID]models.Tile),
		clock:     clock,
		spotlight: SpotlightDuration,
	}
}

// SetOnReveal registers a hook fired when a tile's animation starts.
func (s *Sequencer) SetOnReveal(fn func(models.Tile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReveal = fn
}

// OnEnvelope consumes one envelope from the connection. A malformed
// payload is logged and discarded; it never stalls the sequencer.
func (s *Sequencer) OnEnvelope(env live.Envelope) {
	payload, err := live.ParsePayload(env)
	if err != nil {
		log.Warn().
			Err(err).
			Str("kind", string(env.Kind)).
			Msg("dropping malformed envelope")
		return
	}

	switch p := payload.(type) {
	case live.InitPayload:
		s.applyInit(p)
	case live.TileAddedPayload:
		s.applyTileAdded(p.Tile)
	case live.ConfigUpdatedPayload:
		s.applyConfig(p.Config)
	case live.ClearedPayload:
		s.applyCleared()
	case live.PrizeWonPayload:
		s.applyPrize(p)
	case live.DisplayReadyPayload, live.AdminFilledPayload, live.PrizeCellsSavedPayload, live.PrizeCellsPayload:
		// Not meant for the display's grid.
	default:
		log.Debug().Str("kind", string(env.Kind)).Msg("ignoring envelope")
	}
}

// applyInit replaces local state with the snapshot. Snapshot tiles are
// already part of the wall: they land placed, never queued.
func (s *Sequencer) applyInit(p live.InitPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.config = p.Config
	for _, tile := range p.Tiles {
		s.known[tile.ID] = tile
		s.placed = append(s.placed, tile.ID)
	}
}

func (s *Sequencer) applyTileAdded(tile models.Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.known[tile.ID]; seen {
		return
	}
	s.known[tile.ID] = tile
	s.queue = append(s.queue, tile.ID)

	if s.state == StateIdle {
		s.startNext()
	}
}

func (s *Sequencer) applyConfig(cfg models.MosaicConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// applyCleared flushes the queue, abandons any in-flight animation, and
// empties the local grid. Queued-but-unplayed reveals are simply dropped.
func (s *Sequencer) applyCleared() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Sequencer) applyPrize(p live.PrizeWonPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prize := p
	s.prize = &prize
	if s.prizeTimer != nil {
		s.prizeTimer.Stop()
	}
	s.prizeTimer = s.clock.AfterFunc(PrizeBannerDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.prize = nil
	})
}

// AnimationDone signals that the current reveal finished. The head tile
// locks into the grid and the next queued tile, if any, starts playing.
func (s *Sequencer) AnimationDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishReveal(s.revealGen)
}

// finishReveal completes the reveal identified by gen. A stale gen means
// that reveal was already flushed or replaced and the signal applies to
// nothing. Callers hold s.mu.
func (s *Sequencer) finishReveal(gen uint64) {
	if s.state != StatePlaying || gen != s.revealGen {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.placed = append(s.placed, s.current)
	s.queue = s.queue[1:]
	s.current = uuid.Nil

	if len(s.queue) > 0 {
		s.startNext()
		return
	}
	s.state = StateIdle
}

// startNext begins animating the queue head. Callers hold s.mu.
func (s *Sequencer) startNext() {
	s.current = s.queue[0]
	s.state = StatePlaying
	s.revealGen++
	gen := s.revealGen
	s.timer = s.clock.AfterFunc(s.spotlight, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.finishReveal(gen)
	})

	if s.onReveal != nil {
		if tile, ok := s.known[s.current]; ok {
			go s.onReveal(tile)
		}
	}
}

// reset empties all local state. Callers hold s.mu.
func (s *Sequencer) reset() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.prizeTimer != nil {
		s.prizeTimer.Stop()
		s.prizeTimer = nil
	}
	s.state = StateIdle
	s.queue = nil
	s.known = make(map[uuid.UUID]models.Tile)
	s.placed = nil
	s.current = uuid.Nil
	s.prize = nil
}

// State returns the current playback state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLen returns the number of tiles awaiting playback, excluding the
// one currently animating.
func (s *Sequencer) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePlaying {
		return len(s.queue) - 1
	}
	return len(s.queue)
}

// CurrentTile returns the tile animating right now, or nil when idle.
func (s *Sequencer) CurrentTile() *models.Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return nil
	}
	tile, ok := s.known[s.current]
	if !ok {
		return nil
	}
	return &tile
}

// PlacedTiles returns the tiles locked into the local grid, in placement
// order.
func (s *Sequencer) PlacedTiles() []models.Tile {
	s.mu.Lock()
	defer s.mu.Unlock()

	tiles := make([]models.Tile, 0, len(s.placed))
	for _, id := range s.placed {
		if tile, ok := s.known[id]; ok {
			tiles = append(tiles, tile)
		}
	}
	return tiles
}

// Config returns the display configuration currently in effect.
func (s *Sequencer) Config() models.MosaicConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// PrizeBanner returns the active prize celebration, or nil.
func (s *Sequencer) PrizeBanner() *live.PrizeWonPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prize
}
