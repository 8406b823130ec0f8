package display

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/live"
)

// Client is a viewer-side connection to the live-sync server. It dials
// the mosaic's WebSocket endpoint, announces readiness, and feeds every
// received envelope into its sequencer.
type Client struct {
	serverURL string
	mosaicID  uuid.UUID
	sequencer *Sequencer
}

// NewClient creates a client for one mosaic.
func NewClient(serverURL string, mosaicID uuid.UUID, sequencer *Sequencer) *Client {
	return &Client{
		serverURL: serverURL,
		mosaicID:  mosaicID,
		sequencer: sequencer,
	}
}

// Run connects and consumes envelopes until the context is canceled or
// the connection drops. Reconnecting is the caller's loop: every fresh
// connection resynchronizes through the init snapshot.
func (c *Client) Run(ctx context.Context) error {
	url := fmt.Sprintf("%s/ws/mosaic?mosaic_id=%s", c.serverURL, c.mosaicID)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.Close()

	if err := c.sendDisplayReady(ws); err != nil {
		return err
	}

	log.Info().
		Str("mosaic_id", c.mosaicID.String()).
		Msg("display connected")

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
		close(done)
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return ctx.Err()
			default:
				return fmt.Errorf("read envelope: %w", err)
			}
		}

		var env live.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Warn().Err(err).Msg("dropping unparseable envelope")
			continue
		}
		c.sequencer.OnEnvelope(env)
	}
}

func (c *Client) sendDisplayReady(ws *websocket.Conn) error {
	env, err := live.NewEnvelope(c.mosaicID, live.KindDisplayReady, live.DisplayReadyPayload{
		MosaicID: c.mosaicID,
	})
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal display_ready: %w", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send display_ready: %w", err)
	}
	return nil
}
