package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mosaicwall/wall/go/internal/models"
)

// Bus event types published by the CRUD layer after its durable writes.
// Each maps to one gateway operation.
const (
	BusTileCreated        = "TileCreated"
	BusTilesBulkCreated   = "TilesBulkCreated"
	BusConfigReplaced     = "ConfigReplaced"
	BusTilesCleared       = "TilesCleared"
	BusPrizeCellsReplaced = "PrizeCellsReplaced"
)

// busEvent is the wire shape of one durable-write notification.
type busEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	MosaicID  uuid.UUID       `json:"mosaic_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ConsumerConfig holds configuration for the JetStream consumer.
type ConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string // e.g. "mosaic.events.>"
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConsumerConfig returns default JetStream consumer configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "MOSAIC_EVENTS",
		ConsumerName:  "live-gateway",
		SubjectFilter: "mosaic.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Consumer bridges the CRUD layer's durable-write events into the ingress
// gateway. The write is already durable by the time an event arrives;
// everything downstream is fan-out only.
type Consumer struct {
	gateway  *Gateway
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   ConsumerConfig
}

// NewConsumer connects to NATS and binds the durable consumer.
func NewConsumer(gateway *Gateway, config ConsumerConfig) (*Consumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := &Consumer{
		gateway: gateway,
		nc:      nc,
		js:      js,
		config:  config,
	}
	if err := c.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, c.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
			Name:          c.config.ConsumerName,
			Durable:       c.config.ConsumerName,
			Description:   "mosaic live-sync gateway consumer",
			FilterSubject: c.config.SubjectFilter,
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    c.config.MaxDeliver,
			AckWait:       c.config.AckWait,
			MaxAckPending: c.config.MaxAckPending,
		})
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
	}
	c.consumer = consumer
	return nil
}

// Start consumes durable-write events until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", c.config.ConsumerName).
		Str("stream", c.config.StreamName).
		Msg("starting JetStream event consumer")

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		if err := c.processMessage(ctx, msg); err != nil {
			log.Error().
				Err(err).
				Str("subject", msg.Subject()).
				Msg("failed to process bus event")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error().Err(nakErr).Msg("failed to NAK message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	<-ctx.Done()
	consumeCtx.Stop()
	log.Info().Msg("event consumer shut down")
	return nil
}

// Close releases the NATS connection.
func (c *Consumer) Close() {
	c.nc.Close()
}

func (c *Consumer) processMessage(ctx context.Context, msg jetstream.Msg) error {
	var evt busEvent
	if err := json.Unmarshal(msg.Data(), &evt); err != nil {
		return fmt.Errorf("unmarshal bus event: %w", err)
	}

	switch evt.EventType {
	case BusTileCreated:
		var tile models.Tile
		if err := json.Unmarshal(evt.Payload, &tile); err != nil {
			return fmt.Errorf("unmarshal tile: %w", err)
		}
		return c.gateway.TileCreated(ctx, tile)

	case BusTilesBulkCreated:
		var tiles []models.Tile
		if err := json.Unmarshal(evt.Payload, &tiles); err != nil {
			return fmt.Errorf("unmarshal tiles: %w", err)
		}
		return c.gateway.TilesBulkCreated(ctx, evt.MosaicID, tiles)

	case BusConfigReplaced:
		var config models.MosaicConfig
		if err := json.Unmarshal(evt.Payload, &config); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		return c.gateway.ConfigReplaced(ctx, config)

	case BusTilesCleared:
		return c.gateway.TilesCleared(ctx, evt.MosaicID)

	case BusPrizeCellsReplaced:
		var cells []models.PrizeCell
		if err := json.Unmarshal(evt.Payload, &cells); err != nil {
			return fmt.Errorf("unmarshal prize cells: %w", err)
		}
		return c.gateway.PrizeCellsReplaced(ctx, evt.MosaicID, cells)

	default:
		// Unknown event types are acked and skipped so a schema bump in
		// the CRUD layer cannot wedge the consumer.
		log.Warn().Str("event_type", evt.EventType).Msg("skipping unknown bus event")
		return nil
	}
}
