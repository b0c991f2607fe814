package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// RelayConfig holds NATS settings for the cross-instance broadcast relay
type RelayConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultRelayConfig returns default relay configuration. URL is left empty:
// the relay is only created when one is configured.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		SubjectPrefix: "poker.room",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// relayEnvelope wraps a room broadcast with its origin instance so every
// instance can skip messages it published itself.
type relayEnvelope struct {
	Origin string          `json:"origin"`
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data"`
}

// natsConn is the subset of *nats.Conn the relay uses
type natsConn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

// Relay mirrors room broadcasts across gateway instances over NATS. Snapshots
// are idempotent full states, so plain pub/sub with no replay is enough.
type Relay struct {
	nc       natsConn
	registry *Registry
	origin   string
	config   RelayConfig
}

// NewRelay connects to NATS and creates a relay for the given registry
func NewRelay(config RelayConfig, registry *Registry) (*Relay, error) {
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

	return newRelay(nc, config, registry), nil
}

func newRelay(nc natsConn, config RelayConfig, registry *Registry) *Relay {
	return &Relay{
		nc:       nc,
		registry: registry,
		origin:   uuid.New().String(),
		config:   config,
	}
}

// Start subscribes to the room broadcast subjects and drains the connection
// when ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	subject := r.config.SubjectPrefix + ".>"
	if _, err := r.nc.Subscribe(subject, r.handleMessage); err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	go func() {
		<-ctx.Done()
		if err := r.nc.Drain(); err != nil {
			log.Error().Err(err).Msg("failed to drain NATS connection")
		}
	}()

	log.Info().Str("subject", subject).Str("origin", r.origin).Msg("broadcast relay started")
	return nil
}

// Publish mirrors a room broadcast to the other gateway instances
func (r *Relay) Publish(roomID uuid.UUID, data []byte) {
	payload, err := json.Marshal(relayEnvelope{
		Origin: r.origin,
		RoomID: roomID.String(),
		Data:   data,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode relay envelope")
		return
	}

	subject := fmt.Sprintf("%s.%s", r.config.SubjectPrefix, roomID)
	if err := r.nc.Publish(subject, payload); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("failed to publish room broadcast")
	}
}

// handleMessage re-delivers a broadcast from another instance to the local
// members of the room, if any are connected here.
func (r *Relay) handleMessage(msg *nats.Msg) {
	var env relayEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Debug().Err(err).Msg("dropping malformed relay envelope")
		return
	}
	if env.Origin == r.origin {
		return
	}

	roomID, err := uuid.Parse(env.RoomID)
	if err != nil {
		log.Debug().Str("room_id", env.RoomID).Msg("dropping relay envelope with malformed room id")
		return
	}

	if g, ok := r.registry.PeekGroup(roomID); ok {
		g.Send(env.Data)
	}
}
