package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planningpoker/go/internal/votes"
	"github.com/rs/zerolog/log"
)

// VoteStore is the vote state the gateway reads and mutates
type VoteStore interface {
	ListHidden(ctx context.Context, roomID uuid.UUID) ([]votes.VoteStatus, error)
	ListRevealed(ctx context.Context, roomID uuid.UUID) ([]votes.RevealedVote, error)
	SetValue(ctx context.Context, voteID uuid.UUID, value *int32) error
	ResetAll(ctx context.Context, roomID uuid.UUID) error
}

// Config holds configuration for the poker gateway service
type Config struct {
	Connection    ConnectionConfig
	SweepInterval time.Duration
}

// DefaultConfig returns default configuration for the poker gateway
func DefaultConfig() Config {
	return Config{
		Connection:    DefaultConnectionConfig(),
		SweepInterval: time.Minute,
	}
}

// Service is the realtime poker gateway: it validates incoming room
// connections, runs their lifecycles and fans room state out to members.
type Service struct {
	registry *Registry
	store    VoteStore
	relay    *Relay
	upgrader websocket.Upgrader
	clock    clockwork.Clock
	config   Config
}

// NewService creates a new poker gateway service. relay may be nil when no
// cross-instance relay is configured.
func NewService(config Config, registry *Registry, store VoteStore, relay *Relay) *Service {
	return &Service{
		registry: registry,
		store:    store,
		relay:    relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.Connection.ReadBufferSize,
			WriteBufferSize: config.Connection.WriteBufferSize,
			CheckOrigin:     config.Connection.CheckOrigin,
		},
		clock:  clockwork.NewRealClock(),
		config: config,
	}
}

// Start runs the group janitor and, when configured, the relay until ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.registry.StartJanitor(ctx, s.clock, s.config.SweepInterval)

	if s.relay != nil {
		if err := s.relay.Start(ctx); err != nil {
			return err
		}
	}

	log.Info().Msg("poker gateway started")
	return nil
}

// RegisterRoutes registers the WebSocket routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room/{roomID}", s.HandleRoomConnection)
}

// broadcast fans data out to the room and, when a relay is attached, to the
// other gateway instances serving it.
func (s *Service) broadcast(g *Group, data []byte) {
	g.Send(data)
	if s.relay != nil {
		s.relay.Publish(g.RoomID(), data)
	}
}

// broadcastRefresh sends the room's current hidden snapshot to every member
func (s *Service) broadcastRefresh(ctx context.Context, g *Group) {
	g.actionMu.Lock()
	defer g.actionMu.Unlock()

	snap, err := s.store.ListHidden(ctx, g.RoomID())
	if err != nil {
		log.Error().Err(err).Str("room_id", g.RoomID().String()).Msg("failed to build hidden snapshot")
		return
	}
	data, err := EncodeRefreshVotes(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode hidden snapshot")
		return
	}
	s.broadcast(g, data)
}
