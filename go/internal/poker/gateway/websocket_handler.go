package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// HandleRoomConnection handles a client connecting to a room. The room id is
// taken from the request path and validated before the client becomes active:
// unknown rooms get one error notification and a 4001 close, known rooms get
// the vote-choice catalog, group membership and a presence broadcast, in that
// order, before any inbound message is read.
func (s *Service) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")

	exists, err := s.registry.Exists(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to validate room")
		http.Error(w, "failed to validate room", http.StatusInternalServerError)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	if !exists {
		s.rejectRoomNotFound(ws, roomID)
		return
	}

	// Exists implies the id parsed; validated ids are always UUIDs.
	id, err := uuid.Parse(roomID)
	if err != nil {
		log.Error().Str("room_id", roomID).Msg("room exists check passed for unparseable id")
		ws.Close()
		return
	}

	conn := &Connection{
		id:          uuid.New().String(),
		roomID:      id,
		ws:          ws,
		send:        make(chan []byte, s.config.Connection.SendBuffer),
		done:        make(chan struct{}),
		service:     s,
		connectedAt: time.Now(),
	}

	if !s.sendVoteChoices(conn) {
		ws.Close()
		return
	}

	// group must be set before Join: once the connection is a member, the
	// group's drop path may close it from another goroutine, and close reads
	// the group reference.
	for {
		g := s.registry.GroupFor(id)
		conn.group = g
		if g.Join(conn) {
			break
		}
		// Lost a race with the janitor; the next GroupFor creates a fresh group.
	}

	// The joiner's vote record already exists (created by the join API), so
	// this refresh shows the new participant to everyone in the room.
	s.broadcastRefresh(context.Background(), conn.group)

	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("connection_id", conn.id).
		Str("room_id", roomID).
		Msg("WebSocket connection established")
}

// sendVoteChoices writes the static estimate catalog directly, before the
// write pump starts, so it is always the first frame a client receives.
func (s *Service) sendVoteChoices(c *Connection) bool {
	data, err := EncodeVoteChoices(models.VoteChoices())
	if err != nil {
		log.Error().Err(err).Msg("failed to encode vote choices")
		return false
	}

	c.ws.SetWriteDeadline(time.Now().Add(s.config.Connection.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to send vote choices")
		return false
	}
	return true
}

// rejectRoomNotFound delivers one error notification and closes with the
// distinguished room-not-found code. The connection never joins a group.
func (s *Service) rejectRoomNotFound(ws *websocket.Conn, roomID string) {
	deadline := time.Now().Add(s.config.Connection.WriteTimeout)

	if data, err := EncodeNotice("error", "Room does not exist"); err == nil {
		ws.SetWriteDeadline(deadline)
		ws.WriteMessage(websocket.TextMessage, data)
	}

	ws.SetWriteDeadline(deadline)
	ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseRoomNotFound, "room does not exist"))
	ws.Close()

	log.Info().Str("room_id", roomID).Msg("rejected connection to unknown room")
}
