package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/planningpoker/go/internal/votes"
	"github.com/rs/zerolog/log"
)

// handleClientMessage decodes an inbound envelope and dispatches it over the
// closed action set. Malformed messages are dropped; unrecognized actions get
// an error notification back to the sender only.
func (s *Service) handleClientMessage(c *Connection, raw []byte) {
	msg, err := DecodeClientMessage(raw)
	if err != nil {
		log.Debug().Err(err).Str("connection_id", c.id).Msg("dropping malformed client message")
		return
	}

	switch msg.Action {
	case ActionVote:
		s.handleVote(c, msg)
	case ActionReveal:
		s.handleReveal(c)
	case ActionReset:
		s.handleReset(c)
	default:
		c.notify("error", "Something went wrong")
	}
}

// handleVote records the estimate for msg.VoteID and refreshes the room's
// hidden snapshot. Unknown vote ids are ignored without a broadcast, since
// nothing changed.
func (s *Service) handleVote(c *Connection, msg ClientMessage) {
	ctx := context.Background()

	voteID, err := uuid.Parse(msg.VoteID)
	if err != nil {
		log.Debug().Str("connection_id", c.id).Str("vote_id", msg.VoteID).Msg("ignoring vote with malformed vote id")
		return
	}

	g := c.group
	g.actionMu.Lock()
	defer g.actionMu.Unlock()

	if err := s.store.SetValue(ctx, voteID, msg.Value); err != nil {
		if errors.Is(err, votes.ErrVoteNotFound) {
			log.Debug().Str("vote_id", msg.VoteID).Msg("ignoring vote for unknown vote id")
			return
		}
		log.Error().Err(err).Str("vote_id", msg.VoteID).Msg("failed to set vote value")
		return
	}

	c.notify("success", "Successfully voted.")

	snap, err := s.store.ListHidden(ctx, c.roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", c.roomID.String()).Msg("failed to build hidden snapshot")
		return
	}
	data, err := EncodeRefreshVotes(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode hidden snapshot")
		return
	}
	s.broadcast(g, data)
}

// handleReveal broadcasts the room's votes with values included
func (s *Service) handleReveal(c *Connection) {
	ctx := context.Background()

	g := c.group
	g.actionMu.Lock()
	defer g.actionMu.Unlock()

	snap, err := s.store.ListRevealed(ctx, c.roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", c.roomID.String()).Msg("failed to build revealed snapshot")
		return
	}
	data, err := EncodeRevealVotes(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode revealed snapshot")
		return
	}
	s.broadcast(g, data)
}

// handleReset clears every vote in the room and broadcasts the blank snapshot
func (s *Service) handleReset(c *Connection) {
	ctx := context.Background()

	g := c.group
	g.actionMu.Lock()
	defer g.actionMu.Unlock()

	if err := s.store.ResetAll(ctx, c.roomID); err != nil {
		log.Error().Err(err).Str("room_id", c.roomID.String()).Msg("failed to reset votes")
		return
	}

	snap, err := s.store.ListHidden(ctx, c.roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", c.roomID.String()).Msg("failed to build hidden snapshot")
		return
	}
	data, err := EncodeResetVotes(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode reset snapshot")
		return
	}
	s.broadcast(g, data)
}
