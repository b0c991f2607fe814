package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/mcdev12/planningpoker/go/internal/votes"
)

// Action tags every message exchanged with clients
type Action string

// Inbound actions
const (
	ActionVote   Action = "vote"
	ActionReveal Action = "reveal"
	ActionReset  Action = "reset"
)

// Outbound actions
const (
	ActionRefreshVoteChoices Action = "refresh_vote_choices"
	ActionRefreshVotes       Action = "refresh_votes"
	ActionRevealVotes        Action = "reveal_votes"
	ActionResetVotes         Action = "reset_votes"
	ActionMessage            Action = "message"
)

// CloseRoomNotFound is the application close code sent when a client connects
// to a room that does not exist.
const CloseRoomNotFound = 4001

// ClientMessage is the inbound envelope. VoteID and Value are only meaningful
// for the vote action; Value nil clears the voter's estimate.
type ClientMessage struct {
	Action Action `json:"action"`
	VoteID string `json:"vote_id"`
	Value  *int32 `json:"value"`
}

// DecodeClientMessage parses an inbound envelope. A decode failure is a
// per-message condition; callers drop the message and keep the connection.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("malformed client message: %w", err)
	}
	if msg.Action == "" {
		return msg, fmt.Errorf("client message missing action")
	}
	return msg, nil
}

type voteChoicesEnvelope struct {
	Action      Action              `json:"action"`
	VoteChoices []models.VoteChoice `json:"vote_choices"`
}

type refreshVotesEnvelope struct {
	Action Action             `json:"action"`
	Votes  []votes.VoteStatus `json:"votes"`
}

type revealVotesEnvelope struct {
	Action  Action               `json:"action"`
	Message string               `json:"message"`
	Votes   []votes.RevealedVote `json:"votes"`
}

type resetVotesEnvelope struct {
	Action  Action             `json:"action"`
	Message string             `json:"message"`
	Votes   []votes.VoteStatus `json:"votes"`
}

type noticeEnvelope struct {
	Action  Action `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeVoteChoices encodes the static estimate catalog message
func EncodeVoteChoices(choices []models.VoteChoice) ([]byte, error) {
	return json.Marshal(voteChoicesEnvelope{Action: ActionRefreshVoteChoices, VoteChoices: choices})
}

// EncodeRefreshVotes encodes a hidden snapshot broadcast
func EncodeRefreshVotes(list []votes.VoteStatus) ([]byte, error) {
	return json.Marshal(refreshVotesEnvelope{Action: ActionRefreshVotes, Votes: list})
}

// EncodeRevealVotes encodes a revealed snapshot broadcast
func EncodeRevealVotes(list []votes.RevealedVote) ([]byte, error) {
	return json.Marshal(revealVotesEnvelope{
		Action:  ActionRevealVotes,
		Message: "Votes have been revealed.",
		Votes:   list,
	})
}

// EncodeResetVotes encodes the post-reset hidden snapshot broadcast
func EncodeResetVotes(list []votes.VoteStatus) ([]byte, error) {
	return json.Marshal(resetVotesEnvelope{
		Action:  ActionResetVotes,
		Message: "Votes have been reset.",
		Votes:   list,
	})
}

// EncodeNotice encodes a generic notification for a single connection
func EncodeNotice(code, message string) ([]byte, error) {
	return json.Marshal(noticeEnvelope{Action: ActionMessage, Code: code, Message: message})
}
