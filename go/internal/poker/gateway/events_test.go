package gateway

import (
	"encoding/json"
	"testing"

	"github.com/mcdev12/planningpoker/go/internal/votes"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientMessage(t *testing.T) {
	req := require.New(t)

	msg, err := DecodeClientMessage([]byte(`{"action":"vote","vote_id":"abc","value":8}`))
	req.NoError(err)
	req.Equal(ActionVote, msg.Action)
	req.Equal("abc", msg.VoteID)
	req.NotNil(msg.Value)
	req.Equal(int32(8), *msg.Value)
}

func TestDecodeClientMessageNullValue(t *testing.T) {
	req := require.New(t)

	msg, err := DecodeClientMessage([]byte(`{"action":"vote","vote_id":"abc","value":null}`))
	req.NoError(err)
	req.Nil(msg.Value)
}

func TestDecodeClientMessageMalformed(t *testing.T) {
	req := require.New(t)

	_, err := DecodeClientMessage([]byte(`{not json`))
	req.Error(err)

	_, err = DecodeClientMessage([]byte(`{"vote_id":"abc"}`))
	req.Error(err)

	_, err = DecodeClientMessage([]byte(`{"action":"vote","value":"eight"}`))
	req.Error(err)
}

func TestEncodeRefreshVotesHasNoValueField(t *testing.T) {
	req := require.New(t)

	data, err := EncodeRefreshVotes([]votes.VoteStatus{{Voter: "A", Voted: true}})
	req.NoError(err)

	var decoded struct {
		Action Action                   `json:"action"`
		Votes  []map[string]any `json:"votes"`
	}
	req.NoError(json.Unmarshal(data, &decoded))
	req.Equal(ActionRefreshVotes, decoded.Action)
	req.Len(decoded.Votes, 1)
	req.NotContains(decoded.Votes[0], "value")
}

func TestEncodeNotice(t *testing.T) {
	req := require.New(t)

	data, err := EncodeNotice("error", "Room does not exist")
	req.NoError(err)

	var decoded noticeEnvelope
	req.NoError(json.Unmarshal(data, &decoded))
	req.Equal(ActionMessage, decoded.Action)
	req.Equal("error", decoded.Code)
	req.Equal("Room does not exist", decoded.Message)
}
