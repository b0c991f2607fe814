package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/mcdev12/planningpoker/go/internal/votes"
	"github.com/stretchr/testify/require"
)

type fakeVoteStore struct {
	mu   sync.Mutex
	list []*models.Vote
}

func (f *fakeVoteStore) addVote(roomID uuid.UUID, voter string) *models.Vote {
	f.mu.Lock()
	defer f.mu.Unlock()
	vote := &models.Vote{ID: uuid.New(), RoomID: roomID, Voter: voter}
	f.list = append(f.list, vote)
	return vote
}

func (f *fakeVoteStore) ListHidden(ctx context.Context, roomID uuid.UUID) ([]votes.VoteStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []votes.VoteStatus
	for _, v := range f.list {
		if v.RoomID == roomID {
			result = append(result, votes.VoteStatus{Voter: v.Voter, Voted: v.Value != nil})
		}
	}
	return result, nil
}

func (f *fakeVoteStore) ListRevealed(ctx context.Context, roomID uuid.UUID) ([]votes.RevealedVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []votes.RevealedVote
	for _, v := range f.list {
		if v.RoomID == roomID {
			result = append(result, votes.RevealedVote{Voter: v.Voter, Value: v.Value, Voted: v.Value != nil})
		}
	}
	return result, nil
}

func (f *fakeVoteStore) SetValue(ctx context.Context, voteID uuid.UUID, value *int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.list {
		if v.ID == voteID {
			v.Value = value
			return nil
		}
	}
	return votes.ErrVoteNotFound
}

func (f *fakeVoteStore) ResetAll(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.list {
		if v.RoomID == roomID {
			v.Value = nil
		}
	}
	return nil
}

func newGatewayServer(t *testing.T, store *fakeVoteStore, roomIDs ...uuid.UUID) (*httptest.Server, *Registry) {
	t.Helper()

	ids := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		ids[id.String()] = true
	}
	registry := NewRegistry(&fakeRoomStore{ids: ids})
	svc := NewService(DefaultConfig(), registry, store, nil)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dialRoom(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/room/" + roomID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func readAction(t *testing.T, ws *websocket.Conn, action Action) map[string]any {
	t.Helper()

	env := readEnvelope(t, ws)
	require.Equal(t, string(action), env["action"])
	return env
}

func sendJSON(t *testing.T, ws *websocket.Conn, body map[string]any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(body))
}

func voterStatuses(t *testing.T, env map[string]any) []map[string]any {
	t.Helper()

	raw, ok := env["votes"].([]any)
	require.True(t, ok, "envelope missing votes: %v", env)
	result := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		require.True(t, ok)
		result = append(result, m)
	}
	return result
}

func TestConnectToUnknownRoom(t *testing.T) {
	req := require.New(t)
	roomID := uuid.New()
	srv, _ := newGatewayServer(t, &fakeVoteStore{}, roomID)

	ws := dialRoom(t, srv, "ghost")

	env := readAction(t, ws, ActionMessage)
	req.Equal("error", env["code"])

	req.NoError(ws.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := ws.ReadMessage()
	req.True(websocket.IsCloseError(err, CloseRoomNotFound), "expected close %d, got %v", CloseRoomNotFound, err)
}

func TestHandshakeSendsChoicesAndSnapshot(t *testing.T) {
	req := require.New(t)
	roomID := uuid.New()
	store := &fakeVoteStore{}
	store.addVote(roomID, "A")
	srv, _ := newGatewayServer(t, store, roomID)

	ws := dialRoom(t, srv, roomID.String())

	choices := readAction(t, ws, ActionRefreshVoteChoices)
	labels, ok := choices["vote_choices"].([]any)
	req.True(ok)
	req.Len(labels, 8)
	first, ok := labels[0].(map[string]any)
	req.True(ok)
	req.Equal("1", first["label"])
	req.Equal(float64(1), first["value"])

	refresh := readAction(t, ws, ActionRefreshVotes)
	statuses := voterStatuses(t, refresh)
	req.Len(statuses, 1)
	req.Equal("A", statuses[0]["voter"])
	req.Equal(false, statuses[0]["voted"])
}

func TestVoteRevealResetFlow(t *testing.T) {
	req := require.New(t)
	roomID := uuid.New()
	store := &fakeVoteStore{}
	voteA := store.addVote(roomID, "A")
	store.addVote(roomID, "B")
	srv, _ := newGatewayServer(t, store, roomID)

	wsA := dialRoom(t, srv, roomID.String())
	readAction(t, wsA, ActionRefreshVoteChoices)
	readAction(t, wsA, ActionRefreshVotes)

	wsB := dialRoom(t, srv, roomID.String())
	readAction(t, wsB, ActionRefreshVoteChoices)
	readAction(t, wsB, ActionRefreshVotes)
	// A sees the presence refresh triggered by B's arrival.
	readAction(t, wsA, ActionRefreshVotes)

	// A votes 5: A gets a success notice, then everyone gets the hidden snapshot.
	sendJSON(t, wsA, map[string]any{"action": "vote", "vote_id": voteA.ID.String(), "value": 5})

	notice := readAction(t, wsA, ActionMessage)
	req.Equal("success", notice["code"])

	for _, ws := range []*websocket.Conn{wsA, wsB} {
		refresh := readAction(t, ws, ActionRefreshVotes)
		statuses := voterStatuses(t, refresh)
		req.Len(statuses, 2)
		req.Equal("A", statuses[0]["voter"])
		req.Equal(true, statuses[0]["voted"])
		req.NotContains(statuses[0], "value")
		req.Equal("B", statuses[1]["voter"])
		req.Equal(false, statuses[1]["voted"])
	}

	// B reveals: everyone sees A's value, B's stays null.
	sendJSON(t, wsB, map[string]any{"action": "reveal"})

	for _, ws := range []*websocket.Conn{wsA, wsB} {
		reveal := readAction(t, ws, ActionRevealVotes)
		statuses := voterStatuses(t, reveal)
		req.Len(statuses, 2)
		req.Equal(float64(5), statuses[0]["value"])
		req.Equal(true, statuses[0]["voted"])
		req.Nil(statuses[1]["value"])
		req.Equal(false, statuses[1]["voted"])
	}

	// Reset twice: both rounds leave every voter cleared.
	for range 2 {
		sendJSON(t, wsB, map[string]any{"action": "reset"})
		for _, ws := range []*websocket.Conn{wsA, wsB} {
			reset := readAction(t, ws, ActionResetVotes)
			for _, status := range voterStatuses(t, reset) {
				req.Equal(false, status["voted"])
			}
		}
	}
}

func TestUnknownActionKeepsConnection(t *testing.T) {
	req := require.New(t)
	roomID := uuid.New()
	store := &fakeVoteStore{}
	vote := store.addVote(roomID, "A")
	srv, _ := newGatewayServer(t, store, roomID)

	ws := dialRoom(t, srv, roomID.String())
	readAction(t, ws, ActionRefreshVoteChoices)
	readAction(t, ws, ActionRefreshVotes)

	sendJSON(t, ws, map[string]any{"action": "shuffle"})
	notice := readAction(t, ws, ActionMessage)
	req.Equal("error", notice["code"])

	// The connection still works.
	sendJSON(t, ws, map[string]any{"action": "vote", "vote_id": vote.ID.String(), "value": 8})
	readAction(t, ws, ActionMessage)
	readAction(t, ws, ActionRefreshVotes)
}

func TestUnknownVoteIDIsIgnored(t *testing.T) {
	req := require.New(t)
	roomID := uuid.New()
	store := &fakeVoteStore{}
	vote := store.addVote(roomID, "A")
	srv, _ := newGatewayServer(t, store, roomID)

	ws := dialRoom(t, srv, roomID.String())
	readAction(t, ws, ActionRefreshVoteChoices)
	readAction(t, ws, ActionRefreshVotes)

	// Nothing changed, so no broadcast may follow.
	sendJSON(t, ws, map[string]any{"action": "vote", "vote_id": uuid.NewString(), "value": 8})
	sendJSON(t, ws, map[string]any{"action": "vote", "vote_id": "not-a-uuid", "value": 8})

	// The next real vote produces the next frames the client sees.
	sendJSON(t, ws, map[string]any{"action": "vote", "vote_id": vote.ID.String(), "value": 8})
	notice := readAction(t, ws, ActionMessage)
	req.Equal("success", notice["code"])
	refresh := readAction(t, ws, ActionRefreshVotes)
	req.Equal(true, voterStatuses(t, refresh)[0]["voted"])
}

func TestDisconnectedPeerDoesNotBlockBroadcasts(t *testing.T) {
	req := require.New(t)
	roomID := uuid.New()
	store := &fakeVoteStore{}
	store.addVote(roomID, "A")
	voteB := store.addVote(roomID, "B")
	srv, registry := newGatewayServer(t, store, roomID)

	wsA := dialRoom(t, srv, roomID.String())
	readAction(t, wsA, ActionRefreshVoteChoices)
	readAction(t, wsA, ActionRefreshVotes)

	wsB := dialRoom(t, srv, roomID.String())
	readAction(t, wsB, ActionRefreshVoteChoices)
	readAction(t, wsB, ActionRefreshVotes)

	wsA.Close()
	req.Eventually(func() bool {
		g, ok := registry.PeekGroup(roomID)
		return ok && g.Members() == 1
	}, 2*time.Second, 10*time.Millisecond)

	sendJSON(t, wsB, map[string]any{"action": "vote", "vote_id": voteB.ID.String(), "value": 13})
	readAction(t, wsB, ActionMessage)
	refresh := readAction(t, wsB, ActionRefreshVotes)
	statuses := voterStatuses(t, refresh)
	req.Len(statuses, 2)
	req.Equal(true, statuses[1]["voted"])
}
