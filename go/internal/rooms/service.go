package rooms

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/planningpoker/go/internal/votes"
	"github.com/rs/zerolog/log"
)

// Service exposes room creation and joining over HTTP
type Service struct {
	app *App
}

// NewService creates a new rooms HTTP service
func NewService(app *App) *Service {
	return &Service{
		app: app,
	}
}

// RegisterRoutes registers the room API routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/create-room", s.HandleCreateRoom)
	mux.HandleFunc("POST /api/join-room", s.HandleJoinRoom)
}

type createRoomRequest struct {
	Password string `json:"password"`
}

type createRoomResponse struct {
	ID string `json:"id"`
}

// HandleCreateRoom creates a password-protected room
func (s *Service) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldError(w, http.StatusBadRequest, "password", "Invalid request body.")
		return
	}

	room, err := s.app.CreateRoom(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			writeFieldError(w, http.StatusBadRequest, "password", "Invalid password.")
			return
		}
		log.Error().Err(err).Msg("failed to create room")
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	log.Info().Str("room_id", room.ID.String()).Msg("room created")
	writeJSON(w, http.StatusCreated, createRoomResponse{ID: room.ID.String()})
}

type joinRoomRequest struct {
	Room     string `json:"room"`
	Password string `json:"password"`
	Voter    string `json:"voter"`
}

type joinRoomResponse struct {
	ID    string `json:"id"`
	Room  string `json:"room"`
	Voter string `json:"voter"`
}

// HandleJoinRoom verifies room access and issues the joining voter's vote record
func (s *Service) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldError(w, http.StatusBadRequest, "room", "Invalid request body.")
		return
	}

	vote, err := s.app.JoinRoom(r.Context(), req.Room, req.Password, req.Voter)
	if err != nil {
		switch {
		case errors.Is(err, ErrRoomNotFound):
			writeFieldError(w, http.StatusBadRequest, "room", "Room doesn't exists.")
		case errors.Is(err, ErrInvalidPassword):
			writeFieldError(w, http.StatusBadRequest, "password", "Invalid password.")
		case errors.Is(err, votes.ErrVoterTaken):
			writeFieldError(w, http.StatusBadRequest, "voter", "This name is already reserved by another voter.")
		case errors.Is(err, ErrInvalidVoter):
			writeFieldError(w, http.StatusBadRequest, "voter", "Voter name must be 1 to 20 characters.")
		default:
			log.Error().Err(err).Str("room", req.Room).Msg("failed to join room")
			http.Error(w, "failed to join room", http.StatusInternalServerError)
		}
		return
	}

	log.Info().
		Str("room_id", vote.RoomID.String()).
		Str("voter", vote.Voter).
		Msg("voter joined room")

	writeJSON(w, http.StatusCreated, joinRoomResponse{
		ID:    vote.ID.String(),
		Room:  vote.RoomID.String(),
		Voter: vote.Voter,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeFieldError(w http.ResponseWriter, status int, field, message string) {
	writeJSON(w, status, map[string]string{field: message})
}
