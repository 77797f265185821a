package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"meetingbingo/internal/domain"
)

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JoinRequest is the body for POST /api/join
type JoinRequest struct {
	MeetingID  string `json:"meetingId"`
	PlayerName string `json:"playerName"`
}

// JoinResponse is the response for POST /api/join
type JoinResponse struct {
	PlayerID  string                  `json:"playerId"`
	MeetingID string                  `json:"meetingId"`
	Players   []domain.PlayerSnapshot `json:"players"`
}

// MarkRequest is the body for POST /api/mark
type MarkRequest struct {
	MeetingID string `json:"meetingId"`
	PlayerID  string `json:"playerId"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
}

// MarkResponse is the response for POST /api/mark
type MarkResponse struct {
	HasBingo bool `json:"hasBingo"`
}

// RoomResponse is the response for GET /api/room/{meetingId}
type RoomResponse struct {
	MeetingID   string                  `json:"meetingId"`
	Players     []domain.PlayerSnapshot `json:"players"`
	PlayerCount int                     `json:"playerCount"`
}

// OKResponse acknowledges an operation
type OKResponse struct {
	OK bool `json:"ok"`
}

// WordsRequest is the body for the card-words update
type WordsRequest struct {
	Words domain.WordGrid `json:"words"`
}

// TranscribeResponse is the response for POST /api/transcribe
type TranscribeResponse struct {
	Transcript  string        `json:"transcript"`
	Language    string        `json:"language"`
	MarkedCells []domain.Cell `json:"markedCells"`
}

// StatusResponse is the service banner for GET /
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthResponse is the response for GET /api/health
type HealthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, &StatusResponse{
		Status:  "ok",
		Service: "Meeting Bingo Server",
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, &HealthResponse{
		Status: "healthy",
		Rooms:  s.registry.RoomCount(),
	})
}

// handleJoin handles POST /api/join
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body")
		return
	}
	if req.MeetingID == "" || req.PlayerName == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_FIELDS", "meetingId and playerName are required")
		return
	}

	playerID, others := s.registry.Join(req.MeetingID, req.PlayerName, clientIdentity(r))

	s.sendJSON(w, http.StatusOK, &JoinResponse{
		PlayerID:  playerID,
		MeetingID: req.MeetingID,
		Players:   others,
	})
}

// handleMark handles POST /api/mark
func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body")
		return
	}

	hasBingo, err := s.registry.Mark(req.MeetingID, req.PlayerID, req.Row, req.Col)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		case errors.Is(err, domain.ErrPlayerNotFound):
			s.sendError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "Player not found")
		case errors.Is(err, domain.ErrInvalidCell):
			s.sendError(w, http.StatusBadRequest, "INVALID_CELL", "row and col must be within the board")
		default:
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	s.sendJSON(w, http.StatusOK, &MarkResponse{HasBingo: hasBingo})
}

// handleGetRoom handles GET /api/room/{meetingId}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	meetingID := mux.Vars(r)["meetingId"]

	players, err := s.registry.Snapshot(meetingID)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}

	s.sendJSON(w, http.StatusOK, &RoomResponse{
		MeetingID:   meetingID,
		Players:     players,
		PlayerCount: len(players),
	})
}

// handleLeave handles DELETE /api/room/{meetingId}/player/{playerId}
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.registry.Leave(vars["meetingId"], vars["playerId"])
	s.sendJSON(w, http.StatusOK, &OKResponse{OK: true})
}

// handleResetRoom handles POST /api/room/{meetingId}/reset
func (s *Server) handleResetRoom(w http.ResponseWriter, r *http.Request) {
	s.registry.Reset(mux.Vars(r)["meetingId"])
	s.sendJSON(w, http.StatusOK, &OKResponse{OK: true})
}

// handleResetAll handles POST /api/reset-all
func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	s.registry.ResetAll()
	s.sendJSON(w, http.StatusOK, &OKResponse{OK: true})
}

// handleSetWords handles POST /api/room/{meetingId}/player/{playerId}/words
func (s *Server) handleSetWords(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req WordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Body must contain a 5x5 words grid")
		return
	}

	if err := s.registry.SetWords(vars["meetingId"], vars["playerId"], req.Words); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		case errors.Is(err, domain.ErrPlayerNotFound):
			s.sendError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "Player not found")
		default:
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	s.sendJSON(w, http.StatusOK, &OKResponse{OK: true})
}

// handleTranscribe handles POST /api/transcribe. The transcript is produced
// by the external provider; matching is applied only against the submitting
// player's own card. An unknown room or player still gets the transcript
// back, with no marking.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Expected multipart form with an audio file")
		return
	}

	meetingID := r.FormValue("meetingId")
	playerID := r.FormValue("playerId")

	audio, header, err := r.FormFile("audio")
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "MISSING_AUDIO", "audio file is required")
		return
	}
	defer audio.Close()

	result, err := s.provider.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		s.sendError(w, http.StatusBadGateway, "PROVIDER_FAILURE", "Transcription provider failed")
		return
	}

	cells, err := s.registry.ApplyTranscript(meetingID, playerID, result.Text)
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) && !errors.Is(err, domain.ErrPlayerNotFound) {
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if cells == nil {
		cells = []domain.Cell{}
	}

	s.sendJSON(w, http.StatusOK, &TranscribeResponse{
		Transcript:  result.Text,
		Language:    result.Language,
		MarkedCells: cells,
	})
}

// sendJSON writes a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// sendError writes a JSON error response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, &ErrorInfo{Code: code, Message: message})
}

// clientIdentity derives the join request's identity signal from its network
// origin, preferring the forwarded client address when behind a proxy.
func clientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
