package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetingbingo/internal/app"
	"meetingbingo/internal/config"
	"meetingbingo/internal/domain"
	"meetingbingo/internal/transcribe"
)

// stubProvider returns a canned transcription result.
type stubProvider struct {
	result transcribe.Result
	err    error
}

func (p stubProvider) Transcribe(ctx context.Context, audio io.Reader, filename string) (transcribe.Result, error) {
	return p.result, p.err
}

func newTestServer(t *testing.T, mode domain.GameMode, provider transcribe.Provider) (*httptest.Server, *app.Registry) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := app.NewRegistry(app.RegistryConfig{
		Mode:          mode,
		SweepInterval: time.Hour,
	}, logger)

	cfg := &config.Config{}
	srv := NewServer(cfg, registry, provider, logger)

	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(func() {
		ts.Close()
		registry.Close()
	})

	return ts, registry
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func joinRoom(t *testing.T, ts *httptest.Server, meetingID, playerName string) JoinResponse {
	t.Helper()

	resp := postJSON(t, ts.URL+"/api/join", JoinRequest{MeetingID: meetingID, PlayerName: playerName})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[JoinResponse](t, resp)
}

func TestHandleJoin(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})

	first := joinRoom(t, ts, "standup", "Alice")
	assert.NotEmpty(t, first.PlayerID)
	assert.Equal(t, "standup", first.MeetingID)
	assert.Empty(t, first.Players, "joiner is never in their own snapshot")

	second := joinRoom(t, ts, "standup", "Bob")
	require.Len(t, second.Players, 1)
	assert.Equal(t, first.PlayerID, second.Players[0].PlayerID)
	assert.NotContains(t, []string{second.Players[0].PlayerID}, second.PlayerID)
}

func TestHandleJoin_Validation(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})

	resp := postJSON(t, ts.URL+"/api/join", JoinRequest{MeetingID: "", PlayerName: "Alice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Post(ts.URL+"/api/join", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleJoin_SameOriginDedup(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFullCard, stubProvider{})

	// Both joins arrive from the same simulated origin.
	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/join",
			strings.NewReader(`{"meetingId":"standup","playerName":"Alice"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "203.0.113.7")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/room/standup")
	require.NoError(t, err)
	room := decodeBody[RoomResponse](t, resp)
	assert.Equal(t, 1, room.PlayerCount, "second join from the same origin replaces the first record")
}

func TestHandleMark(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	joined := joinRoom(t, ts, "standup", "Alice")

	tests := []struct {
		name       string
		req        MarkRequest
		wantStatus int
	}{
		{
			name:       "ok",
			req:        MarkRequest{MeetingID: "standup", PlayerID: joined.PlayerID, Row: 1, Col: 2},
			wantStatus: http.StatusOK,
		},
		{
			name:       "room not found",
			req:        MarkRequest{MeetingID: "nope", PlayerID: joined.PlayerID, Row: 0, Col: 0},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "player not found",
			req:        MarkRequest{MeetingID: "standup", PlayerID: "ghost", Row: 0, Col: 0},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "cell out of range",
			req:        MarkRequest{MeetingID: "standup", PlayerID: joined.PlayerID, Row: 9, Col: 0},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/mark", tt.req)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestHandleMark_ReportsBingo(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	joined := joinRoom(t, ts, "standup", "Alice")

	var last MarkResponse
	for col := 0; col < 5; col++ {
		resp := postJSON(t, ts.URL+"/api/mark", MarkRequest{
			MeetingID: "standup", PlayerID: joined.PlayerID, Row: 0, Col: col,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		last = decodeBody[MarkResponse](t, resp)
	}
	assert.True(t, last.HasBingo)
}

func TestHandleGetRoom(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})

	resp, err := http.Get(ts.URL + "/api/room/none")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	joinRoom(t, ts, "standup", "Alice")
	joinRoom(t, ts, "standup", "Bob")

	resp, err = http.Get(ts.URL + "/api/room/standup")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	room := decodeBody[RoomResponse](t, resp)
	assert.Equal(t, "standup", room.MeetingID)
	assert.Equal(t, 2, room.PlayerCount)
	assert.Len(t, room.Players, 2)
}

func TestHandleLeaveAndResets(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	joined := joinRoom(t, ts, "standup", "Alice")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/room/standup/player/"+joined.PlayerID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Leaving again, or from a missing room, still reports ok.
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/room/standup/reset", struct{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/room/standup")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "reset removes the room")
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/reset-all", struct{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleSetWords(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	joined := joinRoom(t, ts, "standup", "Alice")

	var words domain.WordGrid
	words[0][0] = "synergy"

	resp := postJSON(t, ts.URL+"/api/room/standup/player/"+joined.PlayerID+"/words", WordsRequest{Words: words})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/room/standup/player/ghost/words", WordsRequest{Words: words})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/room/missing/player/x/words", WordsRequest{Words: words})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func transcribeRequest(t *testing.T, url, meetingID, playerID string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-audio-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("meetingId", meetingID))
	require.NoError(t, writer.WriteField("playerId", playerID))
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/api/transcribe", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleTranscribe_MarksOwnCardOnly(t *testing.T) {
	provider := stubProvider{result: transcribe.Result{Text: "let's circle back on this", Language: "en"}}
	ts, registry := newTestServer(t, domain.ModeFreeSpace, provider)

	alice := joinRoom(t, ts, "standup", "Alice")
	bob := joinRoom(t, ts, "standup", "Bob")

	var words domain.WordGrid
	words[1][3] = "circle back"
	require.NoError(t, registry.SetWords("standup", alice.PlayerID, words))
	require.NoError(t, registry.SetWords("standup", bob.PlayerID, words))

	resp, err := http.DefaultClient.Do(transcribeRequest(t, ts.URL, "standup", alice.PlayerID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[TranscribeResponse](t, resp)
	assert.Equal(t, "let's circle back on this", result.Transcript)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, []domain.Cell{{Row: 1, Col: 3}}, result.MarkedCells)

	players, err := registry.Snapshot("standup")
	require.NoError(t, err)
	for _, p := range players {
		if p.PlayerID == alice.PlayerID {
			assert.True(t, p.MarkedCells[1][3])
		} else {
			assert.False(t, p.MarkedCells[1][3], "other players' cards stay untouched")
		}
	}
}

func TestHandleTranscribe_UnknownRoomStillReturnsTranscript(t *testing.T) {
	provider := stubProvider{result: transcribe.Result{Text: "circle back", Language: "en"}}
	ts, _ := newTestServer(t, domain.ModeFreeSpace, provider)

	resp, err := http.DefaultClient.Do(transcribeRequest(t, ts.URL, "missing", "ghost"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[TranscribeResponse](t, resp)
	assert.Equal(t, "circle back", result.Transcript)
	assert.Empty(t, result.MarkedCells)
}

func TestHandleTranscribe_ProviderFailure(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{err: errors.New("engine offline")})
	joined := joinRoom(t, ts, "standup", "Alice")

	resp, err := http.DefaultClient.Do(transcribeRequest(t, ts.URL, "standup", joined.PlayerID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	resp.Body.Close()

	players, err2 := http.Get(ts.URL + "/api/room/standup")
	require.NoError(t, err2)
	room := decodeBody[RoomResponse](t, players)
	// Center free space aside, nothing was marked.
	for _, p := range room.Players {
		for row := 0; row < 5; row++ {
			for col := 0; col < 5; col++ {
				if row == 2 && col == 2 {
					continue
				}
				assert.False(t, p.MarkedCells[row][col])
			}
		}
	}
}

func TestHealthAndRoot(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	joinRoom(t, ts, "standup", "Alice")

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	status := decodeBody[StatusResponse](t, resp)
	assert.Equal(t, "ok", status.Status)

	resp, err = http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	health := decodeBody[HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.Rooms)
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev domain.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebSocket_SyncMarkAndPing(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	alice := joinRoom(t, ts, "standup", "Alice")
	joinRoom(t, ts, "standup", "Bob")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/standup/"+alice.PlayerID), nil)
	require.NoError(t, err)
	defer conn.Close()

	sync := readEvent(t, conn)
	require.Equal(t, domain.EventSync, sync.Type)
	require.Len(t, sync.Players, 1)
	assert.Equal(t, "Bob", sync.Players[0].PlayerName)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "mark_cell", "row": 0, "col": 1}))
	updated := readEvent(t, conn)
	require.Equal(t, domain.EventPlayerUpdated, updated.Type)
	require.NotNil(t, updated.Player)
	assert.True(t, updated.Player.MarkedCells[0][1])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	pong := readEvent(t, conn)
	assert.Equal(t, domain.EventPong, pong.Type)
}

func TestWebSocket_ReceivesResetBeforeClose(t *testing.T) {
	ts, registry := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	alice := joinRoom(t, ts, "standup", "Alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/standup/"+alice.PlayerID), nil)
	require.NoError(t, err)
	defer conn.Close()

	sync := readEvent(t, conn)
	require.Equal(t, domain.EventSync, sync.Type)

	registry.Reset("standup")

	// The final notification arrives over the live socket before the server
	// closes it.
	ev := readEvent(t, conn)
	assert.Equal(t, domain.EventRoomReset, ev.Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server closes the connection after the final event")
}

func TestWebSocket_ReceivesExpiryBeforeClose(t *testing.T) {
	ts, registry := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	alice := joinRoom(t, ts, "standup", "Alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/standup/"+alice.PlayerID), nil)
	require.NoError(t, err)
	defer conn.Close()

	sync := readEvent(t, conn)
	require.Equal(t, domain.EventSync, sync.Type)

	removed := registry.SweepExpired(time.Now().Add(2 * app.DefaultRoomTTL))
	require.Equal(t, 1, removed)

	ev := readEvent(t, conn)
	assert.Equal(t, domain.EventRoomExpired, ev.Type)
	assert.Equal(t, "Game session expired", ev.Message)
}

func TestWebSocket_RejectsUnknownRoomAndPlayer(t *testing.T) {
	ts, _ := newTestServer(t, domain.ModeFreeSpace, stubProvider{})
	alice := joinRoom(t, ts, "standup", "Alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/missing/"+alice.PlayerID), nil)
	require.NoError(t, err)
	ev := readEvent(t, conn)
	assert.Equal(t, domain.EventError, ev.Type)
	conn.Close()

	conn, _, err = websocket.DefaultDialer.Dial(wsURL(ts, "/ws/standup/ghost"), nil)
	require.NoError(t, err)
	ev = readEvent(t, conn)
	assert.Equal(t, domain.EventError, ev.Type)
	conn.Close()
}
