package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/meetassist/internal/adapters/ws"
	"github.com/dkeye/meetassist/internal/ai"
	"github.com/dkeye/meetassist/internal/app"
	"github.com/dkeye/meetassist/internal/app/chat"
	"github.com/dkeye/meetassist/internal/app/collab"
	"github.com/dkeye/meetassist/internal/config"
	"github.com/dkeye/meetassist/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAI struct {
	mu         sync.Mutex
	prompts    []string
	answer     string
	transcript string
	err        error
}

func (f *fakeAI) Reply(_ context.Context, message string, _ []domain.Turn, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, message)
	return f.answer, f.err
}

func (f *fakeAI) Transcribe(context.Context, []byte) (string, error) { return f.transcript, f.err }

func (f *fakeAI) Sentiment(context.Context, string) (ai.Sentiment, error) {
	return ai.Sentiment{Label: "positive", Score: 0.9}, f.err
}

func (f *fakeAI) Summarize(_ context.Context, transcript string, maxWords int) (string, error) {
	return "summary", f.err
}

type testServer struct {
	*httptest.Server
	ai    *fakeAI
	relay *collab.Relay
}

func newTestServer(t *testing.T, fa *fakeAI) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Mode: "test", Secret: "test-secret", StaticPath: t.TempDir()}
	opts := ws.Options{ReadLimit: 1 << 20, PingPeriod: time.Minute, WriteWait: time.Second, SendBuffer: 16}

	relay := collab.NewRelay()
	manager := chat.NewManager(app.NewRegistry("chat"), fa)
	svc := Services{
		Chat:   ws.NewChatController(manager, ws.NewClientRateLimiter(0, 0), opts),
		Collab: ws.NewCollabController(relay, app.NewRegistry("collab"), opts),
		API:    &API{AI: fa, RoomList: relay},
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, svc))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{Server: srv, ai: fa, relay: relay}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *testServer) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(s.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func readBinary(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	return data
}

func TestHealthAndRoot(t *testing.T) {
	s := newTestServer(t, &fakeAI{})

	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(s.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var root map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&root))
	assert.Equal(t, "1.0.0", root["version"])
}

func TestWhoAmIStableAcrossRequests(t *testing.T) {
	s := newTestServer(t, &fakeAI{})

	resp, err := http.Get(s.URL + "/api/whoami")
	require.NoError(t, err)
	var first map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	resp.Body.Close()
	require.NotEmpty(t, first["client_id"])
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/whoami", nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var second map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
	assert.Equal(t, first["client_id"], second["client_id"])
}

func TestChatAPI(t *testing.T) {
	fa := &fakeAI{answer: "42"}
	s := newTestServer(t, fa)

	resp, body := s.postJSON(t, "/api/chat", map[string]string{"message": "meaning?", "context": "we talked"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "42", body["response"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []string{"Meeting context: we talked\n\nUser question: meaning?"}, fa.prompts)

	resp, _ = s.postJSON(t, "/api/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranscribeAPI(t *testing.T) {
	s := newTestServer(t, &fakeAI{transcript: "hello"})

	resp, body := s.postJSON(t, "/api/transcribe", map[string]string{"audio": base64.StdEncoding.EncodeToString([]byte("pcm"))})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "hello", data["transcription"])
	assert.Equal(t, "en", data["language"])

	resp, _ = s.postJSON(t, "/api/transcribe", map[string]string{"audio": "***"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSentimentAndSummaryAPI(t *testing.T) {
	s := newTestServer(t, &fakeAI{})

	resp, body := s.postJSON(t, "/api/analyze-sentiment", map[string]string{"text": "great meeting"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "positive", body["sentiment"])

	resp, body = s.postJSON(t, "/api/generate-summary", map[string]any{"transcript": "abc"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "summary", body["summary"])
	assert.EqualValues(t, 3, body["transcript_length"])

	resp, _ = s.postJSON(t, "/api/generate-summary", map[string]any{"transcript": "abc", "max_length": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIUnconfigured(t *testing.T) {
	s := newTestServer(t, &fakeAI{err: ai.ErrNotConfigured})

	resp, body := s.postJSON(t, "/api/analyze-sentiment", map[string]string{"text": "x"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Gemini API key not configured", body["detail"])
}

func TestChatWebSocketMeetingQuestion(t *testing.T) {
	s := newTestServer(t, &fakeAI{transcript: "what time is the next meeting", answer: "At 3pm"})
	conn := s.dial(t, "/ws/ai-chat/client-1")

	welcome := readFrame(t, conn)
	assert.Equal(t, "message", welcome["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "start_listening"}))
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type": "meeting_audio",
		"data": base64.StdEncoding.EncodeToString([]byte("speech")),
	}))

	var types []string
	var frames []map[string]any
	for i := 0; i < 6; i++ {
		f := readFrame(t, conn)
		frames = append(frames, f)
		types = append(types, f["type"].(string))
	}
	assert.Equal(t, []string{"status", "meeting_transcription", "question_detected", "typing", "typing", "message"}, types)
	assert.Equal(t, "listening", frames[0]["status"])
	assert.Equal(t, true, frames[3]["status"])
	assert.Equal(t, false, frames[4]["status"])
	assert.Equal(t, chat.AnswerMarker+"At 3pm", frames[5]["content"])
}

func TestChatWebSocketBadFrameKeepsConnection(t *testing.T) {
	s := newTestServer(t, &fakeAI{answer: "hi back"})
	conn := s.dial(t, "/ws/ai-chat/client-2")
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "error", readFrame(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"content": "hi"}))
	assert.Equal(t, "typing", readFrame(t, conn)["type"])
	assert.Equal(t, "typing", readFrame(t, conn)["type"])
	assert.Equal(t, "hi back", readFrame(t, conn)["content"])
}

func TestChatWebSocketDuplicateClientRejected(t *testing.T) {
	s := newTestServer(t, &fakeAI{})
	first := s.dial(t, "/ws/ai-chat/dup")
	readFrame(t, first)

	second := s.dial(t, "/ws/ai-chat/dup")
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)

	require.NoError(t, first.WriteJSON(map[string]string{"type": "clear"}))
	assert.Equal(t, "cleared", readFrame(t, first)["type"])
}

func TestCollabWebSocketRelay(t *testing.T) {
	s := newTestServer(t, &fakeAI{})
	a := s.dial(t, "/ws/yjs/doc")
	b := s.dial(t, "/ws/yjs/doc")
	require.Eventually(t, func() bool { return len(s.relay.List()) == 1 && s.relay.List()[0].MemberCount == 2 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3}, readBinary(t, b))

	late := s.dial(t, "/ws/yjs/doc")
	assert.Equal(t, []byte{1, 2, 3}, readBinary(t, late))

	resp, err := http.Get(s.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rooms struct {
		Rooms []map[string]any `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, "doc", rooms.Rooms[0]["id"])
	assert.Equal(t, true, rooms.Rooms[0]["has_snapshot"])
}

func TestCollabRoomClosesWhenEmpty(t *testing.T) {
	s := newTestServer(t, &fakeAI{})
	a := s.dial(t, "/ws/yjs/tmp")
	require.Eventually(t, func() bool { return s.relay.Has("tmp") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return !s.relay.Has("tmp") }, 2*time.Second, 10*time.Millisecond)
}

func TestChatAPIExhaustedDegrades(t *testing.T) {
	exhausted := fmt.Errorf("%w: %w", ai.ErrExhausted, ai.ErrRateLimited)
	s := newTestServer(t, &fakeAI{err: exhausted})

	resp, body := s.postJSON(t, "/api/chat", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ai.DegradedReply(exhausted), body["response"])
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body["response"], "429")
}

func TestTranscribeAPIExhaustedReturnsEmpty(t *testing.T) {
	s := newTestServer(t, &fakeAI{err: fmt.Errorf("%w: %w", ai.ErrExhausted, errors.New("backend down"))})

	resp, body := s.postJSON(t, "/api/transcribe", map[string]string{"audio": base64.StdEncoding.EncodeToString([]byte("pcm"))})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "", data["transcription"])
}

func TestChatAPIUnconfiguredAfterRetries(t *testing.T) {
	s := newTestServer(t, &fakeAI{err: fmt.Errorf("%w: %w", ai.ErrExhausted, ai.ErrNotConfigured)})

	resp, body := s.postJSON(t, "/api/chat", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Gemini API key not configured", body["detail"])
}
