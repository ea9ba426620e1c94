package http

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, created := srv.do(t, "alice", http.MethodPost, "/v1/sessions", map[string]any{"gameType": "this_or_that"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created["id"].(string)

	alice := dialWS(t, srv, "alice", id)
	bob := dialWS(t, srv, "bob", id)

	// Expect the snapshot first.
	_, payload := readNext(t, alice, "session")
	assert.Equal(t, id, payload["id"])
	readNext(t, bob, "session")

	// An unknown message type is answered with an error envelope.
	require.NoError(t, alice.WriteJSON(map[string]any{"type": "dance"}))
	_, payload = readNext(t, alice, "error")
	assert.Equal(t, "invalid_request", payload["error"])

	send(t, alice, "answer", map[string]any{"slot": 0, "answer": "Tea"})
	_, payload = readNext(t, alice, "session")
	assert.Equal(t, float64(2), payload["version"])
	// bob sees alice's answer through the feed
	_, payload = readNext(t, bob, "session")
	assert.Equal(t, float64(0), payload["completedQuestionCount"])

	send(t, alice, "answer", map[string]any{"slot": 0, "answer": "Coffee"})
	_, payload = readNext(t, alice, "error")
	assert.Equal(t, "already_answered", payload["error"])

	send(t, bob, "answer", map[string]any{"slot": 0, "answer": "Coffee"})
	_, payload = readNext(t, bob, "session")
	assert.Equal(t, "completed", payload["status"])
	_, payload = readNext(t, alice, "session")
	assert.Equal(t, "completed", payload["status"])
}

func TestWebSocketRejectsIncompletePayloads(t *testing.T) {
	srv := newTestServer(t)

	resp, created := srv.do(t, "alice", http.MethodPost, "/v1/sessions", map[string]any{"gameType": "know_me"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created["id"].(string)

	alice := dialWS(t, srv, "alice", id)
	readNext(t, alice, "session")

	send(t, alice, "answer", map[string]any{"answer": "Pizza"})
	_, payload := readNext(t, alice, "error")
	assert.Equal(t, "invalid_slot", payload["error"])

	send(t, alice, "verdict", "not an object")
	_, payload = readNext(t, alice, "error")
	assert.Equal(t, "invalid_request", payload["error"])

	send(t, alice, "verdict", map[string]any{"slot": 0})
	_, payload = readNext(t, alice, "error")
	assert.Equal(t, "invalid_request", payload["error"])

	send(t, alice, "verdict", map[string]any{"correct": true})
	_, payload = readNext(t, alice, "error")
	assert.Equal(t, "invalid_slot", payload["error"])

	// None of the rejected messages touched slot 0.
	resp, body := srv.do(t, "alice", http.MethodGet, "/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["version"])
}

func TestWebSocketRejectsOutsiders(t *testing.T) {
	srv := newTestServer(t)
	_, created := srv.do(t, "alice", http.MethodPost, "/v1/sessions", map[string]any{"gameType": "deep_talk"})
	id := created["id"].(string)

	token, err := srv.auth.Issue("mallory", time.Hour)
	require.NoError(t, err)
	u := "ws" + srv.URL[len("http"):] + "/ws?sessionId=" + id + "&access_token=" + url.QueryEscape(token)
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err, "handshake should fail")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func dialWS(t *testing.T, srv testServer, user, sessionID string) *websocket.Conn {
	t.Helper()
	token, err := srv.auth.Issue(user, time.Hour)
	require.NoError(t, err)
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	u := "ws" + srv.URL[len("http"):] + "/ws?sessionId=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "payload": payload}), "write %s", typ)
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	if expect != "" {
		require.Equal(t, expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
