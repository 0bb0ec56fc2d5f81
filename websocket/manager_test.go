package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zenly/middleware"

	"github.com/golang-jwt/jwt/v5"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, userID string) string {
	t.Helper()
	claims := &middleware.Claims{
		UserID: userID,
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type envelope struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func readEnvelope(t *testing.T, conn *gws.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func dialClient(t *testing.T, srv *httptest.Server, userID string) *gws.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + signToken(t, userID)
	conn, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)

	env := readEnvelope(t, conn)
	require.Equal(t, "connected", env.Type)
	return conn
}

func TestHandlerRejectsMissingOrBadToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	manager := NewManager()
	go manager.Start()

	srv := httptest.NewServer(WebSocketHandler(manager))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "?token=garbage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoomScopedEngagementBroadcast(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	manager := NewManager()
	go manager.Start()

	srv := httptest.NewServer(WebSocketHandler(manager))
	defer srv.Close()

	watcher := dialClient(t, srv, "watcher")
	defer watcher.Close()
	bystander := dialClient(t, srv, "bystander")
	defer bystander.Close()

	// Only the watcher joins the resources room
	require.NoError(t, watcher.WriteJSON(map[string]string{"type": "resources:join"}))
	env := readEnvelope(t, watcher)
	require.Equal(t, "resources:joined", env.Type)

	assert.Equal(t, 1, manager.RoomCount(RoomResources))
	assert.Equal(t, 2, manager.ClientCount())

	manager.BroadcastViewUpdate("res-1", 42)

	env = readEnvelope(t, watcher)
	assert.Equal(t, "resource:viewUpdate", env.Type)
	assert.Equal(t, "res-1", env.Payload["resourceId"])
	assert.EqualValues(t, 42, env.Payload["viewCount"])

	manager.BroadcastLikeUpdate("res-1", 7)

	env = readEnvelope(t, watcher)
	assert.Equal(t, "resource:likeUpdate", env.Type)
	assert.EqualValues(t, 7, env.Payload["helpfulCount"])

	// The bystander never subscribed, so nothing should arrive
	bystander.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := bystander.ReadMessage()
	assert.Error(t, err, "clients outside the room receive no engagement events")
}

func TestLeaveStopsEvents(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	manager := NewManager()
	go manager.Start()

	srv := httptest.NewServer(WebSocketHandler(manager))
	defer srv.Close()

	conn := dialClient(t, srv, "watcher")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "resources:join"}))
	require.Equal(t, "resources:joined", readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "resources:leave"}))
	require.Equal(t, "resources:left", readEnvelope(t, conn).Type)

	assert.Equal(t, 0, manager.RoomCount(RoomResources))

	manager.BroadcastViewUpdate("res-1", 99)

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no events after leaving the room")
}

func TestPingPong(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	manager := NewManager()
	go manager.Start()

	srv := httptest.NewServer(WebSocketHandler(manager))
	defer srv.Close()

	conn := dialClient(t, srv, "watcher")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readEnvelope(t, conn).Type)
}
