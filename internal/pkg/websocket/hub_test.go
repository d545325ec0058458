package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursemarket/internal/app/models"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewHandler(hub, []string{"*"}, zerolog.Nop())
	router := gin.New()
	// Stand-in for the auth middleware
	router.GET("/ws", func(c *gin.Context) {
		c.Set("userID", c.Query("user"))
		c.Next()
	}, handler.HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversOnlyToTheNotifiedUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	defer hub.Stop()

	srv := newTestServer(t, hub)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	require.Eventually(t, func() bool {
		return hub.ClientCount("alice") == 1 && hub.ClientCount("bob") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Notify("alice", models.Notification{
		Type:    models.NotificationLevelUp,
		Title:   "Level up",
		Message: "You reached Intermediate",
	})

	var got models.Notification
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, models.NotificationLevelUp, got.Type)
	assert.Equal(t, "You reached Intermediate", got.Message)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's notification")
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	defer hub.Stop()

	srv := newTestServer(t, hub)
	conn := dial(t, srv, "carol")
	require.Eventually(t, func() bool { return hub.ClientCount("carol") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount("carol") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	srv := newTestServer(t, hub)
	conn := dial(t, srv, "dave")
	require.Eventually(t, func() bool { return hub.ClientCount("dave") == 1 }, time.Second, 10*time.Millisecond)

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "the connection is closed once the hub stops")

	// Notify after Stop returns instead of blocking
	done := make(chan struct{})
	go func() {
		hub.Notify("dave", models.Notification{Type: models.NotificationAchievement})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked after Stop")
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "requests without an Origin are allowed")

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}
