package websocket

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/pkg/logger"
)

func newTestServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewHandler(hub, Options{})
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", c.Query("user"))
		c.Set("user_type", c.Query("role"))
		handler.HandleWebSocket(c)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestConnectJoinsRoomsAndReceivesMessages(t *testing.T) {
	hub := NewHub(logger.Discard())
	hub.OnConnect(func(c *Client) {
		if c.UserType == "hospital" {
			hub.JoinRoom(c, "hospital_"+c.UserID)
		}
	})
	url := newTestServer(t, hub)

	conn := dial(t, url+"?user=hosp-001&role=hospital")
	assert.Equal(t, "welcome", readMessage(t, conn).Type)

	msg, err := NewMessage("emergency_assigned", map[string]string{"emergency_id": "em-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.SendToRoom("hospital_hosp-001", msg))
	assert.Zero(t, hub.SendToRoom("hospital_hosp-002", msg))

	got := readMessage(t, conn)
	assert.Equal(t, "emergency_assigned", got.Type)
	assert.Equal(t, "hospital_hosp-001", got.RoomID)

	var data map[string]string
	require.NoError(t, got.Decode(&data))
	assert.Equal(t, "em-1", data["emergency_id"])

	assert.True(t, hub.IsOnline("hosp-001"))
	assert.Equal(t, 1, hub.SendToUser("hosp-001", msg))
}

func TestInboundMessagesReachHandler(t *testing.T) {
	hub := NewHub(logger.Discard())

	var mu sync.Mutex
	var received []Message
	hub.OnMessage(func(c *Client, msg Message) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
	})
	url := newTestServer(t, hub)

	conn := dial(t, url+"?user=drv-1&role=driver")
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "location_update",
		"data": map[string]float64{"latitude": 19.07, "longitude": 72.87},
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	msg := received[0]
	mu.Unlock()
	assert.Equal(t, "location_update", msg.Type)
	assert.Equal(t, "drv-1", msg.UserID)
}

func TestDisconnectRunsHook(t *testing.T) {
	hub := NewHub(logger.Discard())
	gone := make(chan string, 1)
	hub.OnDisconnect(func(c *Client) { gone <- c.UserID })
	url := newTestServer(t, hub)

	conn := dial(t, url+"?user=pat-1&role=patient")
	readMessage(t, conn)
	conn.Close()

	select {
	case id := <-gone:
		assert.Equal(t, "pat-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect hook not called")
	}
	assert.False(t, hub.IsOnline("pat-1"))
	assert.Zero(t, hub.ClientCount())
}

func TestUnauthenticatedUpgradeRejected(t *testing.T) {
	hub := NewHub(logger.Discard())
	url := newTestServer(t, hub)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestSendAfterCloseFails(t *testing.T) {
	hub := NewHub(logger.Discard())
	client := &Client{hub: hub, send: make(chan []byte, 1), UserID: "u"}
	client.close()
	assert.ErrorIs(t, client.Send(Message{Type: "x"}), ErrClientClosed)
}
