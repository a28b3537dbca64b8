package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paydesk_backend/internal/dto"
	"paydesk_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startManager(t *testing.T) *WebSocketManager {
	t.Helper()
	manager := NewWebSocketManager()
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)
	t.Cleanup(cancel)
	return manager
}

func newTestServer(t *testing.T, manager *WebSocketManager, snapshot SnapshotFunc) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws/payments", func(c *gin.Context) {
		c.Set(contextkeys.StructureIDKey, c.Query("structure"))
		c.Next()
	}, NewWebSocketHandler(manager, snapshot, nil).ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/payments?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestManager_PublishReachesTopicOnly(t *testing.T) {
	manager := startManager(t)
	srv := newTestServer(t, manager, nil)

	watcher := dial(t, srv, "structure=s1&reference=FAC-1")
	other := dial(t, srv, "structure=s2&reference=FAC-1")

	require.Eventually(t, func() bool { return manager.GetClientCount() == 2 }, time.Second, 5*time.Millisecond)

	manager.Publish("s1", "FAC-1", dto.PaymentStatusEvent{Reference: "FAC-1", Status: "PROCESSING"})

	var got dto.PaymentStatusEvent
	_ = watcher.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, watcher.ReadJSON(&got))
	assert.Equal(t, "PROCESSING", got.Status)

	_ = other.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	var none dto.PaymentStatusEvent
	assert.Error(t, other.ReadJSON(&none))
}

func TestManager_TerminalEventClosesConnection(t *testing.T) {
	manager := startManager(t)
	srv := newTestServer(t, manager, func(c *gin.Context, structureID, reference string) (*dto.PaymentStatusEvent, bool) {
		return &dto.PaymentStatusEvent{Reference: reference, Status: "COMPLETED", Terminal: true}, true
	})

	conn := dial(t, srv, "structure=s1&reference=FAC-2")

	var got dto.PaymentStatusEvent
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.True(t, got.Terminal)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	require.Eventually(t, func() bool { return manager.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_SnapshotGoesToNewClientOnly(t *testing.T) {
	manager := startManager(t)
	srv := newTestServer(t, manager, func(c *gin.Context, structureID, reference string) (*dto.PaymentStatusEvent, bool) {
		return &dto.PaymentStatusEvent{Reference: reference, Status: "PROCESSING"}, true
	})

	first := dial(t, srv, "structure=s1&reference=FAC-3")
	var got dto.PaymentStatusEvent
	_ = first.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, first.ReadJSON(&got))
	assert.Equal(t, "PROCESSING", got.Status)

	second := dial(t, srv, "structure=s1&reference=FAC-3")
	_ = second.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, second.ReadJSON(&got))
	assert.Equal(t, "PROCESSING", got.Status)

	require.Eventually(t, func() bool { return manager.GetClientCount() == 2 }, time.Second, 5*time.Millisecond)

	// the first subscriber sees nothing from the second connection
	_ = first.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var dup dto.PaymentStatusEvent
	assert.Error(t, first.ReadJSON(&dup))
}

func TestHandler_RequiresReference(t *testing.T) {
	manager := startManager(t)
	srv := newTestServer(t, manager, nil)

	resp, err := http.Get(srv.URL + "/ws/payments?structure=s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpgrader_ChecksOrigin(t *testing.T) {
	upgrader := newUpgrader([]string{"https://app.paydesk.sn"})

	req := httptest.NewRequest(http.MethodGet, "/ws/payments", nil)
	req.Header.Set("Origin", "https://app.paydesk.sn")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, upgrader.CheckOrigin(req))

	assert.True(t, newUpgrader(nil).CheckOrigin(req))
}
