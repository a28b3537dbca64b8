package ws

import (
	"net/http"
	"strings"

	"paydesk_backend/internal/dto"
	"paydesk_backend/internal/logger"
	"paydesk_backend/pkg/apperrors"
	"paydesk_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return websocket.Upgrader{
		// Empty list: any origin, for local development.
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// SnapshotFunc returns the current status of a reference. It is sent right
// after the upgrade so a late subscriber does not miss a terminal event.
type SnapshotFunc func(c *gin.Context, structureID, reference string) (*dto.PaymentStatusEvent, bool)

type WebSocketHandler struct {
	Manager  *WebSocketManager
	Snapshot SnapshotFunc
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(manager *WebSocketManager, snapshot SnapshotFunc, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		Manager:  manager,
		Snapshot: snapshot,
		upgrader: newUpgrader(allowedOrigins),
	}
}

// ServeWS upgrades GET /ws/payments?reference=... for the authenticated structure.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	structureID := c.GetString(contextkeys.StructureIDKey)
	if structureID == "" {
		apperrors.HandleError(c, apperrors.ErrMissingStructure)
		return
	}

	reference := strings.TrimSpace(c.Query("reference"))
	if reference == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("'reference' query parameter is required"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "WebSocket upgrade error", "error", err)
		return
	}

	client := newClient(h.Manager, conn, Topic(structureID, reference))
	if !h.Manager.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	if h.Snapshot != nil {
		if event, ok := h.Snapshot(c, structureID, reference); ok {
			h.Manager.SendTo(client, *event)
		}
	}

	logger.CtxDebug(c.Request.Context(), "WebSocket client connected", "reference", reference)

	go client.readPump()
	go client.writePump()
}
