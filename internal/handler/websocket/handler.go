package websocket

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"room-designer/internal/hub"
	"room-designer/internal/middleware"
	"room-designer/internal/service"
)

// WebSocketHandler upgrades designer view requests and hands the socket to the hub.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	designer *service.DesignerService
}

// NewWebSocketHandler creates the handler. allowedOrigin "*" accepts any origin.
func NewWebSocketHandler(h *hub.Hub, designer *service.DesignerService, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if designer == nil {
		panic("DesignerService cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigin),
		},
		hub:      h,
		designer: designer,
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || allowed == "*" || origin == allowed
	}
}

// HandleConnection serves GET /ws/designer?view=2d|3d.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	kind, err := service.ParseViewKind(c.Query("view"))
	if err != nil {
		logCtx.WithError(err).Warn("WS Handler: Invalid view kind")
		c.JSON(http.StatusBadRequest, gin.H{"error": "view must be 2d or 3d"})
		return
	}
	logCtx = logCtx.WithField("view", kind)

	view, err := h.designer.OpenView(c.Request.Context(), userID, kind)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		logCtx.WithError(err).Error("WS Handler: Failed to open view")
		c.JSON(status, gin.H{"error": "Failed to open designer view"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		h.designer.CloseView(view)
		return
	}

	client := hub.NewClient(h.hub, conn, userID, view)
	if !h.hub.QueueMessage(hub.HubMessage{Type: hub.MessageRegister, UserID: userID, Client: client}) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		h.designer.CloseView(view)
		return
	}

	go client.Run()
	logCtx.Info("WS Handler: Client connected")
}
