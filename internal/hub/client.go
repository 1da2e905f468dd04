package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"room-designer/internal/service"
)

// Client is one view socket connected to the Hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	view   *service.View
	send   chan []byte
}

// NewClient creates a client for an opened view.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, view *service.View) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		view:   view,
		// buffered so a slow socket does not stall the hub's broadcast loop
		send:   make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) logCtx() *logrus.Entry {
	kind := ""
	if c.view != nil {
		kind = string(c.view.Kind())
	}
	return logrus.WithFields(logrus.Fields{"user_id": c.userID, "view": kind})
}

// ReadPump forwards socket messages to the hub until the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		// the hub may already be shutting down; do not block forever on a
		// channel nobody reads
		select {
		case c.hub.messageChan <- HubMessage{Type: MessageUnregister, UserID: c.userID, Client: c}:
		case <-time.After(1 * time.Second):
			c.logCtx().Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		c.logCtx().Info("readPump exited, unregistered client")
	}()

	// oversized frames close the connection instead of buffering
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	// each pong pushes the deadline out; a silent peer times out the read
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			// going-away and abnormal closures are ordinary tab closes
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logCtx().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logCtx().Debug("WebSocket connection closed normally or read error")
			}
			break
		}
		// actions are JSON text; binary frames have no meaning here
		if messageType != websocket.TextMessage {
			c.logCtx().Debugf("Received non-text message type: %d", messageType)
			continue
		}
		// the hub applies actions in arrival order, so just hand it over
		c.hub.QueueMessage(HubMessage{
			Type:    MessageAction,
			UserID:  c.userID,
			Client:  c,
			RawData: message,
		})
	}
}

// WritePump writes queued messages and pings to the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logCtx().Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logCtx().WithError(err).Warn("Failed to write message to websocket")
				return
			}
			// clear the deadline so an idle socket is not torn down between writes
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			// keepalive; the peer's pong resets our read deadline
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logCtx().WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

func (c *Client) UserID() uint        { return c.userID }
func (c *Client) View() *service.View { return c.view }
func (c *Client) CloseConn()          { c.conn.Close() }
