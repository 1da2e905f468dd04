package hub

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"room-designer/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Hub message types.
const (
	MessageRegister   = "register"
	MessageUnregister = "unregister"
	MessageAction     = "action"
	MessageChanged    = "changed"
)

// HubMessage is one event on the hub's channel.
type HubMessage struct {
	Type    string
	UserID  uint
	Client  *Client // register, unregister and action
	RawData []byte  // action only
}

// Designer is the part of *service.DesignerService the hub drives.
type Designer interface {
	Render(v *service.View) []service.ServerMessage
	HandleEvent(ctx context.Context, v *service.View, ev service.ViewEvent) ([]service.ServerMessage, error)
	CloseView(v *service.View)
	Reload(ctx context.Context, userID uint) (bool, error)
}

// ChangeSubscriber delivers changes made by other server instances.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, handle func(userID uint)) error
}

// Hub keeps the open view sockets of every user and pushes fresh renders to
// them whenever that user's design changes.
type Hub struct {
	messageChan chan HubMessage
	done        chan struct{}
	stopOnce    sync.Once

	users   map[uint]map[*Client]bool
	usersMu sync.RWMutex

	designer Designer
	log      *logrus.Entry
}

// NewHub creates a hub. Register it with DesignerService.SetNotifier.
func NewHub(designer Designer) *Hub {
	if designer == nil {
		panic("Designer cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		done:        make(chan struct{}),
		users:       make(map[uint]map[*Client]bool),
		designer:    designer,
		log:         logrus.WithField("component", "hub"),
	}
}

// Run is the hub's event loop. Run it in its own goroutine; Stop ends it.
func (h *Hub) Run() {
	h.log.Info("Hub is running...")
	for {
		select {
		case msg := <-h.messageChan:
			h.dispatchSafely(msg)
		case <-h.done:
			h.closeAll()
			h.log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// dispatchSafely runs dispatch and recovers from a panic in it. gin's
// Recovery only wraps HTTP handlers, and the hub goroutine serves every
// user, so one bad render must not take the process down with it.
func (h *Hub) dispatchSafely(msg HubMessage) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		h.log.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"user_id":      msg.UserID,
			"panic":        r,
		}).Errorf("Hub: recovered from panic while dispatching\n%s", debug.Stack())
		// tell the sender its action failed; other message types have no reply
		if msg.Type == MessageAction && msg.Client != nil && h.isRegistered(msg.Client) {
			h.send(msg.Client, []service.ServerMessage{service.ErrorMessage("Failed to apply change")})
		}
	}()
	h.dispatch(msg)
}

func (h *Hub) dispatch(msg HubMessage) {
	switch msg.Type {
	case MessageRegister:
		h.registerClient(msg.Client)
	case MessageUnregister:
		h.unregisterClient(msg.Client)
	case MessageAction:
		// in arrival order, so drag moves of one socket are never reordered
		h.handleClientAction(msg)
	case MessageChanged:
		h.broadcastRender(msg.UserID)
	default:
		h.log.Warnf("Hub: Received unknown message type: %s from user %d", msg.Type, msg.UserID)
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		h.log.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"user_id": client.UserID(),
		"action":  "registerClient",
	})

	h.usersMu.Lock()
	if _, ok := h.users[client.userID]; !ok {
		h.users[client.userID] = make(map[*Client]bool)
	}
	h.users[client.userID][client] = true
	h.usersMu.Unlock()
	logCtx.Info("Client registered to Hub")

	// a fresh socket gets the full picture before any delta arrives
	h.send(client, h.designer.Render(client.view))
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		h.log.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"user_id": client.UserID(),
		"action":  "unregisterClient",
	})

	h.usersMu.Lock()
	clients, ok := h.users[client.userID]
	if !ok || !clients[client] {
		h.usersMu.Unlock()
		logCtx.Warn("Client not found during unregister")
		return
	}
	delete(clients, client)
	// drop the empty map so GetActiveUserIDs only lists users with sockets
	if len(clients) == 0 {
		delete(h.users, client.userID)
	}
	h.usersMu.Unlock()

	// closing send ends WritePump; CloseView releases the view's hover and
	// drag state in the session
	close(client.send)
	h.designer.CloseView(client.view)
	logCtx.Info("Client unregistered from Hub")
}

func (h *Hub) closeAll() {
	h.usersMu.Lock()
	defer h.usersMu.Unlock()
	for userID, clients := range h.users {
		for c := range clients {
			close(c.send)
			h.designer.CloseView(c.view)
		}
		delete(h.users, userID)
	}
}

func (h *Hub) handleClientAction(msg HubMessage) {
	client := msg.Client
	if client == nil || !h.isRegistered(client) {
		// the socket closed before its queued messages were handled
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"user_id":   client.UserID(),
		"operation": "handleClientAction",
	})

	var ev service.ViewEvent
	if err := json.Unmarshal(msg.RawData, &ev); err != nil || ev.Type == "" {
		logCtx.WithError(err).Debug("Malformed view event")
		h.send(client, []service.ServerMessage{service.ErrorMessage("Invalid message format")})
		return
	}
	logCtx = logCtx.WithField("event", ev.Type)

	reply, err := h.designer.HandleEvent(context.Background(), client.view, ev)
	if err != nil {
		// validation errors are safe to show the user; anything else is
		// logged and reported generically
		text := "Failed to apply change"
		if errors.Is(err, service.ErrInvalidViewEvent) || errors.Is(err, service.ErrInvalidInput) {
			text = err.Error()
			logCtx.WithError(err).Debug("View event rejected")
		} else {
			logCtx.WithError(err).Error("Error handling view event")
		}
		h.send(client, []service.ServerMessage{service.ErrorMessage(text)})
		return
	}
	h.send(client, reply)
}

// broadcastRender renders every view of the user afresh.
func (h *Hub) broadcastRender(userID uint) {
	for _, c := range h.clientsOf(userID) {
		h.send(c, h.designer.Render(c.view))
	}
}

func (h *Hub) isRegistered(c *Client) bool {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()
	return h.users[c.userID][c]
}

func (h *Hub) clientsOf(userID uint) []*Client {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()
	clients := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		clients = append(clients, c)
	}
	return clients
}

// send queues messages on the client without blocking. Must run on the hub
// goroutine, which is the only one closing send channels.
func (h *Hub) send(client *Client, msgs []service.ServerMessage) {
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			h.log.WithError(err).WithField("type", m.Type).Error("Failed to marshal server message")
			continue
		}
		// never block the hub on one slow reader; it resyncs on the next render
		select {
		case client.send <- data:
		default:
			h.log.WithFields(logrus.Fields{
				"user_id": client.UserID(),
				"type":    m.Type,
			}).Warn("Client send channel full, message dropped")
		}
	}
}

// --- public ---

// StateChanged implements service.ChangeNotifier. It only queues work, so
// it is safe to call with the user's session locked.
func (h *Hub) StateChanged(userID uint) {
	h.QueueMessage(HubMessage{Type: MessageChanged, UserID: userID})
}

// WatchChanges reloads a user's cached session when another instance
// changed their state. It blocks until ctx is done.
func (h *Hub) WatchChanges(ctx context.Context, feed ChangeSubscriber) error {
	return feed.Subscribe(ctx, func(userID uint) {
		// Sessions without an open view are reloaded too: a REST-only
		// session left stale would overwrite the newer slot on its next
		// commit. Reload is a no-op for users with no cached session.
		if _, err := h.designer.Reload(ctx, userID); err != nil {
			h.log.WithField("user_id", userID).WithError(err).Error("Failed to reload state after remote change")
		}
	})
}

// QueueMessage puts msg on the hub channel without blocking. It returns
// false when the channel is full.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		h.log.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"user_id":      msg.UserID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

// HasUser reports whether the user has an open view.
func (h *Hub) HasUser(userID uint) bool {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()
	return len(h.users[userID]) > 0
}

// GetActiveUserIDs lists users with at least one open view.
func (h *Hub) GetActiveUserIDs() []uint {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()
	ids := make([]uint, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	return ids
}

// ClientCount returns the number of open views of a user.
func (h *Hub) ClientCount(userID uint) int {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()
	return len(h.users[userID])
}
