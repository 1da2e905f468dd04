package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-designer/internal/domain"
	"room-designer/internal/hub"
	"room-designer/internal/middleware"
	"room-designer/internal/service"
	"room-designer/internal/store"
)

type memPersister struct {
	mu     sync.Mutex
	states map[uint]domain.DesignState
}

func (p *memPersister) Load(_ context.Context, userID uint) (domain.DesignState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[userID]; ok {
		return st, nil
	}
	return store.DefaultState(), nil
}

func (p *memPersister) Save(_ context.Context, userID uint, st domain.DesignState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[userID] = st
	return nil
}

func newServer(t *testing.T) (*httptest.Server, *service.DesignerService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	designer := service.NewDesignerService(&memPersister{states: make(map[uint]domain.DesignState)}, nil, nil, nil, nil)
	h := hub.NewHub(designer)
	designer.SetNotifier(h)
	go h.Run()
	t.Cleanup(h.Stop)

	r := gin.New()
	r.GET("/ws/designer", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uint(1))
		c.Next()
	}, NewWebSocketHandler(h, designer, "*").HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, designer
}

func dial(t *testing.T, srv *httptest.Server, view string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/designer?view=" + view
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) service.ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m service.ServerMessage
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestHandleConnection_SceneView(t *testing.T) {
	srv, designer := newServer(t)
	conn := dial(t, srv, "3d")

	assert.Equal(t, service.MessageState, read(t, conn).Type)
	assert.Equal(t, service.MessageScene, read(t, conn).Type)

	_, err := designer.AddFurniture(context.Background(), 1, store.NewFurniture{Type: "chair"})
	require.NoError(t, err)

	// the change is pushed without asking
	m := read(t, conn)
	require.Equal(t, service.MessageState, m.Type)
	require.Len(t, m.State.Furniture, 1)
	m = read(t, conn)
	require.Equal(t, service.MessageScene, m.Type)
	require.Len(t, m.Scene.Nodes, 1)

	require.NoError(t, conn.WriteJSON(service.ViewEvent{Type: service.EventPlanZoom, Delta: 1}))
	m = read(t, conn)
	assert.Equal(t, service.MessageError, m.Type)
	assert.Contains(t, m.Message, "3d view")
}

func TestHandleConnection_PlanView(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv, "2d")

	assert.Equal(t, service.MessageState, read(t, conn).Type)
	assert.Equal(t, service.MessagePlan, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(service.ViewEvent{Type: service.EventPlanResize, Width: 800, Height: 600}))
	m := read(t, conn)
	require.Equal(t, service.MessagePlan, m.Type)
	assert.Equal(t, 500.0, m.Layout.Room.Width)
}

func TestHandleConnection_BadView(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/ws/designer?view=4d")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	check := originChecker("http://localhost:5173")
	assert.True(t, check(req("")))
	assert.True(t, check(req("http://localhost:5173")))
	assert.False(t, check(req("http://evil.example")))
	assert.True(t, originChecker("*")(req("http://evil.example")))
}
