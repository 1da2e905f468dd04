package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-designer/internal/service"
)

type fakeDesigner struct {
	mu       sync.Mutex
	renders  int
	events   []service.ViewEvent
	closed   int
	reloaded []uint
	reply    []service.ServerMessage
	err      error
	panics   int // HandleEvent panics this many times before behaving
}

func (f *fakeDesigner) Render(*service.View) []service.ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
	return []service.ServerMessage{{Type: service.MessageState}, {Type: service.MessagePlan}}
}

func (f *fakeDesigner) HandleEvent(_ context.Context, _ *service.View, ev service.ViewEvent) ([]service.ServerMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics > 0 {
		f.panics--
		panic("render exploded")
	}
	f.events = append(f.events, ev)
	return f.reply, f.err
}

func (f *fakeDesigner) CloseView(*service.View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeDesigner) Reload(_ context.Context, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloaded = append(f.reloaded, userID)
	return true, nil
}

func (f *fakeDesigner) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func startHub(t *testing.T, d Designer) *Hub {
	t.Helper()
	h := NewHub(d)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func register(t *testing.T, h *Hub, userID uint) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, nil)
	require.True(t, h.QueueMessage(HubMessage{Type: MessageRegister, UserID: userID, Client: c}))
	// initial render
	assert.Equal(t, service.MessageState, recv(t, c).Type)
	assert.Equal(t, service.MessagePlan, recv(t, c).Type)
	return c
}

func recv(t *testing.T, c *Client) service.ServerMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var m service.ServerMessage
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return service.ServerMessage{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RegisterSendsRender(t *testing.T) {
	d := &fakeDesigner{}
	h := startHub(t, d)

	register(t, h, 1)

	assert.True(t, h.HasUser(1))
	assert.Equal(t, 1, h.ClientCount(1))
	assert.ElementsMatch(t, []uint{1}, h.GetActiveUserIDs())
}

func TestHub_StateChangedRendersEveryViewOfUser(t *testing.T) {
	d := &fakeDesigner{}
	h := startHub(t, d)
	a := register(t, h, 1)
	b := register(t, h, 1)
	other := register(t, h, 2)

	h.StateChanged(1)

	for _, c := range []*Client{a, b} {
		assert.Equal(t, service.MessageState, recv(t, c).Type)
		assert.Equal(t, service.MessagePlan, recv(t, c).Type)
	}
	assertSilent(t, other)
}

func TestHub_ActionRepliesToSender(t *testing.T) {
	d := &fakeDesigner{reply: []service.ServerMessage{{Type: service.MessageScene}}}
	h := startHub(t, d)
	c := register(t, h, 1)

	h.QueueMessage(HubMessage{Type: MessageAction, UserID: 1, Client: c, RawData: []byte(`{"type":"scene.frame"}`)})

	assert.Equal(t, service.MessageScene, recv(t, c).Type)
	d.mu.Lock()
	require.Len(t, d.events, 1)
	assert.Equal(t, service.EventSceneFrame, d.events[0].Type)
	d.mu.Unlock()
}

func TestHub_MalformedActionGetsError(t *testing.T) {
	d := &fakeDesigner{}
	h := startHub(t, d)
	c := register(t, h, 1)

	for _, raw := range []string{"{oops", `{"id":"x"}`} {
		h.QueueMessage(HubMessage{Type: MessageAction, UserID: 1, Client: c, RawData: []byte(raw)})
		m := recv(t, c)
		assert.Equal(t, service.MessageError, m.Type)
		assert.Equal(t, "Invalid message format", m.Message)
	}
	d.mu.Lock()
	assert.Empty(t, d.events)
	d.mu.Unlock()
}

func TestHub_RejectedEventReportsReason(t *testing.T) {
	d := &fakeDesigner{err: fmt.Errorf("%w: %q on a 2d view", service.ErrInvalidViewEvent, "scene.frame")}
	h := startHub(t, d)
	c := register(t, h, 1)

	h.QueueMessage(HubMessage{Type: MessageAction, UserID: 1, Client: c, RawData: []byte(`{"type":"scene.frame"}`)})

	m := recv(t, c)
	assert.Equal(t, service.MessageError, m.Type)
	assert.Contains(t, m.Message, "scene.frame")
}

func TestHub_InternalErrorIsGeneric(t *testing.T) {
	d := &fakeDesigner{err: service.ErrInternalServer}
	h := startHub(t, d)
	c := register(t, h, 1)

	h.QueueMessage(HubMessage{Type: MessageAction, UserID: 1, Client: c, RawData: []byte(`{"type":"plan.rotate"}`)})

	assert.Equal(t, "Failed to apply change", recv(t, c).Message)
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	d := &fakeDesigner{}
	h := startHub(t, d)
	c := register(t, h, 1)

	h.QueueMessage(HubMessage{Type: MessageUnregister, UserID: 1, Client: c})

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Eventually(t, func() bool { return d.closedCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.False(t, h.HasUser(1))

	// late messages of the closed socket are dropped
	h.QueueMessage(HubMessage{Type: MessageAction, UserID: 1, Client: c, RawData: []byte(`{"type":"state.get"}`)})
	h.StateChanged(1)
	h.QueueMessage(HubMessage{Type: MessageUnregister, UserID: 1, Client: c})
	assert.Never(t, func() bool { return d.closedCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

type fakeFeed struct {
	users []uint
}

func (f fakeFeed) Subscribe(_ context.Context, handle func(uint)) error {
	for _, id := range f.users {
		handle(id)
	}
	return nil
}

func TestHub_WatchChangesReloadsUsersWithoutOpenViews(t *testing.T) {
	d := &fakeDesigner{}
	h := startHub(t, d)
	register(t, h, 1)

	// user 2 has no socket here but may hold a cached REST session
	require.NoError(t, h.WatchChanges(context.Background(), fakeFeed{users: []uint{1, 2}}))

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, []uint{1, 2}, d.reloaded)
}

func TestHub_SurvivesPanicInDesigner(t *testing.T) {
	d := &fakeDesigner{panics: 1}
	h := startHub(t, d)
	c := register(t, h, 1)

	h.QueueMessage(HubMessage{Type: MessageAction, UserID: 1, Client: c, RawData: []byte(`{"type":"plan.zoom"}`)})
	m := recv(t, c)
	assert.Equal(t, service.MessageError, m.Type)
	assert.Equal(t, "Failed to apply change", m.Message)

	// the loop keeps serving
	h.StateChanged(1)
	assert.Equal(t, service.MessageState, recv(t, c).Type)
	assert.Equal(t, service.MessagePlan, recv(t, c).Type)
}

func TestNewHub_PanicsWithoutDesigner(t *testing.T) {
	assert.Panics(t, func() { NewHub(nil) })
}
