package view

import "sync"

// DragState is the state of a DragMachine.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Capture is acquired on entering Dragging and released on leaving it.
type Capture interface {
	Acquire(itemID string)
	Release(itemID string)
}

type noCapture struct{}

func (noCapture) Acquire(string) {}
func (noCapture) Release(string) {}

// DragMachine is the Idle -> Dragging -> Idle machine of one view.
// While Dragging, pointer moves are routed to the captured item.
type DragMachine struct {
	mu      sync.Mutex
	state   DragState
	itemID  string
	capture Capture
}

// NewDragMachine creates an idle machine. A nil capture is a no-op.
func NewDragMachine(capture Capture) *DragMachine {
	if capture == nil {
		capture = noCapture{}
	}
	return &DragMachine{capture: capture}
}

// Begin enters Dragging for itemID. It fails if a drag is already in progress.
func (m *DragMachine) Begin(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Dragging || itemID == "" {
		return false
	}
	m.state = Dragging
	m.itemID = itemID
	m.capture.Acquire(itemID)
	return true
}

// End returns to Idle and reports the item that was being dragged.
func (m *DragMachine) End() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Dragging {
		return "", false
	}
	id := m.itemID
	m.capture.Release(id)
	m.state = Idle
	m.itemID = ""
	return id, true
}

// Target returns the captured item while Dragging.
func (m *DragMachine) Target() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemID, m.state == Dragging
}

// State returns the current state.
func (m *DragMachine) State() DragState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsDragging reports whether itemID is the captured item.
func (m *DragMachine) IsDragging(itemID string) bool {
	id, ok := m.Target()
	return ok && id == itemID
}
