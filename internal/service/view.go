package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"room-designer/internal/domain"
	"room-designer/internal/view"
	"room-designer/internal/view/plan2d"
	"room-designer/internal/view/scene3d"
)

// ViewKind names the renderer on the other end of a view socket.
type ViewKind string

const (
	ViewPlan  ViewKind = "2d"
	ViewScene ViewKind = "3d"
)

// ParseViewKind accepts "2d" and "3d". An empty string means 3d.
func ParseViewKind(s string) (ViewKind, error) {
	switch ViewKind(s) {
	case ViewPlan:
		return ViewPlan, nil
	case ViewScene, "":
		return ViewScene, nil
	}
	return "", fmt.Errorf("%w: unknown view %q", ErrInvalidInput, s)
}

// View event types sent by clients.
const (
	EventStateGet    = "state.get"
	EventPlanResize  = "plan.resize"
	EventPlanZoom    = "plan.zoom"
	EventPlanGrid    = "plan.grid"
	EventPlanSelect  = "plan.select"
	EventPlanDrag    = "plan.drag"
	EventPlanDragEnd = "plan.dragEnd"
	EventPlanRotate  = "plan.rotate"
	EventSceneDown   = "scene.pointerDown"
	EventSceneMove   = "scene.pointerMove"
	EventSceneUp     = "scene.pointerUp"
	EventSceneHover  = "scene.hover"
	EventSceneRotate = "scene.rotate"
	EventSceneFrame  = "scene.frame"
)

// Server message types.
const (
	MessageState = "state"
	MessagePlan  = "plan"
	MessageScene = "scene"
	MessageError = "error"
)

// ViewEvent is one client message. Only the fields of its type are read.
type ViewEvent struct {
	Type      string     `json:"type"`
	ID        string     `json:"id,omitempty"`
	X         float64    `json:"x,omitempty"`
	Y         float64    `json:"y,omitempty"`
	Width     float64    `json:"width,omitempty"`
	Height    float64    `json:"height,omitempty"`
	Delta     int        `json:"delta,omitempty"`
	Show      *bool      `json:"show,omitempty"`
	Hovered   bool       `json:"hovered,omitempty"`
	Degrees   float64    `json:"degrees,omitempty"`
	Origin    [3]float64 `json:"origin,omitempty"`
	Direction [3]float64 `json:"direction,omitempty"`
}

// ServerMessage is one message to a view client.
type ServerMessage struct {
	Type       string              `json:"type"`
	State      *domain.DesignState `json:"state,omitempty"`
	SelectedID string              `json:"selectedId,omitempty"`
	Layout     *plan2d.Layout      `json:"layout,omitempty"`
	Scene      *scene3d.Scene      `json:"scene,omitempty"`
	Message    string              `json:"message,omitempty"`
}

// ErrorMessage wraps text into an error message.
func ErrorMessage(text string) ServerMessage {
	return ServerMessage{Type: MessageError, Message: text}
}

// View is one open 2D or 3D view of a user's session. Zoom, grid, hover and
// drag state belong to the view; furniture and selection to the session.
type View struct {
	kind  ViewKind
	sess  *session
	plan  *plan2d.Adapter
	scene *scene3d.Adapter
}

// Kind returns the view kind.
func (v *View) Kind() ViewKind { return v.kind }

// UserID returns the owner of the viewed session.
func (v *View) UserID() uint { return v.sess.userID }

// OpenView attaches a new view to the user's session.
func (s *DesignerService) OpenView(ctx context.Context, userID uint, kind ViewKind) (*View, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := &View{kind: kind, sess: sess}
	switch kind {
	case ViewPlan:
		v.plan = plan2d.NewAdapter(sess.store, sess.selection, s.catalog, nil)
	case ViewScene:
		v.scene = scene3d.NewAdapter(sess.store, sess.selection, s.resolver, nil)
	default:
		return nil, fmt.Errorf("%w: unknown view %q", ErrInvalidInput, kind)
	}
	sess.mu.Lock()
	sess.views++
	sess.lastUsed = s.now()
	sess.mu.Unlock()
	return v, nil
}

// CloseView ends any drag of the view and detaches it.
func (s *DesignerService) CloseView(v *View) {
	if v == nil {
		return
	}
	v.sess.mu.Lock()
	defer v.sess.mu.Unlock()
	if v.plan != nil {
		v.plan.DragEnd()
	}
	if v.scene != nil {
		v.scene.PointerUp()
	}
	if v.sess.views > 0 {
		v.sess.views--
	}
	v.sess.lastUsed = s.now()
}

// Render returns the state message followed by the view's own rendering.
func (s *DesignerService) Render(v *View) []ServerMessage {
	v.sess.mu.Lock()
	defer v.sess.mu.Unlock()
	sv := v.sess.stateView()
	out := []ServerMessage{{Type: MessageState, State: &sv.State, SelectedID: sv.SelectedID}}
	return append(out, v.render())
}

func (v *View) render() ServerMessage {
	if v.plan != nil {
		layout := v.plan.Layout()
		return ServerMessage{Type: MessagePlan, Layout: &layout}
	}
	scene := v.scene.Frame()
	return ServerMessage{Type: MessageScene, Scene: &scene}
}

// HandleEvent applies one client event. Model changes are committed and
// announced to every view of the user through the notifier, so the reply
// only carries what concerns the sending view alone.
func (s *DesignerService) HandleEvent(ctx context.Context, v *View, ev ViewEvent) ([]ServerMessage, error) {
	sess := v.sess
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.now()

	logCtx := logrus.WithFields(logrus.Fields{"user_id": sess.userID, "view": v.kind, "event": ev.Type})

	var (
		changed  bool // model changed: persist and broadcast
		selected bool // selection changed: broadcast only
		reply    []ServerMessage
	)

	switch {
	case ev.Type == EventStateGet:
		sv := sess.stateView()
		reply = append(reply, ServerMessage{Type: MessageState, State: &sv.State, SelectedID: sv.SelectedID}, v.render())

	case v.plan != nil:
		p := v.plan
		switch ev.Type {
		case EventPlanResize:
			if ev.Width < 0 || ev.Height < 0 {
				return nil, fmt.Errorf("%w: negative canvas size", ErrInvalidViewEvent)
			}
			p.Resize(ev.Width, ev.Height)
			reply = append(reply, v.render())
		case EventPlanZoom:
			p.Zoom(ev.Delta)
			reply = append(reply, v.render())
		case EventPlanGrid:
			show := true
			if ev.Show != nil {
				show = *ev.Show
			}
			p.SetGrid(show)
			reply = append(reply, v.render())
		case EventPlanSelect:
			selected = p.Click(ev.ID)
		case EventPlanDrag:
			// later drag messages continue the captured item
			if p.Dragging() == view.Idle {
				selected = p.DragStart(ev.ID)
			}
			_, changed = p.DragMove(plan2d.Point{X: ev.X, Y: ev.Y})
		case EventPlanDragEnd:
			p.DragEnd()
		case EventPlanRotate:
			_, changed = p.RotateTo(ev.ID, plan2d.Point{X: ev.X, Y: ev.Y})
		default:
			return nil, fmt.Errorf("%w: %q on a 2d view", ErrInvalidViewEvent, ev.Type)
		}

	default:
		sc := v.scene
		switch ev.Type {
		case EventSceneDown:
			selected = sc.PointerDown(ev.ID)
		case EventSceneMove:
			_, changed = sc.PointerMove(scene3d.NewRay(ev.Origin, ev.Direction))
		case EventSceneUp:
			sc.PointerUp()
		case EventSceneHover:
			sc.SetHovered(ev.ID, ev.Hovered)
			reply = append(reply, v.render())
		case EventSceneRotate:
			_, changed = sc.SetRotationDegrees(ev.ID, ev.Degrees)
		case EventSceneFrame:
			reply = append(reply, v.render())
		default:
			return nil, fmt.Errorf("%w: %q on a 3d view", ErrInvalidViewEvent, ev.Type)
		}
	}

	if changed {
		if err := s.commit(ctx, sess, ev.Type); err != nil {
			return nil, err
		}
		return reply, nil
	}
	if selected {
		logCtx.Debug("Selection changed")
		s.notify(sess.userID)
	}
	return reply, nil
}
