// Package scene3d turns the design state into a 3D scene description and
// turns pointer interaction on the 3D canvas into furniture updates.
package scene3d

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"room-designer/internal/catalog"
	"room-designer/internal/domain"
	"room-designer/internal/view"
)

const wallThickness = 0.1

// Node is one furniture item as the renderer should draw it.
type Node struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Position       domain.Vec3            `json:"position"`
	Rotation       domain.Vec3            `json:"rotation"`
	Scale          float64                `json:"scale"`
	Color          string                 `json:"color"`
	Materials      domain.Materials       `json:"materials"`
	Representation catalog.Representation `json:"representation"`
	Selected       bool                   `json:"selected"`
	Hovered        bool                   `json:"hovered"`
}

// Shell is a box of the room enclosure (floor or wall).
type Shell struct {
	Name     string      `json:"name"`
	Size     domain.Vec3 `json:"size"`
	Position domain.Vec3 `json:"position"`
	Color    string      `json:"color"`
}

// Scene is the full description handed to the renderer.
type Scene struct {
	Room  []Shell `json:"room"`
	Nodes []Node  `json:"nodes"`
	// Animating is true while a hover pulse is still easing; the client
	// keeps sending scene.frame until it turns false.
	Animating bool `json:"animating"`
}

// Adapter is the 3D view of one design session.
type Adapter struct {
	mu        sync.Mutex
	model     view.Model
	selection *view.Selection
	drag      *view.DragMachine
	resolver  *catalog.Resolver

	reps    map[string]catalog.Representation
	pulses  map[string]*Pulse
	hovered map[string]bool
	log     *logrus.Entry
}

// NewAdapter wires the 3D view to the shared model and selection.
func NewAdapter(model view.Model, selection *view.Selection, resolver *catalog.Resolver, capture view.Capture) *Adapter {
	if model == nil || selection == nil || resolver == nil {
		panic("model, selection and resolver are required for scene3d.Adapter")
	}
	return &Adapter{
		model:     model,
		selection: selection,
		drag:      view.NewDragMachine(capture),
		resolver:  resolver,
		reps:      make(map[string]catalog.Representation),
		pulses:    make(map[string]*Pulse),
		hovered:   make(map[string]bool),
		log:       logrus.WithField("component", "scene3d"),
	}
}

// PointerDown starts dragging the item under the pointer and selects it.
func (a *Adapter) PointerDown(id string) bool {
	if _, ok := a.model.Item(id); !ok {
		return false
	}
	a.selection.Select(id)
	return a.drag.Begin(id)
}

// PointerMove moves the dragged item to where ray meets the item's height plane.
// The vertical coordinate is never changed by a drag.
func (a *Adapter) PointerMove(ray Ray) (domain.FurnitureItem, bool) {
	id, dragging := a.drag.Target()
	if !dragging {
		return domain.FurnitureItem{}, false
	}
	item, ok := a.model.Item(id)
	if !ok {
		// item removed mid-drag
		a.drag.End()
		return domain.FurnitureItem{}, false
	}
	y := item.Position[1]
	hit, ok := ray.IntersectHorizontal(y)
	if !ok {
		return domain.FurnitureItem{}, false
	}
	pos := domain.Vec3{hit.X, y, hit.Z}
	return a.model.UpdateFurniture(id, domain.FurniturePatch{Position: &pos})
}

// PointerUp ends the drag.
func (a *Adapter) PointerUp() (string, bool) {
	return a.drag.End()
}

// Dragging exposes the drag machine state.
func (a *Adapter) Dragging() view.DragState { return a.drag.State() }

// SetRotationDegrees sets the yaw of an item from the rotation slider.
// Only the vertical axis is editable; the others are zeroed.
func (a *Adapter) SetRotationDegrees(id string, degrees float64) (domain.FurnitureItem, bool) {
	rot := domain.Vec3{0, DegreesToYaw(degrees), 0}
	return a.model.UpdateFurniture(id, domain.FurniturePatch{Rotation: &rot})
}

// DegreesToYaw normalizes degrees into [0,360) and converts to radians.
func DegreesToYaw(degrees float64) float64 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return d * math.Pi / 180
}

// YawToDegrees is the slider value for a stored yaw.
func YawToDegrees(yaw float64) float64 {
	d := math.Mod(yaw*180/math.Pi, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// SetHovered records pointer hover over an item.
func (a *Adapter) SetHovered(id string, hovered bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if hovered {
		a.hovered[id] = true
	} else {
		delete(a.hovered, id)
	}
}

// Frame advances hover pulses by one frame and returns the scene.
func (a *Adapter) Frame() Scene {
	items := a.model.Furniture()
	room := a.model.RoomSettings()

	a.mu.Lock()
	defer a.mu.Unlock()

	live := make(map[string]bool, len(items))
	nodes := make([]Node, 0, len(items))
	animating := false
	for _, item := range items {
		live[item.ID] = true
		hovered := a.hovered[item.ID]
		active := hovered && !a.drag.IsDragging(item.ID)
		factor := 1.0
		p, ok := a.pulses[item.ID]
		if !ok && active {
			p = newPulse()
			a.pulses[item.ID] = p
			ok = true
		}
		if ok {
			factor = p.Step(active)
			if !p.resting(active) {
				animating = true
			}
		}

		nodes = append(nodes, Node{
			ID:             item.ID,
			Type:           item.Type,
			Position:       item.Position,
			Rotation:       item.Rotation,
			Scale:          item.Scale * factor,
			Color:          item.Color,
			Materials:      item.Materials,
			Representation: a.representation(item),
			Selected:       a.selection.Is(item.ID),
			Hovered:        hovered,
		})
	}
	a.prune(live)
	return Scene{Room: RoomShells(room), Nodes: nodes, Animating: animating}
}

// representation resolves once per item and reuses the result on later frames.
func (a *Adapter) representation(item domain.FurnitureItem) catalog.Representation {
	if rep, ok := a.reps[item.ID]; ok {
		return rep
	}
	rep := a.resolver.Resolve(item.Type)
	a.reps[item.ID] = rep
	a.log.WithFields(logrus.Fields{"id": item.ID, "type": item.Type, "kind": rep.Kind}).Debug("Representation resolved")
	return rep
}

func (a *Adapter) prune(live map[string]bool) {
	for id := range a.reps {
		if !live[id] {
			delete(a.reps, id)
		}
	}
	for id, p := range a.pulses {
		// a pulse back at 1 is recreated on demand
		if !live[id] || (!a.hovered[id] && p.resting(false)) {
			delete(a.pulses, id)
		}
	}
	for id := range a.hovered {
		if !live[id] {
			delete(a.hovered, id)
		}
	}
}

// RoomShells is the floor and four walls of the room, centered on the origin.
func RoomShells(r domain.RoomSettings) []Shell {
	w, l, h := r.Width, r.Length, r.Height
	return []Shell{
		{Name: "floor", Size: domain.Vec3{w, wallThickness, l}, Position: domain.Vec3{0, -h / 2, 0}, Color: r.FloorColor},
		{Name: "wallLeft", Size: domain.Vec3{wallThickness, h, l}, Position: domain.Vec3{-w / 2, 0, 0}, Color: r.WallColor},
		{Name: "wallRight", Size: domain.Vec3{wallThickness, h, l}, Position: domain.Vec3{w / 2, 0, 0}, Color: r.WallColor},
		{Name: "wallBack", Size: domain.Vec3{w, h, wallThickness}, Position: domain.Vec3{0, 0, -l / 2}, Color: r.WallColor},
		{Name: "wallFront", Size: domain.Vec3{w, h, wallThickness}, Position: domain.Vec3{0, 0, l / 2}, Color: r.WallColor},
	}
}
