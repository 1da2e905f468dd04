// Package plan2d is the top-down 2D view: the room as a scaled rectangle and
// each furniture item as a draggable, rotatable oriented rectangle.
package plan2d

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"room-designer/internal/catalog"
	"room-designer/internal/domain"
	"room-designer/internal/view"
)

// handleGap is how far beyond the item's edge the rotation handle sits, in pixels.
const handleGap = 20.0

// maxGridLines caps the lines drawn along one axis. Room dimensions are
// bounded upstream; this keeps a bad value from sizing a huge slice.
const maxGridLines = int(domain.MaxRoomDimension)

// Point is a canvas position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func pt(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

// Vec converts to a gonum vector.
func (p Point) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Rect is an axis aligned rectangle on the canvas.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Fill   string  `json:"fill"`
	Stroke string  `json:"stroke"`
}

// GridLine is one grid line with its meter label.
type GridLine struct {
	From  Point  `json:"from"`
	To    Point  `json:"to"`
	Label string `json:"label"`
}

// Shape is a furniture item drawn as an oriented rectangle.
type Shape struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Anchor      Point    `json:"anchor"`
	RotationDeg float64  `json:"rotationDeg"`
	Width       float64  `json:"width"`
	Depth       float64  `json:"depth"`
	Corners     [4]Point `json:"corners"`
	Handle      Point    `json:"handle"`
	Color       string   `json:"color"`
	Selected    bool     `json:"selected"`
}

// Layout is everything the 2D canvas draws.
type Layout struct {
	Scale    float64    `json:"scale"`
	ShowGrid bool       `json:"showGrid"`
	Room     Rect       `json:"room"`
	Grid     []GridLine `json:"grid,omitempty"`
	Items    []Shape    `json:"items"`
}

// Adapter is the 2D view of one design session. Zoom and grid are view-local.
type Adapter struct {
	mu        sync.Mutex
	model     view.Model
	selection *view.Selection
	drag      *view.DragMachine
	catalog   *catalog.Catalog
	viewport  Viewport
	showGrid  bool
}

// NewAdapter wires the 2D view to the shared model and selection.
func NewAdapter(model view.Model, selection *view.Selection, cat *catalog.Catalog, capture view.Capture) *Adapter {
	if model == nil || selection == nil || cat == nil {
		panic("model, selection and catalog are required for plan2d.Adapter")
	}
	return &Adapter{
		model:     model,
		selection: selection,
		drag:      view.NewDragMachine(capture),
		catalog:   cat,
		viewport:  NewViewport(0, 0),
		showGrid:  true,
	}
}

// Resize sets the canvas size in pixels.
func (a *Adapter) Resize(width, height float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewport.Width, a.viewport.Height = width, height
}

// Zoom changes the scale by steps and returns the new pixels-per-meter.
func (a *Adapter) Zoom(steps int) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.viewport = a.viewport.Zoom(steps)
	return a.viewport.Scale
}

// SetGrid toggles the grid overlay.
func (a *Adapter) SetGrid(show bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.showGrid = show
}

// Viewport returns the current mapping.
func (a *Adapter) Viewport() Viewport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewport
}

// Click selects an item. An empty id clears the selection.
func (a *Adapter) Click(id string) bool {
	if id == "" {
		a.selection.Clear()
		return true
	}
	if _, ok := a.model.Item(id); !ok {
		return false
	}
	a.selection.Select(id)
	return true
}

// DragStart captures an item for dragging and selects it.
func (a *Adapter) DragStart(id string) bool {
	if _, ok := a.model.Item(id); !ok {
		return false
	}
	a.selection.Select(id)
	return a.drag.Begin(id)
}

// DragMove moves the captured item so its anchor sits at p. y is unchanged.
func (a *Adapter) DragMove(p Point) (domain.FurnitureItem, bool) {
	id, dragging := a.drag.Target()
	if !dragging {
		return domain.FurnitureItem{}, false
	}
	item, ok := a.model.Item(id)
	if !ok {
		a.drag.End()
		return domain.FurnitureItem{}, false
	}
	return a.moveTo(item, p.Vec())
}

// DragEnd releases the captured item.
func (a *Adapter) DragEnd() (string, bool) {
	return a.drag.End()
}

// Dragging exposes the drag machine state.
func (a *Adapter) Dragging() view.DragState { return a.drag.State() }

// DragBy moves an item by a canvas delta in pixels.
func (a *Adapter) DragBy(id string, dx, dy float64) (domain.FurnitureItem, bool) {
	item, ok := a.model.Item(id)
	if !ok {
		return domain.FurnitureItem{}, false
	}
	anchor := a.anchor(item)
	return a.moveTo(item, r2.Add(anchor, r2.Vec{X: dx, Y: dy}))
}

// RotateTo sets the yaw from the rotation handle: atan2(dy, dx) between the
// pointer and the item's anchor.
func (a *Adapter) RotateTo(id string, pointer Point) (domain.FurnitureItem, bool) {
	item, ok := a.model.Item(id)
	if !ok {
		return domain.FurnitureItem{}, false
	}
	d := r2.Sub(pointer.Vec(), a.anchor(item))
	if d.X == 0 && d.Y == 0 {
		return item, false
	}
	rot := domain.Vec3{0, math.Atan2(d.Y, d.X), 0}
	return a.model.UpdateFurniture(id, domain.FurniturePatch{Rotation: &rot})
}

// Anchor returns the canvas position of an item's center.
func (a *Adapter) Anchor(id string) (Point, bool) {
	item, ok := a.model.Item(id)
	if !ok {
		return Point{}, false
	}
	return pt(a.anchor(item)), true
}

func (a *Adapter) anchor(item domain.FurnitureItem) r2.Vec {
	vp := a.Viewport()
	return vp.ToCanvas(a.model.RoomSettings(), item.Position[0], item.Position[2])
}

func (a *Adapter) moveTo(item domain.FurnitureItem, p r2.Vec) (domain.FurnitureItem, bool) {
	vp := a.Viewport()
	if vp.Scale <= 0 {
		return domain.FurnitureItem{}, false
	}
	x, z := vp.ToWorld(a.model.RoomSettings(), p)
	pos := domain.Vec3{x, item.Position[1], z}
	return a.model.UpdateFurniture(item.ID, domain.FurniturePatch{Position: &pos})
}

// Layout computes the room rectangle, grid and item shapes.
func (a *Adapter) Layout() Layout {
	room := a.model.RoomSettings()
	items := a.model.Furniture()

	a.mu.Lock()
	vp, showGrid := a.viewport, a.showGrid
	a.mu.Unlock()

	origin := vp.Origin(room)
	out := Layout{
		Scale:    vp.Scale,
		ShowGrid: showGrid,
		Room: Rect{
			X: origin.X, Y: origin.Y,
			Width: room.Width * vp.Scale, Height: room.Length * vp.Scale,
			Fill: room.FloorColor, Stroke: room.WallColor,
		},
		Items: make([]Shape, 0, len(items)),
	}
	if showGrid {
		out.Grid = grid(origin, room, vp.Scale)
	}
	for _, item := range items {
		out.Items = append(out.Items, a.shape(vp, room, item))
	}
	return out
}

func (a *Adapter) shape(vp Viewport, room domain.RoomSettings, item domain.FurnitureItem) Shape {
	dims := a.catalog.Dimensions(item.Type)
	name := item.Type
	if e, ok := a.catalog.Lookup(item.Type); ok {
		name = e.Name
	}
	scale := item.Scale
	if scale <= 0 {
		scale = 1
	}
	w := dims.Width * scale * vp.Scale
	d := dims.Depth * scale * vp.Scale
	yaw := item.Rotation[1]
	anchor := vp.ToCanvas(room, item.Position[0], item.Position[2])

	local := [4]r2.Vec{{X: -w / 2, Y: -d / 2}, {X: w / 2, Y: -d / 2}, {X: w / 2, Y: d / 2}, {X: -w / 2, Y: d / 2}}
	var corners [4]Point
	for i, c := range local {
		corners[i] = pt(r2.Rotate(r2.Add(anchor, c), yaw, anchor))
	}
	handle := r2.Rotate(r2.Add(anchor, r2.Vec{X: w/2 + handleGap}), yaw, anchor)

	return Shape{
		ID:          item.ID,
		Type:        item.Type,
		Name:        name,
		Anchor:      pt(anchor),
		RotationDeg: yaw * 180 / math.Pi,
		Width:       w,
		Depth:       d,
		Corners:     corners,
		Handle:      pt(handle),
		Color:       item.Color,
		Selected:    a.selection.Is(item.ID),
	}
}

// grid draws one line per started meter along each axis, labelled from 0.
func grid(origin r2.Vec, room domain.RoomSettings, scale float64) []GridLine {
	cols := gridLines(room.Width)
	rows := gridLines(room.Length)
	lines := make([]GridLine, 0, cols+rows)
	for i := 0; i < cols; i++ {
		x := origin.X + float64(i)*scale
		lines = append(lines, GridLine{
			From:  Point{X: x, Y: origin.Y},
			To:    Point{X: x, Y: origin.Y + room.Length*scale},
			Label: fmt.Sprintf("%dm", i),
		})
	}
	for i := 0; i < rows; i++ {
		y := origin.Y + float64(i)*scale
		lines = append(lines, GridLine{
			From:  Point{X: origin.X, Y: y},
			To:    Point{X: origin.X + room.Width*scale, Y: y},
			Label: fmt.Sprintf("%dm", i),
		})
	}
	return lines
}

// gridLines is the number of 1 m lines along a side of length meters.
func gridLines(meters float64) int {
	if !(meters > 0) {
		return 0
	}
	if meters >= float64(maxGridLines) {
		return maxGridLines
	}
	return int(math.Ceil(meters))
}
