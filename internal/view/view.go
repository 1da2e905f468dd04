// Package view holds what the 2D plan and the 3D scene share: the furniture
// model they both write to, one selection, and the drag state machine.
package view

import (
	"sync"

	"room-designer/internal/domain"
)

// Model is the design state both views observe and mutate. *store.Store implements it.
type Model interface {
	Item(id string) (domain.FurnitureItem, bool)
	Furniture() []domain.FurnitureItem
	RoomSettings() domain.RoomSettings
	UpdateFurniture(id string, patch domain.FurniturePatch) (domain.FurnitureItem, bool)
}

// Selection is the single selected-item identity shared by both views.
type Selection struct {
	mu sync.RWMutex
	id string
}

// Select marks id as selected. An empty id clears the selection.
func (s *Selection) Select(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

// Clear drops the selection.
func (s *Selection) Clear() { s.Select("") }

// Selected returns the selected id.
func (s *Selection) Selected() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.id != ""
}

// Is reports whether id is the selected item.
func (s *Selection) Is(id string) bool {
	got, ok := s.Selected()
	return ok && got == id
}
