package store

import "room-designer/internal/domain"

// NewFurniture is the input to AddFurniture. Nil/empty fields take defaults.
type NewFurniture struct {
	Type      string            `json:"type"`
	Position  domain.Vec3       `json:"position"`
	Rotation  domain.Vec3       `json:"rotation"`
	Scale     *float64          `json:"scale,omitempty"`
	Color     string            `json:"color,omitempty"`
	Materials *domain.Materials `json:"materials,omitempty"`
}

// Furniture returns a copy of the live furniture list.
func (s *Store) Furniture() []domain.FurnitureItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneFurniture(s.furniture)
}

// Item returns the furniture item with the given id.
func (s *Store) Item(id string) (domain.FurnitureItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.furniture[i], true
	}
	return domain.FurnitureItem{}, false
}

// AddFurniture appends a new item with a fresh id and returns it.
func (s *Store) AddFurniture(in NewFurniture) domain.FurnitureItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := domain.FurnitureItem{
		Type:      in.Type,
		Position:  in.Position,
		Rotation:  in.Rotation,
		Color:     domain.DefaultFurnitureColor,
		Materials: domain.DefaultMaterials(),
		Scale:     s.catalog.DefaultScale(in.Type),
	}
	if in.Color != "" {
		item.Color = domain.NormalizeColor(in.Color)
	}
	if in.Materials != nil {
		item.Materials = *in.Materials
	}
	if in.Scale != nil && *in.Scale > 0 {
		item.Scale = *in.Scale
	}
	// ids come from a generator but a collision would break every id lookup
	for item.ID = s.ids.FurnitureID(); s.indexOf(item.ID) >= 0; item.ID = s.ids.FurnitureID() {
	}
	s.furniture = append(s.furniture, item)
	return item
}

// UpdateFurniture merges patch into the item with the given id.
func (s *Store) UpdateFurniture(id string, patch domain.FurniturePatch) (domain.FurnitureItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.noop("updateFurniture", id)
		return domain.FurnitureItem{}, false
	}
	s.furniture[i] = patch.Apply(s.furniture[i])
	return s.furniture[i], true
}

// RemoveFurniture deletes the item with the given id.
func (s *Store) RemoveFurniture(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.noop("removeFurniture", id)
		return false
	}
	s.furniture = append(s.furniture[:i:i], s.furniture[i+1:]...)
	return true
}

// ClearFurniture empties the live furniture list.
func (s *Store) ClearFurniture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.furniture = []domain.FurnitureItem{}
}

func (s *Store) indexOf(id string) int {
	for i := range s.furniture {
		if s.furniture[i].ID == id {
			return i
		}
	}
	return -1
}
