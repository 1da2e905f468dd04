package store

import "room-designer/internal/domain"

// CopySuffix is appended to the name of a duplicated design.
const CopySuffix = " (Copy)"

// DesignInput is what SaveDesign snapshots.
type DesignInput struct {
	Name         string                 `json:"name"`
	RoomSettings domain.RoomSettings    `json:"roomSettings"`
	Furniture    []domain.FurnitureItem `json:"furniture"`
	Metadata     map[string]string      `json:"metadata,omitempty"`
}

// Designs returns copies of all saved designs in save order.
func (s *Store) Designs() []domain.Design {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Design, len(s.designs))
	for i, d := range s.designs {
		out[i] = d.Clone()
	}
	return out
}

// Design returns a copy of the saved design with the given id.
func (s *Store) Design(id string) (domain.Design, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.designIndex(id); i >= 0 {
		return s.designs[i].Clone(), true
	}
	return domain.Design{}, false
}

// SaveDesign appends a deep copy of in with a new id and timestamp.
func (s *Store) SaveDesign(in DesignInput) domain.Design {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := domain.Design{
		ID:           s.ids.DesignID(),
		Name:         in.Name,
		Timestamp:    s.now(),
		Metadata:     in.Metadata,
		RoomSettings: in.RoomSettings.Normalized(),
		Furniture:    in.Furniture,
	}
	d = d.Clone()
	s.designs = append(s.designs, d)
	return d.Clone()
}

// SaveCurrent saves the live room and furniture under name.
func (s *Store) SaveCurrent(name string) domain.Design {
	return s.SaveDesign(DesignInput{
		Name:         name,
		RoomSettings: s.RoomSettings(),
		Furniture:    s.Furniture(),
	})
}

// EditDesign merges patch into a saved design in place and stamps lastModified.
func (s *Store) EditDesign(id string, patch domain.DesignPatch) (domain.Design, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.designIndex(id)
	if i < 0 {
		s.noop("editDesign", id)
		return domain.Design{}, false
	}
	d := &s.designs[i]
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.RoomSettings != nil {
		d.RoomSettings = patch.RoomSettings.Normalized()
	}
	if patch.Furniture != nil {
		d.Furniture = domain.CloneFurniture(patch.Furniture)
	}
	if patch.Metadata != nil {
		d.Metadata = mergeMetadata(d.Metadata, patch.Metadata)
	}
	s.touch(d)
	return d.Clone(), true
}

// UpdateDesign is EditDesign under the name the dashboard uses.
func (s *Store) UpdateDesign(id string, patch domain.DesignPatch) (domain.Design, bool) {
	return s.EditDesign(id, patch)
}

// AddDesignMetadata merges metadata keys into a saved design.
func (s *Store) AddDesignMetadata(id string, metadata map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.designIndex(id)
	if i < 0 {
		s.noop("addDesignMetadata", id)
		return false
	}
	s.designs[i].Metadata = mergeMetadata(s.designs[i].Metadata, metadata)
	s.touch(&s.designs[i])
	return true
}

// DuplicateDesign appends a clone with a new id, a new timestamp and the copy suffix.
func (s *Store) DuplicateDesign(id string) (domain.Design, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.designIndex(id)
	if i < 0 {
		s.noop("duplicateDesign", id)
		return domain.Design{}, false
	}
	dup := s.designs[i].Clone()
	dup.ID = s.ids.DesignID()
	dup.Name += CopySuffix
	dup.Timestamp = s.now()
	dup.LastModified = nil
	s.designs = append(s.designs, dup)
	return dup.Clone(), true
}

// DeleteDesign removes a saved design. Deleting the active design clears the active pointer.
func (s *Store) DeleteDesign(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.designIndex(id)
	if i < 0 {
		s.noop("deleteDesign", id)
		return false
	}
	s.designs = append(s.designs[:i:i], s.designs[i+1:]...)
	if s.activeDesign != nil && s.activeDesign.ID == id {
		s.activeDesign = nil
	}
	return true
}

// ClearDesigns drops every saved design and the active pointer.
func (s *Store) ClearDesigns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.designs = []domain.Design{}
	s.activeDesign = nil
}

// LoadDesign copies a saved design into the live state and marks it active.
func (s *Store) LoadDesign(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.designIndex(id)
	if i < 0 {
		s.noop("loadDesign", id)
		return false
	}
	s.activate(s.designs[i])
	return true
}

// SetActiveDesign copies design into the live state and marks it active.
func (s *Store) SetActiveDesign(design domain.Design) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activate(design)
}

func (s *Store) activate(d domain.Design) {
	active := d.Clone()
	s.activeDesign = &active
	s.roomSettings = d.RoomSettings.Normalized()
	s.furniture = domain.CloneFurniture(d.Furniture)
}

func (s *Store) touch(d *domain.Design) {
	t := s.now()
	d.LastModified = &t
}

func (s *Store) designIndex(id string) int {
	for i := range s.designs {
		if s.designs[i].ID == id {
			return i
		}
	}
	return -1
}

func mergeMetadata(dst, src map[string]string) map[string]string {
	out := make(map[string]string, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
