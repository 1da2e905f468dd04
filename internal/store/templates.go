package store

import "room-designer/internal/domain"

// RoomTemplates returns copies of the template catalog.
func (s *Store) RoomTemplates() []domain.RoomTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomTemplate, len(s.templates))
	for i, t := range s.templates {
		out[i] = t.Clone()
	}
	return out
}

// SetRoomTemplate overwrites the live room settings with the template's.
func (s *Store) SetRoomTemplate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.templateIndex(key)
	if i < 0 {
		s.noop("setRoomTemplate", key)
		return false
	}
	s.roomSettings = s.templates[i].Settings.Normalized()
	return true
}

// UpdateRoomTemplate replaces the template with the same id, or appends it.
// A template without an id gets a fresh one.
func (s *Store) UpdateRoomTemplate(t domain.RoomTemplate) domain.RoomTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = t.Clone()
	t.Settings = t.Settings.Normalized()
	if t.ID == "" {
		t.ID = s.ids.DesignID()
	}
	if i := s.templateIndex(t.ID); i >= 0 {
		s.templates[i] = t
	} else {
		s.templates = append(s.templates, t)
	}
	return t.Clone()
}

// DeleteRoomTemplate removes a template by id.
func (s *Store) DeleteRoomTemplate(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.templateIndex(id)
	if i < 0 {
		s.noop("deleteRoomTemplate", id)
		return false
	}
	s.templates = append(s.templates[:i:i], s.templates[i+1:]...)
	return true
}

func (s *Store) templateIndex(id string) int {
	for i := range s.templates {
		if s.templates[i].ID == id {
			return i
		}
	}
	return -1
}
