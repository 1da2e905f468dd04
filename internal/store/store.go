// Package store is the single source of truth for the room being edited
// and the list of saved designs. Every operation is total: lookups that
// miss leave the state untouched and report changed=false.
package store

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"room-designer/internal/catalog"
	"room-designer/internal/domain"
)

// Store holds one user's live room, furniture, saved designs and templates.
type Store struct {
	mu sync.RWMutex

	roomSettings domain.RoomSettings
	furniture    []domain.FurnitureItem
	designs      []domain.Design
	activeDesign *domain.Design
	templates    []domain.RoomTemplate

	ids     IDGenerator
	now     func() time.Time
	catalog *catalog.Catalog
	log     *logrus.Entry
}

// Option configures a Store.
type Option func(*Store)

// WithIDs overrides the id generator.
func WithIDs(ids IDGenerator) Option {
	return func(s *Store) { s.ids = ids }
}

// WithClock overrides the time source used for design timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCatalog sets the catalog consulted for default scales.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Store) { s.catalog = c }
}

// WithLogger sets the entry used for no-op debug logs.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) { s.log = log }
}

// New returns a store holding the default room, no furniture and the default templates.
func New(opts ...Option) *Store {
	s := &Store{
		roomSettings: domain.DefaultRoomSettings(),
		furniture:    []domain.FurnitureItem{},
		designs:      []domain.Design{},
		templates:    catalog.DefaultTemplates(),
		ids:          NewDefaultIDs(),
		now:          time.Now,
		catalog:      catalog.Default(),
		log:          logrus.WithField("component", "design_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultState is the state of a fresh workspace.
func DefaultState() domain.DesignState {
	return domain.DesignState{
		Designs:       []domain.Design{},
		RoomSettings:  domain.DefaultRoomSettings(),
		Furniture:     []domain.FurnitureItem{},
		RoomTemplates: catalog.DefaultTemplates(),
	}
}

// RoomSettings returns the live room settings.
func (s *Store) RoomSettings() domain.RoomSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomSettings
}

// SetRoomSettings replaces the room settings wholesale. Colors are lowercased;
// dimension minimums are the caller's concern.
func (s *Store) SetRoomSettings(settings domain.RoomSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomSettings = settings.Normalized()
}

// ActiveDesign returns a copy of the active design, if any.
func (s *Store) ActiveDesign() (domain.Design, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeDesign == nil {
		return domain.Design{}, false
	}
	return s.activeDesign.Clone(), true
}

// ResetDesign clears the active design and restores the default empty room.
func (s *Store) ResetDesign() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDesign = nil
	s.roomSettings = domain.DefaultRoomSettings()
	s.furniture = []domain.FurnitureItem{}
}

// ClearCurrentDesign is ResetDesign under the name the design manager uses.
func (s *Store) ClearCurrentDesign() { s.ResetDesign() }

// Snapshot returns a deep copy of the whole state for persistence.
func (s *Store) Snapshot() domain.DesignState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := domain.DesignState{
		Designs:       make([]domain.Design, len(s.designs)),
		RoomSettings:  s.roomSettings,
		Furniture:     domain.CloneFurniture(s.furniture),
		RoomTemplates: make([]domain.RoomTemplate, len(s.templates)),
	}
	for i, d := range s.designs {
		st.Designs[i] = d.Clone()
	}
	for i, t := range s.templates {
		st.RoomTemplates[i] = t.Clone()
	}
	if s.activeDesign != nil {
		d := s.activeDesign.Clone()
		st.ActiveDesign = &d
	}
	return st
}

// Restore replaces the whole state with a deep copy of st.
func (s *Store) Restore(st domain.DesignState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomSettings = st.RoomSettings.Normalized()
	s.furniture = domain.CloneFurniture(st.Furniture)
	s.designs = make([]domain.Design, 0, len(st.Designs))
	for _, d := range st.Designs {
		s.designs = append(s.designs, d.Clone())
	}
	s.templates = make([]domain.RoomTemplate, 0, len(st.RoomTemplates))
	for _, t := range st.RoomTemplates {
		s.templates = append(s.templates, t.Clone())
	}
	s.activeDesign = nil
	if st.ActiveDesign != nil {
		d := st.ActiveDesign.Clone()
		s.activeDesign = &d
	}
}

func (s *Store) noop(op, id string) {
	s.log.WithFields(logrus.Fields{"op": op, "id": id}).Debug("Store operation matched nothing")
}
