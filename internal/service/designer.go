package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"room-designer/internal/catalog"
	"room-designer/internal/domain"
	"room-designer/internal/store"
	"room-designer/internal/tasks"
	"room-designer/internal/view"
)

// StatePersister loads and saves the whole design state of a user.
// *persist.Adapter implements it.
type StatePersister interface {
	Load(ctx context.Context, userID uint) (domain.DesignState, error)
	Save(ctx context.Context, userID uint, st domain.DesignState) error
}

// TaskEnqueuer is the part of *asynq.Client the designer uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ChangePublisher tells other server instances that a user's state changed.
type ChangePublisher interface {
	PublishChange(ctx context.Context, userID uint) error
}

// ChangeNotifier is told, in this process, that a user's state or selection changed.
type ChangeNotifier interface {
	StateChanged(userID uint)
}

// StateView is the designer state together with the shared selection.
type StateView struct {
	State      domain.DesignState `json:"state"`
	SelectedID string             `json:"selectedId,omitempty"`
}

// session is the live workspace of one user: one store and one selection
// shared by every open view.
type session struct {
	mu        sync.Mutex
	userID    uint
	store     *store.Store
	selection *view.Selection
	views     int
	lastUsed  time.Time
}

// DesignerService owns the per-user design sessions and persists every change.
type DesignerService struct {
	persister StatePersister
	enqueuer  TaskEnqueuer
	publisher ChangePublisher
	catalog   *catalog.Catalog
	resolver  *catalog.Resolver

	mu       sync.Mutex
	sessions map[uint]*session
	now      func() time.Time

	// separate from mu: notify runs with a session lock held
	notifyMu sync.RWMutex
	notifier ChangeNotifier
}

// NewDesignerService creates the service. enqueuer and publisher may be nil.
func NewDesignerService(persister StatePersister, cat *catalog.Catalog, resolver *catalog.Resolver, enqueuer TaskEnqueuer, publisher ChangePublisher) *DesignerService {
	if persister == nil {
		panic("StatePersister cannot be nil for DesignerService")
	}
	if cat == nil {
		cat = catalog.Default()
	}
	if resolver == nil {
		resolver = catalog.NewResolver(cat, nil)
	}
	return &DesignerService{
		persister: persister,
		enqueuer:  enqueuer,
		publisher: publisher,
		catalog:   cat,
		resolver:  resolver,
		sessions:  make(map[uint]*session),
		now:       time.Now,
	}
}

// SetNotifier registers the in-process listener for changes.
func (s *DesignerService) SetNotifier(n ChangeNotifier) {
	s.notifyMu.Lock()
	s.notifier = n
	s.notifyMu.Unlock()
}

// Catalog returns the furniture catalog.
func (s *DesignerService) Catalog() *catalog.Catalog { return s.catalog }

func (s *DesignerService) session(ctx context.Context, userID uint) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	st, err := s.persister.Load(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to load design state")
		return nil, ErrInternalServer
	}
	fresh := &session{
		userID:    userID,
		store:     s.newStore(userID),
		selection: &view.Selection{},
		lastUsed:  s.now(),
	}
	fresh.store.Restore(st)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[userID]; ok {
		return existing, nil
	}
	s.sessions[userID] = fresh
	return fresh, nil
}

func (s *DesignerService) newStore(userID uint) *store.Store {
	return store.New(
		store.WithCatalog(s.catalog),
		store.WithLogger(logrus.WithFields(logrus.Fields{"component": "design_store", "user_id": userID})),
	)
}

// mutate runs fn under the session lock and commits when fn reports a change.
func (s *DesignerService) mutate(ctx context.Context, userID uint, op string, fn func(st *store.Store) bool) error {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.now()
	if !fn(sess.store) {
		return nil
	}
	return s.commit(ctx, sess, op)
}

// commit saves the session, schedules its archive and announces the change.
// Callers hold sess.mu.
func (s *DesignerService) commit(ctx context.Context, sess *session, op string) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": sess.userID, "operation": op})

	if err := s.persister.Save(ctx, sess.userID, sess.store.Snapshot()); err != nil {
		logCtx.WithError(err).Error("Failed to persist design state")
		return ErrInternalServer
	}
	s.scheduleArchive(ctx, sess.userID, logCtx)
	if s.publisher != nil {
		if err := s.publisher.PublishChange(ctx, sess.userID); err != nil {
			logCtx.WithError(err).Warn("Failed to publish state change")
		}
	}
	s.notify(sess.userID)
	return nil
}

func (s *DesignerService) scheduleArchive(ctx context.Context, userID uint, logCtx *logrus.Entry) {
	if s.enqueuer == nil {
		return
	}
	task, opts, err := tasks.NewStateArchiveTask(userID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build archive task")
		return
	}
	if _, err := s.enqueuer.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return
		}
		// the periodic sweep still archives the dirty slot
		logCtx.WithError(err).Warn("Failed to enqueue archive task")
	}
}

func (s *DesignerService) notify(userID uint) {
	s.notifyMu.RLock()
	n := s.notifier
	s.notifyMu.RUnlock()
	if n != nil {
		n.StateChanged(userID)
	}
}

// Reload replaces a cached session's state with the persisted one. It is
// used when another instance changed the user's state.
func (s *DesignerService) Reload(ctx context.Context, userID uint) (bool, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	st, err := s.persister.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("reload state of user %d: %w", userID, err)
	}
	sess.mu.Lock()
	sess.store.Restore(st)
	if id, ok := sess.selection.Selected(); ok {
		if _, exists := sess.store.Item(id); !exists {
			sess.selection.Clear()
		}
	}
	sess.mu.Unlock()
	s.notify(userID)
	return true, nil
}

// EvictIdle drops sessions with no open view that were unused for maxIdle.
func (s *DesignerService) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.views == 0 && sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// ActiveUsers lists the users with a cached session.
func (s *DesignerService) ActiveUsers() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// --- State & room ---

// State returns the user's state and selection.
func (s *DesignerService) State(ctx context.Context, userID uint) (StateView, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return StateView{}, err
	}
	return sess.stateView(), nil
}

func (sess *session) stateView() StateView {
	id, _ := sess.selection.Selected()
	return StateView{State: sess.store.Snapshot(), SelectedID: id}
}

// SetRoomSettings replaces the room settings. Every dimension must lie in
// (0, domain.MaxRoomDimension].
func (s *DesignerService) SetRoomSettings(ctx context.Context, userID uint, room domain.RoomSettings) (domain.RoomSettings, error) {
	if !room.HasValidDimensions() {
		return domain.RoomSettings{}, fmt.Errorf("%w: room dimensions must be positive and at most %gm", ErrInvalidInput, domain.MaxRoomDimension)
	}
	var out domain.RoomSettings
	err := s.mutate(ctx, userID, "SetRoomSettings", func(st *store.Store) bool {
		st.SetRoomSettings(room)
		out = st.RoomSettings()
		return true
	})
	return out, err
}

// Reset clears the active design and restores the default room.
func (s *DesignerService) Reset(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, "ResetDesign", func(st *store.Store) bool {
		st.ResetDesign()
		return true
	})
}

// --- Furniture ---

var (
	errScale     = fmt.Errorf("%w: scale must be positive", ErrInvalidInput)
	errMaterials = fmt.Errorf("%w: materials must lie in [0,1]", ErrInvalidInput)
)

// AddFurniture places a new item in the room.
func (s *DesignerService) AddFurniture(ctx context.Context, userID uint, in store.NewFurniture) (domain.FurnitureItem, error) {
	if in.Type == "" {
		return domain.FurnitureItem{}, fmt.Errorf("%w: furniture type is required", ErrInvalidInput)
	}
	if in.Scale != nil && !domain.ValidScale(*in.Scale) {
		return domain.FurnitureItem{}, errScale
	}
	if in.Materials != nil && !in.Materials.Valid() {
		return domain.FurnitureItem{}, errMaterials
	}
	var out domain.FurnitureItem
	err := s.mutate(ctx, userID, "AddFurniture", func(st *store.Store) bool {
		out = st.AddFurniture(in)
		return true
	})
	return out, err
}

// UpdateFurniture merges patch into an item. changed is false for an unknown id.
func (s *DesignerService) UpdateFurniture(ctx context.Context, userID uint, id string, patch domain.FurniturePatch) (item domain.FurnitureItem, changed bool, err error) {
	if patch.Scale != nil && !domain.ValidScale(*patch.Scale) {
		return domain.FurnitureItem{}, false, errScale
	}
	if patch.Materials != nil && !patch.Materials.Valid() {
		return domain.FurnitureItem{}, false, errMaterials
	}
	if patch.Type != nil && *patch.Type == "" {
		return domain.FurnitureItem{}, false, fmt.Errorf("%w: furniture type cannot be empty", ErrInvalidInput)
	}
	err = s.mutate(ctx, userID, "UpdateFurniture", func(st *store.Store) bool {
		item, changed = st.UpdateFurniture(id, patch)
		return changed
	})
	return item, changed, err
}

// RemoveFurniture deletes an item and drops it from the selection.
func (s *DesignerService) RemoveFurniture(ctx context.Context, userID uint, id string) (changed bool, err error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return false, err
	}
	err = s.mutate(ctx, userID, "RemoveFurniture", func(st *store.Store) bool {
		changed = st.RemoveFurniture(id)
		if changed && sess.selection.Is(id) {
			sess.selection.Clear()
		}
		return changed
	})
	return changed, err
}

// ClearFurniture empties the room.
func (s *DesignerService) ClearFurniture(ctx context.Context, userID uint) error {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, userID, "ClearFurniture", func(st *store.Store) bool {
		st.ClearFurniture()
		sess.selection.Clear()
		return true
	})
}

// --- Designs ---

// SaveDesign saves the current room and furniture as a new design.
func (s *DesignerService) SaveDesign(ctx context.Context, userID uint, name string, metadata map[string]string) (domain.Design, error) {
	if name == "" {
		return domain.Design{}, fmt.Errorf("%w: design name is required", ErrInvalidInput)
	}
	var out domain.Design
	err := s.mutate(ctx, userID, "SaveDesign", func(st *store.Store) bool {
		out = st.SaveDesign(store.DesignInput{
			Name:         name,
			RoomSettings: st.RoomSettings(),
			Furniture:    st.Furniture(),
			Metadata:     metadata,
		})
		return true
	})
	return out, err
}

// EditDesign merges patch into a saved design.
func (s *DesignerService) EditDesign(ctx context.Context, userID uint, id string, patch domain.DesignPatch) (d domain.Design, changed bool, err error) {
	if patch.Name != nil && *patch.Name == "" {
		return domain.Design{}, false, fmt.Errorf("%w: design name cannot be empty", ErrInvalidInput)
	}
	// loading the design later copies these into the live room
	if patch.RoomSettings != nil && !patch.RoomSettings.HasValidDimensions() {
		return domain.Design{}, false, fmt.Errorf("%w: room dimensions must be positive and at most %gm", ErrInvalidInput, domain.MaxRoomDimension)
	}
	err = s.mutate(ctx, userID, "EditDesign", func(st *store.Store) bool {
		d, changed = st.EditDesign(id, patch)
		return changed
	})
	return d, changed, err
}

// DuplicateDesign copies a saved design under "<name> (Copy)".
func (s *DesignerService) DuplicateDesign(ctx context.Context, userID uint, id string) (d domain.Design, changed bool, err error) {
	err = s.mutate(ctx, userID, "DuplicateDesign", func(st *store.Store) bool {
		d, changed = st.DuplicateDesign(id)
		return changed
	})
	return d, changed, err
}

// LoadDesign makes a saved design the working room.
func (s *DesignerService) LoadDesign(ctx context.Context, userID uint, id string) (changed bool, err error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return false, err
	}
	err = s.mutate(ctx, userID, "LoadDesign", func(st *store.Store) bool {
		changed = st.LoadDesign(id)
		if changed {
			sess.selection.Clear()
		}
		return changed
	})
	return changed, err
}

// AddDesignMetadata merges metadata into a saved design.
func (s *DesignerService) AddDesignMetadata(ctx context.Context, userID uint, id string, metadata map[string]string) (changed bool, err error) {
	err = s.mutate(ctx, userID, "AddDesignMetadata", func(st *store.Store) bool {
		changed = st.AddDesignMetadata(id, metadata)
		return changed
	})
	return changed, err
}

// DeleteDesign removes a saved design.
func (s *DesignerService) DeleteDesign(ctx context.Context, userID uint, id string) (changed bool, err error) {
	err = s.mutate(ctx, userID, "DeleteDesign", func(st *store.Store) bool {
		changed = st.DeleteDesign(id)
		return changed
	})
	return changed, err
}

// ClearDesigns removes every saved design.
func (s *DesignerService) ClearDesigns(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, "ClearDesigns", func(st *store.Store) bool {
		st.ClearDesigns()
		return true
	})
}

// --- Templates ---

// Templates lists the user's room templates.
func (s *DesignerService) Templates(ctx context.Context, userID uint) ([]domain.RoomTemplate, error) {
	sess, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.store.RoomTemplates(), nil
}

// ApplyTemplate copies a template's settings into the room.
func (s *DesignerService) ApplyTemplate(ctx context.Context, userID uint, id string) (changed bool, err error) {
	err = s.mutate(ctx, userID, "ApplyTemplate", func(st *store.Store) bool {
		changed = st.SetRoomTemplate(id)
		return changed
	})
	return changed, err
}

// UpsertTemplate adds or replaces a room template.
func (s *DesignerService) UpsertTemplate(ctx context.Context, userID uint, t domain.RoomTemplate) (domain.RoomTemplate, error) {
	if t.Name == "" {
		return domain.RoomTemplate{}, fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if !t.Settings.HasValidDimensions() {
		return domain.RoomTemplate{}, fmt.Errorf("%w: template dimensions must be positive and at most %gm", ErrInvalidInput, domain.MaxRoomDimension)
	}
	var out domain.RoomTemplate
	err := s.mutate(ctx, userID, "UpsertTemplate", func(st *store.Store) bool {
		out = st.UpdateRoomTemplate(t)
		return true
	})
	return out, err
}

// DeleteTemplate removes a room template.
func (s *DesignerService) DeleteTemplate(ctx context.Context, userID uint, id string) (changed bool, err error) {
	err = s.mutate(ctx, userID, "DeleteTemplate", func(st *store.Store) bool {
		changed = st.DeleteRoomTemplate(id)
		return changed
	})
	return changed, err
}
