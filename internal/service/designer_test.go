package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"room-designer/internal/catalog"
	"room-designer/internal/domain"
	"room-designer/internal/service"
	"room-designer/internal/store"
	"room-designer/internal/tasks"
)

// memPersister keeps states in memory and counts saves.
type memPersister struct {
	mu      sync.Mutex
	states  map[uint]domain.DesignState
	saves   int
	saveErr error
}

func newMemPersister() *memPersister {
	return &memPersister{states: make(map[uint]domain.DesignState)}
}

func (p *memPersister) Load(_ context.Context, userID uint) (domain.DesignState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[userID]; ok {
		return st, nil
	}
	return store.DefaultState(), nil
}

func (p *memPersister) Save(_ context.Context, userID uint, st domain.DesignState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.states[userID] = st
	p.saves++
	return nil
}

func (p *memPersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	var info *asynq.TaskInfo
	if v := args.Get(0); v != nil {
		info = v.(*asynq.TaskInfo)
	}
	return info, args.Error(1)
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []uint
}

func (n *recordingNotifier) StateChanged(userID uint) {
	n.mu.Lock()
	n.users = append(n.users, userID)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.users)
}

func newDesigner(t *testing.T) (*service.DesignerService, *memPersister, *recordingNotifier) {
	t.Helper()
	p := newMemPersister()
	d := service.NewDesignerService(p, catalog.Default(), nil, nil, nil)
	n := &recordingNotifier{}
	d.SetNotifier(n)
	return d, p, n
}

func TestDesigner_AddFurniturePersistsAndNotifies(t *testing.T) {
	d, p, n := newDesigner(t)
	ctx := context.Background()

	item, err := d.AddFurniture(ctx, 1, store.NewFurniture{Type: "chair", Position: domain.Vec3{1, 0, 1}})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, 1, p.saveCount())
	assert.Equal(t, 1, n.count())

	sv, err := d.State(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sv.State.Furniture, 1)
	assert.Equal(t, item.ID, sv.State.Furniture[0].ID)
}

func TestDesigner_ValidationErrors(t *testing.T) {
	d, p, _ := newDesigner(t)
	ctx := context.Background()

	_, err := d.AddFurniture(ctx, 1, store.NewFurniture{})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, err = d.SaveDesign(ctx, 1, "", nil)
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, err = d.SetRoomSettings(ctx, 1, domain.RoomSettings{Width: 0, Length: 5, Height: 3})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	empty := ""
	_, _, err = d.EditDesign(ctx, 1, "x", domain.DesignPatch{Name: &empty})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	assert.Equal(t, 0, p.saveCount())
}

func TestDesigner_RejectsOversizedRooms(t *testing.T) {
	d, p, _ := newDesigner(t)
	ctx := context.Background()
	huge := domain.RoomSettings{Width: 1e12, Length: 5, Height: 3}

	_, err := d.SetRoomSettings(ctx, 1, huge)
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, err = d.UpsertTemplate(ctx, 1, domain.RoomTemplate{Name: "Hangar", Settings: huge})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, _, err = d.EditDesign(ctx, 1, "x", domain.DesignPatch{RoomSettings: &huge})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, err = d.SetRoomSettings(ctx, 1, domain.RoomSettings{Width: domain.MaxRoomDimension, Length: 5, Height: 3})
	assert.NoError(t, err, "the bound itself is allowed")
	assert.Equal(t, 1, p.saveCount())
}

func TestDesigner_RejectsBadScaleAndMaterials(t *testing.T) {
	d, p, _ := newDesigner(t)
	ctx := context.Background()

	zero, neg, over := 0.0, -1.0, 1.5
	_, err := d.AddFurniture(ctx, 1, store.NewFurniture{Type: "chair", Scale: &zero})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))
	_, err = d.AddFurniture(ctx, 1, store.NewFurniture{Type: "chair", Materials: &domain.Materials{Roughness: 0.5, Metalness: 0.5, Opacity: over}})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	item, err := d.AddFurniture(ctx, 1, store.NewFurniture{Type: "chair"})
	require.NoError(t, err)

	_, _, err = d.UpdateFurniture(ctx, 1, item.ID, domain.FurniturePatch{Scale: &neg})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))
	_, _, err = d.UpdateFurniture(ctx, 1, item.ID, domain.FurniturePatch{Materials: &domain.MaterialsPatch{Metalness: &neg}})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	half := 0.5
	got, changed, err := d.UpdateFurniture(ctx, 1, item.ID, domain.FurniturePatch{Materials: &domain.MaterialsPatch{Opacity: &half}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0.5, got.Materials.Opacity)
	assert.Equal(t, 2, p.saveCount(), "only the valid add and update were saved")
}

func TestDesigner_UnknownIDIsSilentNoop(t *testing.T) {
	d, p, n := newDesigner(t)
	ctx := context.Background()

	color := "#000000"
	_, changed, err := d.UpdateFurniture(ctx, 1, "missing", domain.FurniturePatch{Color: &color})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = d.DeleteDesign(ctx, 1, "missing")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = d.LoadDesign(ctx, 1, "missing")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, 0, p.saveCount(), "no-ops are not persisted")
	assert.Equal(t, 0, n.count())
}

func TestDesigner_SaveFailureIsInternal(t *testing.T) {
	d, p, _ := newDesigner(t)
	p.saveErr = errors.New("redis down")

	_, err := d.AddFurniture(context.Background(), 1, store.NewFurniture{Type: "sofa"})
	assert.True(t, errors.Is(err, service.ErrInternalServer))
}

func TestDesigner_DesignLifecycle(t *testing.T) {
	d, _, _ := newDesigner(t)
	ctx := context.Background()

	_, err := d.SetRoomSettings(ctx, 1, domain.RoomSettings{Width: 6, Length: 8, Height: 3, WallColor: "#FFFFFF", FloorColor: "#F0F0F0"})
	require.NoError(t, err)
	saved, err := d.SaveDesign(ctx, 1, "Living Room", map[string]string{"style": "modern"})
	require.NoError(t, err)
	assert.Equal(t, 6.0, saved.RoomSettings.Width)
	assert.Equal(t, "#ffffff", saved.RoomSettings.WallColor)

	dup, changed, err := d.DuplicateDesign(ctx, 1, saved.ID)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, "Living Room (Copy)", dup.Name)
	assert.NotEqual(t, saved.ID, dup.ID)

	require.NoError(t, d.Reset(ctx, 1))
	sv, _ := d.State(ctx, 1)
	assert.Equal(t, domain.DefaultRoomWidth, sv.State.RoomSettings.Width)
	assert.Nil(t, sv.State.ActiveDesign)

	changed, err = d.LoadDesign(ctx, 1, saved.ID)
	require.NoError(t, err)
	require.True(t, changed)
	sv, _ = d.State(ctx, 1)
	assert.Equal(t, 6.0, sv.State.RoomSettings.Width)
	require.NotNil(t, sv.State.ActiveDesign)
	assert.Equal(t, saved.ID, sv.State.ActiveDesign.ID)

	changed, err = d.AddDesignMetadata(ctx, 1, saved.ID, map[string]string{"owner": "me"})
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, d.ClearDesigns(ctx, 1))
	sv, _ = d.State(ctx, 1)
	assert.Empty(t, sv.State.Designs)
}

func TestDesigner_Templates(t *testing.T) {
	d, _, _ := newDesigner(t)
	ctx := context.Background()

	templates, err := d.Templates(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, templates)

	changed, err := d.ApplyTemplate(ctx, 1, templates[0].ID)
	require.NoError(t, err)
	assert.True(t, changed)
	sv, _ := d.State(ctx, 1)
	assert.Equal(t, templates[0].Settings.Width, sv.State.RoomSettings.Width)

	tpl, err := d.UpsertTemplate(ctx, 1, domain.RoomTemplate{Name: "Studio", Settings: domain.RoomSettings{Width: 4, Length: 5, Height: 2.5}})
	require.NoError(t, err)
	assert.NotEmpty(t, tpl.ID)

	changed, err = d.DeleteTemplate(ctx, 1, tpl.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = d.UpsertTemplate(ctx, 1, domain.RoomTemplate{Settings: domain.RoomSettings{Width: 1, Length: 1, Height: 1}})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))
}

func TestDesigner_SessionsAreIsolatedPerUser(t *testing.T) {
	d, _, _ := newDesigner(t)
	ctx := context.Background()

	_, err := d.AddFurniture(ctx, 1, store.NewFurniture{Type: "chair"})
	require.NoError(t, err)

	sv, err := d.State(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, sv.State.Furniture)
	assert.ElementsMatch(t, []uint{1, 2}, d.ActiveUsers())
}

func TestDesigner_RemoveClearsSelection(t *testing.T) {
	d, _, _ := newDesigner(t)
	ctx := context.Background()

	item, _ := d.AddFurniture(ctx, 1, store.NewFurniture{Type: "chair"})
	v, err := d.OpenView(ctx, 1, service.ViewScene)
	require.NoError(t, err)
	_, err = d.HandleEvent(ctx, v, service.ViewEvent{Type: service.EventSceneDown, ID: item.ID})
	require.NoError(t, err)

	sv, _ := d.State(ctx, 1)
	assert.Equal(t, item.ID, sv.SelectedID)

	changed, err := d.RemoveFurniture(ctx, 1, item.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	sv, _ = d.State(ctx, 1)
	assert.Empty(t, sv.SelectedID)
}

func TestDesigner_EnqueuesArchiveTask(t *testing.T) {
	p := newMemPersister()
	enq := new(mockEnqueuer)
	d := service.NewDesignerService(p, nil, nil, enq, nil)
	ctx := context.Background()

	enq.On("EnqueueContext", ctx, mock.MatchedBy(func(task *asynq.Task) bool {
		pl, err := tasks.ParseStateArchivePayload(task.Payload())
		return task.Type() == tasks.TypeStateArchive && err == nil && pl.UserID == 7
	}), mock.Anything).Return(nil, nil).Once()
	enq.On("EnqueueContext", ctx, mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict).Once()

	_, err := d.AddFurniture(ctx, 7, store.NewFurniture{Type: "table"})
	require.NoError(t, err)
	_, err = d.AddFurniture(ctx, 7, store.NewFurniture{Type: "table"})
	require.NoError(t, err, "an archive already queued is not an error")

	enq.AssertExpectations(t)
}

func TestDesigner_ReloadPicksUpForeignChanges(t *testing.T) {
	d, p, n := newDesigner(t)
	ctx := context.Background()

	reloaded, err := d.Reload(ctx, 1)
	require.NoError(t, err)
	assert.False(t, reloaded, "no cached session, nothing to reload")

	_, err = d.State(ctx, 1)
	require.NoError(t, err)

	st := store.DefaultState()
	st.RoomSettings.Width = 3
	p.mu.Lock()
	p.states[1] = st
	p.mu.Unlock()

	reloaded, err = d.Reload(ctx, 1)
	require.NoError(t, err)
	assert.True(t, reloaded)
	sv, _ := d.State(ctx, 1)
	assert.Equal(t, 3.0, sv.State.RoomSettings.Width)
	assert.Equal(t, 1, n.count())
}

func TestDesigner_ReloadedSessionWithoutViewsKeepsForeignChange(t *testing.T) {
	d, p, _ := newDesigner(t)
	ctx := context.Background()

	// a REST-only session: cached, no open view
	_, err := d.AddFurniture(ctx, 1, store.NewFurniture{Type: "chair"})
	require.NoError(t, err)

	// another instance writes a newer state to the shared slot
	p.mu.Lock()
	foreign := p.states[1]
	foreign.RoomSettings.Width = 4
	p.states[1] = foreign
	p.mu.Unlock()

	reloaded, err := d.Reload(ctx, 1)
	require.NoError(t, err)
	require.True(t, reloaded)

	_, err = d.SaveDesign(ctx, 1, "Study", nil)
	require.NoError(t, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 4.0, p.states[1].RoomSettings.Width, "the next commit must not overwrite the foreign change")
	assert.Len(t, p.states[1].Designs, 1)
}

func TestDesigner_EvictIdle(t *testing.T) {
	d, _, _ := newDesigner(t)
	ctx := context.Background()

	_, err := d.State(ctx, 1)
	require.NoError(t, err)
	v, err := d.OpenView(ctx, 2, service.ViewPlan)
	require.NoError(t, err)

	assert.Equal(t, 1, d.EvictIdle(-time.Second), "open views keep a session alive")
	assert.ElementsMatch(t, []uint{2}, d.ActiveUsers())

	d.CloseView(v)
	assert.Equal(t, 1, d.EvictIdle(-time.Second))
	assert.Empty(t, d.ActiveUsers())
}
