package store_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-designer/internal/domain"
	"room-designer/internal/store"
)

type seqIDs struct{ n int }

func (g *seqIDs) FurnitureID() string { g.n++; return fmt.Sprintf("f%d", g.n) }
func (g *seqIDs) DesignID() string    { g.n++; return fmt.Sprintf("d%d", g.n) }

type tickClock struct{ t time.Time }

func (c *tickClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore() *store.Store {
	clock := &tickClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return store.New(store.WithIDs(&seqIDs{}), store.WithClock(clock.now))
}

func ptr[T any](v T) *T { return &v }

func TestNew_Defaults(t *testing.T) {
	s := newStore()
	assert.Equal(t, domain.DefaultRoomSettings(), s.RoomSettings())
	assert.Empty(t, s.Furniture())
	assert.Empty(t, s.Designs())
	assert.NotEmpty(t, s.RoomTemplates())
	_, ok := s.ActiveDesign()
	assert.False(t, ok)
}

func TestSetRoomSettings_NormalizesColors(t *testing.T) {
	s := newStore()
	s.SetRoomSettings(domain.RoomSettings{Width: 6, Length: 8, Height: 2.5, WallColor: "#ABCDEF", FloorColor: "#FFF"})

	rs := s.RoomSettings()
	assert.Equal(t, 6.0, rs.Width)
	assert.Equal(t, 8.0, rs.Length)
	assert.Equal(t, "#abcdef", rs.WallColor)
	assert.Equal(t, "#fff", rs.FloorColor)
}

func TestAddFurniture_Defaults(t *testing.T) {
	s := newStore()
	item := s.AddFurniture(store.NewFurniture{Type: "chair"})

	assert.Equal(t, "f1", item.ID)
	assert.Equal(t, "#ffffff", item.Color)
	assert.Equal(t, domain.Materials{Roughness: 0.7, Metalness: 0.3, Opacity: 1}, item.Materials)
	assert.Equal(t, 1.0, item.Scale)
	assert.Equal(t, domain.Vec3{}, item.Position)

	custom := s.AddFurniture(store.NewFurniture{
		Type:      "sofa",
		Color:     "#FF0000",
		Scale:     ptr(1.5),
		Materials: &domain.Materials{Roughness: 0.1, Metalness: 0.2, Opacity: 0.9},
	})
	assert.Equal(t, "#ff0000", custom.Color)
	assert.Equal(t, 1.5, custom.Scale)
	assert.Equal(t, 0.1, custom.Materials.Roughness)
	assert.Len(t, s.Furniture(), 2)
}

type fixedIDs struct{ calls int }

func (g *fixedIDs) FurnitureID() string {
	g.calls++
	if g.calls <= 2 {
		return "same"
	}
	return "other"
}
func (g *fixedIDs) DesignID() string { return "d" }

func TestAddFurniture_IDsStayUnique(t *testing.T) {
	s := store.New(store.WithIDs(&fixedIDs{}))
	a := s.AddFurniture(store.NewFurniture{Type: "chair"})
	b := s.AddFurniture(store.NewFurniture{Type: "chair"})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpdateFurniture_PartialMaterialsPreserveOthers(t *testing.T) {
	s := newStore()
	item := s.AddFurniture(store.NewFurniture{Type: "chair"})

	updated, ok := s.UpdateFurniture(item.ID, domain.FurniturePatch{
		Materials: &domain.MaterialsPatch{Opacity: ptr(0.5)},
	})
	require.True(t, ok)
	assert.Equal(t, 0.5, updated.Materials.Opacity)
	assert.Equal(t, 0.7, updated.Materials.Roughness)
	assert.Equal(t, 0.3, updated.Materials.Metalness)
}

func TestUpdateFurniture_ColorIsNormalizedIdempotently(t *testing.T) {
	s := newStore()
	item := s.AddFurniture(store.NewFurniture{Type: "chair"})

	_, ok := s.UpdateFurniture(item.ID, domain.FurniturePatch{Color: ptr("#ABCDEF")})
	require.True(t, ok)
	got, _ := s.Item(item.ID)
	assert.Equal(t, "#abcdef", got.Color)

	_, _ = s.UpdateFurniture(item.ID, domain.FurniturePatch{Color: ptr(got.Color)})
	again, _ := s.Item(item.ID)
	assert.Equal(t, "#abcdef", again.Color)
}

func TestUpdateFurniture_UnknownIDIsNoop(t *testing.T) {
	s := newStore()
	s.AddFurniture(store.NewFurniture{Type: "chair"})
	before := s.Furniture()

	_, ok := s.UpdateFurniture("missing", domain.FurniturePatch{Scale: ptr(2.0)})

	assert.False(t, ok)
	assert.Equal(t, before, s.Furniture())
}

func TestRemoveFurniture(t *testing.T) {
	s := newStore()
	a := s.AddFurniture(store.NewFurniture{Type: "chair"})
	b := s.AddFurniture(store.NewFurniture{Type: "table"})

	assert.True(t, s.RemoveFurniture(a.ID))
	assert.False(t, s.RemoveFurniture(a.ID))
	require.Len(t, s.Furniture(), 1)
	assert.Equal(t, b.ID, s.Furniture()[0].ID)

	s.ClearFurniture()
	assert.Empty(t, s.Furniture())
}

func TestFurniture_ReturnsCopies(t *testing.T) {
	s := newStore()
	s.AddFurniture(store.NewFurniture{Type: "chair"})
	list := s.Furniture()
	list[0].Color = "#000000"
	assert.Equal(t, "#ffffff", s.Furniture()[0].Color)
}

func TestSaveDesign_DeepCopies(t *testing.T) {
	s := newStore()
	item := s.AddFurniture(store.NewFurniture{Type: "chair"})
	saved := s.SaveCurrent("Living Room")

	_, _ = s.UpdateFurniture(item.ID, domain.FurniturePatch{Position: &domain.Vec3{3, 0, 3}})
	s.SetRoomSettings(domain.RoomSettings{Width: 2, Length: 2, Height: 2})

	stored, ok := s.Design(saved.ID)
	require.True(t, ok)
	assert.Equal(t, domain.Vec3{}, stored.Furniture[0].Position)
	assert.Equal(t, domain.DefaultRoomWidth, stored.RoomSettings.Width)
	assert.False(t, stored.Timestamp.IsZero())
}

func TestLoadThenSave_DoesNotMutateLoadedDesign(t *testing.T) {
	s := newStore()
	s.AddFurniture(store.NewFurniture{Type: "chair"})
	original := s.SaveCurrent("Original")

	require.True(t, s.LoadDesign(original.ID))
	active, ok := s.ActiveDesign()
	require.True(t, ok)
	assert.Equal(t, original.ID, active.ID)

	live := s.Furniture()
	live[0].Scale = 9
	s.SaveDesign(store.DesignInput{Name: "Second", RoomSettings: s.RoomSettings(), Furniture: live})

	stored, _ := s.Design(original.ID)
	assert.Equal(t, original, stored)
	assert.Len(t, s.Designs(), 2)
}

func TestLoadDesign_UnknownIsNoop(t *testing.T) {
	s := newStore()
	assert.False(t, s.LoadDesign("missing"))
	_, ok := s.ActiveDesign()
	assert.False(t, ok)
}

func TestDuplicateDesign(t *testing.T) {
	s := newStore()
	orig := s.SaveCurrent("Kitchen")

	dup, ok := s.DuplicateDesign(orig.ID)
	require.True(t, ok)
	assert.NotEqual(t, orig.ID, dup.ID)
	assert.NotEqual(t, orig.Timestamp, dup.Timestamp)
	assert.Equal(t, "Kitchen (Copy)", dup.Name)
	assert.Equal(t, orig.RoomSettings, dup.RoomSettings)

	_, ok = s.DuplicateDesign("missing")
	assert.False(t, ok)
	assert.Len(t, s.Designs(), 2)
}

func TestEditDesign_MergesAndStamps(t *testing.T) {
	s := newStore()
	d := s.SaveCurrent("Draft")

	edited, ok := s.EditDesign(d.ID, domain.DesignPatch{
		Name:     ptr("Final"),
		Metadata: map[string]string{"client": "acme"},
	})
	require.True(t, ok)
	assert.Equal(t, "Final", edited.Name)
	assert.Equal(t, d.RoomSettings, edited.RoomSettings)
	require.NotNil(t, edited.LastModified)

	_, ok = s.EditDesign("missing", domain.DesignPatch{Name: ptr("x")})
	assert.False(t, ok)
}

func TestAddDesignMetadata_Merges(t *testing.T) {
	s := newStore()
	d := s.SaveDesign(store.DesignInput{Name: "A", Metadata: map[string]string{"a": "1"}})

	assert.True(t, s.AddDesignMetadata(d.ID, map[string]string{"b": "2"}))
	got, _ := s.Design(d.ID)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got.Metadata)
	assert.NotNil(t, got.LastModified)
	assert.False(t, s.AddDesignMetadata("missing", map[string]string{"c": "3"}))
}

func TestDeleteDesign_ClearsActive(t *testing.T) {
	s := newStore()
	d := s.SaveCurrent("A")
	require.True(t, s.LoadDesign(d.ID))

	assert.True(t, s.DeleteDesign(d.ID))
	assert.False(t, s.DeleteDesign(d.ID))
	_, ok := s.ActiveDesign()
	assert.False(t, ok)
}

func TestClearDesigns(t *testing.T) {
	s := newStore()
	d := s.SaveCurrent("A")
	s.SaveCurrent("B")
	s.LoadDesign(d.ID)

	s.ClearDesigns()
	assert.Empty(t, s.Designs())
	_, ok := s.ActiveDesign()
	assert.False(t, ok)
}

func TestResetDesign(t *testing.T) {
	s := newStore()
	s.AddFurniture(store.NewFurniture{Type: "chair"})
	s.SetRoomSettings(domain.RoomSettings{Width: 1, Length: 1, Height: 1})
	d := s.SaveCurrent("A")
	s.LoadDesign(d.ID)

	s.ClearCurrentDesign()

	assert.Equal(t, domain.DefaultRoomSettings(), s.RoomSettings())
	assert.Empty(t, s.Furniture())
	_, ok := s.ActiveDesign()
	assert.False(t, ok)
	assert.Len(t, s.Designs(), 1)
}

func TestRoomTemplates(t *testing.T) {
	s := newStore()

	tpl := s.UpdateRoomTemplate(domain.RoomTemplate{
		Name:     "Studio",
		Settings: domain.RoomSettings{Width: 7, Length: 5, Height: 3, WallColor: "#EEEEEE", FloorColor: "#111111"},
	})
	assert.NotEmpty(t, tpl.ID)
	assert.Equal(t, "#eeeeee", tpl.Settings.WallColor)

	require.True(t, s.SetRoomTemplate(tpl.ID))
	assert.Equal(t, tpl.Settings, s.RoomSettings())

	tpl.Name = "Big Studio"
	s.UpdateRoomTemplate(tpl)
	count := 0
	for _, existing := range s.RoomTemplates() {
		if existing.ID == tpl.ID {
			count++
			assert.Equal(t, "Big Studio", existing.Name)
		}
	}
	assert.Equal(t, 1, count)

	assert.True(t, s.DeleteRoomTemplate(tpl.ID))
	assert.False(t, s.SetRoomTemplate(tpl.ID))
	assert.False(t, s.DeleteRoomTemplate(tpl.ID))
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := newStore()
	s.AddFurniture(store.NewFurniture{Type: "chair"})
	d := s.SaveCurrent("A")
	s.LoadDesign(d.ID)

	snap := s.Snapshot()
	other := store.New()
	other.Restore(snap)

	assert.Equal(t, snap, other.Snapshot())

	// mutating the snapshot must not reach the store
	snap.Furniture[0].Color = "#123456"
	assert.Equal(t, "#ffffff", other.Furniture()[0].Color)
}
