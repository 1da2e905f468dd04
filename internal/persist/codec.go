// Package persist serializes a user's whole design state into one versioned
// blob and restores it by merging what was stored over fresh defaults.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"room-designer/internal/domain"
)

const (
	// StorageKey names the persisted slot.
	StorageKey = "furniture-design-storage"
	// Version is written with every blob. Restore does not branch on it yet.
	Version = 1
)

// ErrCorruptState is returned when a stored blob cannot be decoded.
var ErrCorruptState = errors.New("persist: corrupt state blob")

type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Everything below is pointer-typed so that "absent" can be told apart from "zero".
type storedState struct {
	Designs       []storedDesign        `json:"designs"`
	ActiveDesign  *storedDesign         `json:"activeDesign"`
	RoomSettings  *storedRoom           `json:"roomSettings"`
	Furniture     []storedItem          `json:"furniture"`
	RoomTemplates []domain.RoomTemplate `json:"roomTemplates"`
}

type storedRoom struct {
	Width      *float64 `json:"width"`
	Length     *float64 `json:"length"`
	Height     *float64 `json:"height"`
	WallColor  *string  `json:"wallColor"`
	FloorColor *string  `json:"floorColor"`
}

type storedMaterials struct {
	Roughness *float64 `json:"roughness"`
	Metalness *float64 `json:"metalness"`
	Opacity   *float64 `json:"opacity"`
}

type storedItem struct {
	ID        flexID           `json:"id"`
	Type      string           `json:"type"`
	Position  *domain.Vec3     `json:"position"`
	Rotation  *domain.Vec3     `json:"rotation"`
	Scale     *float64         `json:"scale"`
	Color     *string          `json:"color"`
	Materials *storedMaterials `json:"materials"`
}

type storedDesign struct {
	ID           flexID            `json:"id"`
	Name         string            `json:"name"`
	Timestamp    flexTime          `json:"timestamp"`
	LastModified *flexTime         `json:"lastModified"`
	Metadata     map[string]string `json:"metadata"`
	RoomSettings *storedRoom       `json:"roomSettings"`
	Furniture    []storedItem      `json:"furniture"`
}

// flexID accepts both string ids and the numeric ids of older blobs.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// Encode wraps the state in a versioned envelope.
func Encode(st domain.DesignState) ([]byte, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("persist: marshal state: %w", err)
	}
	out, err := json.Marshal(envelope{Version: Version, State: raw})
	if err != nil {
		return nil, fmt.Errorf("persist: marshal envelope: %w", err)
	}
	return out, nil
}

// Decode restores a blob over defaults and returns the stored version.
func Decode(data []byte, defaults domain.DesignState) (domain.DesignState, int, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return defaults, 0, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if len(env.State) == 0 || bytes.Equal(bytes.TrimSpace(env.State), []byte("null")) {
		return defaults, env.Version, nil
	}
	var stored storedState
	if err := json.Unmarshal(env.State, &stored); err != nil {
		return defaults, env.Version, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return merge(defaults, stored), env.Version, nil
}

// merge lays stored over defaults field by field.
func merge(defaults domain.DesignState, stored storedState) domain.DesignState {
	out := defaults
	if stored.Designs != nil {
		out.Designs = make([]domain.Design, 0, len(stored.Designs))
		for _, d := range stored.Designs {
			out.Designs = append(out.Designs, d.restore())
		}
	}
	if stored.ActiveDesign != nil {
		d := stored.ActiveDesign.restore()
		out.ActiveDesign = &d
	}
	out.RoomSettings = stored.RoomSettings.over(defaults.RoomSettings)
	if stored.Furniture != nil {
		out.Furniture = restoreItems(stored.Furniture)
	}
	if stored.RoomTemplates != nil {
		out.RoomTemplates = make([]domain.RoomTemplate, 0, len(stored.RoomTemplates))
		for _, t := range stored.RoomTemplates {
			t = t.Clone()
			t.Settings = t.Settings.WithDimensionsFrom(domain.DefaultRoomSettings()).Normalized()
			out.RoomTemplates = append(out.RoomTemplates, t)
		}
	}
	return out
}

func (r *storedRoom) over(base domain.RoomSettings) domain.RoomSettings {
	if r == nil {
		return base.Normalized()
	}
	// out-of-range dimensions keep the default rather than reach the views
	if r.Width != nil && domain.ValidRoomDimension(*r.Width) {
		base.Width = *r.Width
	}
	if r.Length != nil && domain.ValidRoomDimension(*r.Length) {
		base.Length = *r.Length
	}
	if r.Height != nil && domain.ValidRoomDimension(*r.Height) {
		base.Height = *r.Height
	}
	if r.WallColor != nil && *r.WallColor != "" {
		base.WallColor = *r.WallColor
	}
	if r.FloorColor != nil && *r.FloorColor != "" {
		base.FloorColor = *r.FloorColor
	}
	return base.Normalized()
}

func restoreItems(items []storedItem) []domain.FurnitureItem {
	out := make([]domain.FurnitureItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.restore())
	}
	return out
}

func (it storedItem) restore() domain.FurnitureItem {
	item := domain.FurnitureItem{
		ID:        string(it.ID),
		Type:      it.Type,
		Scale:     1,
		Color:     domain.DefaultFurnitureColor,
		Materials: domain.DefaultMaterials(),
	}
	if it.Position != nil {
		item.Position = *it.Position
	}
	if it.Rotation != nil {
		item.Rotation = *it.Rotation
	}
	if it.Scale != nil && *it.Scale > 0 {
		item.Scale = *it.Scale
	}
	if it.Color != nil && *it.Color != "" {
		item.Color = domain.NormalizeColor(*it.Color)
	}
	if m := it.Materials; m != nil {
		if m.Roughness != nil {
			item.Materials.Roughness = *m.Roughness
		}
		if m.Metalness != nil {
			item.Materials.Metalness = *m.Metalness
		}
		if m.Opacity != nil {
			item.Materials.Opacity = *m.Opacity
		}
	}
	return item
}

func (d storedDesign) restore() domain.Design {
	out := domain.Design{
		ID:           string(d.ID),
		Name:         d.Name,
		Timestamp:    d.Timestamp.Time,
		Metadata:     d.Metadata,
		RoomSettings: d.RoomSettings.over(domain.DefaultRoomSettings()),
		Furniture:    restoreItems(d.Furniture),
	}
	if d.LastModified != nil {
		t := d.LastModified.Time
		out.LastModified = &t
	}
	return out.Clone()
}

// parseMillis reads a millisecond epoch written by older clients.
func parseMillis(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(bytes.TrimSpace(b)), 10, 64)
	return n, err == nil
}
