package domain

// Default room dimensions and colors used by a fresh workspace and by reset.
const (
	DefaultRoomWidth  = 10.0
	DefaultRoomLength = 10.0
	DefaultRoomHeight = 3.0
	DefaultWallColor  = "#ffffff"
	DefaultFloorColor = "#f0f0f0"

	// MaxRoomDimension bounds width, length and height, in meters.
	MaxRoomDimension = 1000.0
)

// RoomSettings describes the rectangular room being furnished. Dimensions are meters.
type RoomSettings struct {
	Width      float64 `json:"width"`
	Length     float64 `json:"length"`
	Height     float64 `json:"height"`
	WallColor  string  `json:"wallColor"`
	FloorColor string  `json:"floorColor"`
}

// DefaultRoomSettings returns the 10x10x3 white room.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		Width:      DefaultRoomWidth,
		Length:     DefaultRoomLength,
		Height:     DefaultRoomHeight,
		WallColor:  DefaultWallColor,
		FloorColor: DefaultFloorColor,
	}
}

// ValidRoomDimension reports whether v lies in (0, MaxRoomDimension].
// NaN and infinities are rejected.
func ValidRoomDimension(v float64) bool {
	return v > 0 && v <= MaxRoomDimension
}

// HasValidDimensions reports whether all three dimensions are usable.
func (r RoomSettings) HasValidDimensions() bool {
	return ValidRoomDimension(r.Width) && ValidRoomDimension(r.Length) && ValidRoomDimension(r.Height)
}

// WithDimensionsFrom replaces every unusable dimension with the one of base.
func (r RoomSettings) WithDimensionsFrom(base RoomSettings) RoomSettings {
	if !ValidRoomDimension(r.Width) {
		r.Width = base.Width
	}
	if !ValidRoomDimension(r.Length) {
		r.Length = base.Length
	}
	if !ValidRoomDimension(r.Height) {
		r.Height = base.Height
	}
	return r
}

// Normalized returns a copy with both colors lowercased.
func (r RoomSettings) Normalized() RoomSettings {
	r.WallColor = NormalizeColor(r.WallColor)
	r.FloorColor = NormalizeColor(r.FloorColor)
	return r
}

// RoomTemplate is a named preset of room settings plus suggested furniture.
type RoomTemplate struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Settings           RoomSettings `json:"settings"`
	SuggestedFurniture []string     `json:"suggestedFurniture,omitempty"`
}

// Clone deep-copies the template.
func (t RoomTemplate) Clone() RoomTemplate {
	t.SuggestedFurniture = append([]string(nil), t.SuggestedFurniture...)
	return t
}
