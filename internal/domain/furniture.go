package domain

import "math"

// Vec3 is an (x, y, z) triple. Positions are meters, rotations radians.
type Vec3 [3]float64

// Materials are the physically based surface parameters of an item, each in [0,1].
type Materials struct {
	Roughness float64 `json:"roughness"`
	Metalness float64 `json:"metalness"`
	Opacity   float64 `json:"opacity"`
}

// DefaultMaterials is applied to items added without materials.
func DefaultMaterials() Materials {
	return Materials{Roughness: 0.7, Metalness: 0.3, Opacity: 1}
}

// Valid reports whether every parameter lies in [0,1].
func (m Materials) Valid() bool {
	return ValidUnit(m.Roughness) && ValidUnit(m.Metalness) && ValidUnit(m.Opacity)
}

// ValidUnit reports whether v lies in [0,1]. NaN is rejected.
func ValidUnit(v float64) bool { return v >= 0 && v <= 1 }

// ValidScale reports whether v is a positive finite scale.
func ValidScale(v float64) bool { return v > 0 && v <= math.MaxFloat64 }

// FurnitureItem is one placed piece of furniture.
type FurnitureItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Position  Vec3      `json:"position"`
	Rotation  Vec3      `json:"rotation"`
	Scale     float64   `json:"scale"`
	Color     string    `json:"color"`
	Materials Materials `json:"materials"`
}

// MaterialsPatch carries a partial materials update. Nil fields are left alone.
type MaterialsPatch struct {
	Roughness *float64 `json:"roughness,omitempty"`
	Metalness *float64 `json:"metalness,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
}

// Valid reports whether every set field lies in [0,1].
func (m MaterialsPatch) Valid() bool {
	for _, v := range []*float64{m.Roughness, m.Metalness, m.Opacity} {
		if v != nil && !ValidUnit(*v) {
			return false
		}
	}
	return true
}

// FurniturePatch is a partial update merged into an existing item.
type FurniturePatch struct {
	Type      *string         `json:"type,omitempty"`
	Position  *Vec3           `json:"position,omitempty"`
	Rotation  *Vec3           `json:"rotation,omitempty"`
	Scale     *float64        `json:"scale,omitempty"`
	Color     *string         `json:"color,omitempty"`
	Materials *MaterialsPatch `json:"materials,omitempty"`
}

// Apply merges the patch into item. Color is lowercased and materials are merged key by key.
func (p FurniturePatch) Apply(item FurnitureItem) FurnitureItem {
	if p.Type != nil {
		item.Type = *p.Type
	}
	if p.Position != nil {
		item.Position = *p.Position
	}
	if p.Rotation != nil {
		item.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		item.Scale = *p.Scale
	}
	if p.Color != nil {
		item.Color = NormalizeColor(*p.Color)
	}
	if m := p.Materials; m != nil {
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

// IsEmpty reports whether the patch changes nothing.
func (p FurniturePatch) IsEmpty() bool {
	return p.Type == nil && p.Position == nil && p.Rotation == nil && p.Scale == nil &&
		p.Color == nil && p.Materials == nil
}

// CloneFurniture copies a furniture list. Items are plain values so a slice copy is deep.
func CloneFurniture(items []FurnitureItem) []FurnitureItem {
	if items == nil {
		return []FurnitureItem{}
	}
	out := make([]FurnitureItem, len(items))
	copy(out, items)
	return out
}
