// Package catalog is the static furniture catalog consumed by both views.
package catalog

import (
	"sort"

	"room-designer/internal/domain"
)

// Category groups catalog entries in the picker.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Dimensions are the nominal bounding box of a furniture type, in meters.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// GeometryKind names a primitive shape.
type GeometryKind string

const (
	GeometryBox      GeometryKind = "box"
	GeometryCylinder GeometryKind = "cylinder"
)

// Geometry is a box (width/height/depth) or a cylinder (radii/height/segments).
type Geometry struct {
	Kind         GeometryKind `json:"kind"`
	Width        float64      `json:"width,omitempty"`
	Height       float64      `json:"height"`
	Depth        float64      `json:"depth,omitempty"`
	RadiusTop    float64      `json:"radiusTop,omitempty"`
	RadiusBottom float64      `json:"radiusBottom,omitempty"`
	Segments     int          `json:"segments,omitempty"`
}

// Box builds a box geometry.
func Box(w, h, d float64) Geometry {
	return Geometry{Kind: GeometryBox, Width: w, Height: h, Depth: d}
}

// Cylinder builds a cylinder geometry. Zero segments means the renderer default.
func Cylinder(radiusTop, radiusBottom, h float64, segments int) Geometry {
	return Geometry{Kind: GeometryCylinder, RadiusTop: radiusTop, RadiusBottom: radiusBottom, Height: h, Segments: segments}
}

// PartMaterial is the per-part surface. Nil roughness/metalness use renderer defaults.
type PartMaterial struct {
	Color     string   `json:"color"`
	Roughness *float64 `json:"roughness,omitempty"`
	Metalness *float64 `json:"metalness,omitempty"`
}

// Part is one primitive of an assembled fallback representation.
type Part struct {
	Geometry Geometry     `json:"geometry"`
	Position domain.Vec3  `json:"position"`
	Rotation domain.Vec3  `json:"rotation"`
	Material PartMaterial `json:"material"`
}

// Entry is the catalog record for one furniture type.
type Entry struct {
	Type         string     `json:"type"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	ModelPath    string     `json:"modelPath,omitempty"`
	DefaultScale float64    `json:"defaultScale"`
	Dimensions   Dimensions `json:"dimensions"`
	Parts        []Part     `json:"parts,omitempty"`
}

// Catalog is a read-only index of furniture types.
type Catalog struct {
	categories []Category
	entries    map[string]Entry
}

// New builds a catalog from the given categories and entries.
func New(categories []Category, entries []Entry) *Catalog {
	c := &Catalog{
		categories: append([]Category(nil), categories...),
		entries:    make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		c.entries[e.Type] = e
	}
	return c
}

// Lookup returns the entry for a furniture type.
func (c *Catalog) Lookup(furnitureType string) (Entry, bool) {
	e, ok := c.entries[furnitureType]
	return e, ok
}

// DefaultScale returns the catalog scale for a type, or 1 for unknown types.
func (c *Catalog) DefaultScale(furnitureType string) float64 {
	if e, ok := c.entries[furnitureType]; ok && e.DefaultScale > 0 {
		return e.DefaultScale
	}
	return 1
}

// Dimensions returns the nominal footprint for a type; unknown types are a 1m cube.
func (c *Catalog) Dimensions(furnitureType string) Dimensions {
	if e, ok := c.entries[furnitureType]; ok {
		return e.Dimensions
	}
	return Dimensions{Width: 1, Height: 1, Depth: 1}
}

// Categories lists the picker categories in display order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// List returns entries sorted by type, optionally filtered by category.
func (c *Catalog) List(category string) []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
