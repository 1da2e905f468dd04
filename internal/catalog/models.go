package catalog

import (
	"math"

	"room-designer/internal/domain"
)

func f(v float64) *float64 { return &v }

func at(x, y, z float64) domain.Vec3 { return domain.Vec3{x, y, z} }

func mat(color string) PartMaterial { return PartMaterial{Color: color} }

func pbr(color string, roughness, metalness float64) PartMaterial {
	return PartMaterial{Color: color, Roughness: f(roughness), Metalness: f(metalness)}
}

var defaultCategories = []Category{
	{ID: "seating", Name: "Seating"},
	{ID: "tables", Name: "Tables"},
	{ID: "storage", Name: "Storage"},
	{ID: "decor", Name: "Decor"},
}

var defaultEntries = []Entry{
	{
		Type: "chair", Name: "Chair", Category: "seating", ModelPath: "/models/chair.glb", DefaultScale: 1,
		Dimensions: Dimensions{Width: 0.6, Height: 0.9, Depth: 0.6},
		Parts: []Part{
			{Geometry: Box(0.5, 0.1, 0.5), Position: at(0, 0.45, 0), Material: mat("#8b4513")},
			{Geometry: Box(0.5, 0.6, 0.1), Position: at(0, 0.75, -0.2), Material: mat("#8b4513")},
			{Geometry: Cylinder(0.05, 0.05, 0.45, 0), Position: at(0.2, 0.225, 0.2), Material: mat("#4a3728")},
			{Geometry: Cylinder(0.05, 0.05, 0.45, 0), Position: at(-0.2, 0.225, 0.2), Material: mat("#4a3728")},
			{Geometry: Cylinder(0.05, 0.05, 0.45, 0), Position: at(0.2, 0.225, -0.2), Material: mat("#4a3728")},
			{Geometry: Cylinder(0.05, 0.05, 0.45, 0), Position: at(-0.2, 0.225, -0.2), Material: mat("#4a3728")},
		},
	},
	{
		Type: "table", Name: "Dining Table", Category: "tables", ModelPath: "/models/table.glb", DefaultScale: 1,
		Dimensions: Dimensions{Width: 1.5, Height: 0.75, Depth: 0.9},
		Parts: []Part{
			{Geometry: Box(1.5, 0.05, 0.9), Position: at(0, 0.75, 0), Material: mat("#8b4513")},
			{Geometry: Box(0.1, 0.75, 0.1), Position: at(0.65, 0.375, 0.35), Material: mat("#4a3728")},
			{Geometry: Box(0.1, 0.75, 0.1), Position: at(-0.65, 0.375, 0.35), Material: mat("#4a3728")},
			{Geometry: Box(0.1, 0.75, 0.1), Position: at(0.65, 0.375, -0.35), Material: mat("#4a3728")},
			{Geometry: Box(0.1, 0.75, 0.1), Position: at(-0.65, 0.375, -0.35), Material: mat("#4a3728")},
		},
	},
	{
		Type: "sofa", Name: "Sofa", Category: "seating", ModelPath: "/models/sofa.glb", DefaultScale: 1,
		Dimensions: Dimensions{Width: 2, Height: 0.85, Depth: 0.9},
		Parts: []Part{
			{Geometry: Box(2, 0.4, 0.9), Position: at(0, 0.2, 0), Material: mat("#666666")},
			{Geometry: Box(2, 0.6, 0.2), Position: at(0, 0.7, -0.35), Material: mat("#666666")},
			{Geometry: Box(0.2, 0.5, 0.9), Position: at(0.9, 0.45, 0), Material: mat("#666666")},
			{Geometry: Box(0.2, 0.5, 0.9), Position: at(-0.9, 0.45, 0), Material: mat("#666666")},
		},
	},
	{
		Type: "diningTable", Name: "Dining Table", Category: "tables", DefaultScale: 1,
		Dimensions: Dimensions{Width: 2.0, Height: 0.75, Depth: 1.2},
		Parts: []Part{
			{Geometry: Box(2.0, 0.05, 1.2), Position: at(0, 0.75, 0), Material: pbr("#8b4513", 0.3, 0.1)},
			{Geometry: Cylinder(0.15, 0.25, 0.65, 8), Position: at(0, 0.4, 0), Material: pbr("#654321", 0.5, 0.1)},
			{Geometry: Cylinder(0.6, 0.6, 0.05, 8), Position: at(0, 0.025, 0), Material: pbr("#654321", 0.5, 0.1)},
			{Geometry: Box(0.8, 0.05, 0.2), Position: at(0, 0.05, 0.4), Material: mat("#654321")},
			{Geometry: Box(0.8, 0.05, 0.2), Position: at(0, 0.05, -0.4), Material: mat("#654321")},
			{Geometry: Box(0.2, 0.05, 0.8), Position: at(0.4, 0.05, 0), Material: mat("#654321")},
			{Geometry: Box(0.2, 0.05, 0.8), Position: at(-0.4, 0.05, 0), Material: mat("#654321")},
		},
	},
	{
		Type: "diningChair", Name: "Dining Chair", Category: "seating", DefaultScale: 1,
		Dimensions: Dimensions{Width: 0.5, Height: 0.9, Depth: 0.5},
		Parts: []Part{
			{Geometry: Box(0.5, 0.05, 0.5), Position: at(0, 0.45, 0), Material: pbr("#8b4513", 0.3, 0.1)},
			{Geometry: Box(0.48, 0.05, 0.48), Position: at(0, 0.48, 0), Material: pbr("#a0522d", 0.8, 0)},
			{Geometry: Box(0.5, 0.5, 0.05), Position: at(0, 0.75, -0.225), Material: pbr("#8b4513", 0.3, 0.1)},
			{Geometry: Box(0.48, 0.48, 0.05), Position: at(0, 0.75, -0.2), Material: pbr("#a0522d", 0.8, 0)},
			{Geometry: Box(0.05, 0.9, 0.05), Position: at(0.2, 0.45, -0.225), Material: mat("#8b4513")},
			{Geometry: Box(0.05, 0.9, 0.05), Position: at(-0.2, 0.45, -0.225), Material: mat("#8b4513")},
			{Geometry: Cylinder(0.02, 0.02, 0.45, 0), Position: at(0.2, 0.225, 0.2), Material: pbr("#654321", 0.5, 0.3)},
			{Geometry: Cylinder(0.02, 0.02, 0.45, 0), Position: at(-0.2, 0.225, 0.2), Material: pbr("#654321", 0.5, 0.3)},
			{Geometry: Cylinder(0.02, 0.02, 0.45, 0), Position: at(0.2, 0.225, -0.2), Material: pbr("#654321", 0.5, 0.3)},
			{Geometry: Cylinder(0.02, 0.02, 0.45, 0), Position: at(-0.2, 0.225, -0.2), Material: pbr("#654321", 0.5, 0.3)},
		},
	},
	{
		Type: "sideboard", Name: "Sideboard", Category: "storage", DefaultScale: 1,
		Dimensions: Dimensions{Width: 1.8, Height: 0.85, Depth: 0.45},
		Parts: []Part{
			{Geometry: Box(1.8, 0.85, 0.45), Position: at(0, 0.425, 0), Material: pbr("#8b4513", 0.3, 0.1)},
			{Geometry: Box(1.85, 0.03, 0.5), Position: at(0, 0.85, 0), Material: pbr("#8b4513", 0.3, 0.1)},
			{Geometry: Box(0.88, 0.7, 0.02), Position: at(-0.45, 0.425, 0.22), Material: pbr("#a0522d", 0.4, 0.1)},
			{Geometry: Cylinder(0.01, 0.01, 0.1, 0), Position: at(-0.1, 0.425, 0.23), Rotation: at(0, 0, math.Pi/2), Material: pbr("#b8860b", 0.3, 0.8)},
			{Geometry: Box(0.88, 0.7, 0.02), Position: at(0.45, 0.425, 0.22), Material: pbr("#a0522d", 0.4, 0.1)},
			{Geometry: Cylinder(0.01, 0.01, 0.1, 0), Position: at(0.1, 0.425, 0.23), Rotation: at(0, 0, math.Pi/2), Material: pbr("#b8860b", 0.3, 0.8)},
			{Geometry: Box(0.1, 0.1, 0.45), Position: at(-0.85, 0.05, 0), Material: mat("#654321")},
			{Geometry: Box(0.1, 0.1, 0.45), Position: at(0.85, 0.05, 0), Material: mat("#654321")},
		},
	},
}

// Default returns the built-in furniture catalog.
func Default() *Catalog {
	return New(defaultCategories, defaultEntries)
}
