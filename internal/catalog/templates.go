package catalog

import "room-designer/internal/domain"

// DefaultTemplates are the room presets offered to a new workspace.
func DefaultTemplates() []domain.RoomTemplate {
	return []domain.RoomTemplate{
		{
			ID:   "livingRoom",
			Name: "Living Room",
			Settings: domain.RoomSettings{
				Width: 6, Length: 5, Height: 2.8, WallColor: "#f5f5dc", FloorColor: "#deb887",
			},
			SuggestedFurniture: []string{"sofa", "table", "chair"},
		},
		{
			ID:   "diningRoom",
			Name: "Dining Room",
			Settings: domain.RoomSettings{
				Width: 5, Length: 4, Height: 2.8, WallColor: "#ffffff", FloorColor: "#8b7355",
			},
			SuggestedFurniture: []string{"diningTable", "diningChair", "sideboard"},
		},
		{
			ID:   "bedroom",
			Name: "Bedroom",
			Settings: domain.RoomSettings{
				Width: 4, Length: 4, Height: 2.7, WallColor: "#e6e6fa", FloorColor: "#d2b48c",
			},
			SuggestedFurniture: []string{"chair", "sideboard"},
		},
		{
			ID:   "office",
			Name: "Home Office",
			Settings: domain.RoomSettings{
				Width: 3.5, Length: 3, Height: 2.6, WallColor: "#ffffff", FloorColor: "#a9a9a9",
			},
			SuggestedFurniture: []string{"table", "chair"},
		},
	}
}
