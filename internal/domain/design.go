package domain

import "time"

// Design is a named snapshot of a room and its furniture.
type Design struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Timestamp    time.Time         `json:"timestamp"`
	LastModified *time.Time        `json:"lastModified,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RoomSettings RoomSettings      `json:"roomSettings"`
	Furniture    []FurnitureItem   `json:"furniture"`
}

// Clone returns a copy sharing no mutable memory with d.
func (d Design) Clone() Design {
	d.Furniture = CloneFurniture(d.Furniture)
	if d.Metadata != nil {
		md := make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			md[k] = v
		}
		d.Metadata = md
	}
	if d.LastModified != nil {
		t := *d.LastModified
		d.LastModified = &t
	}
	return d
}

// DesignPatch is a partial update for a saved design.
type DesignPatch struct {
	Name         *string           `json:"name,omitempty"`
	RoomSettings *RoomSettings     `json:"roomSettings,omitempty"`
	Furniture    []FurnitureItem   `json:"furniture,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// DesignState is the whole persisted workspace of one user.
type DesignState struct {
	Designs       []Design        `json:"designs"`
	ActiveDesign  *Design         `json:"activeDesign"`
	RoomSettings  RoomSettings    `json:"roomSettings"`
	Furniture     []FurnitureItem `json:"furniture"`
	RoomTemplates []RoomTemplate  `json:"roomTemplates"`
}
