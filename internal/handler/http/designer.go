package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"room-designer/internal/catalog"
	"room-designer/internal/domain"
	"room-designer/internal/middleware"
	"room-designer/internal/service"
	"room-designer/internal/store"
)

// DesignerHandler exposes the design store of the authenticated user.
type DesignerHandler struct {
	designer *service.DesignerService
}

// NewDesignerHandler creates a DesignerHandler.
func NewDesignerHandler(designer *service.DesignerService) *DesignerHandler {
	if designer == nil {
		panic("DesignerService cannot be nil for DesignerHandler")
	}
	return &DesignerHandler{designer: designer}
}

// Register mounts the designer routes. admin guards template editing.
func (h *DesignerHandler) Register(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/state", h.GetState)
	rg.PUT("/room", h.SetRoom)
	rg.POST("/reset", h.Reset)

	rg.POST("/furniture", h.AddFurniture)
	rg.PATCH("/furniture/:id", h.UpdateFurniture)
	rg.DELETE("/furniture/:id", h.RemoveFurniture)
	rg.DELETE("/furniture", h.ClearFurniture)

	rg.POST("/designs", h.SaveDesign)
	rg.PATCH("/designs/:id", h.EditDesign)
	rg.POST("/designs/:id/duplicate", h.DuplicateDesign)
	rg.POST("/designs/:id/load", h.LoadDesign)
	rg.POST("/designs/:id/metadata", h.AddDesignMetadata)
	rg.DELETE("/designs/:id", h.DeleteDesign)
	rg.DELETE("/designs", h.ClearDesigns)

	rg.GET("/templates", h.ListTemplates)
	rg.POST("/templates/:id/apply", h.ApplyTemplate)
	rg.PUT("/templates", admin, h.UpsertTemplate)
	rg.DELETE("/templates/:id", admin, h.DeleteTemplate)

	rg.GET("/catalog", h.Catalog)
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.Warn("Designer handler: user not found in context")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
	}
	return userID, ok
}

func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		logrus.WithError(err).Debug("Designer handler: invalid request body")
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// changed answers a mutation of an addressed object. Unknown ids are not an
// error; the answer is just {"changed": false}.
func changed(c *gin.Context, ok bool, key string, value interface{}) {
	if !ok {
		c.JSON(http.StatusOK, gin.H{"changed": false})
		return
	}
	body := gin.H{"changed": true}
	if key != "" {
		body[key] = value
	}
	c.JSON(http.StatusOK, body)
}

// GetState handles GET /state.
func (h *DesignerHandler) GetState(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sv, err := h.designer.State(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sv)
}

// SetRoom handles PUT /room.
func (h *DesignerHandler) SetRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var room domain.RoomSettings
	if !bind(c, &room) {
		return
	}
	out, err := h.designer.SetRoomSettings(c.Request.Context(), userID, room)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Reset handles POST /reset.
func (h *DesignerHandler) Reset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.designer.Reset(c.Request.Context(), userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, true, "", nil)
}

// AddFurniture handles POST /furniture.
func (h *DesignerHandler) AddFurniture(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in store.NewFurniture
	if !bind(c, &in) {
		return
	}
	item, err := h.designer.AddFurniture(c.Request.Context(), userID, in)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateFurniture handles PATCH /furniture/:id.
func (h *DesignerHandler) UpdateFurniture(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var patch domain.FurniturePatch
	if !bind(c, &patch) {
		return
	}
	item, done, err := h.designer.UpdateFurniture(c.Request.Context(), userID, c.Param("id"), patch)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "item", item)
}

// RemoveFurniture handles DELETE /furniture/:id.
func (h *DesignerHandler) RemoveFurniture(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	done, err := h.designer.RemoveFurniture(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "", nil)
}

// ClearFurniture handles DELETE /furniture.
func (h *DesignerHandler) ClearFurniture(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.designer.ClearFurniture(c.Request.Context(), userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, true, "", nil)
}

// SaveDesignRequest is the body of POST /designs.
type SaveDesignRequest struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SaveDesign handles POST /designs.
func (h *DesignerHandler) SaveDesign(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req SaveDesignRequest
	if !bind(c, &req) {
		return
	}
	d, err := h.designer.SaveDesign(c.Request.Context(), userID, req.Name, req.Metadata)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// EditDesign handles PATCH /designs/:id.
func (h *DesignerHandler) EditDesign(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var patch domain.DesignPatch
	if !bind(c, &patch) {
		return
	}
	d, done, err := h.designer.EditDesign(c.Request.Context(), userID, c.Param("id"), patch)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "design", d)
}

// DuplicateDesign handles POST /designs/:id/duplicate.
func (h *DesignerHandler) DuplicateDesign(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	d, done, err := h.designer.DuplicateDesign(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "design", d)
}

// LoadDesign handles POST /designs/:id/load.
func (h *DesignerHandler) LoadDesign(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	done, err := h.designer.LoadDesign(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "", nil)
}

// MetadataRequest is the body of POST /designs/:id/metadata.
type MetadataRequest struct {
	Metadata map[string]string `json:"metadata"`
}

// AddDesignMetadata handles POST /designs/:id/metadata.
func (h *DesignerHandler) AddDesignMetadata(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req MetadataRequest
	if !bind(c, &req) {
		return
	}
	done, err := h.designer.AddDesignMetadata(c.Request.Context(), userID, c.Param("id"), req.Metadata)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "", nil)
}

// DeleteDesign handles DELETE /designs/:id.
func (h *DesignerHandler) DeleteDesign(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	done, err := h.designer.DeleteDesign(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "", nil)
}

// ClearDesigns handles DELETE /designs.
func (h *DesignerHandler) ClearDesigns(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.designer.ClearDesigns(c.Request.Context(), userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, true, "", nil)
}

// ListTemplates handles GET /templates.
func (h *DesignerHandler) ListTemplates(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	templates, err := h.designer.Templates(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// ApplyTemplate handles POST /templates/:id/apply.
func (h *DesignerHandler) ApplyTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	done, err := h.designer.ApplyTemplate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "", nil)
}

// UpsertTemplate handles PUT /templates.
func (h *DesignerHandler) UpsertTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var t domain.RoomTemplate
	if !bind(c, &t) {
		return
	}
	out, err := h.designer.UpsertTemplate(c.Request.Context(), userID, t)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteTemplate handles DELETE /templates/:id.
func (h *DesignerHandler) DeleteTemplate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	done, err := h.designer.DeleteTemplate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	changed(c, done, "", nil)
}

// CatalogResponse is the body of GET /catalog.
type CatalogResponse struct {
	Categories []catalog.Category `json:"categories"`
	Items      []catalog.Entry    `json:"items"`
}

// Catalog handles GET /catalog, optionally filtered by ?category=.
func (h *DesignerHandler) Catalog(c *gin.Context) {
	cat := h.designer.Catalog()
	c.JSON(http.StatusOK, CatalogResponse{
		Categories: cat.Categories(),
		Items:      cat.List(c.Query("category")),
	})
}
