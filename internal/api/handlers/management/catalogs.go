package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/channelforge/internal/channel"
)

// ListModels handles GET /models: every model the catalog knows about.
func (h *Handler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.models.ListAvailableModels()})
}

// ListModelsForType handles GET /models/:type: the default model list a
// provider type seeds a new draft with, hard-coded pseudo-models
// included.
func (h *Handler) ListModelsForType(c *gin.Context) {
	t, err := strconv.Atoi(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_type", "message": "provider type must be an integer"})
		return
	}
	models := channel.DefaultModelsFor(channel.ProviderType(t), h.models)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": models})
}

// ListGroups handles GET /groups.
func (h *Handler) ListGroups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.groups.ListGroups()})
}
