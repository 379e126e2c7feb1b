package management

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/channelforge/internal/catalog"
	"github.com/traylinx/channelforge/internal/channel"
)

// Store is the persistence surface the management handlers need. The
// sqlite store satisfies it; tests substitute fakes.
type Store interface {
	channel.Persister
	GetChannel(ctx context.Context, id int64) (channel.OutboundChannel, error)
	ListChannels(ctx context.Context) ([]channel.OutboundChannel, error)
	DeleteChannel(ctx context.Context, id int64) error
}

// Handler carries the collaborators for the management endpoints.
type Handler struct {
	store  Store
	models catalog.ModelCatalog
	groups catalog.GroupCatalog
	client *http.Client
}

// NewHandler creates a management handler.
func NewHandler(store Store, models catalog.ModelCatalog, groups catalog.GroupCatalog) *Handler {
	return &Handler{
		store:  store,
		models: models,
		groups: groups,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// requestID returns the request id set by the router middleware.
func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}
