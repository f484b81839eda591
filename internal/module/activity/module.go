package activity

import "github.com/gin-gonic/gin"

// Module implements the app.Module interface for vault activity.
type Module struct {
	handler *Handler
}

// NewModule creates a Module. Panics if h is nil.
func NewModule(h *Handler) *Module {
	if h == nil {
		panic("activity.NewModule: handler must not be nil")
	}
	return &Module{handler: h}
}

// RegisterRoutes registers the activity API routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/vaults", m.handler.Vaults)
	api.GET("/vaults/:vault/activities", m.handler.Feed)
	api.POST("/vaults/:vault/activities", m.handler.Record)
	api.POST("/vaults/:vault/activities/batch", m.handler.RecordBatch)
}
