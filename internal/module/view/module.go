package view

import "github.com/gin-gonic/gin"

// Module implements the app.Module interface for feed views.
type Module struct {
	handler *Handler
}

// NewModule creates a Module. Panics if h is nil.
func NewModule(h *Handler) *Module {
	if h == nil {
		panic("view.NewModule: handler must not be nil")
	}
	return &Module{handler: h}
}

// RegisterRoutes registers the view API routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/vaults/:vault/views", m.handler.Create)
	api.GET("/views/:id", m.handler.Get)
	api.PATCH("/views/:id", m.handler.Update)
	api.DELETE("/views/:id", m.handler.Delete)
}
