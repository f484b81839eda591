// Package wallet exposes the wallet connectors over HTTP.
package wallet

import "github.com/gin-gonic/gin"

// Module implements the app.Module interface for wallet connectors.
type Module struct {
	handler *Handler
}

// NewModule creates a Module. Panics if h is nil.
func NewModule(h *Handler) *Module {
	if h == nil {
		panic("wallet.NewModule: handler must not be nil")
	}
	return &Module{handler: h}
}

// RegisterRoutes registers the wallet API routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/wallet/connectors", m.handler.List)
	api.GET("/wallet/connectors/:kind", m.handler.Get)
}
