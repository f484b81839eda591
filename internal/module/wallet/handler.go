package wallet

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/vaultfeed/internal/pkg"
	"github.com/simp-lee/vaultfeed/internal/wallet"
)

// KindURI binds the :kind path parameter.
type KindURI struct {
	Kind string `uri:"kind" binding:"required"`
}

// Handler serves wallet connector handles.
type Handler struct {
	connectors *wallet.Connectors
}

// NewHandler creates a Handler.
func NewHandler(connectors *wallet.Connectors) *Handler {
	return &Handler{connectors: connectors}
}

// List handles GET /api/v1/wallet/connectors.
func (h *Handler) List(c *gin.Context) {
	pkg.Success(c, gin.H{"kinds": wallet.Kinds()})
}

// Get handles GET /api/v1/wallet/connectors/:kind. Each walletconnect
// request yields a new handle.
func (h *Handler) Get(c *gin.Context) {
	var uri KindURI
	if !pkg.BindURI(c, &uri) {
		return
	}

	conn, err := h.connectors.Get(wallet.Kind(uri.Kind))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	pkg.Success(c, conn)
}
