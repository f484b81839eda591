package view

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/vaultfeed/internal/pkg"
	"github.com/simp-lee/vaultfeed/internal/presentation"
)

// Handler serves the view endpoints.
type Handler struct {
	registry   *Registry
	breakpoint int
}

// NewHandler creates a Handler. Non-positive breakpoint means
// presentation.DefaultBreakpoint.
func NewHandler(registry *Registry, breakpoint int) *Handler {
	if breakpoint <= 0 {
		breakpoint = presentation.DefaultBreakpoint
	}
	return &Handler{registry: registry, breakpoint: breakpoint}
}

// Create handles POST /api/v1/vaults/:vault/views.
func (h *Handler) Create(c *gin.Context) {
	var uri VaultURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	var q ViewportQuery
	if !pkg.BindQuery(c, &q) {
		return
	}
	var req CreateViewRequest
	if c.Request.ContentLength != 0 && !pkg.BindJSON(c, &req) {
		return
	}

	v, err := h.registry.Create(c.Request.Context(), uri.Vault, req.state())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, h.response(v, q.Width))
}

// Get handles GET /api/v1/views/:id.
func (h *Handler) Get(c *gin.Context) {
	var uri IDURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	var q ViewportQuery
	if !pkg.BindQuery(c, &q) {
		return
	}

	v, err := h.registry.Get(uri.ID)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, h.response(v, q.Width))
}

// Update handles PATCH /api/v1/views/:id.
func (h *Handler) Update(c *gin.Context) {
	var uri IDURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	var q ViewportQuery
	if !pkg.BindQuery(c, &q) {
		return
	}
	var req UpdateViewRequest
	if !pkg.BindJSON(c, &req) {
		return
	}

	v, err := h.registry.Update(uri.ID, req.patch())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, h.response(v, q.Width))
}

// Delete handles DELETE /api/v1/views/:id.
func (h *Handler) Delete(c *gin.Context) {
	var uri IDURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	if err := h.registry.Delete(uri.ID); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

func (h *Handler) response(v Rendered, width int) ViewResponse {
	return ViewResponse{
		ID:    v.ID,
		Vault: v.Vault,
		Page:  presentation.Render(v.Output, width, h.breakpoint, v.LoadingText),
	}
}
