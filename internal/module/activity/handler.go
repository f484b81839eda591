package activity

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/pkg"
	"github.com/simp-lee/vaultfeed/internal/presentation"
)

// Handler serves the activity ingestion and one-shot feed endpoints.
type Handler struct {
	svc        Service
	breakpoint int
}

// NewHandler creates a Handler. breakpoint is the widest viewport that
// gets the mobile layout; non-positive means presentation.DefaultBreakpoint.
func NewHandler(svc Service, breakpoint int) *Handler {
	if breakpoint <= 0 {
		breakpoint = presentation.DefaultBreakpoint
	}
	return &Handler{svc: svc, breakpoint: breakpoint}
}

// Record handles POST /api/v1/vaults/:vault/activities.
func (h *Handler) Record(c *gin.Context) {
	var uri VaultURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	var req RecordActivityRequest
	if !pkg.BindJSON(c, &req) {
		return
	}

	activity := req.toDomain()
	if err := h.svc.Record(c.Request.Context(), uri.Vault, &activity); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, activity)
}

// RecordBatch handles POST /api/v1/vaults/:vault/activities/batch.
func (h *Handler) RecordBatch(c *gin.Context) {
	var uri VaultURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	var req RecordBatchRequest
	if !pkg.BindJSON(c, &req) {
		return
	}

	activities := make([]domain.Activity, len(req.Activities))
	for i, r := range req.Activities {
		activities[i] = r.toDomain()
	}
	if err := h.svc.RecordBatch(c.Request.Context(), uri.Vault, activities); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, gin.H{"recorded": len(activities)})
}

// Feed handles GET /api/v1/vaults/:vault/activities.
func (h *Handler) Feed(c *gin.Context) {
	var uri VaultURI
	if !pkg.BindURI(c, &uri) {
		return
	}
	var q FeedQuery
	if !pkg.BindQuery(c, &q) {
		return
	}

	out, err := h.svc.Feed(c.Request.Context(), uri.Vault, q.State())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, presentation.Render(out, q.Width, h.breakpoint, ""))
}

// Vaults handles GET /api/v1/vaults.
func (h *Handler) Vaults(c *gin.Context) {
	vaults, err := h.svc.Vaults(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	if vaults == nil {
		vaults = []string{}
	}
	pkg.Success(c, gin.H{"vaults": vaults})
}
