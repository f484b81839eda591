package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/vaultfeed/internal/source"
)

// apiPrefix is the mount point of every module.
const apiPrefix = "/api/v1"

// StatusReporter reports per-vault snapshot diagnostics.
type StatusReporter interface {
	Statuses() []source.Status
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	Source  StatusReporter

	// MetricsPath mounts MetricsHandler when both are set.
	MetricsPath    string
	MetricsHandler http.Handler
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}

	r.GET("/health", healthHandler(deps.DB, deps.Source))

	if deps.MetricsPath != "" && deps.MetricsHandler != nil {
		if strings.HasPrefix(deps.MetricsPath, apiPrefix) {
			return fmt.Errorf("metrics path %q must not be under %s", deps.MetricsPath, apiPrefix)
		}
		r.GET(deps.MetricsPath, gin.WrapH(deps.MetricsHandler))
	}

	api := r.Group(apiPrefix)
	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api)
	}

	r.HandleMethodNotAllowed = true
	r.NoRoute(noRouteHandler())
	r.NoMethod(noMethodHandler())

	return nil
}

// healthHandler pings the database and lists the vault snapshots. A failed
// ping reports "degraded" with 503; snapshot errors are informational.
func healthHandler(db *gorm.DB, src StatusReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		if err := pingDatabase(c.Request.Context(), db); err != nil {
			dbStatus = "error"
		}

		status, code := "ok", http.StatusOK
		if dbStatus != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		body := gin.H{
			"status": status,
			"components": gin.H{
				"database": dbStatus,
			},
		}
		if src != nil {
			body["vaults"] = src.Statuses()
		}
		c.JSON(code, body)
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
