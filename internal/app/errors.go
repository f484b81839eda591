package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/vaultfeed/internal/pkg"
)

func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not found")
	}
}

func noMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// writeError answers with the standard envelope and a null data field.
func writeError(c *gin.Context, code int, message string) {
	c.JSON(code, pkg.Response{Code: code, Message: message})
}
